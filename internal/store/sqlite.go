package store

import (
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/weathermon/weather-monitor/internal/alert"
	"github.com/weathermon/weather-monitor/internal/weather"
)

//go:embed schema.sql
var schemaSQL string

// SQLiteStore is a durable implementation of the reading, summary, and
// subscription stores on a single SQLite file. Timestamps are stored as
// RFC3339Nano UTC strings; summary dates as yyyy-mm-dd in the reference
// timezone. Hourly buckets travel inside the summary row as JSON; they
// are never persisted independently of their DailySummary.
type SQLiteStore struct {
	db  *sql.DB
	loc *time.Location
}

// OpenSQLite opens (and if needed creates) the database at path and
// applies the schema. loc is the reference timezone used to interpret
// stored summary dates; nil means UTC.
func OpenSQLite(path string, loc *time.Location) (*SQLiteStore, error) {
	if loc == nil {
		loc = time.UTC
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// SQLite allows one writer; a single connection avoids SQLITE_BUSY
	// between the ingestion and summary paths.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLiteStore{db: db, loc: loc}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveReading(r weather.Reading) error {
	_, err := s.db.Exec(
		`INSERT INTO readings (city, condition, normalized, temperature_c, feels_like_c, observed_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		r.City, r.Raw, string(r.Condition), r.TemperatureC, r.FeelsLikeC,
		r.ObservedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert reading: %w", err)
	}
	return nil
}

func (s *SQLiteStore) LatestReading(city string) (weather.Reading, error) {
	row := s.db.QueryRow(
		`SELECT id, city, condition, normalized, temperature_c, feels_like_c, observed_at
		 FROM readings WHERE city = ? ORDER BY observed_at DESC LIMIT 1`, city)

	r, err := scanReading(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return weather.Reading{}, ErrNotFound
	}
	return r, err
}

func (s *SQLiteStore) ReadingsBetween(city string, from, to time.Time) ([]weather.Reading, error) {
	rows, err := s.db.Query(
		`SELECT id, city, condition, normalized, temperature_c, feels_like_c, observed_at
		 FROM readings WHERE city = ? AND observed_at >= ? AND observed_at < ?
		 ORDER BY observed_at`,
		city, from.UTC().Format(time.RFC3339Nano), to.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return nil, fmt.Errorf("query readings: %w", err)
	}
	defer rows.Close()

	var out []weather.Reading
	for rows.Next() {
		r, err := scanReading(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanReading(scan func(...any) error) (weather.Reading, error) {
	var r weather.Reading
	var normalized, observed string
	if err := scan(&r.ID, &r.City, &r.Raw, &normalized, &r.TemperatureC, &r.FeelsLikeC, &observed); err != nil {
		return weather.Reading{}, err
	}
	ts, err := time.Parse(time.RFC3339Nano, observed)
	if err != nil {
		return weather.Reading{}, fmt.Errorf("parse observed_at %q: %w", observed, err)
	}
	r.Condition = weather.Condition(normalized)
	r.ObservedAt = ts
	return r, nil
}

func (s *SQLiteStore) UpsertDailySummary(sum weather.DailySummary) error {
	buckets, err := json.Marshal(sum.HourlyBuckets)
	if err != nil {
		return fmt.Errorf("marshal hourly buckets: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO daily_summaries (city, date, min_temp_c, max_temp_c, avg_temp_c, dominant, reading_count, hourly_buckets)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (city, date) DO UPDATE SET
		   min_temp_c = excluded.min_temp_c,
		   max_temp_c = excluded.max_temp_c,
		   avg_temp_c = excluded.avg_temp_c,
		   dominant = excluded.dominant,
		   reading_count = excluded.reading_count,
		   hourly_buckets = excluded.hourly_buckets`,
		sum.City, sum.Date.In(s.loc).Format(time.DateOnly),
		sum.MinTempC, sum.MaxTempC, sum.AvgTempC,
		sum.DominantCondition, sum.ReadingCount, string(buckets),
	)
	if err != nil {
		return fmt.Errorf("upsert summary: %w", err)
	}
	return nil
}

func (s *SQLiteStore) SummariesBetween(city string, from, to time.Time) ([]weather.DailySummary, error) {
	rows, err := s.db.Query(
		`SELECT city, date, min_temp_c, max_temp_c, avg_temp_c, dominant, reading_count, hourly_buckets
		 FROM daily_summaries WHERE city = ? AND date >= ? AND date <= ?
		 ORDER BY date`,
		city, from.In(s.loc).Format(time.DateOnly), to.In(s.loc).Format(time.DateOnly))
	if err != nil {
		return nil, fmt.Errorf("query summaries: %w", err)
	}
	defer rows.Close()

	var out []weather.DailySummary
	for rows.Next() {
		var sum weather.DailySummary
		var date, buckets string
		if err := rows.Scan(&sum.City, &date, &sum.MinTempC, &sum.MaxTempC, &sum.AvgTempC,
			&sum.DominantCondition, &sum.ReadingCount, &buckets); err != nil {
			return nil, err
		}
		day, err := time.ParseInLocation(time.DateOnly, date, s.loc)
		if err != nil {
			return nil, fmt.Errorf("parse summary date %q: %w", date, err)
		}
		if err := json.Unmarshal([]byte(buckets), &sum.HourlyBuckets); err != nil {
			return nil, fmt.Errorf("unmarshal hourly buckets: %w", err)
		}
		sum.Date = day
		out = append(out, sum)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) UpsertSubscription(sub alert.Subscription) error {
	updated := sub.UpdatedAt
	if updated.IsZero() {
		updated = time.Now().UTC()
	}

	// Re-registration resets the latch.
	_, err := s.db.Exec(
		`INSERT INTO subscriptions (email, city, threshold_c, last_direction, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (email) DO UPDATE SET
		   city = excluded.city,
		   threshold_c = excluded.threshold_c,
		   last_direction = excluded.last_direction,
		   updated_at = excluded.updated_at`,
		sub.Email, sub.City, sub.ThresholdC, string(alert.DirectionNone),
		updated.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upsert subscription: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Subscription(email string) (alert.Subscription, error) {
	row := s.db.QueryRow(
		`SELECT email, city, threshold_c, last_direction, updated_at
		 FROM subscriptions WHERE email = ?`, email)

	sub, err := scanSubscription(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return alert.Subscription{}, ErrNotFound
	}
	return sub, err
}

func (s *SQLiteStore) Subscriptions() ([]alert.Subscription, error) {
	rows, err := s.db.Query(
		`SELECT email, city, threshold_c, last_direction, updated_at
		 FROM subscriptions ORDER BY email`)
	if err != nil {
		return nil, fmt.Errorf("query subscriptions: %w", err)
	}
	defer rows.Close()

	var out []alert.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

func scanSubscription(scan func(...any) error) (alert.Subscription, error) {
	var sub alert.Subscription
	var direction, updated string
	if err := scan(&sub.Email, &sub.City, &sub.ThresholdC, &direction, &updated); err != nil {
		return alert.Subscription{}, err
	}
	ts, err := time.Parse(time.RFC3339Nano, updated)
	if err != nil {
		return alert.Subscription{}, fmt.Errorf("parse updated_at %q: %w", updated, err)
	}
	sub.LastDirection = alert.Direction(direction)
	sub.UpdatedAt = ts
	return sub, nil
}

func (s *SQLiteStore) SetLastDirection(email string, d alert.Direction) error {
	res, err := s.db.Exec(
		`UPDATE subscriptions SET last_direction = ?, updated_at = ? WHERE email = ?`,
		string(d), time.Now().UTC().Format(time.RFC3339Nano), email)
	if err != nil {
		return fmt.Errorf("latch subscription: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
