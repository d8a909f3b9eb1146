package store

import (
	"sort"
	"sync"
	"time"

	"github.com/weathermon/weather-monitor/internal/alert"
	"github.com/weathermon/weather-monitor/internal/weather"
)

// MemoryStore is a concurrency-safe in-memory implementation of the
// reading, summary, and subscription stores. The default backend when
// no SQLite path is configured.
type MemoryStore struct {
	mu sync.RWMutex

	nextID    int64
	readings  map[string][]weather.Reading    // key: city, ordered by ObservedAt
	summaries map[string]weather.DailySummary // key: city + "|" + date
	subs      map[string]alert.Subscription   // key: email

	// retention configuration for raw readings
	maxHistory int           // max readings per city (0 = unlimited)
	maxAge     time.Duration // max reading age (0 = unlimited)
}

// NewMemoryStore creates a MemoryStore with optional retention limits.
func NewMemoryStore(maxHistory int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		readings:   make(map[string][]weather.Reading),
		summaries:  make(map[string]weather.DailySummary),
		subs:       make(map[string]alert.Subscription),
		maxHistory: maxHistory,
		maxAge:     maxAge,
	}
}

// SaveReading assigns the reading an id, appends it for its city, and
// enforces retention.
func (s *MemoryStore) SaveReading(r weather.Reading) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	r.ID = s.nextID

	history := append(s.readings[r.City], r)
	sort.SliceStable(history, func(i, j int) bool {
		return history[i].ObservedAt.Before(history[j].ObservedAt)
	})

	if s.maxHistory > 0 && len(history) > s.maxHistory {
		history = history[len(history)-s.maxHistory:]
	}
	if s.maxAge > 0 {
		cutoff := time.Now().Add(-s.maxAge)
		i := 0
		for ; i < len(history); i++ {
			if !history[i].ObservedAt.Before(cutoff) {
				break
			}
		}
		history = history[i:]
	}

	s.readings[r.City] = history
	return nil
}

// LatestReading returns the most recent reading for a city.
func (s *MemoryStore) LatestReading(city string) (weather.Reading, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.readings[city]
	if len(history) == 0 {
		return weather.Reading{}, ErrNotFound
	}
	return history[len(history)-1], nil
}

// ReadingsBetween returns readings in [from, to), ordered by time.
// An empty range yields an empty slice, not an error.
func (s *MemoryStore) ReadingsBetween(city string, from, to time.Time) ([]weather.Reading, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []weather.Reading
	for _, r := range s.readings[city] {
		if r.ObservedAt.Before(from) || !r.ObservedAt.Before(to) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func summaryKey(city string, date time.Time) string {
	return city + "|" + date.Format(time.DateOnly)
}

// UpsertDailySummary stores a summary keyed on (city, date); rerunning
// the daily job for the same day replaces the previous record.
func (s *MemoryStore) UpsertDailySummary(sum weather.DailySummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summaries[summaryKey(sum.City, sum.Date)] = sum
	return nil
}

// SummariesBetween returns stored summaries with dates in [from, to],
// ordered by date ascending.
func (s *MemoryStore) SummariesBetween(city string, from, to time.Time) ([]weather.DailySummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []weather.DailySummary
	for _, sum := range s.summaries {
		if sum.City != city || sum.Date.Before(from) || sum.Date.After(to) {
			continue
		}
		out = append(out, sum)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// UpsertSubscription creates or replaces the subscription for an email.
// Re-registration is an explicit restatement of intent, so the latch is
// reset to DirectionNone.
func (s *MemoryStore) UpsertSubscription(sub alert.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub.LastDirection = alert.DirectionNone
	if sub.UpdatedAt.IsZero() {
		sub.UpdatedAt = time.Now().UTC()
	}
	s.subs[sub.Email] = sub
	return nil
}

// Subscription returns the live record for an email.
func (s *MemoryStore) Subscription(email string) (alert.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.subs[email]
	if !ok {
		return alert.Subscription{}, ErrNotFound
	}
	return sub, nil
}

// Subscriptions lists all live subscriptions.
func (s *MemoryStore) Subscriptions() ([]alert.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]alert.Subscription, 0, len(s.subs))
	for _, sub := range s.subs {
		out = append(out, sub)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

// SetLastDirection latches the alert direction for an email.
func (s *MemoryStore) SetLastDirection(email string, d alert.Direction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.subs[email]
	if !ok {
		return ErrNotFound
	}
	sub.LastDirection = d
	sub.UpdatedAt = time.Now().UTC()
	s.subs[email] = sub
	return nil
}
