package weather

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/weathermon/weather-monitor/internal/observability"
)

// Service orchestrates ingestion, aggregation, and queries. The live
// ingestion path and the daily aggregation job share only the reading
// store, which is concurrency-safe; everything else is disjoint.
type Service struct {
	readings  ReadingStore
	summaries SummaryStore
	providers []Provider
	agg       *Aggregator
	sink      ReadingSink
	clock     clockwork.Clock
	metrics   *observability.Metrics
}

// NewService creates a Service. sink may be nil when live alerting is
// disabled; clock may be nil to use real time.
func NewService(readings ReadingStore, summaries SummaryStore, providers []Provider, agg *Aggregator, sink ReadingSink, clock clockwork.Clock, metrics *observability.Metrics) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Service{
		readings:  readings,
		summaries: summaries,
		providers: providers,
		agg:       agg,
		sink:      sink,
		clock:     clock,
		metrics:   metrics,
	}
}

// FetchAndStore pulls the current reading for a city from the first
// provider that succeeds, persists it, and hands it to the reading
// sink. Provider failures are logged and the cycle is skipped; the
// caller retries on the next tick.
func (s *Service) FetchAndStore(ctx context.Context, city string) error {
	if len(s.providers) == 0 {
		return fmt.Errorf("no weather providers configured")
	}

	started := s.clock.Now()
	var reading Reading
	var fetched bool

	for _, p := range s.providers {
		r, err := p.Fetch(ctx, city)
		if err != nil {
			slog.Warn("provider fetch failed", "provider", p.Name(), "city", city, "error", err)
			continue
		}
		reading = r
		fetched = true
		break
	}

	if s.metrics != nil {
		s.metrics.FetchDuration.Observe(s.clock.Since(started).Seconds())
	}
	if !fetched {
		if s.metrics != nil {
			s.metrics.ReadingsFetched.WithLabelValues(city, "error").Inc()
		}
		return fmt.Errorf("all providers failed for %s", city)
	}

	if err := s.readings.SaveReading(reading); err != nil {
		if s.metrics != nil {
			s.metrics.ReadingsFetched.WithLabelValues(city, "error").Inc()
		}
		return fmt.Errorf("save reading for %s: %w", city, err)
	}
	if s.metrics != nil {
		s.metrics.ReadingsFetched.WithLabelValues(city, "success").Inc()
	}

	if s.sink != nil {
		s.sink.OnReading(ctx, reading)
	}
	return nil
}

// SummarizeDay computes and upserts the daily summary of the given day
// for each city. Per-city failures are logged with enough context to
// replay by hand and do not abort the remaining cities.
func (s *Service) SummarizeDay(ctx context.Context, day time.Time, cities []string) {
	start := s.agg.StartOfDay(day)
	end := start.AddDate(0, 0, 1)

	for _, city := range cities {
		if ctx.Err() != nil {
			return
		}

		readings, err := s.readings.ReadingsBetween(city, start, end)
		if err != nil {
			slog.Error("summary: read readings failed", "city", city, "day", start.Format(time.DateOnly), "error", err)
			s.countSummaryRun("error")
			continue
		}

		summary, err := s.agg.ComputeDailySummary(readings, start, city)
		if err != nil {
			// No data for this city/day; nothing to persist.
			slog.Info("summary: no readings", "city", city, "day", start.Format(time.DateOnly))
			s.countSummaryRun("empty")
			continue
		}

		if err := s.summaries.UpsertDailySummary(summary); err != nil {
			slog.Error("summary: persist failed", "city", city, "day", start.Format(time.DateOnly), "error", err)
			s.countSummaryRun("error")
			continue
		}
		s.countSummaryRun("success")
		slog.Info("summary: stored",
			"city", city, "day", start.Format(time.DateOnly),
			"min", summary.MinTempC, "max", summary.MaxTempC, "avg", summary.AvgTempC)
	}
}

func (s *Service) countSummaryRun(outcome string) {
	if s.metrics != nil {
		s.metrics.SummaryRuns.WithLabelValues(outcome).Inc()
	}
}

// Now exposes the service clock so callers scheduling work against it
// (the daily summary trigger) pick the same instant the service would.
func (s *Service) Now() time.Time {
	return s.clock.Now()
}

// Latest returns the most recent stored reading for a city.
func (s *Service) Latest(city string) (Reading, error) {
	return s.readings.LatestReading(city)
}

// TodayReadings returns all readings of the current calendar day.
func (s *Service) TodayReadings(city string) ([]Reading, error) {
	start := s.agg.StartOfDay(s.clock.Now())
	return s.readings.ReadingsBetween(city, start, start.AddDate(0, 0, 1))
}

// WeeklySummaries recomputes summaries for the trailing 7 calendar days
// (including today) from raw readings. Days without readings are omitted.
func (s *Service) WeeklySummaries(city string) ([]DailySummary, error) {
	now := s.clock.Now()
	from := s.agg.StartOfDay(now.AddDate(0, 0, -6))

	readings, err := s.readings.ReadingsBetween(city, from, now)
	if err != nil {
		return nil, err
	}
	summaries := s.agg.ComputeDateRangeSummaries(readings, from, now, city)
	if len(summaries) == 0 {
		return nil, ErrNoReadings
	}
	return summaries, nil
}

// StoredSummaries returns the persisted output of the daily job.
func (s *Service) StoredSummaries(city string, from, to time.Time) ([]DailySummary, error) {
	return s.summaries.SummariesBetween(city, from, to)
}
