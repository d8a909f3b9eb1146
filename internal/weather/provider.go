package weather

import (
	"context"
	"time"
)

// Provider abstracts an upstream weather data source.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, city string) (Reading, error)
}

// ReadingStore is the contract for the raw-reading store. Implementations
// must support concurrent reads.
type ReadingStore interface {
	SaveReading(r Reading) error
	LatestReading(city string) (Reading, error)
	ReadingsBetween(city string, from, to time.Time) ([]Reading, error)
}

// SummaryStore persists daily summaries. UpsertDailySummary is keyed on
// (city, date): re-running the daily job for the same day replaces the
// record instead of duplicating it.
type SummaryStore interface {
	UpsertDailySummary(s DailySummary) error
	SummariesBetween(city string, from, to time.Time) ([]DailySummary, error)
}

// ReadingSink receives every live reading after it is stored. Used to
// feed the alert dispatcher without coupling ingestion to alerting.
type ReadingSink interface {
	OnReading(ctx context.Context, r Reading)
}
