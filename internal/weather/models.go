package weather

import (
	"time"
)

// Condition represents a normalized high-level weather condition.
type Condition string

const (
	ConditionUnknown Condition = "unknown"
	ConditionClear   Condition = "clear"
	ConditionCloudy  Condition = "cloudy"
	ConditionRain    Condition = "rain"
	ConditionSnow    Condition = "snow"
	ConditionStorm   Condition = "storm"
	ConditionMist    Condition = "mist"
)

// Reading is a single normalized temperature observation for a city.
// Immutable once stored; ObservedAt is always UTC. ID is assigned by
// the store on save and is zero on a reading that has not been
// persisted yet.
type Reading struct {
	ID           int64     `json:"id"`
	City         string    `json:"city"`
	Raw          string    `json:"condition"` // provider condition text, e.g. "Clear Sky"
	Condition    Condition `json:"normalizedCondition"`
	TemperatureC float64   `json:"temperatureC"`
	FeelsLikeC   float64   `json:"feelsLikeC"`
	ObservedAt   time.Time `json:"observedAt"`
}

// HourlyBucket is the average of all readings whose timestamps round to
// the same hour. RoundedAt carries the full rounded timestamp so a
// 23:45 reading lands in hour 0 of the following day rather than a
// nonexistent hour 24. RepresentativeID is the stored id of the
// chronologically earliest reading in the bucket, kept so a bucket can
// be traced back to a concrete observation.
type HourlyBucket struct {
	Hour             int       `json:"hour"` // 0-23, hour of RoundedAt in the reference timezone
	AvgTempC         float64   `json:"avgTempC"`
	Count            int       `json:"count"`
	RoundedAt        time.Time `json:"roundedAt"`
	RepresentativeID int64     `json:"representativeReadingId"`
}

// DailySummary aggregates one calendar day of readings for a city.
// Min/Max/Avg are computed over the raw readings of the day, never over
// the hourly bucket averages. Invariant: MinTempC <= AvgTempC <= MaxTempC.
type DailySummary struct {
	City              string         `json:"city"`
	Date              time.Time      `json:"date"` // midnight in the reference timezone
	MinTempC          float64        `json:"minTempC"`
	MaxTempC          float64        `json:"maxTempC"`
	AvgTempC          float64        `json:"avgTempC"`
	DominantCondition string         `json:"dominantCondition"`
	ReadingCount      int            `json:"readingCount"`
	HourlyBuckets     []HourlyBucket `json:"hourlyBuckets"`
}
