package weather

import (
	"errors"
	"sort"
	"time"
)

// ErrNoReadings is returned when an aggregation window contains no data.
var ErrNoReadings = errors.New("no readings for requested period")

// Aggregator buckets raw readings into calendar-day and hour-of-day
// groups. All day boundaries are computed in a single reference
// timezone that must match the one used at ingestion time.
type Aggregator struct {
	loc *time.Location
}

// NewAggregator creates an Aggregator using loc as the reference
// timezone. A nil loc falls back to UTC.
func NewAggregator(loc *time.Location) *Aggregator {
	if loc == nil {
		loc = time.UTC
	}
	return &Aggregator{loc: loc}
}

// Location returns the reference timezone.
func (a *Aggregator) Location() *time.Location {
	return a.loc
}

// StartOfDay returns midnight of t's calendar day in the reference timezone.
func (a *Aggregator) StartOfDay(t time.Time) time.Time {
	t = t.In(a.loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, a.loc)
}

// RoundToHour rounds t to the nearest hour in the reference timezone:
// minute >= 30 rounds up. The result is a full timestamp, so 23:45
// normalizes into hour 0 of the next day instead of an hour-24 label.
// Built with time.Date rather than Truncate because Truncate cuts on
// absolute UTC boundaries and misbuckets zones with half-hour offsets.
func (a *Aggregator) RoundToHour(t time.Time) time.Time {
	t = t.In(a.loc)
	rounded := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, a.loc)
	if t.Minute() >= 30 {
		rounded = rounded.Add(time.Hour)
	}
	return rounded
}

// ComputeDailySummary aggregates the readings of one calendar day for a
// city. Pure and deterministic: identical input yields an identical
// summary. Daily min/max/avg are taken over the raw readings; averaging
// the hourly bucket averages instead would double-weight sparse hours.
// The dominant condition is the chronologically earliest reading's.
func (a *Aggregator) ComputeDailySummary(readings []Reading, day time.Time, city string) (DailySummary, error) {
	start := a.StartOfDay(day)
	end := start.AddDate(0, 0, 1)

	var dayReadings []Reading
	for _, r := range readings {
		if r.City != city {
			continue
		}
		if r.ObservedAt.Before(start) || !r.ObservedAt.Before(end) {
			continue
		}
		dayReadings = append(dayReadings, r)
	}
	if len(dayReadings) == 0 {
		return DailySummary{}, ErrNoReadings
	}

	sort.SliceStable(dayReadings, func(i, j int) bool {
		return dayReadings[i].ObservedAt.Before(dayReadings[j].ObservedAt)
	})

	type hourAcc struct {
		sum   float64
		count int
		repID int64 // earliest reading's id; dayReadings is time-ordered
	}

	var (
		sum     float64
		minTemp = dayReadings[0].TemperatureC
		maxTemp = dayReadings[0].TemperatureC
		hours   = make(map[time.Time]*hourAcc)
	)

	for _, r := range dayReadings {
		sum += r.TemperatureC
		if r.TemperatureC < minTemp {
			minTemp = r.TemperatureC
		}
		if r.TemperatureC > maxTemp {
			maxTemp = r.TemperatureC
		}

		key := a.RoundToHour(r.ObservedAt)
		acc, ok := hours[key]
		if !ok {
			acc = &hourAcc{repID: r.ID}
			hours[key] = acc
		}
		acc.sum += r.TemperatureC
		acc.count++
	}

	buckets := make([]HourlyBucket, 0, len(hours))
	for ts, acc := range hours {
		buckets = append(buckets, HourlyBucket{
			Hour:             ts.In(a.loc).Hour(),
			AvgTempC:         acc.sum / float64(acc.count),
			Count:            acc.count,
			RoundedAt:        ts,
			RepresentativeID: acc.repID,
		})
	}
	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].RoundedAt.Before(buckets[j].RoundedAt)
	})

	return DailySummary{
		City:              city,
		Date:              start,
		MinTempC:          minTemp,
		MaxTempC:          maxTemp,
		AvgTempC:          sum / float64(len(dayReadings)),
		DominantCondition: dayReadings[0].Raw,
		ReadingCount:      len(dayReadings),
		HourlyBuckets:     buckets,
	}, nil
}

// ComputeDateRangeSummaries produces one DailySummary per calendar day
// in [from, to] that has at least one reading, ordered by date
// ascending. Days without readings are omitted, not zero-filled.
func (a *Aggregator) ComputeDateRangeSummaries(readings []Reading, from, to time.Time, city string) []DailySummary {
	first := a.StartOfDay(from)
	last := a.StartOfDay(to)

	days := make(map[time.Time]struct{})
	for _, r := range readings {
		if r.City != city {
			continue
		}
		day := a.StartOfDay(r.ObservedAt)
		if day.Before(first) || day.After(last) {
			continue
		}
		days[day] = struct{}{}
	}

	keys := make([]time.Time, 0, len(days))
	for day := range days {
		keys = append(keys, day)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Before(keys[j]) })

	summaries := make([]DailySummary, 0, len(keys))
	for _, day := range keys {
		summary, err := a.ComputeDailySummary(readings, day, city)
		if err != nil {
			continue
		}
		summaries = append(summaries, summary)
	}
	return summaries
}
