package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weathermon/weather-monitor/internal/alert"
	"github.com/weathermon/weather-monitor/internal/weather"
)

func openTestDB(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "weather.db"), time.UTC)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteReadingsRoundTrip(t *testing.T) {
	s := openTestDB(t)
	base := time.Date(2024, 10, 14, 8, 0, 0, 0, time.UTC)

	r := weather.Reading{
		City:         "Delhi",
		Raw:          "Clear Sky",
		Condition:    weather.ConditionClear,
		TemperatureC: 25.5,
		FeelsLikeC:   26.1,
		ObservedAt:   base,
	}
	require.NoError(t, s.SaveReading(r))
	require.NoError(t, s.SaveReading(weather.Reading{City: "Delhi", Raw: "Mist", Condition: weather.ConditionMist, TemperatureC: 22, ObservedAt: base.Add(time.Hour)}))

	latest, err := s.LatestReading("Delhi")
	require.NoError(t, err)
	assert.Equal(t, 22.0, latest.TemperatureC)

	_, err = s.LatestReading("Atlantis")
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := s.ReadingsBetween("Delhi", base, base.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 1, "range is half-open")
	assert.Equal(t, int64(1), got[0].ID, "row id surfaces on the reading")
	r.ID = got[0].ID
	assert.Equal(t, r, got[0])
}

func TestSQLiteSummaryUpsert(t *testing.T) {
	s := openTestDB(t)
	day := time.Date(2024, 10, 14, 0, 0, 0, 0, time.UTC)

	sum := weather.DailySummary{
		City: "Delhi", Date: day,
		MinTempC: 20, MaxTempC: 30, AvgTempC: 25,
		DominantCondition: "Clear Sky", ReadingCount: 3,
		HourlyBuckets: []weather.HourlyBucket{
			{Hour: 8, AvgTempC: 21.5, Count: 2, RoundedAt: day.Add(8 * time.Hour), RepresentativeID: 4},
		},
	}
	require.NoError(t, s.UpsertDailySummary(sum))

	sum.AvgTempC = 26
	require.NoError(t, s.UpsertDailySummary(sum))

	got, err := s.SummariesBetween("Delhi", day, day)
	require.NoError(t, err)
	require.Len(t, got, 1, "rerun must not duplicate the record")
	assert.Equal(t, 26.0, got[0].AvgTempC)
	require.Len(t, got[0].HourlyBuckets, 1)
	assert.Equal(t, 8, got[0].HourlyBuckets[0].Hour)
	assert.Equal(t, int64(4), got[0].HourlyBuckets[0].RepresentativeID)
}

func TestSQLiteSubscriptions(t *testing.T) {
	s := openTestDB(t)

	require.NoError(t, s.UpsertSubscription(alert.Subscription{Email: "user@example.com", City: "Delhi", ThresholdC: 30}))
	require.NoError(t, s.SetLastDirection("user@example.com", alert.DirectionAbove))

	sub, err := s.Subscription("user@example.com")
	require.NoError(t, err)
	assert.Equal(t, alert.DirectionAbove, sub.LastDirection)
	assert.Equal(t, "Delhi", sub.City)

	// Re-registration resets the latch.
	require.NoError(t, s.UpsertSubscription(alert.Subscription{Email: "user@example.com", ThresholdC: 28}))
	sub, err = s.Subscription("user@example.com")
	require.NoError(t, err)
	assert.Equal(t, alert.DirectionNone, sub.LastDirection)
	assert.Equal(t, 28.0, sub.ThresholdC)

	assert.ErrorIs(t, s.SetLastDirection("ghost@example.com", alert.DirectionAbove), ErrNotFound)

	subs, err := s.Subscriptions()
	require.NoError(t, err)
	assert.Len(t, subs, 1)
}
