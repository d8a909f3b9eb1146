package scheduler

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weathermon/weather-monitor/internal/observability"
	"github.com/weathermon/weather-monitor/internal/store"
	"github.com/weathermon/weather-monitor/internal/weather"
)

func newSchedulerAt(t *testing.T, now time.Time, loc *time.Location) (*Scheduler, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore(0, 0)
	svc := weather.NewService(
		st, st, nil,
		weather.NewAggregator(loc),
		nil,
		clockwork.NewFakeClockAt(now),
		observability.NewMetricsForTesting(),
	)
	return New([]string{"Delhi"}, 5*time.Minute, "00:00", loc, svc), st
}

func TestRunSummariesPicksYesterday(t *testing.T) {
	// Just past midnight on the 15th; the job must summarize the 14th.
	now := time.Date(2024, 10, 15, 0, 5, 0, 0, time.UTC)
	sched, st := newSchedulerAt(t, now, time.UTC)

	day := time.Date(2024, 10, 14, 0, 0, 0, 0, time.UTC)
	for i, temp := range []float64{20, 25, 30} {
		require.NoError(t, st.SaveReading(weather.Reading{
			City: "Delhi", Raw: "Clear Sky", TemperatureC: temp,
			ObservedAt: day.Add(time.Duration(8+i) * time.Hour),
		}))
	}

	sched.runSummaries()

	got, err := st.SummariesBetween("Delhi", day, day)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, day, got[0].Date)
	assert.Equal(t, 20.0, got[0].MinTempC)
	assert.Equal(t, 30.0, got[0].MaxTempC)
}

func TestRunSummariesUsesReferenceTimezone(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)

	// 20:00 UTC on the 14th is already 01:30 on the 15th in IST, so
	// "yesterday" is the IST 14th.
	now := time.Date(2024, 10, 14, 20, 0, 0, 0, time.UTC)
	sched, st := newSchedulerAt(t, now, ist)

	day := time.Date(2024, 10, 14, 0, 0, 0, 0, ist)
	require.NoError(t, st.SaveReading(weather.Reading{
		City: "Delhi", Raw: "Clear Sky", TemperatureC: 25,
		ObservedAt: day.Add(10 * time.Hour),
	}))

	sched.runSummaries()

	got, err := st.SummariesBetween("Delhi", day, day)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].Date.Equal(day))
}
