package httpapi_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpapi "github.com/weathermon/weather-monitor/internal/api/http"
	"github.com/weathermon/weather-monitor/internal/observability"
	"github.com/weathermon/weather-monitor/internal/store"
	"github.com/weathermon/weather-monitor/internal/weather"
)

type stubNotifier struct {
	recipients []string
	err        error
}

func (n *stubNotifier) Send(_ context.Context, recipient, _, _ string) error {
	if n.err != nil {
		return n.err
	}
	n.recipients = append(n.recipients, recipient)
	return nil
}

// now is 18:00 UTC so the whole test day is in scope for today views.
var testNow = time.Date(2024, 10, 14, 18, 0, 0, 0, time.UTC)

func newTestApp(t *testing.T) (*fiber.App, *store.MemoryStore, *stubNotifier) {
	t.Helper()

	st := store.NewMemoryStore(0, 0)
	notifier := &stubNotifier{}
	svc := weather.NewService(
		st, st, nil,
		weather.NewAggregator(time.UTC),
		nil,
		clockwork.NewFakeClockAt(testNow),
		observability.NewMetricsForTesting(),
	)

	app := fiber.New()
	httpapi.RegisterRoutes(app, svc, st, notifier)
	return app, st, notifier
}

func seedWeek(t *testing.T, st *store.MemoryStore, city string) {
	t.Helper()
	for d := 0; d < 7; d++ {
		day := time.Date(2024, 10, 8, 0, 0, 0, 0, time.UTC).AddDate(0, 0, d)
		for i, temp := range []float64{20, 25, 30} {
			require.NoError(t, st.SaveReading(weather.Reading{
				City: city, Raw: "Clear Sky", TemperatureC: temp,
				ObservedAt: day.Add(time.Duration(8+i) * time.Hour),
			}))
		}
	}
}

func decodeJSON(t *testing.T, body io.Reader, v any) {
	t.Helper()
	raw, err := io.ReadAll(body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, v))
}

func TestCurrentTemp(t *testing.T) {
	app, st, _ := newTestApp(t)
	require.NoError(t, st.SaveReading(weather.Reading{
		City: "Delhi", Raw: "Clear Sky", TemperatureC: 25, FeelsLikeC: 27,
		ObservedAt: testNow.Add(-5 * time.Minute),
	}))

	t.Run("returns the latest reading", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest("GET", "/api/current-temp?city=Delhi", nil))
		require.NoError(t, err)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)

		var body map[string]any
		decodeJSON(t, resp.Body, &body)
		assert.Equal(t, "Delhi", body["city"])
		assert.Equal(t, "25.00", body["temperature"])
		assert.Equal(t, "27.00", body["feels_like"])
	})

	t.Run("converts to fahrenheit", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest("GET", "/api/current-temp?city=Delhi&unit=f", nil))
		require.NoError(t, err)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)

		var body map[string]any
		decodeJSON(t, resp.Body, &body)
		assert.Equal(t, "77.00", body["temperature"])
	})

	t.Run("unknown city is 404", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest("GET", "/api/current-temp?city=Atlantis", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	})

	t.Run("missing city is 400", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest("GET", "/api/current-temp", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})

	t.Run("bad unit is 400", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest("GET", "/api/current-temp?city=Delhi&unit=rankine", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})
}

func TestAllTemperatures(t *testing.T) {
	app, st, _ := newTestApp(t)
	require.NoError(t, st.SaveReading(weather.Reading{
		City: "Delhi", Raw: "Mist", TemperatureC: 18,
		ObservedAt: time.Date(2024, 10, 14, 7, 0, 0, 0, time.UTC),
	}))
	// Yesterday's reading must not leak into the today view.
	require.NoError(t, st.SaveReading(weather.Reading{
		City: "Delhi", Raw: "Clear Sky", TemperatureC: 30,
		ObservedAt: time.Date(2024, 10, 13, 12, 0, 0, 0, time.UTC),
	}))

	resp, err := app.Test(httptest.NewRequest("GET", "/api/all-temperatures?city=Delhi", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body []map[string]any
	decodeJSON(t, resp.Body, &body)
	require.Len(t, body, 1)
	assert.Equal(t, "18.00", body[0]["temperature"])
	assert.Equal(t, "Mist", body[0]["main"])

	resp, err = app.Test(httptest.NewRequest("GET", "/api/all-temperatures?city=Mumbai", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestWeeklyTemperatures(t *testing.T) {
	app, st, _ := newTestApp(t)
	seedWeek(t, st, "Delhi")

	resp, err := app.Test(httptest.NewRequest("GET", "/api/weekly-temperatures?city=Delhi", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body []map[string]any
	decodeJSON(t, resp.Body, &body)
	require.Len(t, body, 7)

	first := body[0]
	assert.Equal(t, "2024-10-08", first["date"])
	assert.Equal(t, "25.00", first["avgTemp"])
	assert.Equal(t, "20.00", first["minTemp"])
	assert.Equal(t, "30.00", first["maxTemp"])
	assert.Equal(t, "Clear Sky", first["dominantWeather"])

	hours, ok := first["dailyTemp"].([]any)
	require.True(t, ok)
	require.Len(t, hours, 3)
	bucket, ok := hours[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(8), bucket["hour"])
	assert.Equal(t, "20.00", bucket["temperature"])
	// seedWeek inserts day one's hour-8 reading first; the memory store
	// assigns it id 1 and the bucket must reference it.
	assert.Equal(t, float64(1), bucket["readingId"])

	resp, err = app.Test(httptest.NewRequest("GET", "/api/weekly-temperatures?city=Atlantis", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestDailySummaries(t *testing.T) {
	app, st, _ := newTestApp(t)
	day := time.Date(2024, 10, 10, 0, 0, 0, 0, time.UTC)
	require.NoError(t, st.UpsertDailySummary(weather.DailySummary{
		City: "Delhi", Date: day, MinTempC: 20, MaxTempC: 30, AvgTempC: 25,
		DominantCondition: "Clear Sky", ReadingCount: 3,
	}))

	t.Run("returns stored summaries", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest("GET", "/api/daily-summaries?city=Delhi&from=2024-10-09&to=2024-10-11", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	})

	t.Run("empty range is 404", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest("GET", "/api/daily-summaries?city=Delhi&from=2024-01-01&to=2024-01-02", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	})

	t.Run("malformed date is 400", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest("GET", "/api/daily-summaries?city=Delhi&from=oct-9&to=2024-10-11", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})

	t.Run("to before from is 400", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest("GET", "/api/daily-summaries?city=Delhi&from=2024-10-11&to=2024-10-09", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})
}

func postJSON(app *fiber.App, path, body string) (int, error) {
	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		return 0, err
	}
	return resp.StatusCode, nil
}

func TestSetThreshold(t *testing.T) {
	app, st, _ := newTestApp(t)

	t.Run("valid registration", func(t *testing.T) {
		code, err := postJSON(app, "/api/set-threshold", `{"email":"user@example.com","threshold":30,"city":"Delhi"}`)
		require.NoError(t, err)
		require.Equal(t, fiber.StatusOK, code)

		sub, err := st.Subscription("user@example.com")
		require.NoError(t, err)
		assert.Equal(t, 30.0, sub.ThresholdC)
		assert.Equal(t, "Delhi", sub.City)
	})

	t.Run("explicit zero threshold is valid", func(t *testing.T) {
		code, err := postJSON(app, "/api/set-threshold", `{"email":"zero@example.com","threshold":0}`)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, code)
	})

	t.Run("threshold above range", func(t *testing.T) {
		code, err := postJSON(app, "/api/set-threshold", `{"email":"user@example.com","threshold":100}`)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, code)
	})

	t.Run("missing threshold", func(t *testing.T) {
		code, err := postJSON(app, "/api/set-threshold", `{"email":"user@example.com"}`)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, code)
	})

	t.Run("bad email", func(t *testing.T) {
		code, err := postJSON(app, "/api/set-threshold", `{"email":"not-an-email","threshold":30}`)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, code)
	})
}

func TestSendEmail(t *testing.T) {
	app, _, notifier := newTestApp(t)

	t.Run("valid request", func(t *testing.T) {
		code, err := postJSON(app, "/api/send-email", `{"email":"user@example.com","subject":"hi","text":"hello"}`)
		require.NoError(t, err)
		require.Equal(t, fiber.StatusOK, code)
		require.Len(t, notifier.recipients, 1)
		assert.Equal(t, "user@example.com", notifier.recipients[0])
	})

	t.Run("missing subject", func(t *testing.T) {
		code, err := postJSON(app, "/api/send-email", `{"email":"user@example.com","text":"hello"}`)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, code)
	})
}
