package httpapi

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/weathermon/weather-monitor/internal/alert"
	"github.com/weathermon/weather-monitor/internal/notify"
	"github.com/weathermon/weather-monitor/internal/store"
	"github.com/weathermon/weather-monitor/internal/weather"
)

var validate = validator.New()

// SubscriptionWriter persists threshold registrations.
type SubscriptionWriter interface {
	UpsertSubscription(sub alert.Subscription) error
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *weather.Service, subs SubscriptionWriter, notifier notify.Notifier) {
	api := app.Group("/api")

	api.Get("/current-temp", func(c *fiber.Ctx) error {
		city, unit, err := parseCityUnit(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		reading, err := service.Latest(city)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no weather data found for the specified city")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch weather data")
		}

		return c.JSON(fiber.Map{
			"city":        reading.City,
			"main":        reading.Raw,
			"temperature": formatTemp(reading.TemperatureC, unit),
			"feels_like":  formatTemp(reading.FeelsLikeC, unit),
			"unit":        unit,
			"timestamp":   reading.ObservedAt,
		})
	})

	api.Get("/all-temperatures", func(c *fiber.Ctx) error {
		city, unit, err := parseCityUnit(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		readings, err := service.TodayReadings(city)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch temperature data")
		}
		if len(readings) == 0 {
			return fiber.NewError(fiber.StatusNotFound, "no temperature data found for the specified city today")
		}

		out := make([]fiber.Map, 0, len(readings))
		for _, r := range readings {
			out = append(out, fiber.Map{
				"temperature": formatTemp(r.TemperatureC, unit),
				"main":        r.Raw,
				"timestamp":   r.ObservedAt,
			})
		}
		return c.JSON(out)
	})

	api.Get("/weekly-temperatures", func(c *fiber.Ctx) error {
		city, unit, err := parseCityUnit(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		summaries, err := service.WeeklySummaries(city)
		if err != nil {
			if errors.Is(err, weather.ErrNoReadings) {
				return fiber.NewError(fiber.StatusNotFound, "no temperature data found for the specified city in the last 7 days")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch temperature data")
		}

		return c.JSON(renderWeekly(summaries, unit))
	})

	api.Get("/daily-summaries", func(c *fiber.Ctx) error {
		var req summariesQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		summaries, err := service.StoredSummaries(req.City, req.From, req.To)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch summaries")
		}
		if len(summaries) == 0 {
			return fiber.NewError(fiber.StatusNotFound, "no summaries for requested range")
		}
		return c.JSON(summaries)
	})

	api.Post("/set-threshold", func(c *fiber.Ctx) error {
		var req thresholdRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		sub := alert.Subscription{
			Email:      req.Email,
			City:       req.City,
			ThresholdC: *req.Threshold,
		}
		if err := subs.UpsertSubscription(sub); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to save threshold")
		}
		return c.JSON(fiber.Map{"message": "threshold saved"})
	})

	api.Post("/send-email", func(c *fiber.Ctx) error {
		var req sendEmailRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		if err := notifier.Send(c.Context(), req.Email, req.Subject, req.Text); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to send email")
		}
		return c.JSON(fiber.Map{"message": "email sent"})
	})
}

// thresholdRequest registers a per-user alert threshold. Threshold is a
// pointer so an explicit 0 survives the required check.
type thresholdRequest struct {
	Email     string   `json:"email" validate:"required,email"`
	Threshold *float64 `json:"threshold" validate:"required,gte=0,lte=99"`
	City      string   `json:"city"`
}

type sendEmailRequest struct {
	Email   string `json:"email" validate:"required,email"`
	Subject string `json:"subject" validate:"required"`
	Text    string `json:"text" validate:"required"`
}

// summariesQuery holds query parameters for the daily-summaries endpoint.
type summariesQuery struct {
	City string    `validate:"required"`
	From time.Time `validate:"required"`
	To   time.Time `validate:"required,gtefield=From"`
}

func (q *summariesQuery) bind(c *fiber.Ctx) error {
	q.City = c.Query("city")

	fromStr := c.Query("from")
	toStr := c.Query("to")
	if fromStr == "" || toStr == "" {
		return errors.New("from and to query parameters are required")
	}

	from, err := time.Parse(time.DateOnly, fromStr)
	if err != nil {
		return fmt.Errorf("invalid from date; use yyyy-mm-dd: %w", err)
	}
	to, err := time.Parse(time.DateOnly, toStr)
	if err != nil {
		return fmt.Errorf("invalid to date; use yyyy-mm-dd: %w", err)
	}

	q.From = from
	q.To = to
	return validate.Struct(q)
}

func parseCityUnit(c *fiber.Ctx) (string, weather.Unit, error) {
	city := c.Query("city")
	if city == "" {
		return "", "", errors.New("city parameter is required")
	}
	unit, err := weather.ParseUnit(c.Query("unit"))
	if err != nil {
		return "", "", err
	}
	return city, unit, nil
}

// formatTemp converts to the display unit and fixes two decimal places.
// All rounding happens here at the edge; internal computation keeps
// full float precision.
func formatTemp(tempC float64, unit weather.Unit) string {
	return fmt.Sprintf("%.2f", weather.Convert(tempC, unit))
}

// renderWeekly shapes summaries into the weekly view consumed by the
// dashboard: one object per day with a nested per-hour breakdown.
func renderWeekly(summaries []weather.DailySummary, unit weather.Unit) []fiber.Map {
	out := make([]fiber.Map, 0, len(summaries))
	for _, s := range summaries {
		daily := make([]fiber.Map, 0, len(s.HourlyBuckets))
		for _, b := range s.HourlyBuckets {
			daily = append(daily, fiber.Map{
				"hour":        b.Hour,
				"temperature": formatTemp(b.AvgTempC, unit),
				"timestamp":   b.RoundedAt,
				"readingId":   b.RepresentativeID,
			})
		}
		out = append(out, fiber.Map{
			"date":            s.Date.Format(time.DateOnly),
			"avgTemp":         formatTemp(s.AvgTempC, unit),
			"minTemp":         formatTemp(s.MinTempC, unit),
			"maxTemp":         formatTemp(s.MaxTempC, unit),
			"dominantWeather": s.DominantCondition,
			"dailyTemp":       daily,
		})
	}
	return out
}
