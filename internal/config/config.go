package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/weathermon/weather-monitor/internal/notify"
)

// AppConfig is the full runtime configuration, read from the
// environment with sensible defaults.
type AppConfig struct {
	OpenWeatherAPIKey string

	// Cities to track.
	Cities []string

	// Timezone is the single reference timezone for day-boundary and
	// hour-bucket computation. Ingestion and queries must agree on it.
	Timezone *time.Location

	// FetchInterval controls how often readings are pulled per city.
	FetchInterval time.Duration

	// PushInterval controls how often live updates go out to websocket
	// subscribers.
	PushInterval time.Duration

	// SummaryAt is the daily summary trigger, "HH:MM" in Timezone.
	SummaryAt string

	// In-memory store retention; ignored when SQLitePath is set.
	StoreMaxHistory int
	StoreMaxAge     time.Duration

	// SQLitePath selects the durable store; empty means in-memory.
	SQLitePath string

	// HTTPTimeout bounds outbound provider calls.
	HTTPTimeout time.Duration

	SMTP notify.SMTPConfig

	Port    string // public API
	OpsPort string // health, metrics, websocket

	LogLevel string
	AppEnv   string
}

// The default city set mirrors the dashboard's selector.
const defaultCities = "Delhi,Mumbai,Chennai,Bangalore,Kolkata,Hyderabad"

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	cfg := &AppConfig{}

	cfg.OpenWeatherAPIKey = os.Getenv("OPENWEATHER_API_KEY")

	cities := strings.Split(getenvDefault("WEATHER_CITIES", defaultCities), ",")
	for i := range cities {
		cities[i] = strings.TrimSpace(cities[i])
	}
	cfg.Cities = cities

	tzName := getenvDefault("TIMEZONE", "UTC")
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", tzName, err)
	}
	cfg.Timezone = loc

	cfg.FetchInterval, err = getenvDuration("FETCH_INTERVAL", "5m")
	if err != nil {
		return nil, err
	}
	cfg.PushInterval, err = getenvDuration("PUSH_INTERVAL", "5m")
	if err != nil {
		return nil, err
	}

	cfg.SummaryAt = getenvDefault("SUMMARY_AT", "00:00")
	if _, err := time.Parse("15:04", cfg.SummaryAt); err != nil {
		return nil, fmt.Errorf("invalid SUMMARY_AT %q: %w", cfg.SummaryAt, err)
	}

	cfg.StoreMaxHistory = getenvInt("STORE_MAX_HISTORY", 2304) // 8 days at 5-minute intervals
	cfg.StoreMaxAge, err = getenvDuration("STORE_MAX_AGE", "192h")
	if err != nil {
		return nil, err
	}

	cfg.SQLitePath = os.Getenv("SQLITE_PATH")

	cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	cfg.SMTP = notify.SMTPConfig{
		Host:     os.Getenv("SMTP_HOST"),
		Port:     getenvDefault("SMTP_PORT", "587"),
		Username: os.Getenv("SMTP_USER"),
		Password: os.Getenv("SMTP_PASS"),
		From:     getenvDefault("SMTP_FROM", os.Getenv("SMTP_USER")),
	}

	cfg.Port = getenvDefault("PORT", "8080")
	cfg.OpsPort = getenvDefault("OPS_PORT", "9090")
	cfg.LogLevel = getenvDefault("LOG_LEVEL", "info")
	cfg.AppEnv = getenvDefault("APP_ENV", "dev")

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	v := getenvDefault(key, def)
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
