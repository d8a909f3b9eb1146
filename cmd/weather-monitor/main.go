package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"github.com/weathermon/weather-monitor/internal/alert"
	httpapi "github.com/weathermon/weather-monitor/internal/api/http"
	"github.com/weathermon/weather-monitor/internal/api/ops"
	"github.com/weathermon/weather-monitor/internal/config"
	"github.com/weathermon/weather-monitor/internal/logging"
	"github.com/weathermon/weather-monitor/internal/notify"
	"github.com/weathermon/weather-monitor/internal/observability"
	"github.com/weathermon/weather-monitor/internal/push"
	"github.com/weathermon/weather-monitor/internal/scheduler"
	"github.com/weathermon/weather-monitor/internal/store"
	"github.com/weathermon/weather-monitor/internal/weather"
	"github.com/weathermon/weather-monitor/internal/weather/providers"
)

// dataStore is the union of the persistence contracts the app wires up.
// Both the in-memory and the SQLite store satisfy it.
type dataStore interface {
	weather.ReadingStore
	weather.SummaryStore
	alert.SubscriptionStore
	UpsertSubscription(sub alert.Subscription) error
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: no .env file found or error loading it: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	slog.SetDefault(logging.New(cfg.AppEnv, cfg.LogLevel, "weather-monitor"))

	metrics := observability.NewMetrics()

	var st dataStore
	if cfg.SQLitePath != "" {
		sqliteStore, err := store.OpenSQLite(cfg.SQLitePath, cfg.Timezone)
		if err != nil {
			log.Fatalf("failed to open sqlite store: %v", err)
		}
		defer sqliteStore.Close()
		st = sqliteStore
	} else {
		st = store.NewMemoryStore(cfg.StoreMaxHistory, cfg.StoreMaxAge)
	}

	var notifier notify.Notifier = notify.LogNotifier{}
	if cfg.SMTP.Host != "" {
		notifier = notify.NewSMTPNotifier(cfg.SMTP)
	}

	dispatcher := alert.NewDispatcher(st, notifier, metrics, cfg.HTTPTimeout)

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	provs := []weather.Provider{
		providers.NewOpenWeatherProvider(httpClient, cfg.OpenWeatherAPIKey),
	}

	agg := weather.NewAggregator(cfg.Timezone)
	service := weather.NewService(st, st, provs, agg, dispatcher, nil, metrics)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Live-update hub; one ticker serves all websocket subscribers.
	hub := push.NewHub(service, cfg.PushInterval, metrics)
	go hub.Run(ctx)

	sched := scheduler.New(cfg.Cities, cfg.FetchInterval, cfg.SummaryAt, cfg.Timezone, service)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "weather-monitor",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "weather-monitor",
		})
	})

	httpapi.RegisterRoutes(app, service, st, notifier)

	opsServer := ops.NewServer(":"+cfg.OpsPort, hub)
	go func() {
		if err := opsServer.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("ops server stopped", "error", err)
		}
	}()

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("fiber server stopped", "error", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("error during api shutdown", "error", err)
	}
	if err := opsServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("error during ops shutdown", "error", err)
	}
}
