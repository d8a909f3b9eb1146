package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/weathermon/weather-monitor/internal/weather"
)

// Scheduler owns the two periodic jobs: fetching readings for every
// configured city, and computing yesterday's daily summaries. Both run
// in the reference timezone so "midnight" means midnight of the day
// being summarized.
type Scheduler struct {
	scheduler *gocron.Scheduler
	service   *weather.Service
	cities    []string
	interval  time.Duration
	summaryAt string // "HH:MM" in the reference timezone
	loc       *time.Location
}

// New creates a Scheduler. summaryAt is the daily summary trigger time
// formatted "HH:MM".
func New(cities []string, interval time.Duration, summaryAt string, loc *time.Location, service *weather.Service) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(loc),
		service:   service,
		cities:    cities,
		interval:  interval,
		summaryAt: summaryAt,
		loc:       loc,
	}
}

// Start schedules both jobs and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if len(s.cities) == 0 {
		slog.Warn("scheduler: no cities configured; nothing to schedule")
		return nil
	}

	minutes := int(s.interval.Minutes())
	if minutes <= 0 {
		minutes = 5
	}

	if _, err := s.scheduler.Every(minutes).Minutes().Do(s.runFetch); err != nil {
		return err
	}
	if _, err := s.scheduler.Every(1).Day().At(s.summaryAt).Do(s.runSummaries); err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}

func (s *Scheduler) runFetch() {
	slog.Debug("scheduler: running weather fetch job")

	var wg sync.WaitGroup
	for _, city := range s.cities {
		wg.Add(1)
		go func(city string) {
			defer wg.Done()

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if err := s.service.FetchAndStore(ctx, city); err != nil {
				slog.Error("scheduler: fetch failed", "city", city, "error", err)
			}
		}(city)
	}
	wg.Wait()
}

// runSummaries aggregates the previous calendar day. Upserts keyed on
// (city, date) keep a rerun from duplicating records.
func (s *Scheduler) runSummaries() {
	yesterday := s.service.Now().In(s.loc).AddDate(0, 0, -1)
	slog.Info("scheduler: running daily summary job", "day", yesterday.Format(time.DateOnly))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	s.service.SummarizeDay(ctx, yesterday, s.cities)
}
