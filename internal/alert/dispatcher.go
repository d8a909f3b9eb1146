package alert

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/weathermon/weather-monitor/internal/notify"
	"github.com/weathermon/weather-monitor/internal/observability"
	"github.com/weathermon/weather-monitor/internal/weather"
)

// SubscriptionStore is the persistence contract the dispatcher needs.
type SubscriptionStore interface {
	Subscriptions() ([]Subscription, error)
	Subscription(email string) (Subscription, error)
	SetLastDirection(email string, d Direction) error
}

// Dispatcher fans a live reading out to every interested subscription,
// evaluates the threshold latch, and sends notifications. Evaluations
// for the same email are serialized so two near-simultaneous readings
// cannot both observe an unlatched subscription and double-fire.
type Dispatcher struct {
	subs        SubscriptionStore
	notifier    notify.Notifier
	metrics     *observability.Metrics
	sendTimeout time.Duration

	locks sync.Map // email -> *sync.Mutex
}

// NewDispatcher creates a Dispatcher. sendTimeout bounds each outbound
// notification; zero means 10 seconds.
func NewDispatcher(subs SubscriptionStore, notifier notify.Notifier, metrics *observability.Metrics, sendTimeout time.Duration) *Dispatcher {
	if sendTimeout <= 0 {
		sendTimeout = 10 * time.Second
	}
	return &Dispatcher{
		subs:        subs,
		notifier:    notifier,
		metrics:     metrics,
		sendTimeout: sendTimeout,
	}
}

// OnReading evaluates one live reading against all subscriptions for
// its city. Store and notifier failures are logged and skipped; they
// never propagate to the ingestion path.
func (d *Dispatcher) OnReading(ctx context.Context, r weather.Reading) {
	subs, err := d.subs.Subscriptions()
	if err != nil {
		slog.Error("alert: list subscriptions failed", "city", r.City, "error", err)
		return
	}

	for _, sub := range subs {
		if !sub.Matches(r.City) {
			continue
		}
		d.evaluateOne(ctx, sub.Email, r)
	}
}

func (d *Dispatcher) evaluateOne(ctx context.Context, email string, r weather.Reading) {
	mu := d.lockFor(email)
	mu.Lock()
	defer mu.Unlock()

	// Re-read under the lock: the listing snapshot may carry a stale latch.
	sub, err := d.subs.Subscription(email)
	if err != nil {
		slog.Error("alert: load subscription failed", "email", email, "error", err)
		return
	}

	decision := Evaluate(sub, r.TemperatureC)
	if decision == DecisionNone {
		return
	}

	// Latch before sending. A failed send must not re-arm the same edge,
	// otherwise a flaky transport turns one crossing into a storm. This
	// makes notification delivery at-most-once per edge.
	if err := d.subs.SetLastDirection(email, Latched(decision, sub.LastDirection)); err != nil {
		slog.Error("alert: persist latch failed", "email", email, "city", r.City, "error", err)
		return
	}

	subject, body := renderMessage(decision, r)

	sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()

	if err := d.notifier.Send(sendCtx, email, subject, body); err != nil {
		slog.Error("alert: notification send failed",
			"email", email, "city", r.City, "threshold", sub.ThresholdC, "error", err)
		if d.metrics != nil {
			d.metrics.EmailSends.WithLabelValues("error").Inc()
		}
		return
	}

	if d.metrics != nil {
		d.metrics.AlertsFired.WithLabelValues(string(Latched(decision, sub.LastDirection))).Inc()
		d.metrics.EmailSends.WithLabelValues("success").Inc()
	}
	slog.Info("alert: notification sent",
		"email", email, "city", r.City, "temperature", r.TemperatureC, "threshold", sub.ThresholdC)
}

func (d *Dispatcher) lockFor(email string) *sync.Mutex {
	v, _ := d.locks.LoadOrStore(email, &sync.Mutex{})
	return v.(*sync.Mutex)
}

func renderMessage(decision Decision, r weather.Reading) (subject, body string) {
	word := "increased"
	if decision == FireBelow {
		word = "decreased"
	}
	subject = fmt.Sprintf("Temperature alert for %s", r.City)
	body = fmt.Sprintf("Temperature is %s by the threshold. Current temperature is %.2f", word, r.TemperatureC)
	return subject, body
}
