package notify

import (
	"context"
	"log/slog"
)

// Notifier delivers a plain-text message to a recipient. Implementations
// must be safe for concurrent use.
type Notifier interface {
	Send(ctx context.Context, recipient, subject, body string) error
}

// LogNotifier writes notifications to the log instead of sending them.
// Used when no SMTP transport is configured, and as a test double.
type LogNotifier struct{}

func (LogNotifier) Send(_ context.Context, recipient, subject, body string) error {
	slog.Info("notification (email transport disabled)",
		"recipient", recipient,
		"subject", subject,
		"body", body,
	)
	return nil
}
