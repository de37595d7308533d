package notify

import (
	"context"
	"log/slog"

	"github.com/sentineldesk/responder/internal/domain"
)

// LogSender writes notifications to the structured log. Useful as the
// default channel in development and as a fallback alongside webhooks.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a log-backed sender.
func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger}
}

// Name returns the channel name.
func (s *LogSender) Name() string { return "log" }

// Send writes the event to the log.
func (s *LogSender) Send(_ context.Context, ev domain.NotificationEvent) error {
	s.logger.Info("incident notification",
		"event", ev.Event,
		"incident_id", ev.IncidentID,
		"severity", ev.Severity,
		"detail", ev.Detail,
	)
	return nil
}
