// Package audit delivers append-only audit records to an external
// sink. Sinks are best-effort from the caller's perspective: the
// incident service logs failures and moves on.
package audit

import (
	"context"
	"log/slog"

	"github.com/sentineldesk/responder/internal/domain"
)

// Sink receives one audit record per auditable operation.
type Sink interface {
	Record(ctx context.Context, rec domain.AuditRecord) error
}

// LogSink writes audit records to the structured log.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a log-backed sink.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

// Record writes the audit record to the log.
func (s *LogSink) Record(_ context.Context, rec domain.AuditRecord) error {
	s.logger.Info("audit",
		"user_id", rec.UserID,
		"action", rec.Action,
		"resource_type", rec.ResourceType,
		"resource_id", rec.ResourceID,
		"severity", rec.Severity,
		"details", rec.Details,
	)
	return nil
}

// MultiSink fans one record out to several sinks. The first error is
// returned after every sink has been attempted.
type MultiSink struct {
	sinks []Sink
}

// NewMultiSink creates a fan-out sink.
func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

// Record delivers the record to every sink.
func (s *MultiSink) Record(ctx context.Context, rec domain.AuditRecord) error {
	var firstErr error
	for _, sink := range s.sinks {
		if err := sink.Record(ctx, rec); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
