// Package redis ships audit records to a Redis-backed append-only
// event store consumed by the compliance pipeline.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/sentineldesk/responder/internal/domain"
)

// Config configures Redis access for the audit stream.
type Config struct {
	Addr     string
	Password string
	DB       int
	Key      string
	// MaxLen caps the stream length; older entries are trimmed.
	// Zero keeps everything.
	MaxLen int64
}

// Sink appends audit records to a Redis list, newest first. The
// downstream consumer drains with BRPOP, so order is preserved.
type Sink struct {
	client *redis.Client
	key    string
	maxLen int64
}

// NewSink connects to Redis and verifies reachability.
func NewSink(cfg Config) (*Sink, error) {
	if strings.TrimSpace(cfg.Addr) == "" {
		cfg.Addr = "127.0.0.1:6379"
	}
	if strings.TrimSpace(cfg.Key) == "" {
		cfg.Key = "responder:audit"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis audit sink: %w", err)
	}

	return &Sink{client: client, key: cfg.Key, maxLen: cfg.MaxLen}, nil
}

// Record appends one audit record.
func (s *Sink) Record(ctx context.Context, rec domain.AuditRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal audit record: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.LPush(ctx, s.key, raw)
	if s.maxLen > 0 {
		pipe.LTrim(ctx, s.key, 0, s.maxLen-1)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append audit record: %w", err)
	}
	return nil
}

// Close closes Redis resources.
func (s *Sink) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}
