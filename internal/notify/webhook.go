package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sentineldesk/responder/internal/domain"
)

const defaultWebhookTimeout = 10 * time.Second

// WebhookConfig holds webhook sender configuration.
type WebhookConfig struct {
	URL     string
	Token   string
	Timeout time.Duration
}

// WebhookSender posts notification events as JSON to a paging endpoint.
type WebhookSender struct {
	config     WebhookConfig
	httpClient *http.Client
}

// NewWebhookSender creates a webhook sender.
func NewWebhookSender(config WebhookConfig) *WebhookSender {
	if config.Timeout == 0 {
		config.Timeout = defaultWebhookTimeout
	}

	return &WebhookSender{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// Name returns the channel name.
func (s *WebhookSender) Name() string { return "webhook" }

type webhookPayload struct {
	Event      string         `json:"event"`
	IncidentID string         `json:"incident_id"`
	Severity   string         `json:"severity"`
	Detail     map[string]any `json:"detail,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Send posts the event to the configured endpoint.
func (s *WebhookSender) Send(ctx context.Context, ev domain.NotificationEvent) error {
	if s.config.URL == "" {
		return fmt.Errorf("webhook URL is empty")
	}

	body, err := json.Marshal(webhookPayload{
		Event:      string(ev.Event),
		IncidentID: ev.IncidentID,
		Severity:   string(ev.Severity),
		Detail:     ev.Detail,
		OccurredAt: ev.OccurredAt,
	})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.config.Token)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("webhook returned %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
