// Package notify delivers cohort alerts to external channels.
// The only channel is a generic JSON webhook: advisors point it at a
// Slack-compatible incoming webhook or their own collector.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// WebhookConfig contains configuration for the webhook notifier.
type WebhookConfig struct {
	// URL is the webhook endpoint
	URL string

	// Username is the display name attached to posted alerts
	Username string

	// Timeout is the HTTP request timeout
	Timeout time.Duration

	// Logger for structured logging
	Logger *slog.Logger
}

// DefaultWebhookConfig returns sensible defaults.
func DefaultWebhookConfig(url string) WebhookConfig {
	return WebhookConfig{
		URL:      url,
		Username: "edupulse",
		Timeout:  10 * time.Second,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// WEBHOOK NOTIFIER
// ══════════════════════════════════════════════════════════════════════════════

// WebhookNotifier posts cohort alerts as JSON to a configured webhook.
// It satisfies the alert handler's notifier contract.
type WebhookNotifier struct {
	config     WebhookConfig
	httpClient *http.Client
	logger     *slog.Logger
}

// NewWebhookNotifier creates a new webhook notifier.
func NewWebhookNotifier(config WebhookConfig) *WebhookNotifier {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}

	return &WebhookNotifier{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger: config.Logger,
	}
}

// alertPayload is the JSON body posted to the webhook. The "text" field
// keeps the payload drop-in compatible with Slack incoming webhooks.
type alertPayload struct {
	Username  string    `json:"username,omitempty"`
	Text      string    `json:"text"`
	AlertType string    `json:"alert_type"`
	Count     int       `json:"count"`
	RaisedAt  time.Time `json:"raised_at"`
}

// Notify posts one alert to the webhook.
func (n *WebhookNotifier) Notify(ctx context.Context, alertType, message string, count int) error {
	payload := alertPayload{
		Username:  n.config.Username,
		Text:      fmt.Sprintf("[%s] %s", alertType, message),
		AlertType: alertType,
		Count:     count,
		RaisedAt:  time.Now().UTC(),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("notify: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.config.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("notify: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("notify: post webhook: %w", err)
	}
	defer resp.Body.Close()

	// Drain the body so the connection can be reused.
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		return fmt.Errorf("notify: webhook returned status %d", resp.StatusCode)
	}

	n.logger.Debug("alert posted to webhook",
		"alert_type", alertType,
		"status", resp.StatusCode,
	)

	return nil
}

// IsHealthy reports whether the notifier is configured.
func (n *WebhookNotifier) IsHealthy() bool {
	return n.config.URL != ""
}
