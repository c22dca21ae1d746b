package providers

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// WebhookProvider delivers notifications by POSTing the payload to the
// recipient URL.
type WebhookProvider struct {
	client *http.Client
}

// NewWebhookProvider builds the webhook provider. A nil client falls back to
// http.DefaultClient; the caller's context carries the timeout.
func NewWebhookProvider(client *http.Client) *WebhookProvider {
	if client == nil {
		client = http.DefaultClient
	}
	return &WebhookProvider{client: client}
}

func (p *WebhookProvider) Name() string {
	return "webhook"
}

func (p *WebhookProvider) Send(ctx context.Context, msg Message) error {
	target, err := url.Parse(strings.TrimSpace(msg.Recipient))
	if err != nil || target.Scheme == "" || target.Host == "" {
		return Terminal("invalid webhook url", err)
	}
	if target.Scheme != "http" && target.Scheme != "https" {
		return Terminal(fmt.Sprintf("unsupported webhook scheme %q", target.Scheme), nil)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.String(), bytes.NewReader(msg.Payload))
	if err != nil {
		return Terminal("build webhook request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Notifly-Event", msg.EventType)
	req.Header.Set("X-Notifly-Request-Id", msg.RequestID.String())
	req.Header.Set("X-Notifly-Correlation-Id", msg.CorrelationID)

	resp, err := p.client.Do(req)
	if err != nil {
		// Network errors and context deadlines are retryable.
		return fmt.Errorf("webhook post: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusRequestTimeout,
		resp.StatusCode == http.StatusTooManyRequests,
		resp.StatusCode >= 500:
		return fmt.Errorf("webhook returned %d", resp.StatusCode)
	default:
		return Terminal(fmt.Sprintf("webhook rejected with %d", resp.StatusCode), nil)
	}
}
