package channel

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/osintops/sentinel/internal/domain"
)

// SignatureHeader carries the HMAC of the webhook body when the user has
// a secret configured.
const SignatureHeader = "X-Webhook-Signature"

// WebhookSender delivers alerts via HTTP POST to a per-user URL.
type WebhookSender struct {
	httpClient *http.Client
	now        func() time.Time
}

// NewWebhookSender creates a webhook sink.
func NewWebhookSender() *WebhookSender {
	return &WebhookSender{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		now:        time.Now,
	}
}

// Channel returns the channel this sender handles.
func (s *WebhookSender) Channel() domain.Channel {
	return domain.ChannelWebhook
}

// Recipient returns the user's webhook URL. Users without one are skipped.
func (s *WebhookSender) Recipient(p domain.Preferences) (string, bool) {
	if !isValidURL(p.WebhookURL) {
		return "", false
	}
	return p.WebhookURL, true
}

// Send posts the structured alert payload. When the preferences carry a
// webhook secret the canonical body is signed with HMAC-SHA256. Any
// response status below 300 counts as delivered.
func (s *WebhookSender) Send(ctx context.Context, recipient string, cand domain.AlertCandidate) Result {
	return s.SendSigned(ctx, recipient, "", cand)
}

// SendSigned is Send with an explicit per-user secret. The dispatcher
// routes webhook deliveries through here so the secret travels with the
// recipient.
func (s *WebhookSender) SendSigned(ctx context.Context, recipient, secret string, cand domain.AlertCandidate) Result {
	body, err := WebhookBody(cand, s.now())
	if err != nil {
		return fail(domain.ChannelWebhook, recipient, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, recipient, bytes.NewReader(body))
	if err != nil {
		return fail(domain.ChannelWebhook, recipient, fmt.Errorf("failed to create webhook request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	if secret != "" {
		req.Header.Set(SignatureHeader, SignBody(body, secret))
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		slog.Error("Failed to send webhook notification",
			"webhook_url", maskURL(recipient),
			"event_id", cand.Event.ID,
			"error", err,
		)
		return fail(domain.ChannelWebhook, recipient, fmt.Errorf("failed to send webhook: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		slog.Error("Webhook returned error status",
			"status_code", resp.StatusCode,
			"webhook_url", maskURL(recipient),
			"event_id", cand.Event.ID,
		)
		return fail(domain.ChannelWebhook, recipient, fmt.Errorf("webhook returned status %d", resp.StatusCode))
	}

	slog.Info("Sent webhook notification",
		"webhook_url", maskURL(recipient),
		"event_id", cand.Event.ID,
		"rule", cand.Rule.Name,
	)
	return ok(domain.ChannelWebhook, recipient, "")
}

// isValidURL checks if a string is an HTTP/HTTPS URL.
func isValidURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// maskURL masks sensitive parts of a URL for logging.
func maskURL(url string) string {
	if len(url) > 50 {
		return url[:30] + "..." + url[len(url)-10:]
	}
	return url
}
