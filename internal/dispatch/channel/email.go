package channel

import (
	"context"
	"log/slog"

	"github.com/osintops/sentinel/internal/dispatch/channel/provider"
	"github.com/osintops/sentinel/internal/domain"
)

// EmailSender delivers alerts by email through the provider fallback
// registry.
type EmailSender struct {
	registry *provider.Registry
	from     string
}

// NewEmailSender creates an email sink with the default provider chain:
// SMTP, then SES, then Resend.
func NewEmailSender() *EmailSender {
	registry := provider.NewRegistry()
	registry.Register(provider.NewSMTPProvider())
	registry.Register(provider.NewSESProvider())
	registry.Register(provider.NewResendProvider())

	return &EmailSender{
		registry: registry,
		from:     provider.GetEnvOrDefault("ALERT_EMAIL_FROM", "alerts@sentinel.local"),
	}
}

// NewEmailSenderWithRegistry creates an email sink with a custom provider
// registry. Useful for tests.
func NewEmailSenderWithRegistry(registry *provider.Registry, from string) *EmailSender {
	return &EmailSender{registry: registry, from: from}
}

// Channel returns the channel this sender handles.
func (s *EmailSender) Channel() domain.Channel {
	return domain.ChannelEmail
}

// Recipient returns the user's email address.
func (s *EmailSender) Recipient(p domain.Preferences) (string, bool) {
	return p.Email, p.Email != ""
}

// Send composes and delivers the alert email.
func (s *EmailSender) Send(ctx context.Context, recipient string, cand domain.AlertCandidate) Result {
	req := &provider.EmailRequest{
		From:    s.from,
		To:      []string{recipient},
		Subject: Subject(cand),
		Body:    Body(cand),
	}

	messageID, err := s.registry.Send(ctx, req)
	if err != nil {
		slog.Error("Failed to send alert email",
			"to", recipient,
			"event_id", cand.Event.ID,
			"error", err,
		)
		return fail(domain.ChannelEmail, recipient, err)
	}

	slog.Info("Sent alert email",
		"to", recipient,
		"event_id", cand.Event.ID,
		"rule", cand.Rule.Name,
	)
	return ok(domain.ChannelEmail, recipient, messageID)
}
