package channel

import (
	"context"
	"log/slog"

	"github.com/osintops/sentinel/internal/dispatch/channel/gateway"
	"github.com/osintops/sentinel/internal/domain"
)

// TextSender delivers alerts as short text messages through a gateway
// fallback chain. It backs both the sms and whatsapp channels, which
// differ only in gateway kind and length limit.
type TextSender struct {
	chain   *gateway.Chain
	channel domain.Channel
	kind    gateway.Kind
	limit   int
}

// NewSMSSender creates the sms sink over the given gateway chain.
func NewSMSSender(chain *gateway.Chain) *TextSender {
	return &TextSender{chain: chain, channel: domain.ChannelSMS, kind: gateway.KindSMS, limit: SMSLimit}
}

// NewWhatsAppSender creates the whatsapp sink over the given gateway chain.
func NewWhatsAppSender(chain *gateway.Chain) *TextSender {
	return &TextSender{chain: chain, channel: domain.ChannelWhatsApp, kind: gateway.KindWhatsApp, limit: WhatsAppLimit}
}

// Channel returns the channel this sender handles.
func (s *TextSender) Channel() domain.Channel {
	return s.channel
}

// Recipient returns the user's phone number. Users without a phone on
// file are skipped.
func (s *TextSender) Recipient(p domain.Preferences) (string, bool) {
	return p.Phone, p.Phone != ""
}

// Send truncates the message to the channel limit and walks the gateway
// chain.
func (s *TextSender) Send(ctx context.Context, recipient string, cand domain.AlertCandidate) Result {
	message := ShortMessage(cand, s.limit)

	messageID, err := s.chain.Send(ctx, s.kind, recipient, message)
	if err != nil {
		slog.Error("Failed to send text message",
			"channel", s.channel,
			"to", recipient,
			"event_id", cand.Event.ID,
			"error", err,
		)
		return fail(s.channel, recipient, err)
	}

	slog.Info("Sent text message",
		"channel", s.channel,
		"to", recipient,
		"event_id", cand.Event.ID,
		"message_id", messageID,
	)
	return ok(s.channel, recipient, messageID)
}
