package channel

import (
	"context"
	"log/slog"

	"github.com/osintops/sentinel/internal/domain"
)

// InAppSender records in-app notifications. The ledger row written by the
// dispatcher is the in-app inbox entry, so delivery here is a structured
// log record and always succeeds.
type InAppSender struct{}

// NewInAppSender creates the in_app sink.
func NewInAppSender() *InAppSender {
	return &InAppSender{}
}

// Channel returns the channel this sender handles.
func (s *InAppSender) Channel() domain.Channel {
	return domain.ChannelInApp
}

// Recipient returns the user id; every user is structurally eligible.
func (s *InAppSender) Recipient(p domain.Preferences) (string, bool) {
	return p.UserID, p.UserID != ""
}

// Send emits the in-app notification record.
func (s *InAppSender) Send(_ context.Context, recipient string, cand domain.AlertCandidate) Result {
	slog.Info("In-app notification",
		"user_id", recipient,
		"event_id", cand.Event.ID,
		"rule", cand.Rule.Name,
		"priority", cand.Rule.Priority,
		"title", cand.Event.Title,
	)
	return ok(domain.ChannelInApp, recipient, "")
}
