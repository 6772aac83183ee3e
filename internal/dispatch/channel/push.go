package channel

import (
	"context"
	"fmt"

	"github.com/osintops/sentinel/internal/domain"
)

// PushSender is an explicitly unavailable capability: no push backend is
// wired yet, and faking success would hide the gap from operators. Every
// attempt fails and is recorded as failed in the ledger.
type PushSender struct{}

// NewPushSender creates the push sink.
func NewPushSender() *PushSender {
	return &PushSender{}
}

// Channel returns the channel this sender handles.
func (s *PushSender) Channel() domain.Channel {
	return domain.ChannelPush
}

// Recipient returns the user id so the unavailability is recorded per
// user rather than silently skipped.
func (s *PushSender) Recipient(p domain.Preferences) (string, bool) {
	return p.UserID, p.UserID != ""
}

// Send always fails: push delivery is not implemented.
func (s *PushSender) Send(_ context.Context, recipient string, _ domain.AlertCandidate) Result {
	return fail(domain.ChannelPush, recipient, fmt.Errorf("push channel not available"))
}
