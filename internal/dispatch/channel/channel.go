// Package channel implements the delivery sinks for alert notifications.
// Every sink implements the Sender interface and returns a uniform Result;
// per-channel failures never abort other channels.
package channel

import (
	"context"
	"time"

	"github.com/osintops/sentinel/internal/domain"
)

// Result is the uniform outcome of one delivery attempt.
type Result struct {
	Success   bool
	Channel   domain.Channel
	Recipient string
	MessageID string
	Err       error
	Timestamp time.Time
}

// Sender is a delivery sink for one notification channel.
type Sender interface {
	// Channel returns the channel this sender handles.
	Channel() domain.Channel

	// Recipient resolves the user's contact for this channel. ok=false
	// means the user lacks the required contact info and the attempt is
	// skipped without being recorded.
	Recipient(p domain.Preferences) (string, bool)

	// Send delivers the candidate to the recipient.
	Send(ctx context.Context, recipient string, cand domain.AlertCandidate) Result
}

// Registry maps channels to their senders.
type Registry struct {
	senders map[domain.Channel]Sender
}

// NewRegistry creates an empty sender registry.
func NewRegistry() *Registry {
	return &Registry{senders: make(map[domain.Channel]Sender)}
}

// Register adds a sender to the registry.
func (r *Registry) Register(s Sender) {
	r.senders[s.Channel()] = s
}

// Get retrieves a sender by channel.
func (r *Registry) Get(ch domain.Channel) (Sender, bool) {
	s, ok := r.senders[ch]
	return s, ok
}

// List returns all registered channels.
func (r *Registry) List() []domain.Channel {
	channels := make([]domain.Channel, 0, len(r.senders))
	for ch := range r.senders {
		channels = append(channels, ch)
	}
	return channels
}

// ok builds a successful result.
func ok(ch domain.Channel, recipient, messageID string) Result {
	return Result{
		Success:   true,
		Channel:   ch,
		Recipient: recipient,
		MessageID: messageID,
		Timestamp: time.Now().UTC(),
	}
}

// fail builds a failed result.
func fail(ch domain.Channel, recipient string, err error) Result {
	return Result{
		Channel:   ch,
		Recipient: recipient,
		Err:       err,
		Timestamp: time.Now().UTC(),
	}
}
