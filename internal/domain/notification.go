package domain

import "time"

// Channel identifies a delivery channel for notifications.
type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelSMS      Channel = "sms"
	ChannelWhatsApp Channel = "whatsapp"
	ChannelPush     Channel = "push"
	ChannelWebhook  Channel = "webhook"
	ChannelInApp    Channel = "in_app"
	ChannelMatrix   Channel = "matrix"
)

// Preferences holds a user's notification settings. Preferences are owned
// by an external surface and are read-only to the pipeline.
type Preferences struct {
	UserID           string
	Email            string
	Phone            string
	WebhookURL       string
	WebhookSecret    string
	MatrixRoomID     string
	Channels         []Channel
	MinPriority      Priority
	Regions          []string // empty = watch everything
	Categories       []string // empty = watch everything
	MutedSources     []string
	QuietHoursStart  string // "HH:MM", empty = quiet hours disabled
	QuietHoursEnd    string
	CriticalOverride bool
	DigestFrequency  string
}

// ChannelEnabled reports whether the user opted into the given channel.
func (p Preferences) ChannelEnabled(ch Channel) bool {
	for _, c := range p.Channels {
		if c == ch {
			return true
		}
	}
	return false
}

// QuietHoursEnabled reports whether the user configured a quiet-hours window.
func (p Preferences) QuietHoursEnabled() bool {
	return p.QuietHoursStart != "" && p.QuietHoursEnd != ""
}

// SentStatus is the lifecycle state of a sent-notification record.
type SentStatus string

const (
	SentPending      SentStatus = "pending"
	SentOK           SentStatus = "sent"
	SentFailed       SentStatus = "failed"
	SentAcknowledged SentStatus = "acknowledged"
)

// SentNotification is one row of the append-only delivery ledger: one row
// per attempted (user, channel) pair. Rows are mutated only by
// acknowledgment and by the escalation sweep's escalated_at mark.
type SentNotification struct {
	ID             string
	UserID         string
	EventID        string
	RuleID         string
	Channel        Channel
	Status         SentStatus
	Recipient      string
	MessageID      string
	Error          string
	CreatedAt      time.Time
	SentAt         *time.Time
	AcknowledgedAt *time.Time
	EscalatedAt    *time.Time
}

// Acknowledgment records a user acknowledging an alert. Append-only.
type Acknowledgment struct {
	UserID         string
	EventID        string
	RuleID         string
	AcknowledgedAt time.Time
	Notes          string
}
