package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/osintops/sentinel/internal/domain"
	"github.com/osintops/sentinel/internal/metrics"
)

// EscalationLedger is the subset of the sent-notification store the
// escalation monitor depends on.
type EscalationLedger interface {
	StaleCritical(ctx context.Context, timeout time.Duration) ([]domain.SentNotification, error)
	MarkEscalated(ctx context.Context, notificationID string) error
}

// Pager is an optional secondary signal for escalated notifications.
type Pager interface {
	Page(ctx context.Context, n domain.SentNotification) error
}

// EscalationMonitor sweeps the ledger for sent, critical, unacknowledged
// notifications older than the timeout and escalates each exactly once.
type EscalationMonitor struct {
	ledger  EscalationLedger
	pager   Pager
	metrics metrics.Recorder
	timeout time.Duration
}

// NewEscalationMonitor creates a monitor. The pager may be nil, in which
// case escalation is log + counter only.
func NewEscalationMonitor(ledger EscalationLedger, pager Pager, recorder metrics.Recorder, timeout time.Duration) *EscalationMonitor {
	if recorder == nil {
		recorder = metrics.NewNoOp()
	}
	return &EscalationMonitor{
		ledger:  ledger,
		pager:   pager,
		metrics: recorder,
		timeout: timeout,
	}
}

// Sweep escalates every stale critical notification. The escalated_at
// mark is written first; a notification that fails to mark is left for
// the next sweep rather than paged twice.
func (m *EscalationMonitor) Sweep(ctx context.Context) {
	stale, err := m.ledger.StaleCritical(ctx, m.timeout)
	if err != nil {
		slog.Error("Escalation sweep failed", "error", err)
		m.metrics.RecordError()
		return
	}

	for _, n := range stale {
		if err := m.ledger.MarkEscalated(ctx, n.ID); err != nil {
			slog.Warn("Skipping escalation, could not mark notification",
				"notification_id", n.ID,
				"error", err,
			)
			continue
		}

		slog.Warn("Escalating unacknowledged critical notification",
			"notification_id", n.ID,
			"user_id", n.UserID,
			"event_id", n.EventID,
			"channel", n.Channel,
			"age", time.Since(n.CreatedAt).Round(time.Second),
		)
		m.metrics.IncrementCustom("notifications_escalated")

		if m.pager != nil {
			if err := m.pager.Page(ctx, n); err != nil {
				slog.Error("Failed to page escalated notification",
					"notification_id", n.ID,
					"error", err,
				)
			}
		}
	}
}

// TelegramPager posts escalations to a supervisor chat.
type TelegramPager struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegramPager creates a pager from TELEGRAM_BOT_TOKEN and
// TELEGRAM_CHAT_ID. Returns nil when either is unset.
func NewTelegramPager() (*TelegramPager, error) {
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	chatIDRaw := os.Getenv("TELEGRAM_CHAT_ID")
	if token == "" || chatIDRaw == "" {
		return nil, nil
	}
	chatID, err := strconv.ParseInt(chatIDRaw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid TELEGRAM_CHAT_ID: %w", err)
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return &TelegramPager{bot: bot, chatID: chatID}, nil
}

// Page sends a one-line escalation message to the supervisor chat.
func (p *TelegramPager) Page(ctx context.Context, n domain.SentNotification) error {
	text := fmt.Sprintf("ESCALATION: critical alert unacknowledged\nuser: %s\nevent: %s\nchannel: %s\nsent: %s",
		n.UserID, n.EventID, n.Channel, n.CreatedAt.Format(time.RFC3339))
	msg := tgbotapi.NewMessage(p.chatID, text)
	if _, err := p.bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send telegram page: %w", err)
	}
	return nil
}
