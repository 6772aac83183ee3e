package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/osintops/sentinel/internal/domain"
)

// RecordSent appends one delivery attempt to the sent-notification ledger.
// One row is written per attempted (user, channel) pair regardless of
// outcome.
func (db *DB) RecordSent(ctx context.Context, n *domain.SentNotification) error {
	query := `
		INSERT INTO sent_notifications (id, user_id, event_id, rule_id, channel, status,
			recipient, message_id, error, created_at, sent_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, NULLIF($8, ''), NULLIF($9, ''), $10, $11)
	`
	_, err := db.conn.ExecContext(ctx, query,
		n.ID,
		n.UserID,
		n.EventID,
		n.RuleID,
		string(n.Channel),
		string(n.Status),
		n.Recipient,
		n.MessageID,
		n.Error,
		n.CreatedAt,
		n.SentAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record sent notification: %w", err)
	}

	slog.Debug("Recorded notification attempt",
		"notification_id", n.ID,
		"user_id", n.UserID,
		"event_id", n.EventID,
		"channel", n.Channel,
		"status", n.Status,
	)
	return nil
}

// HasRecentSent reports whether a successful send exists for (user, event)
// within the dedup window. Failed attempts never suppress a retry. The
// predicate is computed at read time; nothing is cached.
func (db *DB) HasRecentSent(ctx context.Context, userID, eventID string, window time.Duration) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM sent_notifications
			WHERE user_id = $1 AND event_id = $2
			  AND status IN ('sent', 'acknowledged')
			  AND created_at >= $3
		)
	`
	var exists bool
	err := db.conn.QueryRowContext(ctx, query, userID, eventID, time.Now().UTC().Add(-window)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check recent sends: %w", err)
	}
	return exists, nil
}

// Acknowledge appends an acknowledgment row and marks every matching
// unacknowledged sent row for (user, event) as acknowledged.
func (db *DB) Acknowledge(ctx context.Context, ack *domain.Acknowledgment) (int64, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin acknowledgment transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO alert_acknowledgments (user_id, event_id, rule_id, acknowledged_at, notes)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5)
	`, ack.UserID, ack.EventID, ack.RuleID, ack.AcknowledgedAt, ack.Notes)
	if err != nil {
		return 0, fmt.Errorf("failed to insert acknowledgment: %w", err)
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE sent_notifications
		SET status = 'acknowledged', acknowledged_at = $3
		WHERE user_id = $1 AND event_id = $2 AND acknowledged_at IS NULL
	`, ack.UserID, ack.EventID, ack.AcknowledgedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications acknowledged: %w", err)
	}
	updated, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit acknowledgment: %w", err)
	}

	slog.Info("Acknowledged alert",
		"user_id", ack.UserID,
		"event_id", ack.EventID,
		"notifications_updated", updated,
	)
	return updated, nil
}

// StaleCritical returns sent, unacknowledged, not-yet-escalated rows whose
// rule is critical priority and whose age exceeds the escalation timeout.
func (db *DB) StaleCritical(ctx context.Context, timeout time.Duration) ([]domain.SentNotification, error) {
	query := `
		SELECT sn.id, sn.user_id, sn.event_id, COALESCE(sn.rule_id::text, ''), sn.channel,
		       sn.status, sn.recipient, sn.created_at
		FROM sent_notifications sn
		JOIN alert_rules r ON r.id::text = sn.rule_id::text
		WHERE sn.status = 'sent'
		  AND sn.acknowledged_at IS NULL
		  AND sn.escalated_at IS NULL
		  AND r.priority = 'critical'
		  AND sn.created_at <= $1
		ORDER BY sn.created_at ASC
	`
	rows, err := db.conn.QueryContext(ctx, query, time.Now().UTC().Add(-timeout))
	if err != nil {
		return nil, fmt.Errorf("failed to query stale critical notifications: %w", err)
	}
	defer rows.Close()

	var stale []domain.SentNotification
	for rows.Next() {
		var (
			n       domain.SentNotification
			channel string
			status  string
		)
		if err := rows.Scan(&n.ID, &n.UserID, &n.EventID, &n.RuleID, &channel, &status,
			&n.Recipient, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan stale notification: %w", err)
		}
		n.Channel = domain.Channel(channel)
		n.Status = domain.SentStatus(status)
		stale = append(stale, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stale notifications: %w", err)
	}
	return stale, nil
}

// MarkEscalated stamps a notification so it escalates exactly once.
func (db *DB) MarkEscalated(ctx context.Context, notificationID string) error {
	result, err := db.conn.ExecContext(ctx, `
		UPDATE sent_notifications
		SET escalated_at = NOW()
		WHERE id = $1 AND escalated_at IS NULL
	`, notificationID)
	if err != nil {
		return fmt.Errorf("failed to mark notification escalated: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("notification already escalated or not found: %s", notificationID)
	}
	return nil
}
