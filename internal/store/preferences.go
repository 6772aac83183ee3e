package store

import (
	"context"
	"fmt"

	"github.com/lib/pq"

	"github.com/osintops/sentinel/internal/domain"
)

// ListRecipients loads notification preferences for every user with at
// least one enabled channel. Preferences are owned by an external admin
// surface; the pipeline only reads them.
func (db *DB) ListRecipients(ctx context.Context) ([]domain.Preferences, error) {
	query := `
		SELECT user_id, email, phone, webhook_url, webhook_secret, matrix_room_id,
		       channels, min_priority, regions, categories, muted_sources,
		       quiet_hours_start, quiet_hours_end, critical_override, digest_frequency
		FROM notification_preferences
		WHERE array_length(channels, 1) > 0
	`
	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query notification preferences: %w", err)
	}
	defer rows.Close()

	var recipients []domain.Preferences
	for rows.Next() {
		var (
			p        domain.Preferences
			channels pq.StringArray
			regions  pq.StringArray
			cats     pq.StringArray
			muted    pq.StringArray
			minPrio  string
		)
		if err := rows.Scan(&p.UserID, &p.Email, &p.Phone, &p.WebhookURL, &p.WebhookSecret,
			&p.MatrixRoomID, &channels, &minPrio, &regions, &cats, &muted,
			&p.QuietHoursStart, &p.QuietHoursEnd, &p.CriticalOverride, &p.DigestFrequency); err != nil {
			return nil, fmt.Errorf("failed to scan notification preferences: %w", err)
		}
		for _, ch := range channels {
			p.Channels = append(p.Channels, domain.Channel(ch))
		}
		p.MinPriority = domain.Priority(minPrio)
		p.Regions = regions
		p.Categories = cats
		p.MutedSources = muted
		recipients = append(recipients, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notification preferences: %w", err)
	}
	return recipients, nil
}
