package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/osintops/sentinel/internal/domain"
)

// ActiveRules loads all enabled alert rules. Rules failing validation are
// skipped with a warning so a single malformed rule never reaches the
// evaluator or poisons a tick.
func (db *DB) ActiveRules(ctx context.Context) ([]domain.AlertRule, error) {
	query := `
		SELECT id, name, description, regions, categories, minimum_threat,
		       minimum_credibility, lookback_minutes, priority, auto_ack, enabled, created_at
		FROM alert_rules
		WHERE enabled = TRUE
		ORDER BY name ASC
	`
	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query alert rules: %w", err)
	}
	defer rows.Close()

	var rules []domain.AlertRule
	for rows.Next() {
		var (
			r          domain.AlertRule
			regions    pq.StringArray
			categories pq.StringArray
			threat     string
			priority   string
			createdAt  time.Time
		)
		if err := rows.Scan(&r.ID, &r.Name, &r.Description, &regions, &categories, &threat,
			&r.MinimumCredibility, &r.LookbackMinutes, &priority, &r.AutoAck, &r.Enabled, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan alert rule: %w", err)
		}
		r.Regions = regions
		r.Categories = categories
		r.MinimumThreat = domain.ThreatLevel(threat)
		r.Priority = domain.Priority(priority)
		r.CreatedAt = createdAt

		if err := r.Validate(); err != nil {
			slog.Warn("Skipping invalid alert rule", "rule", r.Name, "error", err)
			continue
		}
		rules = append(rules, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating alert rules: %w", err)
	}
	return rules, nil
}
