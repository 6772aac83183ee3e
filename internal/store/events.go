package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/osintops/sentinel/internal/domain"
)

const eventColumns = `id, title, summary, category, region, source_url, link, confidence,
	geocode, verification_status, credibility_score, threat_level, duplicate_of, raw,
	published_at, fetched_at`

// InsertEvent persists a new event row. Events are never deleted by the
// pipeline.
func (db *DB) InsertEvent(ctx context.Context, ev *domain.Event) error {
	geocodeJSON, err := marshalNullable(ev.Geocode)
	if err != nil {
		return fmt.Errorf("failed to marshal geocode: %w", err)
	}
	rawJSON, err := marshalNullable(ev.Raw)
	if err != nil {
		return fmt.Errorf("failed to marshal raw blob: %w", err)
	}

	query := `
		INSERT INTO events (id, title, summary, category, region, source_url, link, confidence,
			geocode, verification_status, credibility_score, threat_level, duplicate_of, raw,
			published_at, fetched_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NULLIF($12, ''), NULLIF($13, ''), $14, $15, $16)
	`
	_, err = db.conn.ExecContext(ctx, query,
		ev.ID,
		ev.Title,
		ev.Summary,
		ev.Category,
		ev.Region,
		ev.SourceURL,
		ev.Link,
		domain.Clamp01(ev.Confidence),
		geocodeJSON,
		string(ev.VerificationStatus),
		domain.Clamp01(ev.CredibilityScore),
		string(ev.ThreatLevel),
		ev.DuplicateOf,
		rawJSON,
		ev.PublishedAt,
		ev.FetchedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}

	slog.Debug("Inserted event",
		"event_id", ev.ID,
		"status", ev.VerificationStatus,
		"threat_level", ev.ThreatLevel,
	)
	return nil
}

// FindDuplicate looks up an existing event by exact link, falling back to
// case-insensitive exact title match. Returns nil when no candidate
// exists. Duplicate detection is best-effort: missed duplicates degrade to
// redundant but still correctly scored events.
func (db *DB) FindDuplicate(ctx context.Context, link, title string) (*domain.Event, error) {
	if link != "" {
		ev, err := db.queryOneEvent(ctx, `
			SELECT `+eventColumns+`
			FROM events
			WHERE link = $1 AND link <> '' AND verification_status <> 'duplicate'
			ORDER BY fetched_at ASC
			LIMIT 1
		`, link)
		if err != nil {
			return nil, err
		}
		if ev != nil {
			return ev, nil
		}
	}

	return db.queryOneEvent(ctx, `
		SELECT `+eventColumns+`
		FROM events
		WHERE LOWER(title) = LOWER($1) AND verification_status <> 'duplicate'
		ORDER BY fetched_at ASC
		LIMIT 1
	`, title)
}

// UpgradePrimary links a duplicate to its primary: the primary keeps the
// higher credibility score, keeps its own threat level when present and is
// promoted to primary status.
func (db *DB) UpgradePrimary(ctx context.Context, primaryID string, credibility float64, threat domain.ThreatLevel) error {
	query := `
		UPDATE events
		SET credibility_score = GREATEST(credibility_score, $2),
		    threat_level = COALESCE(threat_level, NULLIF($3, '')),
		    verification_status = 'primary'
		WHERE id = $1
	`
	result, err := db.conn.ExecContext(ctx, query, primaryID, domain.Clamp01(credibility), string(threat))
	if err != nil {
		return fmt.Errorf("failed to upgrade primary event: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("primary event not found: %s", primaryID)
	}
	return nil
}

// EventsSince returns events fetched at or after the given time, oldest
// first, capped at limit.
func (db *DB) EventsSince(ctx context.Context, since time.Time, limit int) ([]domain.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM events
		WHERE fetched_at >= $1
		ORDER BY fetched_at ASC
		LIMIT $2
	`
	rows, err := db.conn.QueryContext(ctx, query, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}
	return events, nil
}

// GetEvent retrieves a single event by id.
func (db *DB) GetEvent(ctx context.Context, id string) (*domain.Event, error) {
	ev, err := db.queryOneEvent(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	if ev == nil {
		return nil, fmt.Errorf("event not found: %s", id)
	}
	return ev, nil
}

func (db *DB) queryOneEvent(ctx context.Context, query string, args ...any) (*domain.Event, error) {
	row := db.conn.QueryRowContext(ctx, query, args...)
	ev, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query event: %w", err)
	}
	return ev, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*domain.Event, error) {
	var (
		ev          domain.Event
		geocodeJSON sql.NullString
		rawJSON     sql.NullString
		status      string
		threat      sql.NullString
		dupOf       sql.NullString
	)
	err := row.Scan(
		&ev.ID, &ev.Title, &ev.Summary, &ev.Category, &ev.Region, &ev.SourceURL, &ev.Link,
		&ev.Confidence, &geocodeJSON, &status, &ev.CredibilityScore, &threat, &dupOf,
		&rawJSON, &ev.PublishedAt, &ev.FetchedAt,
	)
	if err != nil {
		return nil, err
	}

	ev.VerificationStatus = domain.VerificationStatus(status)
	if threat.Valid {
		ev.ThreatLevel = domain.ThreatLevel(threat.String)
	}
	if dupOf.Valid {
		ev.DuplicateOf = dupOf.String
	}
	if geocodeJSON.Valid && geocodeJSON.String != "" {
		var g domain.Geocode
		if err := json.Unmarshal([]byte(geocodeJSON.String), &g); err != nil {
			slog.Warn("Failed to unmarshal geocode JSON", "event_id", ev.ID, "error", err)
		} else {
			ev.Geocode = &g
		}
	}
	if rawJSON.Valid && rawJSON.String != "" {
		if err := json.Unmarshal([]byte(rawJSON.String), &ev.Raw); err != nil {
			slog.Warn("Failed to unmarshal raw JSON", "event_id", ev.ID, "error", err)
		}
	}
	return &ev, nil
}

// marshalNullable serializes v for JSONB storage, producing NULL for nil
// values.
func marshalNullable(v any) (sql.NullString, error) {
	switch val := v.(type) {
	case nil:
		return sql.NullString{}, nil
	case *domain.Geocode:
		if val == nil {
			return sql.NullString{}, nil
		}
	case map[string]any:
		if len(val) == 0 {
			return sql.NullString{}, nil
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}
