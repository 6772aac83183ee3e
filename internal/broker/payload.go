package broker

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// InboundEvent is a normalized feed payload decoded from a stream message.
// Connectors publish these as flat string maps; decoding tolerates missing
// optional fields but requires a title.
type InboundEvent struct {
	SourceURL     string
	SourceName    string
	SourceEntryID string
	Category      string
	Region        string
	Title         string
	Summary       string
	Link          string
	Confidence    float64
	PublishedAt   time.Time
	FetchedAt     time.Time
}

// DecodeInbound converts a raw stream message into an InboundEvent.
func DecodeInbound(m Message, now time.Time) (*InboundEvent, error) {
	title := strings.TrimSpace(m.Values["title"])
	if title == "" {
		return nil, fmt.Errorf("message %s has no title", m.ID)
	}

	ev := &InboundEvent{
		SourceURL:     m.Values["source_url"],
		SourceName:    m.Values["source_name"],
		SourceEntryID: m.Values["source_entry_id"],
		Category:      strings.ToLower(strings.TrimSpace(m.Values["category"])),
		Region:        strings.TrimSpace(m.Values["region"]),
		Title:         title,
		Summary:       m.Values["summary"],
		Link:          strings.TrimSpace(m.Values["link"]),
		PublishedAt:   parseTime(m.Values["published_at"], now),
		FetchedAt:     parseTime(m.Values["fetched_at"], now),
	}

	if raw := m.Values["confidence"]; raw != "" {
		conf, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("message %s has malformed confidence %q: %w", m.ID, raw, err)
		}
		ev.Confidence = conf
	}

	return ev, nil
}

// parseTime accepts RFC3339 with or without sub-second precision and falls
// back to the provided time when the field is absent or malformed.
func parseTime(raw string, fallback time.Time) time.Time {
	if raw == "" {
		return fallback
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return fallback
}
