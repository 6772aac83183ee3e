// Package domain defines the core types shared across the pipeline:
// events, alert rules, notification preferences and the sent-notification
// ledger records.
package domain

import (
	"strings"
	"time"
)

// ThreatLevel is the ordinal severity classification attached to an event.
type ThreatLevel string

const (
	ThreatLow      ThreatLevel = "low"
	ThreatMedium   ThreatLevel = "medium"
	ThreatHigh     ThreatLevel = "high"
	ThreatCritical ThreatLevel = "critical"
)

// Ordinal returns the rank of a threat level for comparisons.
// Unknown or empty levels return -1 and never satisfy a minimum-threat filter.
func (t ThreatLevel) Ordinal() int {
	switch t {
	case ThreatLow:
		return 0
	case ThreatMedium:
		return 1
	case ThreatHigh:
		return 2
	case ThreatCritical:
		return 3
	default:
		return -1
	}
}

// Known reports whether the threat level is one of the four defined labels.
func (t ThreatLevel) Known() bool {
	return t.Ordinal() >= 0
}

// ParseThreatLevel normalizes a threat label. Unknown input yields an
// empty (unknown) level.
func ParseThreatLevel(s string) ThreatLevel {
	t := ThreatLevel(strings.ToLower(strings.TrimSpace(s)))
	if t.Known() {
		return t
	}
	return ""
}

// VerificationStatus describes how much trust the scoring pipeline places
// in an event.
type VerificationStatus string

const (
	StatusPending     VerificationStatus = "pending"
	StatusVerified    VerificationStatus = "verified"
	StatusProbable    VerificationStatus = "probable"
	StatusNeedsReview VerificationStatus = "needs_review"
	StatusDuplicate   VerificationStatus = "duplicate"
	StatusPrimary     VerificationStatus = "primary"
)

// Notifiable reports whether an event with this status may produce alerts.
func (s VerificationStatus) Notifiable() bool {
	switch s {
	case StatusVerified, StatusPrimary, StatusProbable:
		return true
	default:
		return false
	}
}

// Geocode is an optional resolved location for an event.
type Geocode struct {
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Display string  `json:"display"`
}

// Event is a normalized intelligence item. Events are created once by the
// event processor and are immutable afterwards, except that a primary's
// credibility and threat level may be upgraded when a duplicate is linked
// to it.
type Event struct {
	ID                 string
	Title              string
	Summary            string
	Category           string
	Region             string
	SourceURL          string
	Link               string
	Confidence         float64
	Geocode            *Geocode
	VerificationStatus VerificationStatus
	CredibilityScore   float64
	ThreatLevel        ThreatLevel
	DuplicateOf        string
	Raw                map[string]any
	PublishedAt        time.Time
	FetchedAt          time.Time
}

// Clamp01 bounds a score to [0,1]. Credibility and confidence are always
// stored clamped.
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
