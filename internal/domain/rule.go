package domain

import (
	"fmt"
	"strings"
	"time"
)

// Priority ranks how urgently a notification should reach a user.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Ordinal returns the rank of a priority for comparisons. Unknown
// priorities return -1.
func (p Priority) Ordinal() int {
	switch p {
	case PriorityLow:
		return 0
	case PriorityMedium:
		return 1
	case PriorityHigh:
		return 2
	case PriorityCritical:
		return 3
	default:
		return -1
	}
}

// Rule defaults applied by NewRule.
const (
	DefaultMinimumThreat      = ThreatMedium
	DefaultMinimumCredibility = 0.6
	DefaultLookbackMinutes    = 60
	DefaultRulePriority       = PriorityHigh
)

// AlertRule is an operator-configured filter describing when an event
// should notify someone. Rules are created by an external admin surface
// and are read-only to the pipeline.
type AlertRule struct {
	ID                 string
	Name               string
	Description        string
	Regions            []string // nil or empty = any region
	Categories         []string // nil or empty = any category
	MinimumThreat      ThreatLevel
	MinimumCredibility float64
	LookbackMinutes    int
	Priority           Priority
	AutoAck            bool
	Enabled            bool
	CreatedAt          time.Time
}

// NewRule returns a rule with the documented defaults filled in.
func NewRule(name string) AlertRule {
	return AlertRule{
		Name:               name,
		MinimumThreat:      DefaultMinimumThreat,
		MinimumCredibility: DefaultMinimumCredibility,
		LookbackMinutes:    DefaultLookbackMinutes,
		Priority:           DefaultRulePriority,
		Enabled:            true,
	}
}

// Validate checks a rule at the load boundary. Invalid rules never reach
// the evaluator.
func (r AlertRule) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("rule name cannot be empty")
	}
	if !r.MinimumThreat.Known() {
		return fmt.Errorf("rule %q: unknown minimum threat %q", r.Name, r.MinimumThreat)
	}
	if r.MinimumCredibility < 0 || r.MinimumCredibility > 1 {
		return fmt.Errorf("rule %q: minimum credibility %v outside [0,1]", r.Name, r.MinimumCredibility)
	}
	if r.LookbackMinutes <= 0 {
		return fmt.Errorf("rule %q: lookback minutes must be positive, got %d", r.Name, r.LookbackMinutes)
	}
	if r.Priority.Ordinal() < 0 {
		return fmt.Errorf("rule %q: unknown priority %q", r.Name, r.Priority)
	}
	return nil
}

// Lookback returns the rule's lookback window as a duration.
func (r AlertRule) Lookback() time.Duration {
	return time.Duration(r.LookbackMinutes) * time.Minute
}

// AlertCandidate pairs an event with a rule it matched. Candidates are
// transient: they exist only between evaluation and dispatch.
type AlertCandidate struct {
	Event Event
	Rule  AlertRule
}
