// Package evaluator matches persisted events against configured alert
// rules. Matching is a pure function of its inputs: no side effects, no
// ordering dependence, identical inputs always yield identical candidates.
package evaluator

import (
	"strings"
	"time"

	"github.com/osintops/sentinel/internal/domain"
)

// Evaluate returns one candidate per (event, rule) pair where every rule
// predicate holds. A single event may match several rules; candidates are
// not deduplicated at this stage.
func Evaluate(events []domain.Event, rules []domain.AlertRule, now time.Time) []domain.AlertCandidate {
	var candidates []domain.AlertCandidate
	for _, ev := range events {
		for _, rule := range rules {
			if Matches(ev, rule, now) {
				candidates = append(candidates, domain.AlertCandidate{Event: ev, Rule: rule})
			}
		}
	}
	return candidates
}

// Matches reports whether a rule matches an event at the given time. All
// six predicates must hold:
//
//	region in rule's region set (or rule watches any region)
//	category in rule's category set (or rule watches any category)
//	threat level known and at least the rule's minimum
//	credibility at least the rule's minimum
//	fetched within the rule's lookback window
//	verification status verified, primary or probable
func Matches(ev domain.Event, rule domain.AlertRule, now time.Time) bool {
	if !inSet(ev.Region, rule.Regions) {
		return false
	}
	if !inSet(ev.Category, rule.Categories) {
		return false
	}
	if !ev.ThreatLevel.Known() || ev.ThreatLevel.Ordinal() < rule.MinimumThreat.Ordinal() {
		return false
	}
	if ev.CredibilityScore < rule.MinimumCredibility {
		return false
	}
	if ev.FetchedAt.Before(now.Add(-rule.Lookback())) {
		return false
	}
	return ev.VerificationStatus.Notifiable()
}

// inSet reports case-insensitive membership. A nil or empty set matches
// everything.
func inSet(value string, set []string) bool {
	if len(set) == 0 {
		return true
	}
	for _, s := range set {
		if strings.EqualFold(value, s) {
			return true
		}
	}
	return false
}
