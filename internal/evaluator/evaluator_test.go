package evaluator

import (
	"math/rand"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/osintops/sentinel/internal/domain"
)

var testNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func baseEvent() domain.Event {
	return domain.Event{
		ID:                 "ev-1",
		Title:              "Explosion reported",
		Category:           "attack",
		Region:             "Europe",
		ThreatLevel:        domain.ThreatHigh,
		CredibilityScore:   0.8,
		VerificationStatus: domain.StatusVerified,
		FetchedAt:          testNow.Add(-10 * time.Minute),
	}
}

func baseRule() domain.AlertRule {
	return domain.AlertRule{
		ID:                 "rule-1",
		Name:               "europe-high",
		Regions:            []string{"europe"},
		MinimumThreat:      domain.ThreatHigh,
		MinimumCredibility: 0.6,
		LookbackMinutes:    60,
		Priority:           domain.PriorityHigh,
		Enabled:            true,
	}
}

func TestMatches(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(ev *domain.Event, rule *domain.AlertRule)
		want   bool
	}{
		{
			name:   "all predicates hold",
			mutate: func(*domain.Event, *domain.AlertRule) {},
			want:   true,
		},
		{
			name:   "region match is case-insensitive",
			mutate: func(ev *domain.Event, _ *domain.AlertRule) { ev.Region = "EUROPE" },
			want:   true,
		},
		{
			name:   "region outside watch set",
			mutate: func(ev *domain.Event, _ *domain.AlertRule) { ev.Region = "Asia" },
			want:   false,
		},
		{
			name:   "empty region set matches any region",
			mutate: func(ev *domain.Event, rule *domain.AlertRule) { ev.Region = "Asia"; rule.Regions = nil },
			want:   true,
		},
		{
			name:   "category outside watch set",
			mutate: func(ev *domain.Event, rule *domain.AlertRule) { rule.Categories = []string{"disease"} },
			want:   false,
		},
		{
			name:   "category match is case-insensitive",
			mutate: func(ev *domain.Event, rule *domain.AlertRule) { rule.Categories = []string{"Attack"} },
			want:   true,
		},
		{
			name:   "threat below minimum",
			mutate: func(ev *domain.Event, _ *domain.AlertRule) { ev.ThreatLevel = domain.ThreatMedium },
			want:   false,
		},
		{
			name:   "unknown threat never satisfies minimum",
			mutate: func(ev *domain.Event, rule *domain.AlertRule) {
				ev.ThreatLevel = ""
				rule.MinimumThreat = domain.ThreatLow
			},
			want: false,
		},
		{
			name:   "credibility below minimum",
			mutate: func(ev *domain.Event, _ *domain.AlertRule) { ev.CredibilityScore = 0.5 },
			want:   false,
		},
		{
			name:   "credibility exactly at minimum",
			mutate: func(ev *domain.Event, _ *domain.AlertRule) { ev.CredibilityScore = 0.6 },
			want:   true,
		},
		{
			name:   "fetched outside lookback window",
			mutate: func(ev *domain.Event, _ *domain.AlertRule) { ev.FetchedAt = testNow.Add(-2 * time.Hour) },
			want:   false,
		},
		{
			name:   "fetched exactly at window boundary",
			mutate: func(ev *domain.Event, _ *domain.AlertRule) { ev.FetchedAt = testNow.Add(-60 * time.Minute) },
			want:   true,
		},
		{
			name:   "pending status is not notifiable",
			mutate: func(ev *domain.Event, _ *domain.AlertRule) { ev.VerificationStatus = domain.StatusPending },
			want:   false,
		},
		{
			name:   "duplicate status is not notifiable",
			mutate: func(ev *domain.Event, _ *domain.AlertRule) { ev.VerificationStatus = domain.StatusDuplicate },
			want:   false,
		},
		{
			name:   "probable status is notifiable",
			mutate: func(ev *domain.Event, _ *domain.AlertRule) { ev.VerificationStatus = domain.StatusProbable },
			want:   true,
		},
		{
			name:   "primary status is notifiable",
			mutate: func(ev *domain.Event, _ *domain.AlertRule) { ev.VerificationStatus = domain.StatusPrimary },
			want:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := baseEvent()
			rule := baseRule()
			tt.mutate(&ev, &rule)
			if got := Matches(ev, rule, testNow); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestMatches_AllPredicates drives randomized events and rules through
// Matches and checks the result against an independently computed
// conjunction of the six predicates.
func TestMatches_AllPredicates(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	regions := []string{"Europe", "Asia", "Africa", "Americas", ""}
	categories := []string{"attack", "protest", "disease", "weather", ""}
	threats := []domain.ThreatLevel{"", domain.ThreatLow, domain.ThreatMedium, domain.ThreatHigh, domain.ThreatCritical}
	statuses := []domain.VerificationStatus{
		domain.StatusPending, domain.StatusVerified, domain.StatusProbable,
		domain.StatusNeedsReview, domain.StatusDuplicate, domain.StatusPrimary,
	}

	pick := func(set []string) []string {
		if rng.Intn(2) == 0 {
			return nil
		}
		var out []string
		for _, s := range set {
			if s != "" && rng.Intn(2) == 0 {
				out = append(out, s)
			}
		}
		return out
	}

	contains := func(value string, set []string) bool {
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

	for i := 0; i < 2000; i++ {
		ev := domain.Event{
			Region:             regions[rng.Intn(len(regions))],
			Category:           categories[rng.Intn(len(categories))],
			ThreatLevel:        threats[rng.Intn(len(threats))],
			CredibilityScore:   float64(rng.Intn(101)) / 100,
			VerificationStatus: statuses[rng.Intn(len(statuses))],
			FetchedAt:          testNow.Add(-time.Duration(rng.Intn(180)) * time.Minute),
		}
		rule := domain.AlertRule{
			Name:               "random",
			Regions:            pick(regions),
			Categories:         pick(categories),
			MinimumThreat:      threats[1+rng.Intn(len(threats)-1)],
			MinimumCredibility: float64(rng.Intn(101)) / 100,
			LookbackMinutes:    1 + rng.Intn(120),
			Priority:           domain.PriorityHigh,
		}

		want := contains(ev.Region, rule.Regions) &&
			contains(ev.Category, rule.Categories) &&
			ev.ThreatLevel.Known() &&
			ev.ThreatLevel.Ordinal() >= rule.MinimumThreat.Ordinal() &&
			ev.CredibilityScore >= rule.MinimumCredibility &&
			!ev.FetchedAt.Before(testNow.Add(-rule.Lookback())) &&
			ev.VerificationStatus.Notifiable()

		if got := Matches(ev, rule, testNow); got != want {
			t.Fatalf("Matches() = %v, want %v for event %+v rule %+v", got, want, ev, rule)
		}
	}
}

func TestEvaluate(t *testing.T) {
	ev := baseEvent()
	other := baseEvent()
	other.ID = "ev-2"
	other.ThreatLevel = domain.ThreatMedium

	broad := baseRule()
	broad.ID = "rule-2"
	broad.Name = "any-medium"
	broad.Regions = nil
	broad.MinimumThreat = domain.ThreatMedium

	candidates := Evaluate([]domain.Event{ev, other}, []domain.AlertRule{baseRule(), broad}, testNow)

	// ev matches both rules, other only the broad one.
	if len(candidates) != 3 {
		t.Fatalf("Evaluate() returned %d candidates, want 3", len(candidates))
	}

	counts := make(map[string]int)
	for _, c := range candidates {
		counts[c.Event.ID+"/"+c.Rule.ID]++
	}
	for _, key := range []string{"ev-1/rule-1", "ev-1/rule-2", "ev-2/rule-2"} {
		if counts[key] != 1 {
			t.Errorf("Evaluate() missing candidate %s, got %v", key, counts)
		}
	}
}

func TestEvaluate_Pure(t *testing.T) {
	events := []domain.Event{baseEvent()}
	rules := []domain.AlertRule{baseRule()}

	first := Evaluate(events, rules, testNow)
	for i := 0; i < 5; i++ {
		if got := Evaluate(events, rules, testNow); !reflect.DeepEqual(got, first) {
			t.Fatalf("Evaluate() not idempotent: got %+v, want %+v", got, first)
		}
	}
}

func TestEvaluate_Empty(t *testing.T) {
	if got := Evaluate(nil, []domain.AlertRule{baseRule()}, testNow); got != nil {
		t.Errorf("Evaluate() with no events = %v, want nil", got)
	}
	if got := Evaluate([]domain.Event{baseEvent()}, nil, testNow); got != nil {
		t.Errorf("Evaluate() with no rules = %v, want nil", got)
	}
}
