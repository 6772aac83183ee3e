package verify

import (
	"math"
	"testing"

	"github.com/osintops/sentinel/internal/domain"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestRun(t *testing.T) {
	tests := []struct {
		name            string
		payload         Payload
		wantCredibility float64
		wantStatus      domain.VerificationStatus
		wantThreat      domain.ThreatLevel
	}{
		{
			name:            "untrusted source, unknown category",
			payload:         Payload{SourceURL: "https://example.com/post", Category: "other", Title: "something happened"},
			wantCredibility: 0.25,
			wantStatus:      domain.StatusNeedsReview,
			wantThreat:      "",
		},
		{
			name:            "trusted source only",
			payload:         Payload{SourceURL: "https://www.reuters.com/world/article", Category: "other", Title: "markets move"},
			wantCredibility: 0.6,
			wantStatus:      domain.StatusProbable,
			wantThreat:      domain.ThreatLow,
		},
		{
			name:            "trusted source with high risk category",
			payload:         Payload{SourceURL: "https://apnews.com/article", Category: "attack", Title: "blast reported"},
			wantCredibility: 0.8,
			wantStatus:      domain.StatusVerified,
			wantThreat:      domain.ThreatHigh,
		},
		{
			name:            "trusted source, moderate risk, keyword",
			payload:         Payload{SourceURL: "https://bbc.com/news", Category: "protest", Title: "Official statement on march"},
			wantCredibility: 0.8,
			wantStatus:      domain.StatusVerified,
			wantThreat:      domain.ThreatMedium,
		},
		{
			name:            "keyword in summary only",
			payload:         Payload{SourceURL: "https://blog.example.org", Category: "weather", Summary: "storm confirmed by observers"},
			wantCredibility: 0.45,
			wantStatus:      domain.StatusProbable,
			wantThreat:      domain.ThreatMedium,
		},
		{
			name:            "subdomain of trusted domain counts",
			payload:         Payload{SourceURL: "https://feeds.bbc.co.uk/rss", Category: "conflict", Title: "clashes"},
			wantCredibility: 0.8,
			wantStatus:      domain.StatusVerified,
			wantThreat:      domain.ThreatHigh,
		},
		{
			name:            "keyword bonus applies once",
			payload:         Payload{SourceURL: "https://example.com", Category: "attack", Title: "confirmed official gov report"},
			wantCredibility: 0.55,
			wantStatus:      domain.StatusProbable,
			wantThreat:      domain.ThreatHigh,
		},
		{
			name:            "empty payload",
			payload:         Payload{},
			wantCredibility: 0.25,
			wantStatus:      domain.StatusNeedsReview,
			wantThreat:      "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Run(tt.payload)
			if !almostEqual(got.Credibility, tt.wantCredibility) {
				t.Errorf("Run() Credibility = %v, want %v", got.Credibility, tt.wantCredibility)
			}
			if got.Status != tt.wantStatus {
				t.Errorf("Run() Status = %v, want %v", got.Status, tt.wantStatus)
			}
			if got.ThreatLevel != tt.wantThreat {
				t.Errorf("Run() ThreatLevel = %v, want %v", got.ThreatLevel, tt.wantThreat)
			}
		})
	}
}

func TestRun_Deterministic(t *testing.T) {
	p := Payload{SourceURL: "https://reuters.com/x", Category: "attack", Title: "Confirmed strike"}
	first := Run(p)
	for i := 0; i < 10; i++ {
		if got := Run(p); got != first {
			t.Fatalf("Run() not deterministic: got %+v, want %+v", got, first)
		}
	}
}

func TestBlend(t *testing.T) {
	base := Score{Status: domain.StatusVerified, Credibility: 0.8, ThreatLevel: domain.ThreatMedium}

	tests := []struct {
		name            string
		sig             *Signal
		wantCredibility float64
		wantStatus      domain.VerificationStatus
		wantThreat      domain.ThreatLevel
	}{
		{
			name:            "nil signal leaves base untouched",
			sig:             nil,
			wantCredibility: 0.8,
			wantStatus:      domain.StatusVerified,
			wantThreat:      domain.ThreatMedium,
		},
		{
			name:            "averages credibility",
			sig:             &Signal{Credibility: 0.4},
			wantCredibility: 0.6,
			wantStatus:      domain.StatusProbable,
			wantThreat:      domain.ThreatMedium,
		},
		{
			name:            "disinfo risk applies scaled penalty",
			sig:             &Signal{Credibility: 0.8, DisinfoRisk: 0.5},
			wantCredibility: 0.7,
			wantStatus:      domain.StatusVerified,
			wantThreat:      domain.ThreatMedium,
		},
		{
			name:            "full disinfo risk applies max penalty",
			sig:             &Signal{Credibility: 0.8, DisinfoRisk: 1.0},
			wantCredibility: 0.6,
			wantStatus:      domain.StatusProbable,
			wantThreat:      domain.ThreatMedium,
		},
		{
			name:            "threat upgraded when signal is higher",
			sig:             &Signal{Credibility: 0.8, ThreatCategory: domain.ThreatCritical},
			wantCredibility: 0.8,
			wantStatus:      domain.StatusVerified,
			wantThreat:      domain.ThreatCritical,
		},
		{
			name:            "threat never downgraded",
			sig:             &Signal{Credibility: 0.8, ThreatCategory: domain.ThreatLow},
			wantCredibility: 0.8,
			wantStatus:      domain.StatusVerified,
			wantThreat:      domain.ThreatMedium,
		},
		{
			name:            "out of range signal values are clamped",
			sig:             &Signal{Credibility: 2.0, DisinfoRisk: -1.0},
			wantCredibility: 0.9,
			wantStatus:      domain.StatusVerified,
			wantThreat:      domain.ThreatMedium,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Blend(base, tt.sig)
			if !almostEqual(got.Credibility, tt.wantCredibility) {
				t.Errorf("Blend() Credibility = %v, want %v", got.Credibility, tt.wantCredibility)
			}
			if got.Status != tt.wantStatus {
				t.Errorf("Blend() Status = %v, want %v", got.Status, tt.wantStatus)
			}
			if got.ThreatLevel != tt.wantThreat {
				t.Errorf("Blend() ThreatLevel = %v, want %v", got.ThreatLevel, tt.wantThreat)
			}
		})
	}
}
