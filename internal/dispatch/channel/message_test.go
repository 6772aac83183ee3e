package channel

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/osintops/sentinel/internal/domain"
)

func testCandidate() domain.AlertCandidate {
	return domain.AlertCandidate{
		Event: domain.Event{
			ID:                 "ev-1",
			Title:              "Explosion reported in city center",
			Summary:            "Multiple sources report a large explosion.",
			Category:           "attack",
			Region:             "Europe",
			Link:               "https://example.com/articles/1",
			ThreatLevel:        domain.ThreatHigh,
			CredibilityScore:   0.8,
			VerificationStatus: domain.StatusVerified,
			PublishedAt:        time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC),
		},
		Rule: domain.AlertRule{
			ID:       "rule-1",
			Name:     "europe-high",
			Priority: domain.PriorityCritical,
		},
	}
}

func TestSubject(t *testing.T) {
	got := Subject(testCandidate())
	want := "Alert: CRITICAL - Explosion reported in city center"
	if got != want {
		t.Errorf("Subject() = %q, want %q", got, want)
	}
}

func TestBody(t *testing.T) {
	body := Body(testCandidate())
	for _, want := range []string{
		"Rule: europe-high",
		"Priority: critical",
		"Title: Explosion reported in city center",
		"Threat Level: high",
		"Credibility: 0.80",
		"Link: https://example.com/articles/1",
		"Published: 2026-03-15T10:30:00Z",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("Body() missing %q in:\n%s", want, body)
		}
	}
}

func TestBody_OmitsUnknownThreat(t *testing.T) {
	cand := testCandidate()
	cand.Event.ThreatLevel = ""
	if body := Body(cand); strings.Contains(body, "Threat Level") {
		t.Errorf("Body() should omit unknown threat level, got:\n%s", body)
	}
}

func TestShortMessage(t *testing.T) {
	cand := testCandidate()

	t.Run("glyph prefix by priority", func(t *testing.T) {
		got := ShortMessage(cand, WhatsAppLimit)
		if !strings.HasPrefix(got, "🚨") {
			t.Errorf("ShortMessage() = %q, want critical glyph prefix", got)
		}
	})

	t.Run("short message is not truncated", func(t *testing.T) {
		got := ShortMessage(cand, WhatsAppLimit)
		if strings.HasSuffix(got, "…") {
			t.Errorf("ShortMessage() unexpectedly truncated: %q", got)
		}
		if !strings.Contains(got, cand.Event.Title) {
			t.Errorf("ShortMessage() = %q, want full title", got)
		}
	})

	t.Run("long message truncates to rune limit", func(t *testing.T) {
		long := cand
		long.Event.Title = strings.Repeat("événement ", 40)
		got := ShortMessage(long, SMSLimit)
		if n := utf8.RuneCountInString(got); n != SMSLimit {
			t.Errorf("ShortMessage() rune count = %d, want %d", n, SMSLimit)
		}
		if !strings.HasSuffix(got, "…") {
			t.Errorf("ShortMessage() = %q, want ellipsis suffix", got)
		}
		if !utf8.ValidString(got) {
			t.Errorf("ShortMessage() produced invalid UTF-8: %q", got)
		}
	})
}

func TestPriorityGlyph(t *testing.T) {
	tests := []struct {
		priority domain.Priority
		want     string
	}{
		{domain.PriorityCritical, "🚨"},
		{domain.PriorityHigh, "⚠️"},
		{domain.PriorityMedium, "🔔"},
		{domain.PriorityLow, "ℹ️"},
		{"", "ℹ️"},
	}
	for _, tt := range tests {
		if got := priorityGlyph(tt.priority); got != tt.want {
			t.Errorf("priorityGlyph(%q) = %q, want %q", tt.priority, got, tt.want)
		}
	}
}

func TestWebhookBody(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	body, err := WebhookBody(testCandidate(), now)
	if err != nil {
		t.Fatalf("WebhookBody() error = %v", err)
	}

	var payload struct {
		Type      string `json:"type"`
		Timestamp string `json:"timestamp"`
		Rule      struct {
			Name     string `json:"name"`
			Priority string `json:"priority"`
		} `json:"rule"`
		Event struct {
			ID               string  `json:"id"`
			Title            string  `json:"title"`
			ThreatLevel      *string `json:"threat_level"`
			CredibilityScore float64 `json:"credibility_score"`
			PublishedAt      string  `json:"published_at"`
		} `json:"event"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("WebhookBody() produced invalid JSON: %v", err)
	}

	if payload.Type != "alert" {
		t.Errorf("type = %q, want %q", payload.Type, "alert")
	}
	if payload.Timestamp != "2026-03-15T12:00:00Z" {
		t.Errorf("timestamp = %q, want %q", payload.Timestamp, "2026-03-15T12:00:00Z")
	}
	if payload.Rule.Name != "europe-high" || payload.Rule.Priority != "critical" {
		t.Errorf("rule = %+v, want europe-high/critical", payload.Rule)
	}
	if payload.Event.ID != "ev-1" {
		t.Errorf("event.id = %q, want %q", payload.Event.ID, "ev-1")
	}
	if payload.Event.ThreatLevel == nil || *payload.Event.ThreatLevel != "high" {
		t.Errorf("event.threat_level = %v, want high", payload.Event.ThreatLevel)
	}
	if payload.Event.CredibilityScore != 0.8 {
		t.Errorf("event.credibility_score = %v, want 0.8", payload.Event.CredibilityScore)
	}
}

func TestWebhookBody_UnknownThreatIsNull(t *testing.T) {
	cand := testCandidate()
	cand.Event.ThreatLevel = ""
	body, err := WebhookBody(cand, time.Now())
	if err != nil {
		t.Fatalf("WebhookBody() error = %v", err)
	}
	if !strings.Contains(string(body), `"threat_level":null`) {
		t.Errorf("WebhookBody() = %s, want null threat_level", body)
	}
}

// TestWebhookBody_CanonicalOrder verifies the marshaled body is
// reproducible: the receiver must be able to recompute the signature over
// the exact bytes, so identical inputs must always produce identical
// bytes with sorted keys.
func TestWebhookBody_CanonicalOrder(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	first, err := WebhookBody(testCandidate(), now)
	if err != nil {
		t.Fatalf("WebhookBody() error = %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := WebhookBody(testCandidate(), now)
		if err != nil {
			t.Fatalf("WebhookBody() error = %v", err)
		}
		if string(first) != string(again) {
			t.Fatalf("WebhookBody() not canonical:\n%s\n%s", first, again)
		}
	}

	// Top-level keys appear in sorted order.
	idxEvent := strings.Index(string(first), `"event"`)
	idxRule := strings.Index(string(first), `"rule"`)
	idxTimestamp := strings.Index(string(first), `"timestamp"`)
	idxType := strings.Index(string(first), `"type"`)
	if !(idxEvent < idxRule && idxRule < idxTimestamp && idxTimestamp < idxType) {
		t.Errorf("WebhookBody() keys not sorted: %s", first)
	}
}

func TestSignBody(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	body, err := WebhookBody(testCandidate(), now)
	if err != nil {
		t.Fatalf("WebhookBody() error = %v", err)
	}

	got := SignBody(body, "abc")

	// Independently computed HMAC-SHA256 over the canonical body.
	mac := hmac.New(sha256.New, []byte("abc"))
	mac.Write(body)
	want := "sha256=" + hex.EncodeToString(mac.Sum(nil))

	if got != want {
		t.Errorf("SignBody() = %q, want %q", got, want)
	}
	if !strings.HasPrefix(got, "sha256=") {
		t.Errorf("SignBody() = %q, want sha256= prefix", got)
	}
	if SignBody(body, "other") == got {
		t.Error("SignBody() with a different secret produced the same signature")
	}
}
