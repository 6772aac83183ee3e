package channel

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/osintops/sentinel/internal/domain"
)

// Subject builds the email subject line for a candidate.
func Subject(cand domain.AlertCandidate) string {
	return fmt.Sprintf("Alert: %s - %s", strings.ToUpper(string(cand.Rule.Priority)), cand.Event.Title)
}

// Body builds the long-form notification body used by email and in-app
// delivery.
func Body(cand domain.AlertCandidate) string {
	ev := cand.Event
	var sb strings.Builder
	sb.WriteString("Alert Notification\n")
	sb.WriteString("==================\n\n")
	sb.WriteString(fmt.Sprintf("Rule: %s\n", cand.Rule.Name))
	sb.WriteString(fmt.Sprintf("Priority: %s\n", cand.Rule.Priority))
	sb.WriteString(fmt.Sprintf("Title: %s\n", ev.Title))
	if ev.Summary != "" {
		sb.WriteString(fmt.Sprintf("Summary: %s\n", ev.Summary))
	}
	sb.WriteString(fmt.Sprintf("Category: %s\n", ev.Category))
	sb.WriteString(fmt.Sprintf("Region: %s\n", ev.Region))
	if ev.ThreatLevel.Known() {
		sb.WriteString(fmt.Sprintf("Threat Level: %s\n", ev.ThreatLevel))
	}
	sb.WriteString(fmt.Sprintf("Credibility: %.2f\n", ev.CredibilityScore))
	if ev.Link != "" {
		sb.WriteString(fmt.Sprintf("Link: %s\n", ev.Link))
	}
	sb.WriteString(fmt.Sprintf("Published: %s\n", ev.PublishedAt.UTC().Format(time.RFC3339)))
	return sb.String()
}

// Channel length limits for gateway-delivered text messages.
const (
	SMSLimit      = 160
	WhatsAppLimit = 1600
)

// priorityGlyph prefixes short messages so urgency survives truncation.
func priorityGlyph(p domain.Priority) string {
	switch p {
	case domain.PriorityCritical:
		return "🚨"
	case domain.PriorityHigh:
		return "⚠️"
	case domain.PriorityMedium:
		return "🔔"
	default:
		return "ℹ️"
	}
}

// ShortMessage builds a glyph-prefixed text message truncated to the
// channel limit. Truncation counts runes, not bytes, so multi-byte glyphs
// do not split.
func ShortMessage(cand domain.AlertCandidate, limit int) string {
	ev := cand.Event
	msg := fmt.Sprintf("%s %s | %s/%s", priorityGlyph(cand.Rule.Priority), ev.Title, ev.Region, ev.Category)
	if ev.Link != "" {
		msg += " " + ev.Link
	}

	runes := []rune(msg)
	if len(runes) <= limit {
		return msg
	}
	return string(runes[:limit-1]) + "…"
}

// WebhookBody builds the canonical webhook payload bytes. Keys are sorted
// because Go marshals maps in key order, which makes the body reproducible
// for signature verification on the receiving side.
func WebhookBody(cand domain.AlertCandidate, now time.Time) ([]byte, error) {
	ev := cand.Event
	var threat any
	if ev.ThreatLevel.Known() {
		threat = string(ev.ThreatLevel)
	}
	payload := map[string]any{
		"type":      "alert",
		"timestamp": now.UTC().Format(time.RFC3339),
		"rule": map[string]any{
			"name":     cand.Rule.Name,
			"priority": string(cand.Rule.Priority),
		},
		"event": map[string]any{
			"id":                ev.ID,
			"title":             ev.Title,
			"summary":           ev.Summary,
			"category":          ev.Category,
			"region":            ev.Region,
			"threat_level":      threat,
			"credibility_score": ev.CredibilityScore,
			"link":              ev.Link,
			"published_at":      ev.PublishedAt.UTC().Format(time.RFC3339),
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal webhook payload: %w", err)
	}
	return body, nil
}

// SignBody computes the webhook signature header value for a body and
// per-user secret: "sha256=" + hex(HMAC-SHA256(body, secret)).
func SignBody(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
