// Package verify scores raw event payloads into a verification status,
// credibility score and threat level. The heuristic is pure and
// deterministic: identical payloads always score identically.
package verify

import (
	"net/url"
	"strings"

	"github.com/osintops/sentinel/internal/domain"
)

// Score is the outcome of scoring a payload.
type Score struct {
	Status      domain.VerificationStatus
	Credibility float64
	ThreatLevel domain.ThreatLevel
}

const baseScore = 0.25

// trustedDomains is the allowlist of source domains that earn the trusted
// bonus. Matching includes subdomains.
var trustedDomains = []string{
	"reuters.com",
	"apnews.com",
	"bbc.com",
	"bbc.co.uk",
	"afp.com",
	"aljazeera.com",
	"gdacs.org",
	"reliefweb.int",
	"who.int",
	"usgs.gov",
}

var highRiskCategories = map[string]bool{
	"attack":     true,
	"terrorism":  true,
	"conflict":   true,
	"kidnapping": true,
}

var moderateRiskCategories = map[string]bool{
	"protest": true,
	"riot":    true,
	"disease": true,
	"weather": true,
}

var credibilityKeywords = []string{"confirmed", "official", "gov"}

// Payload is the subset of an inbound message the heuristic looks at.
type Payload struct {
	SourceURL string
	Category  string
	Title     string
	Summary   string
}

// Run scores a payload. Starting from a base score it adds a trusted-source
// bonus, a category risk bonus and a keyword bonus, clamps to [0,1] and
// derives status and threat level from the result.
func Run(p Payload) Score {
	score := baseScore

	if isTrustedSource(p.SourceURL) {
		score += 0.35
	}

	category := strings.ToLower(strings.TrimSpace(p.Category))
	switch {
	case highRiskCategories[category]:
		score += 0.2
	case moderateRiskCategories[category]:
		score += 0.1
	}

	text := strings.ToLower(p.Title + " " + p.Summary)
	for _, kw := range credibilityKeywords {
		if strings.Contains(text, kw) {
			score += 0.1
			break
		}
	}

	score = domain.Clamp01(score)

	return Score{
		Status:      statusFor(score),
		Credibility: score,
		ThreatLevel: threatFor(category, score),
	}
}

func statusFor(score float64) domain.VerificationStatus {
	switch {
	case score >= 0.7:
		return domain.StatusVerified
	case score >= 0.45:
		return domain.StatusProbable
	default:
		return domain.StatusNeedsReview
	}
}

func threatFor(category string, score float64) domain.ThreatLevel {
	switch {
	case highRiskCategories[category]:
		return domain.ThreatHigh
	case moderateRiskCategories[category]:
		return domain.ThreatMedium
	case score >= 0.5:
		return domain.ThreatLow
	default:
		return ""
	}
}

// isTrustedSource reports whether the URL's host is in the trusted-source
// allowlist. Subdomains of an allowlisted domain count.
func isTrustedSource(rawURL string) bool {
	if rawURL == "" {
		return false
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return false
	}
	for _, d := range trustedDomains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}
