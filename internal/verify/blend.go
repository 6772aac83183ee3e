package verify

import "github.com/osintops/sentinel/internal/domain"

// Signal is the output of an external ML scorer: a credibility estimate,
// a disinformation risk and an optional threat-category label. The models
// producing it live outside this pipeline; only the blending policy is
// implemented here.
type Signal struct {
	Credibility    float64
	DisinfoRisk    float64
	ThreatCategory domain.ThreatLevel
}

// maxDisinfoPenalty is the largest credibility reduction a fully
// disinformation-flagged signal can apply.
const maxDisinfoPenalty = 0.2

// Blend merges the heuristic score with an external signal. The blended
// credibility is the average of both estimates minus a penalty scaled by
// the disinformation risk, clamped to [0,1]. Status is re-derived from the
// blended score, and the threat level is upgraded to the signal's label
// when it is strictly higher. A nil signal leaves the heuristic untouched.
func Blend(base Score, sig *Signal) Score {
	if sig == nil {
		return base
	}

	cred := (base.Credibility + domain.Clamp01(sig.Credibility)) / 2
	cred -= maxDisinfoPenalty * domain.Clamp01(sig.DisinfoRisk)
	cred = domain.Clamp01(cred)

	threat := base.ThreatLevel
	if sig.ThreatCategory.Known() && sig.ThreatCategory.Ordinal() > threat.Ordinal() {
		threat = sig.ThreatCategory
	}

	return Score{
		Status:      statusFor(cred),
		Credibility: cred,
		ThreatLevel: threat,
	}
}
