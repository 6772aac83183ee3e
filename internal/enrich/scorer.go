// Package enrich provides the external ML scoring signal consumed by the
// verification blend policy. The scorer itself is an external collaborator;
// this package defines the interface and one concrete adapter.
package enrich

import (
	"context"

	"github.com/osintops/sentinel/internal/verify"
)

// Scorer produces a threat/disinformation signal for a raw payload.
// Implementations must treat the call as best-effort: a failing scorer
// degrades the pipeline to the pure heuristic, never blocks it.
type Scorer interface {
	Score(ctx context.Context, p verify.Payload) (*verify.Signal, error)
}
