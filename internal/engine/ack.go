package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/osintops/sentinel/internal/domain"
)

// AckLedger is the subset of the store the acknowledgment service writes.
type AckLedger interface {
	Acknowledge(ctx context.Context, ack *domain.Acknowledgment) (int64, error)
}

// AckService records user acknowledgments against the ledger.
type AckService struct {
	ledger AckLedger
	now    func() time.Time
}

// NewAckService creates an acknowledgment service.
func NewAckService(ledger AckLedger) *AckService {
	return &AckService{
		ledger: ledger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Acknowledge appends an acknowledgment and marks the user's matching
// notifications. Returns the number of notifications updated.
func (s *AckService) Acknowledge(ctx context.Context, userID, eventID, ruleID, notes string) (int64, error) {
	if strings.TrimSpace(userID) == "" {
		return 0, fmt.Errorf("user id cannot be empty")
	}
	if strings.TrimSpace(eventID) == "" {
		return 0, fmt.Errorf("event id cannot be empty")
	}

	ack := &domain.Acknowledgment{
		UserID:         userID,
		EventID:        eventID,
		RuleID:         ruleID,
		AcknowledgedAt: s.now(),
		Notes:          notes,
	}
	updated, err := s.ledger.Acknowledge(ctx, ack)
	if err != nil {
		return 0, fmt.Errorf("failed to acknowledge alert: %w", err)
	}
	return updated, nil
}
