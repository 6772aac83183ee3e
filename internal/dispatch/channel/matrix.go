package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/osintops/sentinel/internal/domain"
)

// MatrixSender delivers alerts as room messages via the Matrix
// client-server API.
type MatrixSender struct {
	homeserver  string
	accessToken string
	httpClient  *http.Client
}

// NewMatrixSender creates a Matrix sink from MATRIX_HOMESERVER_URL and
// MATRIX_ACCESS_TOKEN environment variables.
func NewMatrixSender() *MatrixSender {
	return &MatrixSender{
		homeserver:  os.Getenv("MATRIX_HOMESERVER_URL"),
		accessToken: os.Getenv("MATRIX_ACCESS_TOKEN"),
		httpClient:  &http.Client{Timeout: 15 * time.Second},
	}
}

// Channel returns the channel this sender handles.
func (s *MatrixSender) Channel() domain.Channel {
	return domain.ChannelMatrix
}

// Recipient returns the user's Matrix room id. Users without one are
// skipped.
func (s *MatrixSender) Recipient(p domain.Preferences) (string, bool) {
	return p.MatrixRoomID, p.MatrixRoomID != ""
}

// Send PUTs an m.room.message event into the user's room. The transaction
// id is fresh per attempt so Matrix-side idempotency never swallows a
// retried delivery.
func (s *MatrixSender) Send(ctx context.Context, recipient string, cand domain.AlertCandidate) Result {
	if s.homeserver == "" || s.accessToken == "" {
		return fail(domain.ChannelMatrix, recipient, fmt.Errorf("matrix sender not configured"))
	}

	payload := map[string]string{
		"msgtype": "m.text",
		"body":    ShortMessage(cand, WhatsAppLimit),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fail(domain.ChannelMatrix, recipient, fmt.Errorf("failed to marshal matrix payload: %w", err))
	}

	endpoint := fmt.Sprintf("%s/_matrix/client/v3/rooms/%s/send/m.room.message/%s",
		s.homeserver, url.PathEscape(recipient), uuid.NewString())
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(body))
	if err != nil {
		return fail(domain.ChannelMatrix, recipient, fmt.Errorf("failed to create matrix request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+s.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fail(domain.ChannelMatrix, recipient, fmt.Errorf("matrix request failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fail(domain.ChannelMatrix, recipient, fmt.Errorf("matrix returned status %d", resp.StatusCode))
	}

	var result struct {
		EventID string `json:"event_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		slog.Warn("Failed to decode matrix response", "room", recipient, "error", err)
	}

	slog.Info("Sent matrix notification",
		"room", recipient,
		"event_id", cand.Event.ID,
		"matrix_event_id", result.EventID,
	)
	return ok(domain.ChannelMatrix, recipient, result.EventID)
}
