package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Twilio sends SMS and WhatsApp messages through the Twilio Messages API.
type Twilio struct {
	accountSID string
	authToken  string
	smsFrom    string
	waFrom     string
	baseURL    string
	httpClient *http.Client
}

// NewTwilio creates a Twilio gateway from TWILIO_ACCOUNT_SID,
// TWILIO_AUTH_TOKEN, TWILIO_SMS_FROM and TWILIO_WHATSAPP_FROM environment
// variables.
func NewTwilio() *Twilio {
	return &Twilio{
		accountSID: getEnvOrDefault("TWILIO_ACCOUNT_SID", ""),
		authToken:  getEnvOrDefault("TWILIO_AUTH_TOKEN", ""),
		smsFrom:    getEnvOrDefault("TWILIO_SMS_FROM", ""),
		waFrom:     getEnvOrDefault("TWILIO_WHATSAPP_FROM", ""),
		baseURL:    "https://api.twilio.com",
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// Name returns the gateway name.
func (t *Twilio) Name() string {
	return "twilio"
}

// IsConfigured returns true if account credentials are present.
func (t *Twilio) IsConfigured() bool {
	return t.accountSID != "" && t.authToken != ""
}

// Send posts a message to the Twilio Messages endpoint. WhatsApp delivery
// uses the whatsapp: address scheme on both ends.
func (t *Twilio) Send(ctx context.Context, kind Kind, phone, message string) (string, error) {
	if !t.IsConfigured() {
		return "", fmt.Errorf("twilio gateway not configured")
	}

	from := t.smsFrom
	to := phone
	if kind == KindWhatsApp {
		if t.waFrom == "" {
			return "", fmt.Errorf("twilio whatsapp sender not configured")
		}
		from = "whatsapp:" + t.waFrom
		to = "whatsapp:" + phone
	}
	if from == "" {
		return "", fmt.Errorf("twilio sender number not configured")
	}

	form := url.Values{}
	form.Set("To", to)
	form.Set("From", from)
	form.Set("Body", message)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", t.baseURL, t.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create twilio request: %w", err)
	}
	req.SetBasicAuth(t.accountSID, t.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("twilio request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("twilio returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var result struct {
		SID string `json:"sid"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		// Delivered but the response was unparseable; treat as success
		// without a message id.
		return "", nil
	}
	return result.SID, nil
}
