package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Vonage sends SMS and WhatsApp messages through the Vonage Messages API.
// It is the fallback gateway after Twilio.
type Vonage struct {
	apiKey     string
	apiSecret  string
	smsFrom    string
	waFrom     string
	baseURL    string
	httpClient *http.Client
}

// NewVonage creates a Vonage gateway from VONAGE_API_KEY,
// VONAGE_API_SECRET, VONAGE_SMS_FROM and VONAGE_WHATSAPP_FROM environment
// variables.
func NewVonage() *Vonage {
	return &Vonage{
		apiKey:     getEnvOrDefault("VONAGE_API_KEY", ""),
		apiSecret:  getEnvOrDefault("VONAGE_API_SECRET", ""),
		smsFrom:    getEnvOrDefault("VONAGE_SMS_FROM", ""),
		waFrom:     getEnvOrDefault("VONAGE_WHATSAPP_FROM", ""),
		baseURL:    "https://api.nexmo.com",
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// Name returns the gateway name.
func (v *Vonage) Name() string {
	return "vonage"
}

// IsConfigured returns true if API credentials are present.
func (v *Vonage) IsConfigured() bool {
	return v.apiKey != "" && v.apiSecret != ""
}

// Send posts a message to the Vonage Messages endpoint.
func (v *Vonage) Send(ctx context.Context, kind Kind, phone, message string) (string, error) {
	if !v.IsConfigured() {
		return "", fmt.Errorf("vonage gateway not configured")
	}

	from := v.smsFrom
	channel := "sms"
	if kind == KindWhatsApp {
		from = v.waFrom
		channel = "whatsapp"
	}
	if from == "" {
		return "", fmt.Errorf("vonage %s sender not configured", channel)
	}

	payload := map[string]any{
		"message_type": "text",
		"channel":      channel,
		"to":           strings.TrimPrefix(phone, "+"),
		"from":         from,
		"text":         message,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal vonage payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create vonage request: %w", err)
	}
	req.SetBasicAuth(v.apiKey, v.apiSecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("vonage request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("vonage returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var result struct {
		MessageUUID string `json:"message_uuid"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", nil
	}
	return result.MessageUUID, nil
}
