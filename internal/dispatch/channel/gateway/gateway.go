// Package gateway defines the SMS/WhatsApp gateway provider interface and
// the fixed-order fallback chain. If the primary gateway is unconfigured
// or fails, the next one is tried; first success wins.
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"os"
)

// Kind distinguishes plain SMS from WhatsApp delivery at the gateway.
type Kind string

const (
	KindSMS      Kind = "sms"
	KindWhatsApp Kind = "whatsapp"
)

// Provider is a text-message gateway backend.
type Provider interface {
	// Name returns the gateway name (e.g. "twilio", "vonage").
	Name() string

	// Send delivers a text message to the phone number and returns the
	// gateway message id.
	Send(ctx context.Context, kind Kind, phone, message string) (string, error)

	// IsConfigured returns true if the gateway credentials are present.
	IsConfigured() bool
}

// Chain tries providers in fixed order.
type Chain struct {
	providers []Provider
}

// NewChain creates a fallback chain over the given providers in order.
func NewChain(providers ...Provider) *Chain {
	for _, p := range providers {
		slog.Info("Registered message gateway", "name", p.Name(), "configured", p.IsConfigured())
	}
	return &Chain{providers: providers}
}

// Send walks the chain: unconfigured gateways are skipped, the first
// success wins, and the first failure is returned when all gateways fail.
// A chain with no configured gateway reports a configuration error that is
// recorded as a failed delivery attempt.
func (c *Chain) Send(ctx context.Context, kind Kind, phone, message string) (string, error) {
	var firstErr error
	attempted := 0
	for _, p := range c.providers {
		if !p.IsConfigured() {
			continue
		}
		attempted++

		messageID, err := p.Send(ctx, kind, phone, message)
		if err == nil {
			return messageID, nil
		}
		if firstErr == nil {
			firstErr = err
		}
		slog.Warn("Message gateway failed, trying next",
			"gateway", p.Name(),
			"kind", kind,
			"error", err,
		)
	}

	if attempted == 0 {
		return "", fmt.Errorf("no configured %s gateway available", kind)
	}
	return "", firstErr
}

// HasConfigured reports whether at least one gateway is usable.
func (c *Chain) HasConfigured() bool {
	for _, p := range c.providers {
		if p.IsConfigured() {
			return true
		}
	}
	return false
}

// getEnvOrDefault returns env var value or default.
func getEnvOrDefault(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultValue
}
