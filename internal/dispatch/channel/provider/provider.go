// Package provider defines the email provider interface and registry.
// Multiple backends (SMTP, SES, Resend) are supported with fixed-order
// fallback: the first configured provider that succeeds wins.
package provider

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
)

// EmailRequest represents an email to be sent.
type EmailRequest struct {
	From    string
	To      []string
	Subject string
	Body    string
}

// Provider is the interface that all email providers must implement.
type Provider interface {
	// Name returns the provider name (e.g. "smtp", "ses", "resend").
	Name() string

	// Send sends an email using this provider. On success it returns the
	// provider message id when one is available.
	Send(ctx context.Context, req *EmailRequest) (string, error)

	// IsConfigured returns true if the provider is properly configured.
	IsConfigured() bool
}

// Registry manages email providers with fallback support.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
	order     []string // fixed fallback order
}

// NewRegistry creates a new email provider registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register adds a provider at the end of the fallback order.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.providers[p.Name()]; !exists {
		r.order = append(r.order, p.Name())
	}
	r.providers[p.Name()] = p
	slog.Info("Registered email provider", "name", p.Name(), "configured", p.IsConfigured())
}

// Send attempts delivery through the providers in registration order,
// skipping unconfigured ones; the first success wins. The first error is
// returned when every provider fails.
func (r *Registry) Send(ctx context.Context, req *EmailRequest) (string, error) {
	r.mu.RLock()
	order := append([]string(nil), r.order...)
	r.mu.RUnlock()

	var firstErr error
	attempted := 0
	for _, name := range order {
		r.mu.RLock()
		p := r.providers[name]
		r.mu.RUnlock()
		if p == nil || !p.IsConfigured() {
			continue
		}
		attempted++

		messageID, err := p.Send(ctx, req)
		if err == nil {
			return messageID, nil
		}
		if firstErr == nil {
			firstErr = err
		}
		slog.Warn("Email provider failed, trying next",
			"provider", name,
			"error", err,
		)
	}

	if attempted == 0 {
		return "", fmt.Errorf("no configured email provider available")
	}
	return "", firstErr
}

// HasConfigured reports whether at least one provider is usable.
func (r *Registry) HasConfigured() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.providers {
		if p.IsConfigured() {
			return true
		}
	}
	return false
}

// GetEnvOrDefault returns env var value or default.
func GetEnvOrDefault(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultValue
}
