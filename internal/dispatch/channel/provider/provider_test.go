package provider

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type fakeProvider struct {
	name       string
	configured bool
	err        error
	messageID  string
	calls      int
}

func (f *fakeProvider) Name() string       { return f.name }
func (f *fakeProvider) IsConfigured() bool { return f.configured }

func (f *fakeProvider) Send(_ context.Context, _ *EmailRequest) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.messageID, nil
}

func testRequest() *EmailRequest {
	return &EmailRequest{
		From:    "alerts@sentinel.local",
		To:      []string{"user@example.com"},
		Subject: "Alert: HIGH - something",
		Body:    "body",
	}
}

func TestRegistry_Send(t *testing.T) {
	ctx := context.Background()

	t.Run("providers tried in registration order", func(t *testing.T) {
		registry := NewRegistry()
		smtp := &fakeProvider{name: "smtp", configured: true, err: errors.New("connection refused")}
		ses := &fakeProvider{name: "ses", configured: true, messageID: "ses-1"}
		resend := &fakeProvider{name: "resend", configured: true, messageID: "resend-1"}
		registry.Register(smtp)
		registry.Register(ses)
		registry.Register(resend)

		id, err := registry.Send(ctx, testRequest())
		if err != nil {
			t.Fatalf("Send() error = %v", err)
		}
		if id != "ses-1" {
			t.Errorf("Send() message id = %q, want ses-1", id)
		}
		if resend.calls != 0 {
			t.Errorf("resend called %d times, want 0", resend.calls)
		}
	})

	t.Run("unconfigured providers skipped", func(t *testing.T) {
		registry := NewRegistry()
		registry.Register(&fakeProvider{name: "smtp"})
		configured := &fakeProvider{name: "ses", configured: true, messageID: "ses-1"}
		registry.Register(configured)

		id, err := registry.Send(ctx, testRequest())
		if err != nil {
			t.Fatalf("Send() error = %v", err)
		}
		if id != "ses-1" {
			t.Errorf("Send() message id = %q, want ses-1", id)
		}
	})

	t.Run("all failures surface first error", func(t *testing.T) {
		registry := NewRegistry()
		first := errors.New("smtp down")
		registry.Register(&fakeProvider{name: "smtp", configured: true, err: first})
		registry.Register(&fakeProvider{name: "ses", configured: true, err: errors.New("ses down")})

		_, err := registry.Send(ctx, testRequest())
		if !errors.Is(err, first) {
			t.Errorf("Send() error = %v, want first error", err)
		}
	})

	t.Run("no configured provider", func(t *testing.T) {
		registry := NewRegistry()
		registry.Register(&fakeProvider{name: "smtp"})

		_, err := registry.Send(ctx, testRequest())
		if err == nil || !strings.Contains(err.Error(), "no configured email provider") {
			t.Errorf("Send() error = %v, want no-configured-provider message", err)
		}
	})
}

func TestRegistry_HasConfigured(t *testing.T) {
	registry := NewRegistry()
	if registry.HasConfigured() {
		t.Error("HasConfigured() on empty registry = true, want false")
	}
	registry.Register(&fakeProvider{name: "smtp"})
	if registry.HasConfigured() {
		t.Error("HasConfigured() = true, want false")
	}
	registry.Register(&fakeProvider{name: "ses", configured: true})
	if !registry.HasConfigured() {
		t.Error("HasConfigured() = false, want true")
	}
}
