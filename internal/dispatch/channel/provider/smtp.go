package provider

import (
	"bytes"
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"
)

// SMTPProvider implements email sending via plain SMTP. It is the primary
// provider; SES and Resend act as fallbacks.
type SMTPProvider struct {
	host     string
	port     string
	user     string
	password string
}

// NewSMTPProvider creates an SMTP provider from SMTP_HOST, SMTP_PORT,
// SMTP_USER and SMTP_PASSWORD environment variables. Returns an
// unconfigured provider when no host is set.
func NewSMTPProvider() *SMTPProvider {
	return &SMTPProvider{
		host:     GetEnvOrDefault("SMTP_HOST", ""),
		port:     GetEnvOrDefault("SMTP_PORT", "587"),
		user:     GetEnvOrDefault("SMTP_USER", ""),
		password: GetEnvOrDefault("SMTP_PASSWORD", ""),
	}
}

// Name returns the provider name.
func (p *SMTPProvider) Name() string {
	return "smtp"
}

// IsConfigured returns true if an SMTP host is set.
func (p *SMTPProvider) IsConfigured() bool {
	return p.host != ""
}

// Send sends an email via SMTP. SMTP has no provider message id, so the
// returned id is empty on success.
func (p *SMTPProvider) Send(_ context.Context, req *EmailRequest) (string, error) {
	if !p.IsConfigured() {
		return "", fmt.Errorf("SMTP provider not configured")
	}
	if len(req.To) == 0 {
		return "", fmt.Errorf("no recipients specified")
	}

	msg := buildMessage(req)
	addr := fmt.Sprintf("%s:%s", p.host, p.port)

	var auth smtp.Auth
	if p.user != "" && p.password != "" {
		auth = smtp.PlainAuth("", p.user, p.password, p.host)
	}

	if err := smtp.SendMail(addr, auth, req.From, req.To, msg); err != nil {
		return "", fmt.Errorf("failed to send email via SMTP: %w", err)
	}
	return "", nil
}

// buildMessage builds a complete email message in RFC 822 format.
func buildMessage(req *EmailRequest) []byte {
	var msg bytes.Buffer
	msg.WriteString(fmt.Sprintf("From: %s\r\n", req.From))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", strings.Join(req.To, ", ")))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", req.Subject))
	msg.WriteString(fmt.Sprintf("Date: %s\r\n", time.Now().Format(time.RFC1123Z)))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	msg.WriteString("Content-Transfer-Encoding: 8bit\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(req.Body)
	return msg.Bytes()
}
