// Package mail sends transactional email. The only message today is the
// password reset link.
package mail

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/whitematrix/eballot/pkg/config"
	"github.com/whitematrix/eballot/pkg/observability"
)

// Mailer delivers transactional email
type Mailer interface {
	// SendPasswordReset delivers a reset link to the recipient
	SendPasswordReset(ctx context.Context, to, name, resetURL string) error
}

// SMTPMailer sends mail over authenticated SMTP with STARTTLS
type SMTPMailer struct {
	cfg    config.MailConfig
	logger *observability.Logger
}

// NewSMTPMailer creates an SMTP-backed mailer
func NewSMTPMailer(cfg config.MailConfig, logger *observability.Logger) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, logger: logger}
}

// SendPasswordReset implements Mailer. With no SMTP credentials configured
// (local development) the reset URL is logged instead of mailed, so the flow
// stays exercisable end to end.
func (m *SMTPMailer) SendPasswordReset(ctx context.Context, to, name, resetURL string) error {
	if !m.cfg.Configured() {
		m.logger.WithFields(map[string]interface{}{
			"to":        to,
			"reset_url": resetURL,
		}).Warn("mail transport not configured, logging reset link instead")
		return nil
	}

	msg := buildResetMessage(m.cfg.From, to, name, resetURL)

	timeout := m.cfg.SendTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// net/smtp has no context support; run the send in a goroutine and race
	// it against the deadline.
	done := make(chan error, 1)
	go func() {
		done <- m.send(to, msg)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to send reset email: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("reset email send timed out: %w", ctx.Err())
	}
}

// send performs the blocking SMTP transaction
func (m *SMTPMailer) send(to string, msg []byte) error {
	addr := net.JoinHostPort(m.cfg.Host, fmt.Sprintf("%d", m.cfg.Port))
	auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	return smtp.SendMail(addr, auth, m.cfg.From, []string{to}, msg)
}

// buildResetMessage renders the reset email as a minimal HTML message
func buildResetMessage(from, to, name, resetURL string) []byte {
	greeting := "Hello"
	if name != "" {
		greeting = "Hello " + name
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	b.WriteString("Subject: Password Reset Request\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	fmt.Fprintf(&b, "<p>%s,</p>", greeting)
	b.WriteString("<p>We received a request to reset your password. Click the link below to choose a new one. The link expires in one hour.</p>")
	fmt.Fprintf(&b, `<p><a href="%s">Reset your password</a></p>`, resetURL)
	b.WriteString("<p>If you did not request this, you can safely ignore this email.</p>")
	return []byte(b.String())
}
