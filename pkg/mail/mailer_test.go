package mail

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/whitematrix/eballot/pkg/config"
	"github.com/whitematrix/eballot/pkg/observability"
)

func testLogger() *observability.Logger {
	return observability.NewLogger(observability.ErrorLevel, io.Discard)
}

// Without SMTP credentials the mailer logs the link and reports success, so
// the reset flow works in development without a mail server.
func TestSendPasswordResetUnconfigured(t *testing.T) {
	m := NewSMTPMailer(config.MailConfig{}, testLogger())

	err := m.SendPasswordReset(context.Background(),
		"alice@example.com", "Alice", "http://localhost:3000/reset-password?token=x")
	assert.NoError(t, err)
}

func TestBuildResetMessage(t *testing.T) {
	msg := string(buildResetMessage("noreply@example.com", "alice@example.com",
		"Alice", "http://localhost:3000/reset-password?token=abc"))

	assert.True(t, strings.HasPrefix(msg, "From: noreply@example.com\r\n"))
	assert.Contains(t, msg, "To: alice@example.com")
	assert.Contains(t, msg, "Subject: Password Reset Request")
	assert.Contains(t, msg, "Content-Type: text/html")
	assert.Contains(t, msg, "Hello Alice")
	assert.Contains(t, msg, `href="http://localhost:3000/reset-password?token=abc"`)
}

func TestBuildResetMessageNoName(t *testing.T) {
	msg := string(buildResetMessage("noreply@example.com", "a@b.c", "", "http://x"))
	assert.Contains(t, msg, "<p>Hello,</p>")
}
