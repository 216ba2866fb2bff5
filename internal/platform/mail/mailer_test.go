package mail

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompose(t *testing.T) {
	raw := string(compose("noreply@example.com", OTPMessage("dev@example.com", "123456", 10)))
	assert.Contains(t, raw, "To: dev@example.com\r\n")
	assert.Contains(t, raw, "Subject: Your verification code\r\n")
	assert.Contains(t, raw, "Your verification code is 123456.")
	assert.Contains(t, raw, "expires in 10 minutes")
}

func TestSMTPMailerHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewSMTPMailer("localhost", 2525, "", "", "noreply@example.com").Send(ctx, Message{To: "a@b.co"})
	assert.ErrorIs(t, err, context.Canceled)
}
