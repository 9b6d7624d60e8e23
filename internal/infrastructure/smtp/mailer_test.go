package smtp

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSignInCode(t *testing.T) {
	msg := SignInCode("a@b.com", "123456", 3*time.Minute)
	assert.Equal(t, "a@b.com", msg.To)
	assert.Contains(t, msg.Body, "123456")
	assert.Contains(t, msg.Body, "3 minutes")
}

func TestRender_Headers(t *testing.T) {
	raw := string(render("noreply@x.com", Message{To: "a@b.com", Subject: "Hi", Body: "body"}))
	head, body, ok := strings.Cut(raw, "\r\n\r\n")
	assert.True(t, ok)
	assert.Contains(t, head, "From: noreply@x.com")
	assert.Contains(t, head, "Subject: Hi")
	assert.Equal(t, "body", body)
}

func TestSend_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m := &mailer{host: "127.0.0.1", port: "1"}
	assert.ErrorIs(t, m.Send(ctx, Message{To: "a@b.com"}), context.Canceled)
}
