package sms

import (
	"context"
	"sync"

	"github.com/ineza/schoolpay/pkg/notification"
)

// SentMessage records one message handed to the mock gateway.
type SentMessage struct {
	Phone   string
	Message string
}

// MockGateway implements SMSGateway for tests and local development. It
// records every message and can be told to fail.
type MockGateway struct {
	mu       sync.Mutex
	sent     []SentMessage
	FailWith string
}

// NewMockGateway creates a MockGateway that accepts every message.
func NewMockGateway() *MockGateway {
	return &MockGateway{}
}

// Send records the message. When FailWith is set the send fails with that
// reason instead.
func (g *MockGateway) Send(_ context.Context, phone, message string) notification.Result {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.FailWith != "" {
		return notification.Result{Error: g.FailWith}
	}
	g.sent = append(g.sent, SentMessage{Phone: phone, Message: message})
	return notification.Result{Success: true}
}

// Sent returns a copy of every recorded message.
func (g *MockGateway) Sent() []SentMessage {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]SentMessage, len(g.sent))
	copy(out, g.sent)
	return out
}
