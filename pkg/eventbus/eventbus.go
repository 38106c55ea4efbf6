// Package eventbus defines the contract for publishing domain events. Tap
// flows publish after their database transaction has committed; delivery is
// best-effort and must never influence the flow's outcome.
package eventbus

import (
	"context"

	"github.com/ineza/schoolpay/pkg/domain/events"
)

// HandlerFunc handles a single event. A returned error is logged by the bus,
// never propagated to the publisher.
type HandlerFunc func(ctx context.Context, e events.Event) error

// Bus is the contract for publishing and subscribing to domain events.
type Bus interface {
	Register(eventType string, handler HandlerFunc)
	Emit(ctx context.Context, event events.Event) error
}
