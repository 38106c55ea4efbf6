package cache

import (
	"context"
	"time"

	"github.com/ineza/schoolpay/pkg/domain/student"
)

// CardStatusCache caches the current status of a card by its UID so the tap
// path can reject lost or deactivated cards without a registry round trip.
// A miss is signalled by found == false, never by an error.
type CardStatusCache interface {
	Get(ctx context.Context, cardUID string) (status student.CardStatus, found bool, err error)
	Set(ctx context.Context, cardUID string, status student.CardStatus, ttl time.Duration) error
	Invalidate(ctx context.Context, cardUID string) error
}
