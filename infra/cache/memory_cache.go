package cache

import (
	"context"
	"sync"
	"time"

	"github.com/ineza/schoolpay/pkg/domain/student"
)

type memoryEntry struct {
	status    student.CardStatus
	expiresAt time.Time
}

// MemoryCardStatusCache implements CardStatusCache with in-memory storage.
// Suitable for tests and single-node deployments.
type MemoryCardStatusCache struct {
	entries map[string]memoryEntry
	mu      sync.Mutex
}

// NewMemoryCardStatusCache creates a new in-memory card status cache.
// Expired entries are dropped on read rather than by a background sweep.
func NewMemoryCardStatusCache() *MemoryCardStatusCache {
	return &MemoryCardStatusCache{
		entries: make(map[string]memoryEntry),
	}
}

// Get retrieves a cached status. Expired entries count as misses and are
// removed.
func (c *MemoryCardStatusCache) Get(
	_ context.Context,
	cardUID string,
) (student.CardStatus, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[cardUID]
	if !ok {
		return 0, false, nil
	}
	if time.Now().After(entry.expiresAt) {
		delete(c.entries, cardUID)
		return 0, false, nil
	}
	return entry.status, true, nil
}

// Set stores a status with the given TTL.
func (c *MemoryCardStatusCache) Set(
	_ context.Context,
	cardUID string,
	status student.CardStatus,
	ttl time.Duration,
) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[cardUID] = memoryEntry{
		status:    status,
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

// Invalidate removes a card from the cache. Card lifecycle transitions call
// this so a freshly reported card is rejected on the next tap.
func (c *MemoryCardStatusCache) Invalidate(_ context.Context, cardUID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, cardUID)
	return nil
}
