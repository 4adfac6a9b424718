// Package slots enforces the shared per-player cap on active recurring
// orders plus an active loan.
package slots

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

var ErrCapacityExceeded = errors.New("capacity exceeded")

type Config struct {
	MaxPerPlayer int `env:"BANK_MAX_ORDERS_PER_PLAYER" envDefault:"10"`
}

// Counter tracks occupied slots per player. Reserve and Release are the
// only writers, so the cap holds under concurrent order creation and loan
// issuance.
type Counter struct {
	max int

	mu   sync.Mutex
	used map[uuid.UUID]int
}

func New(cfg Config) *Counter {
	if cfg.MaxPerPlayer <= 0 {
		cfg.MaxPerPlayer = 10
	}

	return &Counter{
		max:  cfg.MaxPerPlayer,
		used: make(map[uuid.UUID]int),
	}
}

// Reserve takes one slot or fails with ErrCapacityExceeded.
func (c *Counter) Reserve(owner uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.used[owner] >= c.max {
		return fmt.Errorf("%w: %d of %d slots in use", ErrCapacityExceeded, c.used[owner], c.max)
	}

	c.used[owner]++

	return nil
}

// Release frees one slot. Releasing with nothing held is a no-op.
func (c *Counter) Release(owner uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := c.used[owner]
	switch {
	case n <= 1:
		delete(c.used, owner)
	default:
		c.used[owner] = n - 1
	}
}

// Occupy marks one slot as held regardless of the cap. Used when restoring
// persisted orders and loans.
func (c *Counter) Occupy(owner uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.used[owner]++
}

func (c *Counter) Used(owner uuid.UUID) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.used[owner]
}

func (c *Counter) Max() int {
	return c.max
}
