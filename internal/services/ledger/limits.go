package ledger

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type limitEntry struct {
	day  int64
	used decimal.Decimal
}

// LimitGuard enforces the per-player daily cap on outgoing transfers.
// Entries live inside the sender's account and are only touched while the
// account mutex is held, so check and update are one step.
type LimitGuard struct {
	daily decimal.Decimal
}

// NewLimitGuard returns a guard for the given daily cap. A non-positive cap
// disables the limit.
func NewLimitGuard(daily decimal.Decimal) *LimitGuard {
	return &LimitGuard{daily: daily}
}

func (g *LimitGuard) enabled() bool {
	return g.daily.IsPositive()
}

func (g *LimitGuard) usedOn(e *limitEntry, day int64) decimal.Decimal {
	if day > e.day {
		return decimal.Zero
	}

	return e.used
}

func (g *LimitGuard) remaining(e *limitEntry, day int64) decimal.Decimal {
	rem := g.daily.Sub(g.usedOn(e, day))
	if rem.IsNegative() {
		return decimal.Zero
	}

	return rem
}

// reserve lazily resets the entry for a new day, then records amount if it
// fits under the cap.
func (g *LimitGuard) reserve(e *limitEntry, day int64, amount decimal.Decimal) error {
	if !g.enabled() {
		return nil
	}

	if day > e.day {
		e.day = day
		e.used = decimal.Zero
	}

	if e.used.Add(amount).GreaterThan(g.daily) {
		return fmt.Errorf("%w: remaining %s", ErrLimitExceeded, g.remaining(e, day).StringFixed(2))
	}

	e.used = e.used.Add(amount)

	return nil
}

// RemainingLimit is how much owner may still transfer on day. Players
// without an account have the full limit. Reports zero when the limit is
// disabled.
func (l *Ledger) RemainingLimit(owner uuid.UUID, day int64) decimal.Decimal {
	if !l.limits.enabled() {
		return decimal.Zero
	}

	acc, ok := l.get(owner)
	if !ok {
		return l.limits.daily
	}

	acc.mu.Lock()
	defer acc.mu.Unlock()

	return l.limits.remaining(&acc.limit, day)
}
