package gameclock

import (
	"time"

	"github.com/fastprodman/playerbank/internal/config"
)

// Clock converts wall-clock time into in-game day numbers.
type Clock struct {
	epoch     time.Time
	dayLength time.Duration
	now       func() time.Time
}

func New(cfg config.GameConfig) *Clock {
	return NewWithNow(cfg, time.Now)
}

func NewWithNow(cfg config.GameConfig, now func() time.Time) *Clock {
	if cfg.DayLength <= 0 {
		cfg.DayLength = 20 * time.Minute
	}

	return &Clock{epoch: cfg.Epoch, dayLength: cfg.DayLength, now: now}
}

// Day is the number of whole game days since the epoch. Times before the
// epoch are day 0.
func (c *Clock) Day() int64 {
	elapsed := c.now().Sub(c.epoch)
	if elapsed < 0 {
		return 0
	}

	return int64(elapsed / c.dayLength)
}

// UntilNextDay is the wall time left before Day changes.
func (c *Clock) UntilNextDay() time.Duration {
	elapsed := c.now().Sub(c.epoch)
	if elapsed < 0 {
		return -elapsed
	}

	return c.dayLength - elapsed%c.dayLength
}
