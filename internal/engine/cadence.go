package engine

import "time"

// Cadence turns variable frame deltas into fixed-interval steps. It fires at
// most once per Advance and discards the remainder when it does, so a long
// stall yields a single step rather than a burst.
type Cadence struct {
	interval time.Duration
	acc      time.Duration
}

func NewCadence(interval time.Duration) *Cadence {
	return &Cadence{interval: interval}
}

// Advance accumulates dt and reports whether a step is due.
func (c *Cadence) Advance(dt time.Duration) bool {
	c.acc += dt
	if c.acc >= c.interval {
		c.acc = 0
		return true
	}
	return false
}

func (c *Cadence) Reset() { c.acc = 0 }

func (c *Cadence) Interval() time.Duration { return c.interval }
