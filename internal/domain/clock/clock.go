// Package clock models the stop-the-clock challenge: a set of countdown
// timers that must each be stopped exactly on their target second.
// This package is PURE and must NOT import any infrastructure packages.
package clock

import (
	"errors"
	"fmt"
	"time"
)

// ErrIndexOutOfRange is returned when a caller picks a clock that does not exist.
var ErrIndexOutOfRange = errors.New("clock: index out of range")

const (
	// DefaultTarget is the second every clock must be stopped on.
	DefaultTarget = 13
	// DefaultNearDeadline is how many seconds above the target the clock starts
	// flagging its ticks as urgent.
	DefaultNearDeadline = 6
)

// State is the lifecycle of a single clock.
type State int

const (
	StateIntro State = iota
	StateRunning
	StatePassed
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIntro:
		return "intro"
	case StateRunning:
		return "running"
	case StatePassed:
		return "passed"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Tick is emitted each time the displayed remaining seconds change.
type Tick struct {
	Remaining    int  `json:"remaining"`
	NearDeadline bool `json:"near_deadline"`
	Failed       bool `json:"failed"` // the tick dropped below the target
}

// Clock is a single countdown with a target stop value.
type Clock struct {
	duration   time.Duration
	target     int
	nearWindow int

	state     State
	remaining int
	deadline  time.Time
}

// New creates a clock in the intro state.
func New(duration time.Duration, target int) *Clock {
	c := &Clock{
		duration:   duration,
		target:     target,
		nearWindow: DefaultNearDeadline,
	}
	c.Reset()
	return c
}

// SetNearDeadline changes the urgency window (seconds above target).
func (c *Clock) SetNearDeadline(seconds int) {
	c.nearWindow = seconds
}

// Start arms the clock. Only an intro clock can start.
func (c *Clock) Start(now time.Time) bool {
	if c.state != StateIntro {
		return false
	}
	c.state = StateRunning
	c.deadline = now.Add(c.duration)
	c.remaining = ceilSeconds(c.duration)
	return true
}

// Update recomputes the remaining seconds for the frame at now. It reports a
// Tick only when the displayed value changes. Dropping below the target fails
// the clock on the spot.
func (c *Clock) Update(now time.Time) (Tick, bool) {
	if c.state != StateRunning {
		return Tick{}, false
	}
	r := ceilSeconds(c.deadline.Sub(now))
	if r >= c.remaining {
		return Tick{}, false
	}
	c.remaining = r
	tick := Tick{
		Remaining:    r,
		NearDeadline: r < c.target+c.nearWindow,
	}
	if r < c.target {
		c.state = StateFailed
		tick.Failed = true
	}
	return tick, true
}

// Stop finalizes a running clock against the value currently displayed.
// Stopping a clock that is not running is a no-op and returns ok=false.
func (c *Clock) Stop() (State, bool) {
	if c.state != StateRunning {
		return c.state, false
	}
	if c.remaining == c.target {
		c.state = StatePassed
	} else {
		c.state = StateFailed
	}
	return c.state, true
}

// Reset returns the clock to intro. It does not start it.
func (c *Clock) Reset() {
	c.state = StateIntro
	c.remaining = ceilSeconds(c.duration)
	c.deadline = time.Time{}
}

func (c *Clock) State() State            { return c.state }
func (c *Clock) Remaining() int          { return c.remaining }
func (c *Clock) Target() int             { return c.target }
func (c *Clock) Duration() time.Duration { return c.duration }

// NearDeadline reports whether the displayed value is inside the urgency window.
func (c *Clock) NearDeadline() bool {
	return c.remaining < c.target+c.nearWindow
}

func ceilSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}
