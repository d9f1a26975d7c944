package clock

import (
	"fmt"
	"time"

	"github.com/MRamiBalles/SalaTrece/server/internal/domain/chance"
)

// Phase is the challenge-level lifecycle.
type Phase int

const (
	PhaseIntro Phase = iota
	PhaseRunning
)

func (p Phase) String() string {
	if p == PhaseRunning {
		return "running"
	}
	return "intro"
}

// MarshalText encodes the phase by name.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Config shapes a timer challenge. Clock i counts down from
// Base + Step*i + jitter, jitter drawn from [0, MaxJitter).
type Config struct {
	Count         int
	Base          time.Duration
	Step          time.Duration
	MaxJitter     time.Duration
	Target        int
	FailThreshold int
	NearDeadline  int
}

// DefaultConfig is the full-size challenge: thirteen clocks, three lives.
func DefaultConfig() Config {
	return Config{
		Count:         13,
		Base:          25 * time.Second,
		Step:          5 * time.Second,
		MaxJitter:     500 * time.Millisecond,
		Target:        DefaultTarget,
		FailThreshold: 3,
		NearDeadline:  DefaultNearDeadline,
	}
}

// ClockTick ties a Tick to the clock that produced it.
type ClockTick struct {
	Index int `json:"index"`
	Tick
}

// View is a render-agnostic copy of one clock.
type View struct {
	Index        int   `json:"index"`
	Target       int   `json:"target"`
	Remaining    int   `json:"remaining"`
	State        State `json:"state"`
	NearDeadline bool  `json:"near_deadline"`
}

// Challenge owns N clocks and resolves them into a pass/fail quorum.
// Solved and failed are mutually exclusive and latch until Reset.
type Challenge struct {
	cfg    Config
	src    chance.Source
	phase  Phase
	clocks []*Clock
	solved bool
	failed bool
}

// NewChallenge builds a challenge with cfg.Count clocks.
func NewChallenge(cfg Config, src chance.Source) *Challenge {
	c := &Challenge{cfg: cfg, src: src}
	c.Reset(cfg.Count)
	return c
}

// Reset discards the clocks and creates count fresh ones in intro.
func (c *Challenge) Reset(count int) {
	c.phase = PhaseIntro
	c.solved = false
	c.failed = false
	c.clocks = make([]*Clock, 0, count)
	for i := 0; i < count; i++ {
		jitter := time.Duration(c.src.Float64() * float64(c.cfg.MaxJitter))
		d := c.cfg.Base + c.cfg.Step*time.Duration(i) + jitter
		clk := New(d, c.cfg.Target)
		clk.SetNearDeadline(c.cfg.NearDeadline)
		c.clocks = append(c.clocks, clk)
	}
}

// Start moves the challenge to running and starts every clock at once.
func (c *Challenge) Start(now time.Time) bool {
	if c.phase != PhaseIntro {
		return false
	}
	c.phase = PhaseRunning
	for _, clk := range c.clocks {
		clk.Start(now)
	}
	return true
}

// Update advances every clock to now and returns the ticks that changed.
func (c *Challenge) Update(now time.Time) []ClockTick {
	if c.phase != PhaseRunning {
		return nil
	}
	var ticks []ClockTick
	for i, clk := range c.clocks {
		if t, ok := clk.Update(now); ok {
			ticks = append(ticks, ClockTick{Index: i, Tick: t})
		}
	}
	return ticks
}

// Pick stops clock i. It is a no-op (ok=false) unless the challenge is
// running and the clock itself is still running.
func (c *Challenge) Pick(i int) (State, bool, error) {
	if i < 0 || i >= len(c.clocks) {
		return StateIntro, false, fmt.Errorf("pick clock %d of %d: %w", i, len(c.clocks), ErrIndexOutOfRange)
	}
	clk := c.clocks[i]
	if c.phase != PhaseRunning {
		return clk.State(), false, nil
	}
	st, ok := clk.Stop()
	return st, ok, nil
}

// IsSolved is true once no clock is running and fewer than FailThreshold failed.
func (c *Challenge) IsSolved() bool {
	if c.phase != PhaseRunning || c.failed {
		return false
	}
	if c.solved {
		return true
	}
	running, failed := c.count()
	c.solved = running == 0 && failed < c.cfg.FailThreshold
	return c.solved
}

// IsFailed is true once FailThreshold clocks have failed. The transition
// stops every clock that is still running.
func (c *Challenge) IsFailed() bool {
	if c.phase != PhaseRunning || c.solved {
		return false
	}
	if c.failed {
		return true
	}
	_, failed := c.count()
	if failed >= c.cfg.FailThreshold {
		c.failed = true
		c.Stop()
	}
	return c.failed
}

// Stop forces every running clock to resolve.
func (c *Challenge) Stop() {
	for _, clk := range c.clocks {
		clk.Stop()
	}
}

// FailedCount is the number of clocks currently in the failed state.
func (c *Challenge) FailedCount() int {
	_, failed := c.count()
	return failed
}

// Lives is how many more misses the player can afford before failing.
func (c *Challenge) Lives() int {
	lives := c.cfg.FailThreshold - c.FailedCount()
	if lives < 0 {
		return 0
	}
	return lives
}

func (c *Challenge) Phase() Phase   { return c.phase }
func (c *Challenge) Len() int       { return len(c.clocks) }
func (c *Challenge) Config() Config { return c.cfg }

// Clock exposes clock i for inspection.
func (c *Challenge) Clock(i int) (*Clock, error) {
	if i < 0 || i >= len(c.clocks) {
		return nil, fmt.Errorf("clock %d of %d: %w", i, len(c.clocks), ErrIndexOutOfRange)
	}
	return c.clocks[i], nil
}

// Views copies the clock states for rendering.
func (c *Challenge) Views() []View {
	out := make([]View, len(c.clocks))
	for i, clk := range c.clocks {
		out[i] = View{
			Index:        i,
			Target:       clk.Target(),
			Remaining:    clk.Remaining(),
			State:        clk.State(),
			NearDeadline: clk.NearDeadline(),
		}
	}
	return out
}

func (c *Challenge) count() (running, failed int) {
	for _, clk := range c.clocks {
		switch clk.State() {
		case StateRunning:
			running++
		case StateFailed:
			failed++
		}
	}
	return running, failed
}
