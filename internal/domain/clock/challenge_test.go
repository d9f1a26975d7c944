package clock

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MRamiBalles/SalaTrece/server/internal/domain/chance"
)

func newChallenge(t *testing.T, count int) *Challenge {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Count = count
	c := NewChallenge(cfg, chance.New(13))
	require.True(t, c.Start(epoch))
	return c
}

// stopAt advances the challenge until clock i shows remaining, then picks it.
func stopAt(t *testing.T, c *Challenge, i, remaining int) State {
	t.Helper()
	clk, err := c.Clock(i)
	require.NoError(t, err)
	c.Update(at(clk, remaining))
	st, ok, err := c.Pick(i)
	require.NoError(t, err)
	require.True(t, ok)
	return st
}

func TestResetBuildsIncreasingDurationsWithJitter(t *testing.T) {
	c := NewChallenge(DefaultConfig(), chance.New(1))
	require.Equal(t, 13, c.Len())
	for i := 0; i < c.Len(); i++ {
		clk, _ := c.Clock(i)
		base := 25*time.Second + 5*time.Second*time.Duration(i)
		assert.GreaterOrEqual(t, clk.Duration(), base)
		assert.Less(t, clk.Duration(), base+500*time.Millisecond)
		assert.Equal(t, 13, clk.Target())
		assert.Equal(t, StateIntro, clk.State())
	}
}

func TestTwoMissesStillSolve(t *testing.T) {
	c := newChallenge(t, 5)

	assert.Equal(t, StateFailed, stopAt(t, c, 0, 16))
	assert.Equal(t, StateFailed, stopAt(t, c, 1, 15))
	assert.False(t, c.IsSolved(), "clocks still running")
	for i := 2; i < 5; i++ {
		assert.Equal(t, StatePassed, stopAt(t, c, i, 13))
	}

	assert.True(t, c.IsSolved())
	assert.False(t, c.IsFailed())
	assert.Equal(t, 1, c.Lives())
}

func TestThirdMissFailsAndStopsEverything(t *testing.T) {
	c := newChallenge(t, 6)
	for i := 0; i < 3; i++ {
		stopAt(t, c, i, 20)
	}

	assert.True(t, c.IsFailed())
	assert.False(t, c.IsSolved())
	for _, v := range c.Views() {
		assert.NotEqual(t, StateRunning, v.State, "clock %d", v.Index)
	}

	// Latched and exclusive for the rest of the instance's life.
	for i := 0; i < 3; i++ {
		assert.True(t, c.IsFailed())
		assert.False(t, c.IsSolved())
	}
	assert.Equal(t, 0, c.Lives())

	c.Reset(6)
	assert.False(t, c.IsFailed())
	assert.Equal(t, PhaseIntro, c.Phase())
}

func TestAutoFailCountsTowardsQuorum(t *testing.T) {
	c := newChallenge(t, 3)
	last, _ := c.Clock(2)
	// Let every clock run past its window.
	ticks := c.Update(at(last, 0))
	assert.NotEmpty(t, ticks)
	assert.True(t, c.IsFailed())
}

func TestPickIsNoopOutsideRunning(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Count = 2
	c := NewChallenge(cfg, chance.New(2))

	st, ok, err := c.Pick(0)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, StateIntro, st)

	c.Start(epoch)
	stopAt(t, c, 0, 13)
	_, ok, err = c.Pick(0)
	require.NoError(t, err)
	assert.False(t, ok, "second pick of a stopped clock")
}

func TestPickOutOfRange(t *testing.T) {
	c := newChallenge(t, 2)
	_, _, err := c.Pick(2)
	assert.True(t, errors.Is(err, ErrIndexOutOfRange))
	_, _, err = c.Pick(-1)
	assert.True(t, errors.Is(err, ErrIndexOutOfRange))
}

func TestQueriesDoNotMutateClocks(t *testing.T) {
	c := newChallenge(t, 4)
	stopAt(t, c, 0, 13)
	before := c.Views()
	for i := 0; i < 5; i++ {
		c.IsSolved()
		c.IsFailed()
	}
	assert.Equal(t, before, c.Views())
}

func TestNotSolvedBeforeStart(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Count = 0
	c := NewChallenge(cfg, chance.New(2))
	assert.False(t, c.IsSolved())
	c.Start(epoch)
	assert.True(t, c.IsSolved(), "no clocks left running")
}
