package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 1, 13, 13, 0, 0, 0, time.UTC)

// at returns the instant when a clock started at epoch shows `remaining` seconds.
func at(c *Clock, remaining int) time.Time {
	return epoch.Add(c.Duration() - time.Duration(remaining)*time.Second)
}

func TestStopOnTargetPasses(t *testing.T) {
	for _, target := range []int{1, 5, 13, 20} {
		c := New(30*time.Second, target)
		require.True(t, c.Start(epoch))

		c.Update(at(c, target))
		require.Equal(t, target, c.Remaining())

		st, ok := c.Stop()
		assert.True(t, ok)
		assert.Equal(t, StatePassed, st, "target %d", target)
	}
}

func TestStopOffTargetFails(t *testing.T) {
	c := New(30*time.Second, 13)
	c.Start(epoch)
	c.Update(at(c, 14))

	st, ok := c.Stop()
	assert.True(t, ok)
	assert.Equal(t, StateFailed, st)
}

func TestStopBeforeFirstUpdateUsesFullDuration(t *testing.T) {
	c := New(13*time.Second, 13)
	c.Start(epoch)
	st, _ := c.Stop()
	assert.Equal(t, StatePassed, st)
}

func TestDroppingBelowTargetFailsImmediately(t *testing.T) {
	c := New(20*time.Second, 13)
	c.Start(epoch)

	tick, ok := c.Update(at(c, 12))
	require.True(t, ok)
	assert.True(t, tick.Failed)
	assert.Equal(t, StateFailed, c.State())

	// A failed clock ignores further stops.
	st, ok := c.Stop()
	assert.False(t, ok)
	assert.Equal(t, StateFailed, st)
}

func TestRemainingNeverIncreasesWhileRunning(t *testing.T) {
	c := New(40*time.Second, 13)
	c.Start(epoch)
	prev := c.Remaining()
	offsets := []time.Duration{
		100 * time.Millisecond, 2 * time.Second, time.Second, // goes backwards
		5 * time.Second, 5 * time.Second, 12 * time.Second, 20 * time.Second,
	}
	for _, off := range offsets {
		c.Update(epoch.Add(off))
		assert.LessOrEqual(t, c.Remaining(), prev)
		prev = c.Remaining()
	}
}

func TestTickOnlyOnChangeAndNearDeadline(t *testing.T) {
	c := New(25*time.Second, 13)
	c.Start(epoch)

	_, ok := c.Update(epoch.Add(100 * time.Millisecond))
	assert.False(t, ok, "still shows 25")

	tick, ok := c.Update(at(c, 19))
	require.True(t, ok)
	assert.Equal(t, 19, tick.Remaining)
	assert.False(t, tick.NearDeadline)

	tick, ok = c.Update(at(c, 18))
	require.True(t, ok)
	assert.True(t, tick.NearDeadline)
}

func TestStartAndStopRequireTheRightState(t *testing.T) {
	c := New(30*time.Second, 13)
	_, ok := c.Stop()
	assert.False(t, ok, "intro clock cannot stop")

	require.True(t, c.Start(epoch))
	assert.False(t, c.Start(epoch), "running clock cannot restart")

	c.Update(at(c, 13))
	c.Stop()
	assert.False(t, c.Start(epoch), "finished clock needs a reset")

	c.Reset()
	assert.Equal(t, StateIntro, c.State())
	assert.Equal(t, 30, c.Remaining())
	assert.True(t, c.Start(epoch))
}
