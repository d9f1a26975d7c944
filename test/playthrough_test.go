package test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MRamiBalles/SalaTrece/server/internal/domain/grid"
	"github.com/MRamiBalles/SalaTrece/server/internal/engine"
	"github.com/MRamiBalles/SalaTrece/server/internal/events"
	"github.com/MRamiBalles/SalaTrece/server/internal/infra/archive"
	"github.com/MRamiBalles/SalaTrece/server/internal/platform/config"
)

func TestPlaythroughSolvesTheRoom(t *testing.T) {
	for _, seed := range []int64{1, 13, 2026} {
		p, err := NewPlaythrough(config.Default(), seed, "", nil)
		require.NoError(t, err)

		results := p.Run()
		require.Len(t, results, 4)
		for _, r := range results {
			assert.True(t, r.Passed, "seed %d %s: %s", seed, r.Puzzle, r.Reason)
			assert.Positive(t, r.Frames)
		}
		assert.Equal(t, engine.PuzzleTimer, results[0].Puzzle)
		assert.Equal(t, engine.PuzzleSnake, results[3].Puzzle)
		assert.EqualValues(t, 4, p.Metrics().PuzzlesSolved)
		assert.Zero(t, p.Metrics().PuzzlesFailed)

		evs := p.EventLog().Replay()
		require.NotEmpty(t, evs)
		assert.Equal(t, events.EventTypeRoomCompleted, evs[len(evs)-1].Type)
	}
}

func TestPlaythroughDebugRoom(t *testing.T) {
	p, err := NewPlaythrough(config.Debug(), 7, "", nil)
	require.NoError(t, err)
	for _, r := range p.Run() {
		assert.True(t, r.Passed, "%s: %s", r.Puzzle, r.Reason)
	}
	// Three segments: one meal from the spawn.
	assert.Equal(t, 1, p.Results()[3].Frames)
}

func TestPlaythroughArchivesDurableEvents(t *testing.T) {
	dir := t.TempDir()
	p, err := NewPlaythrough(config.Debug(), 7, dir, nil)
	require.NoError(t, err)
	p.Run()

	files, err := filepath.Glob(filepath.Join(dir, "*.jsonl.zst"))
	require.NoError(t, err)
	require.NotEmpty(t, files)

	var archived []events.GameEvent
	for _, f := range files {
		evs, err := archive.ReadFile(f)
		require.NoError(t, err)
		archived = append(archived, evs...)
	}
	require.NotEmpty(t, archived)
	for _, e := range archived {
		assert.False(t, e.Type.Ephemeral(), "%s archived", e.Type)
	}
	assert.Equal(t, events.EventTypeRoomCompleted, archived[len(archived)-1].Type)
}

func TestRouteClimbsThenCirclesClockwise(t *testing.T) {
	cases := []struct {
		head, want grid.Pos
	}{
		{grid.Pos{X: 5, Y: 5}, grid.Pos{X: 5, Y: 6}},
		{grid.Pos{X: 5, Y: 9}, grid.Pos{X: 6, Y: 9}},
		{grid.Pos{X: 9, Y: 9}, grid.Pos{X: 9, Y: 8}},
		{grid.Pos{X: 9, Y: 0}, grid.Pos{X: 8, Y: 0}},
		{grid.Pos{X: 0, Y: 0}, grid.Pos{X: 0, Y: 1}},
		{grid.Pos{X: 0, Y: 4}, grid.Pos{X: 0, Y: 5}},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, nextOnRoute(c.head, 10, 10), "from %s", c.head)
	}
}
