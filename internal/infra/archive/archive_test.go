package archive

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MRamiBalles/SalaTrece/server/internal/events"
	"github.com/MRamiBalles/SalaTrece/server/internal/platform/metrics"
)

func TestWriteRotateAndRead(t *testing.T) {
	dir := t.TempDir()
	m := metrics.New()
	w := NewWriter(dir, "events", m)
	now := time.Date(2026, 5, 2, 10, 59, 0, 0, time.UTC)
	w.now = func() time.Time { return now }

	require.NoError(t, w.Append(events.GameEvent{Seq: 1, Type: events.EventTypePuzzleOpened, Puzzle: "snake"}))
	require.NoError(t, w.Append(events.GameEvent{Seq: 2, Type: events.EventTypeSnakeAte, Puzzle: "snake"}))
	now = now.Add(2 * time.Minute)
	require.NoError(t, w.Append(events.GameEvent{Seq: 3, Type: events.EventTypePuzzleSolved, Puzzle: "snake"}))
	require.NoError(t, w.Close())

	first, err := ReadFile(w.PathForHour("2026-05-02-10"))
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, events.EventTypeSnakeAte, first[1].Type)

	second, err := ReadFile(w.PathForHour("2026-05-02-11"))
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, int64(3), second[0].Seq)

	assert.Positive(t, m.ArchiveBytes)
}

func TestReopenAppendsNewFrame(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 5, 2, 10, 0, 0, 0, time.UTC)
	for i := 1; i <= 2; i++ {
		w := NewWriter(dir, "events", nil)
		w.now = func() time.Time { return now }
		require.NoError(t, w.Append(events.GameEvent{Seq: int64(i)}))
		require.NoError(t, w.Close())
	}
	got, err := ReadFile(NewWriter(dir, "events", nil).PathForHour("2026-05-02-10"))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(2), got[1].Seq)
}
