package network

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MRamiBalles/SalaTrece/server/internal/engine"
	"github.com/MRamiBalles/SalaTrece/server/internal/events"
	"github.com/MRamiBalles/SalaTrece/server/internal/infra/storage"
	"github.com/MRamiBalles/SalaTrece/server/internal/platform/logger"
)

type fakeRecapper struct {
	since int64
	err   error
}

func (f *fakeRecapper) GenerateRecap(_ context.Context, roomID string, sinceSeq int64) ([]storage.RecapEvent, error) {
	f.since = sinceSeq
	if f.err != nil {
		return nil, f.err
	}
	return []storage.RecapEvent{{Seq: sinceSeq + 1, EventType: "PUZZLE_SOLVED", Puzzle: "snake", Summary: "The snake puzzle was solved."}}, nil
}

func seededLog() *events.EventLog {
	log := events.NewEventLog("sala-13", nil)
	log.Append(events.GameEvent{Type: events.EventTypePuzzleOpened, Puzzle: "lightwall", ActorID: "ana"})
	log.Append(events.GameEvent{Type: events.EventTypeButtonPressed, Puzzle: "lightwall", Outcome: events.OutcomeGood,
		Payload: engine.ButtonPressedPayload{Index: 3}})
	log.Append(events.GameEvent{Type: events.EventTypeSnakeTick, Puzzle: "snake"})
	log.Append(events.GameEvent{Type: events.EventTypeBoardReset, Puzzle: "lightwall", Outcome: events.OutcomeBad})
	return log
}

func get(t *testing.T, h http.HandlerFunc, url string) (int, map[string]interface{}) {
	t.Helper()
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, url, nil))
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return rec.Code, out
}

func TestReplayListsDurableEvents(t *testing.T) {
	rh := NewReplayHandler("sala-13", seededLog(), nil, logger.Nop())

	rec := httptest.NewRecorder()
	rh.HandleReplay(rec, httptest.NewRequest(http.MethodGet, "/api/replay", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var resp ReplayResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 3, resp.TotalEvents)

	pressed := resp.Events[1]
	assert.Equal(t, "BUTTON_PRESSED", pressed.Type)
	assert.Equal(t, "Button 3 was pressed.", pressed.Summary)
	assert.Equal(t, "POSITIVE", pressed.Impact)
	assert.Equal(t, "NEGATIVE", resp.Events[2].Impact)
}

func TestReplayFilters(t *testing.T) {
	rh := NewReplayHandler("sala-13", seededLog(), nil, logger.Nop())

	code, out := get(t, rh.HandleReplay, "/api/replay?type=BOARD_RESET")
	assert.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, out["total_events"])

	code, out = get(t, rh.HandleReplay, "/api/replay?since=2")
	assert.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, out["total_events"])

	code, out = get(t, rh.HandleReplay, "/api/replay?puzzle=snake")
	assert.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 0, out["total_events"])

	code, _ = get(t, rh.HandleReplay, "/api/replay?since=abc")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestRecap(t *testing.T) {
	fr := &fakeRecapper{}
	rh := NewReplayHandler("sala-13", seededLog(), fr, logger.Nop())
	code, out := get(t, rh.HandleRecap, "/api/recap?since=7")
	assert.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 7, fr.since)
	assert.Len(t, out["events"], 1)

	fr.err = errors.New("db gone")
	code, _ = get(t, rh.HandleRecap, "/api/recap")
	assert.Equal(t, http.StatusInternalServerError, code)

	code, _ = get(t, NewReplayHandler("sala-13", seededLog(), nil, logger.Nop()).HandleRecap, "/api/recap")
	assert.Equal(t, http.StatusServiceUnavailable, code)
}

func TestReplayStats(t *testing.T) {
	rh := NewReplayHandler("sala-13", seededLog(), nil, logger.Nop())
	code, out := get(t, rh.HandleStats, "/api/replay/stats")
	assert.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 3, out["total_events"])
	byOutcome := out["by_outcome"].(map[string]interface{})
	assert.EqualValues(t, 1, byOutcome["GOOD"])
	assert.EqualValues(t, 1, byOutcome["BAD"])
	assert.EqualValues(t, 1, byOutcome["NEUTRAL"])
}
