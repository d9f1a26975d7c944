package network

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MRamiBalles/SalaTrece/server/internal/domain/lightwall"
	"github.com/MRamiBalles/SalaTrece/server/internal/engine"
)

func TestDecodeActionAcceptsEveryActionShape(t *testing.T) {
	schema, err := CompileActionSchema()
	require.NoError(t, err)

	cases := map[string]engine.Action{
		`{"type":"OPEN","puzzle":"snake"}`:  {Type: engine.ActionOpen, Puzzle: engine.PuzzleSnake},
		`{"type":"START"}`:                  {Type: engine.ActionStart},
		`{"type":"LEAVE"}`:                  {Type: engine.ActionLeave},
		`{"type":"PRESS_BUTTON","index":4}`: {Type: engine.ActionPressButton, Index: 4},
		`{"type":"PICK_RACK","index":0}`:    {Type: engine.ActionPickRack},
		`{"type":"PICK_BOARD","x":1,"y":2}`: {Type: engine.ActionPickBoard, X: 1, Y: 2},
		`{"type":"STEER","x":3.5,"y":-1}`:   {Type: engine.ActionSteer, X: 3.5, Y: -1},
	}
	cases[`{"type":"PICK_CLOCK","index":12,"puzzle":"timer"}`] = engine.Action{
		Type:   engine.ActionPickClock,
		Index:  12,
		Puzzle: engine.PuzzleTimer,
	}
	for raw, want := range cases {
		got, err := DecodeAction(schema, []byte(raw))
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}
}

func TestDecodeActionRejectsInvalidInput(t *testing.T) {
	schema, err := CompileActionSchema()
	require.NoError(t, err)

	for _, raw := range []string{
		`not json`,
		`{}`,
		`{"type":"DANCE"}`,
		`{"type":"OPEN"}`,
		`{"type":"OPEN","puzzle":"vault"}`,
		`{"type":"PRESS_BUTTON"}`,
		`{"type":"PRESS_BUTTON","index":-1}`,
		`{"type":"PRESS_BUTTON","index":1.5}`,
		`{"type":"PICK_BOARD","x":1}`,
		`{"type":"START","extra":true}`,
	} {
		_, err := DecodeAction(schema, []byte(raw))
		assert.ErrorIs(t, err, ErrBadAction, raw)
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		err    error
		code   string
		status int
	}{
		{ErrBadAction, "BAD_ACTION", http.StatusBadRequest},
		{ErrRateLimited, "RATE_LIMITED", http.StatusTooManyRequests},
		{engine.ErrInboxFull, "BUSY", http.StatusTooManyRequests},
		{fmt.Errorf("x: %w", engine.ErrUnknownPuzzle), "UNKNOWN_PUZZLE", http.StatusNotFound},
		{engine.ErrPuzzleLocked, "PUZZLE_LOCKED", http.StatusConflict},
		{engine.ErrNoActivePuzzle, "NO_ACTIVE_PUZZLE", http.StatusConflict},
		{engine.ErrInvalidAction, "INVALID_ACTION", http.StatusBadRequest},
		{fmt.Errorf("press: %w", lightwall.ErrIndexOutOfRange), "OUT_OF_RANGE", http.StatusBadRequest},
		{engine.ErrEngineStopped, "STOPPED", http.StatusServiceUnavailable},
		{context.DeadlineExceeded, "TIMEOUT", http.StatusGatewayTimeout},
		{fmt.Errorf("disk on fire"), "INTERNAL", http.StatusInternalServerError},
	}
	for _, c := range cases {
		code, status := classify(c.err)
		assert.Equal(t, c.code, code, c.err.Error())
		assert.Equal(t, c.status, status, c.err.Error())
	}
}
