package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestEventWritesStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(zapcore.AddSync(&buf), false)
	l.With(zap.String("room", "sala-13")).Event("PUZZLE_SOLVED", "player-1", "box solved", zap.String("puzzle", "snake"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "box solved", entry["msg"])
	assert.Equal(t, "PUZZLE_SOLVED", entry["event"])
	assert.Equal(t, "player-1", entry["actor"])
	assert.Equal(t, "snake", entry["puzzle"])
	assert.Equal(t, "sala-13", entry["room"])
	assert.Equal(t, "info", entry["level"])
}

func TestNopIsSilent(t *testing.T) {
	l := Nop()
	l.Info("x")
	l.Warn("x")
	l.Error("x")
	assert.NoError(t, l.Sync())
}
