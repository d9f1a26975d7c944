package metrics

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotCounts(t *testing.T) {
	c := New()
	c.RecordFrame(2 * time.Millisecond)
	c.RecordFrame(6 * time.Millisecond)
	c.RecordAction(true)
	c.RecordAction(false)
	c.RecordSolved()
	c.RecordEventWrite(time.Millisecond, errors.New("disk full"))
	c.RecordArchived(2048)

	snap := c.Snapshot()
	frame := snap["frame"].(map[string]interface{})
	assert.Equal(t, int64(2), frame["count"])
	assert.InDelta(t, 4.0, frame["avg_latency_ms"], 0.001)
	assert.InDelta(t, 6.0, frame["max_latency_ms"], 0.001)

	actions := snap["actions"].(map[string]interface{})
	assert.Equal(t, int64(1), actions["accepted"])
	assert.Equal(t, int64(1), actions["rejected"])

	ev := snap["events"].(map[string]interface{})
	assert.Equal(t, int64(1), ev["errors"])
	assert.Equal(t, "2.0 kB", ev["archived"])
}

func TestHandlers(t *testing.T) {
	c := New()
	c.RecordWSMessage(true)
	c.RecordFailed()

	rec := httptest.NewRecorder()
	c.Handler()(rec, httptest.NewRequest("GET", "/metrics", nil))
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body, "puzzles")

	rec = httptest.NewRecorder()
	c.PrometheusHandler()(rec, httptest.NewRequest("GET", "/metrics/prometheus", nil))
	text := rec.Body.String()
	assert.True(t, strings.Contains(text, "trece_puzzles_failed 1\n"))
	assert.True(t, strings.Contains(text, `trece_ws_messages_total{direction="in"} 1`))
}
