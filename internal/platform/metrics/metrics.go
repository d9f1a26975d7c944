// Package metrics provides observability for the room server.
package metrics

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
)

// Collector gathers performance and gameplay counters.
type Collector struct {
	// Frame loop
	FrameCount      int64
	FrameLatencySum int64 // nanoseconds
	FrameLatencyMax int64
	LastFrameTime   time.Time
	PuzzleTicks     int64

	// Player actions
	ActionsAccepted int64
	ActionsRejected int64
	InboxDrops      int64

	// Outcomes
	PuzzlesOpened int64
	PuzzlesSolved int64
	PuzzlesFailed int64

	// Event persistence
	EventsWritten    int64
	EventWriteLatSum int64
	EventWriteLatMax int64
	EventWriteErrors int64
	ArchiveBytes     int64

	// WebSocket
	WSConnectionsActive int64
	WSMessagesIn        int64
	WSMessagesOut       int64
	WSErrors            int64

	StartTime time.Time
	mu        sync.RWMutex
}

// Global collector instance
var collector = New()

// New returns an empty collector. Most callers want Get.
func New() *Collector {
	return &Collector{StartTime: time.Now()}
}

// Get returns the global collector.
func Get() *Collector {
	return collector
}

func storeMax(addr *int64, v int64) {
	for {
		cur := atomic.LoadInt64(addr)
		if v <= cur || atomic.CompareAndSwapInt64(addr, cur, v) {
			return
		}
	}
}

// RecordFrame records one pass of the room loop.
func (c *Collector) RecordFrame(latency time.Duration) {
	atomic.AddInt64(&c.FrameCount, 1)
	atomic.AddInt64(&c.FrameLatencySum, int64(latency))
	storeMax(&c.FrameLatencyMax, int64(latency))

	c.mu.Lock()
	c.LastFrameTime = time.Now()
	c.mu.Unlock()
}

// RecordPuzzleTick counts a discrete clock or snake step.
func (c *Collector) RecordPuzzleTick() {
	atomic.AddInt64(&c.PuzzleTicks, 1)
}

// RecordAction counts a player action by whether the room accepted it.
func (c *Collector) RecordAction(accepted bool) {
	if accepted {
		atomic.AddInt64(&c.ActionsAccepted, 1)
	} else {
		atomic.AddInt64(&c.ActionsRejected, 1)
	}
}

// RecordInboxDrop counts an action refused because the inbox was full.
func (c *Collector) RecordInboxDrop() {
	atomic.AddInt64(&c.InboxDrops, 1)
}

func (c *Collector) RecordOpened() { atomic.AddInt64(&c.PuzzlesOpened, 1) }
func (c *Collector) RecordSolved() { atomic.AddInt64(&c.PuzzlesSolved, 1) }
func (c *Collector) RecordFailed() { atomic.AddInt64(&c.PuzzlesFailed, 1) }

// RecordEventWrite records an event write to the database.
func (c *Collector) RecordEventWrite(latency time.Duration, err error) {
	atomic.AddInt64(&c.EventsWritten, 1)
	atomic.AddInt64(&c.EventWriteLatSum, int64(latency))
	storeMax(&c.EventWriteLatMax, int64(latency))

	if err != nil {
		atomic.AddInt64(&c.EventWriteErrors, 1)
	}
}

// RecordArchived adds n uncompressed bytes written to the archive.
func (c *Collector) RecordArchived(n int) {
	atomic.AddInt64(&c.ArchiveBytes, int64(n))
}

// RecordWSConnection records WebSocket connection changes.
func (c *Collector) RecordWSConnection(delta int64) {
	atomic.AddInt64(&c.WSConnectionsActive, delta)
}

// RecordWSMessage records WebSocket messages.
func (c *Collector) RecordWSMessage(incoming bool) {
	if incoming {
		atomic.AddInt64(&c.WSMessagesIn, 1)
	} else {
		atomic.AddInt64(&c.WSMessagesOut, 1)
	}
}

// RecordWSError records a WebSocket error.
func (c *Collector) RecordWSError() {
	atomic.AddInt64(&c.WSErrors, 1)
}

// Snapshot returns current metrics as a map.
func (c *Collector) Snapshot() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	frames := atomic.LoadInt64(&c.FrameCount)
	written := atomic.LoadInt64(&c.EventsWritten)

	var frameAvg, eventAvg float64
	if frames > 0 {
		frameAvg = float64(atomic.LoadInt64(&c.FrameLatencySum)) / float64(frames) / 1e6 // ms
	}
	if written > 0 {
		eventAvg = float64(atomic.LoadInt64(&c.EventWriteLatSum)) / float64(written) / 1e6
	}
	archived := atomic.LoadInt64(&c.ArchiveBytes)

	return map[string]interface{}{
		"uptime_seconds": time.Since(c.StartTime).Seconds(),
		"started":        humanize.Time(c.StartTime),

		"frame": map[string]interface{}{
			"count":          frames,
			"avg_latency_ms": frameAvg,
			"max_latency_ms": float64(atomic.LoadInt64(&c.FrameLatencyMax)) / 1e6,
			"last_frame":     c.LastFrameTime.Format(time.RFC3339),
			"puzzle_ticks":   atomic.LoadInt64(&c.PuzzleTicks),
		},

		"actions": map[string]interface{}{
			"accepted":    atomic.LoadInt64(&c.ActionsAccepted),
			"rejected":    atomic.LoadInt64(&c.ActionsRejected),
			"inbox_drops": atomic.LoadInt64(&c.InboxDrops),
		},

		"puzzles": map[string]interface{}{
			"opened": atomic.LoadInt64(&c.PuzzlesOpened),
			"solved": atomic.LoadInt64(&c.PuzzlesSolved),
			"failed": atomic.LoadInt64(&c.PuzzlesFailed),
		},

		"events": map[string]interface{}{
			"written":          written,
			"avg_write_lat_ms": eventAvg,
			"max_write_lat_ms": float64(atomic.LoadInt64(&c.EventWriteLatMax)) / 1e6,
			"errors":           atomic.LoadInt64(&c.EventWriteErrors),
			"archived_bytes":   archived,
			"archived":         humanize.Bytes(uint64(archived)),
		},

		"websocket": map[string]interface{}{
			"active_connections": atomic.LoadInt64(&c.WSConnectionsActive),
			"messages_in":        atomic.LoadInt64(&c.WSMessagesIn),
			"messages_out":       atomic.LoadInt64(&c.WSMessagesOut),
			"errors":             atomic.LoadInt64(&c.WSErrors),
		},
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.HandlerFunc {
	return collector.Handler()
}

// PrometheusHandler returns metrics in Prometheus format.
func PrometheusHandler() http.HandlerFunc {
	return collector.PrometheusHandler()
}

func (c *Collector) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache")
		json.NewEncoder(w).Encode(c.Snapshot())
	}
}

type promMetric struct {
	name, help, kind string
	value            func() string
}

func (c *Collector) PrometheusHandler() http.HandlerFunc {
	load := func(addr *int64) func() string {
		return func() string { return fmt.Sprintf("%d", atomic.LoadInt64(addr)) }
	}
	ms := func(addr *int64) func() string {
		return func() string { return fmt.Sprintf("%.2f", float64(atomic.LoadInt64(addr))/1e6) }
	}
	table := []promMetric{
		{"trece_frame_count", "Total room loop frames", "counter", load(&c.FrameCount)},
		{"trece_frame_latency_max_ms", "Maximum frame latency", "gauge", ms(&c.FrameLatencyMax)},
		{"trece_puzzle_ticks", "Total clock and snake steps", "counter", load(&c.PuzzleTicks)},
		{"trece_actions_accepted", "Player actions applied", "counter", load(&c.ActionsAccepted)},
		{"trece_actions_rejected", "Player actions refused", "counter", load(&c.ActionsRejected)},
		{"trece_inbox_drops", "Actions dropped on a full inbox", "counter", load(&c.InboxDrops)},
		{"trece_puzzles_opened", "Puzzle boxes opened", "counter", load(&c.PuzzlesOpened)},
		{"trece_puzzles_solved", "Puzzle boxes solved", "counter", load(&c.PuzzlesSolved)},
		{"trece_puzzles_failed", "Puzzle attempts failed", "counter", load(&c.PuzzlesFailed)},
		{"trece_events_written", "Total events written", "counter", load(&c.EventsWritten)},
		{"trece_event_write_errors", "Total event write errors", "counter", load(&c.EventWriteErrors)},
		{"trece_archive_bytes", "Uncompressed bytes archived", "counter", load(&c.ArchiveBytes)},
		{"trece_ws_connections", "Active WebSocket connections", "gauge", load(&c.WSConnectionsActive)},
	}
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		for _, m := range table {
			fmt.Fprintf(w, "# HELP %s %s\n", m.name, m.help)
			fmt.Fprintf(w, "# TYPE %s %s\n", m.name, m.kind)
			fmt.Fprintf(w, "%s %s\n\n", m.name, m.value())
		}

		fmt.Fprintf(w, "# HELP trece_ws_messages_total Total WebSocket messages\n")
		fmt.Fprintf(w, "# TYPE trece_ws_messages_total counter\n")
		fmt.Fprintf(w, "trece_ws_messages_total{direction=\"in\"} %d\n", atomic.LoadInt64(&c.WSMessagesIn))
		fmt.Fprintf(w, "trece_ws_messages_total{direction=\"out\"} %d\n", atomic.LoadInt64(&c.WSMessagesOut))
	}
}
