package network

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/MRamiBalles/SalaTrece/server/internal/events"
	"github.com/MRamiBalles/SalaTrece/server/internal/infra/storage"
	"github.com/MRamiBalles/SalaTrece/server/internal/platform/logger"
)

// Recapper reads the durable ledger; storage.Reconstructor implements it.
type Recapper interface {
	GenerateRecap(ctx context.Context, roomID string, sinceSeq int64) ([]storage.RecapEvent, error)
}

// ReplayHandler serves the room's event history.
type ReplayHandler struct {
	roomID   string
	eventLog *events.EventLog
	recapper Recapper
	logger   *logger.Logger
}

// NewReplayHandler creates a new replay handler. recapper may be nil when no
// ledger is configured.
func NewReplayHandler(roomID string, el *events.EventLog, recapper Recapper, log *logger.Logger) *ReplayHandler {
	return &ReplayHandler{roomID: roomID, eventLog: el, recapper: recapper, logger: log}
}

// ReplayEvent is an event prepared for viewing.
type ReplayEvent struct {
	ID        string                 `json:"id"`
	Seq       int64                  `json:"seq"`
	Timestamp string                 `json:"timestamp"`
	Type      string                 `json:"type"`
	Puzzle    string                 `json:"puzzle,omitempty"`
	Actor     string                 `json:"actor"`
	Summary   string                 `json:"summary"`
	Impact    string                 `json:"impact"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// ReplayResponse is the API response for a replay.
type ReplayResponse struct {
	RoomID      string        `json:"room_id"`
	TotalEvents int           `json:"total_events"`
	GeneratedAt string        `json:"generated_at"`
	Events      []ReplayEvent `json:"events"`
}

// HandleReplay returns the retained durable history, optionally filtered.
// GET /api/replay?puzzle=snake&type=SNAKE_ATE&since=42
func (rh *ReplayHandler) HandleReplay(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()
	since, err := parseSince(q.Get("since"))
	if err != nil {
		jsonError(w, "Invalid since", http.StatusBadRequest)
		return
	}
	puzzle, eventType := q.Get("puzzle"), q.Get("type")

	replay := make([]ReplayEvent, 0)
	for _, e := range rh.eventLog.Replay() {
		if e.Seq <= since {
			continue
		}
		if puzzle != "" && e.Puzzle != puzzle {
			continue
		}
		if eventType != "" && string(e.Type) != eventType {
			continue
		}
		re, err := toReplayEvent(e)
		if err != nil {
			rh.logger.Warn("replay skipped event", zap.String("id", e.ID), zap.Error(err))
			continue
		}
		replay = append(replay, re)
	}

	jsonSuccess(w, ReplayResponse{
		RoomID:      rh.roomID,
		TotalEvents: len(replay),
		GeneratedAt: time.Now().Format(time.RFC3339),
		Events:      replay,
	})
}

// HandleRecap summarizes the durable ledger after a sequence number.
// GET /api/recap?since=0
func (rh *ReplayHandler) HandleRecap(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if rh.recapper == nil {
		jsonError(w, "No ledger configured", http.StatusServiceUnavailable)
		return
	}
	since, err := parseSince(r.URL.Query().Get("since"))
	if err != nil {
		jsonError(w, "Invalid since", http.StatusBadRequest)
		return
	}
	recap, err := rh.recapper.GenerateRecap(r.Context(), rh.roomID, since)
	if err != nil {
		rh.logger.Error("recap failed", zap.Error(err))
		jsonError(w, "Recap unavailable", http.StatusInternalServerError)
		return
	}
	jsonSuccess(w, map[string]interface{}{
		"room_id": rh.roomID,
		"events":  recap,
	})
}

// HandleStats counts retained events by type and outcome.
// GET /api/replay/stats
func (rh *ReplayHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	byType := map[string]int{}
	byOutcome := map[string]int{}
	all := rh.eventLog.Replay()
	for _, e := range all {
		byType[string(e.Type)]++
		byOutcome[string(e.Outcome)]++
	}
	jsonSuccess(w, map[string]interface{}{
		"generated_at": time.Now().Format(time.RFC3339),
		"total_events": len(all),
		"by_type":      byType,
		"by_outcome":   byOutcome,
	})
}

// RegisterRoutes sets up the replay API routes.
func (rh *ReplayHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/replay", rh.HandleReplay)
	mux.HandleFunc("/api/replay/stats", rh.HandleStats)
	mux.HandleFunc("/api/recap", rh.HandleRecap)
}

func parseSince(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseInt(s, 10, 64)
}

func toReplayEvent(e events.GameEvent) (ReplayEvent, error) {
	stored, err := storage.FromEvent(e)
	if err != nil {
		return ReplayEvent{}, err
	}
	return ReplayEvent{
		ID:        e.ID,
		Seq:       e.Seq,
		Timestamp: e.Timestamp.Format("15:04:05"),
		Type:      string(e.Type),
		Puzzle:    e.Puzzle,
		Actor:     e.ActorID,
		Summary:   storage.Summarize(stored),
		Impact:    storage.Impact(stored),
		Details:   stored.Payload,
	}, nil
}
