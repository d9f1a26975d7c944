package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/MRamiBalles/SalaTrece/server/internal/events"
	"github.com/MRamiBalles/SalaTrece/server/internal/platform/metrics"
)

const writeTimeout = 5 * time.Second

// FromEvent converts a room event into its storage record. The payload
// round-trips through JSON so records read back identically.
func FromEvent(e events.GameEvent) (GameEvent, error) {
	rec := GameEvent{
		ID:        e.ID,
		RoomID:    e.RoomID,
		Seq:       e.Seq,
		Timestamp: e.Timestamp,
		EventType: string(e.Type),
		ActorID:   e.ActorID,
		Puzzle:    e.Puzzle,
		Outcome:   string(e.Outcome),
		Payload:   map[string]interface{}{},
	}
	if e.Payload == nil {
		return rec, nil
	}
	raw, err := json.Marshal(e.Payload)
	if err != nil {
		return rec, fmt.Errorf("marshal %s payload: %w", e.Type, err)
	}
	if err := json.Unmarshal(raw, &rec.Payload); err != nil {
		// Non-object payloads are kept under a single key.
		var v interface{}
		_ = json.Unmarshal(raw, &v)
		rec.Payload = map[string]interface{}{"value": v}
	}
	return rec, nil
}

// EventSink writes room events into an EventRepository.
type EventSink struct {
	repo    EventRepository
	metrics *metrics.Collector
}

func NewEventSink(repo EventRepository, m *metrics.Collector) *EventSink {
	return &EventSink{repo: repo, metrics: m}
}

func (s *EventSink) Append(e events.GameEvent) error {
	rec, err := FromEvent(e)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	start := time.Now()
	err = s.repo.Append(ctx, rec)
	if s.metrics != nil {
		s.metrics.RecordEventWrite(time.Since(start), err)
	}
	return err
}

// ProgressProjector keeps puzzle_progress rows current as events arrive.
type ProgressProjector struct {
	repo ProgressRepository

	mu   sync.Mutex
	rows map[string]*PuzzleProgress
	room string
}

// NewProgressProjector starts from the rows already stored for roomID.
func NewProgressProjector(repo ProgressRepository, roomID string, existing []PuzzleProgress) *ProgressProjector {
	p := &ProgressProjector{repo: repo, room: roomID, rows: map[string]*PuzzleProgress{}}
	for i := range existing {
		row := existing[i]
		p.rows[row.Puzzle] = &row
	}
	return p
}

func (p *ProgressProjector) Append(e events.GameEvent) error {
	if e.Puzzle == "" {
		return nil
	}
	rec, err := FromEvent(e)
	if err != nil {
		return err
	}

	p.mu.Lock()
	row, ok := p.rows[e.Puzzle]
	if !ok {
		row = &PuzzleProgress{RoomID: p.room, Puzzle: e.Puzzle}
	}
	if !ApplyEvent(row, rec) {
		p.mu.Unlock()
		return nil
	}
	p.rows[e.Puzzle] = row
	snapshot := *row
	p.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	return p.repo.Upsert(ctx, snapshot)
}
