// Package storage provides the persistence layer for the room server.
// This package implements the repository pattern to keep the domain pure.
package storage

import (
	"context"
	"time"
)

// GameEvent mirrors the room event structure for persistence.
// The domain packages should NOT import this; use interfaces instead.
type GameEvent struct {
	ID        string                 `json:"id" db:"id"`
	RoomID    string                 `json:"room_id" db:"room_id"`
	Seq       int64                  `json:"seq" db:"seq"`
	Timestamp time.Time              `json:"timestamp" db:"timestamp"`
	EventType string                 `json:"event_type" db:"event_type"`
	ActorID   string                 `json:"actor_id" db:"actor_id"`
	Puzzle    string                 `json:"puzzle" db:"puzzle"`
	Outcome   string                 `json:"outcome" db:"outcome"`
	Payload   map[string]interface{} `json:"payload" db:"payload"`
}

// EventRepository defines the interface for event persistence.
type EventRepository interface {
	// Append adds a new event to the immutable ledger.
	Append(ctx context.Context, event GameEvent) error

	// GetByRoomID retrieves all events for a room in sequence order (for replay).
	GetByRoomID(ctx context.Context, roomID string) ([]GameEvent, error)

	// GetByPuzzle retrieves all events raised by one puzzle box.
	GetByPuzzle(ctx context.Context, roomID, puzzle string) ([]GameEvent, error)

	// GetByEventType retrieves all events of a specific type.
	GetByEventType(ctx context.Context, roomID string, eventType string) ([]GameEvent, error)

	// GetSince retrieves events with a sequence number greater than seq.
	GetSince(ctx context.Context, roomID string, seq int64) ([]GameEvent, error)

	// MaxSeq is the highest stored sequence number, 0 for an empty room.
	MaxSeq(ctx context.Context, roomID string) (int64, error)
}

// PuzzleProgress is the durable summary of one puzzle box.
type PuzzleProgress struct {
	RoomID      string     `json:"room_id" db:"room_id"`
	Puzzle      string     `json:"puzzle" db:"puzzle"`
	Solved      bool       `json:"solved" db:"solved"`
	Attempts    int        `json:"attempts" db:"attempts"`
	Failures    int        `json:"failures" db:"failures"`
	BestSolveMs int64      `json:"best_solve_ms" db:"best_solve_ms"` // 0 = never solved
	SolvedAt    *time.Time `json:"solved_at,omitempty" db:"solved_at"`
	LastUpdated time.Time  `json:"last_updated" db:"last_updated"`
}

// ProgressRepository defines the interface for puzzle progress rows.
type ProgressRepository interface {
	// Upsert updates or inserts one box's progress.
	Upsert(ctx context.Context, progress PuzzleProgress) error

	// Get retrieves one box's progress, nil if never recorded.
	Get(ctx context.Context, roomID, puzzle string) (*PuzzleProgress, error)

	// GetByRoomID retrieves every box of a room.
	GetByRoomID(ctx context.Context, roomID string) ([]PuzzleProgress, error)

	// RebuildFromEvents replaces a room's progress with the projection of events.
	RebuildFromEvents(ctx context.Context, roomID string, events []GameEvent) error
}
