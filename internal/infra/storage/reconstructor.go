// Package storage - reconstructor.go
// Rebuilds puzzle progress from the event ledger and renders the room recap.
// State = f(events).
package storage

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
)

// Reconstructor rebuilds room state from the event ledger.
// This is used for:
// 1. Bootstrapping puzzle_progress when the table is empty
// 2. The recap screen shown to a player who joins mid-session
// 3. Auditing and debugging
type Reconstructor struct {
	eventRepo    EventRepository
	progressRepo ProgressRepository
}

// NewReconstructor creates a new state reconstructor.
func NewReconstructor(eventRepo EventRepository, progressRepo ProgressRepository) *Reconstructor {
	return &Reconstructor{eventRepo: eventRepo, progressRepo: progressRepo}
}

// RecapEvent is a simplified event for the recap screen.
type RecapEvent struct {
	Seq       int64  `json:"seq"`
	Timestamp string `json:"timestamp"`
	When      string `json:"when"` // "3 minutes ago"
	EventType string `json:"event_type"`
	Puzzle    string `json:"puzzle,omitempty"`
	Summary   string `json:"summary"` // Human-readable description
	Impact    string `json:"impact"`  // "POSITIVE", "NEGATIVE", "NEUTRAL"
}

// RebuildProgress replays the ledger into puzzle_progress and returns the rows.
func (r *Reconstructor) RebuildProgress(ctx context.Context, roomID string) ([]PuzzleProgress, error) {
	evs, err := r.eventRepo.GetByRoomID(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to get room events: %w", err)
	}
	if err := r.progressRepo.RebuildFromEvents(ctx, roomID, evs); err != nil {
		return nil, fmt.Errorf("failed to rebuild progress: %w", err)
	}
	return Project(roomID, evs), nil
}

// LoadOrRebuild returns stored progress, rebuilding it from the ledger first
// when none is stored.
func (r *Reconstructor) LoadOrRebuild(ctx context.Context, roomID string) ([]PuzzleProgress, error) {
	rows, err := r.progressRepo.GetByRoomID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if len(rows) > 0 {
		return rows, nil
	}
	return r.RebuildProgress(ctx, roomID)
}

// GenerateRecap lists the room's events after sinceSeq in plain words.
func (r *Reconstructor) GenerateRecap(ctx context.Context, roomID string, sinceSeq int64) ([]RecapEvent, error) {
	evs, err := r.eventRepo.GetSince(ctx, roomID, sinceSeq)
	if err != nil {
		return nil, err
	}

	recap := make([]RecapEvent, 0, len(evs))
	for _, e := range evs {
		recap = append(recap, RecapEvent{
			Seq:       e.Seq,
			Timestamp: e.Timestamp.Format("15:04:05"),
			When:      humanize.Time(e.Timestamp),
			EventType: e.EventType,
			Puzzle:    e.Puzzle,
			Summary:   Summarize(e),
			Impact:    Impact(e),
		})
	}
	return recap, nil
}

// Summarize describes a stored event in one plain sentence.
func Summarize(e GameEvent) string {
	switch e.EventType {
	case "PUZZLE_OPENED":
		return fmt.Sprintf("The %s box was opened.", e.Puzzle)
	case "PUZZLE_STARTED":
		return fmt.Sprintf("The %s puzzle started.", e.Puzzle)
	case typeSolved:
		if ms := payloadInt(e.Payload, "elapsed_ms"); ms > 0 {
			return fmt.Sprintf("The %s puzzle was solved in %.1fs.", e.Puzzle, float64(ms)/1000)
		}
		return fmt.Sprintf("The %s puzzle was solved.", e.Puzzle)
	case typeFailed:
		return fmt.Sprintf("The %s puzzle was failed.", e.Puzzle)
	case "PUZZLE_ABANDONED":
		return fmt.Sprintf("The %s box was left unfinished.", e.Puzzle)
	case "ROOM_COMPLETED":
		return "Every box in the room is solved."
	case "LIFE_LOST":
		return fmt.Sprintf("A clock was missed; %s lives left.", humanize.Comma(payloadInt(e.Payload, "lives")))
	case "CLOCK_STOPPED":
		return fmt.Sprintf("Clock %d stopped at %d.", payloadInt(e.Payload, "index"), payloadInt(e.Payload, "remaining"))
	case "BUTTON_PRESSED":
		return fmt.Sprintf("Button %d was pressed.", payloadInt(e.Payload, "index"))
	case "BOARD_RESET":
		return "A reset button relit the wall."
	case "TILE_PICKED":
		return "A magic tile was moved."
	case "SNAKE_ATE":
		return fmt.Sprintf("The snake grew to %d.", payloadInt(e.Payload, "length"))
	case "SNAKE_DIED":
		return "The snake crashed."
	default:
		return "Something happened in the room."
	}
}

// Impact maps an event outcome to POSITIVE, NEGATIVE or NEUTRAL.
func Impact(e GameEvent) string {
	switch e.Outcome {
	case "GOOD":
		return "POSITIVE"
	case "BAD":
		return "NEGATIVE"
	default:
		return "NEUTRAL"
	}
}
