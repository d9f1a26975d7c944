package storage

import (
	"sort"
	"time"
)

// Event types the progress projection reacts to. They match the room's
// event log names; storage keeps its own copy to stay free of the engine.
const (
	typeOpened = "PUZZLE_OPENED"
	typeSolved = "PUZZLE_SOLVED"
	typeFailed = "PUZZLE_FAILED"
)

// ApplyEvent folds one event into p and reports whether p changed.
func ApplyEvent(p *PuzzleProgress, e GameEvent) bool {
	switch e.EventType {
	case typeOpened:
		p.Attempts++
	case typeFailed:
		p.Failures++
	case typeSolved:
		p.Solved = true
		at := e.Timestamp
		p.SolvedAt = &at
		if ms := payloadInt(e.Payload, "elapsed_ms"); ms > 0 && (p.BestSolveMs == 0 || ms < p.BestSolveMs) {
			p.BestSolveMs = ms
		}
	default:
		return false
	}
	p.LastUpdated = e.Timestamp
	return true
}

// Project folds a room's events into one progress row per puzzle, sorted by
// puzzle name.
func Project(roomID string, events []GameEvent) []PuzzleProgress {
	byPuzzle := map[string]*PuzzleProgress{}
	for _, e := range events {
		if e.Puzzle == "" {
			continue
		}
		p, ok := byPuzzle[e.Puzzle]
		if !ok {
			p = &PuzzleProgress{RoomID: roomID, Puzzle: e.Puzzle}
		}
		if ApplyEvent(p, e) && !ok {
			byPuzzle[e.Puzzle] = p
		}
	}
	out := make([]PuzzleProgress, 0, len(byPuzzle))
	for _, p := range byPuzzle {
		if p.LastUpdated.IsZero() {
			p.LastUpdated = time.Now()
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Puzzle < out[j].Puzzle })
	return out
}

// payloadInt reads a number from a JSON-decoded payload.
func payloadInt(payload map[string]interface{}, key string) int64 {
	switch v := payload[key].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	}
	return 0
}
