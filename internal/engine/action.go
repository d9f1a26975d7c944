package engine

import (
	"fmt"
	"math"
)

// ActionType is a player input forwarded by a client.
type ActionType string

const (
	ActionOpen        ActionType = "OPEN"
	ActionStart       ActionType = "START"
	ActionLeave       ActionType = "LEAVE"
	ActionPressButton ActionType = "PRESS_BUTTON"
	ActionPickRack    ActionType = "PICK_RACK"
	ActionPickBoard   ActionType = "PICK_BOARD"
	ActionSteer       ActionType = "STEER"
	ActionPickClock   ActionType = "PICK_CLOCK"
)

// Action is one decoded player input. Puzzle may be empty for actions aimed at
// the active box.
type Action struct {
	Type    ActionType `json:"type"`
	Puzzle  PuzzleID   `json:"puzzle,omitempty"`
	Index   int        `json:"index,omitempty"`
	X       float64    `json:"x,omitempty"`
	Y       float64    `json:"y,omitempty"`
	ActorID string     `json:"-"`
}

// cell reads X,Y as whole board coordinates.
func (a Action) cell() (int, int, error) {
	if a.X != math.Trunc(a.X) || a.Y != math.Trunc(a.Y) {
		return 0, 0, fmt.Errorf("%s needs whole coordinates, got %v,%v: %w", a.Type, a.X, a.Y, ErrInvalidAction)
	}
	return int(a.X), int(a.Y), nil
}

func unsupported(id PuzzleID, a Action) error {
	return fmt.Errorf("%s does not take %s: %w", id, a.Type, ErrInvalidAction)
}
