package engine

import (
	"fmt"
	"time"

	"github.com/MRamiBalles/SalaTrece/server/internal/domain/lightwall"
	"github.com/MRamiBalles/SalaTrece/server/internal/events"
)

// ButtonPressedPayload is attached to BUTTON_PRESSED and BOARD_RESET events.
type ButtonPressedPayload struct {
	Index   int               `json:"index"`
	Outcome lightwall.Outcome `json:"outcome"`
}

// LightwallView is the light wall as clients see it.
type LightwallView struct {
	Phase   Phase                  `json:"phase"`
	Board   [][]bool               `json:"board"`
	Buttons []lightwall.ButtonView `json:"buttons"`
}

// LightwallSystem hosts the button wall. The first press starts it.
type LightwallSystem struct {
	session
	puzzle *lightwall.Puzzle
}

func NewLightwallSystem(solution [][]int, correct, resets int, deps Deps) (*LightwallSystem, error) {
	p, err := lightwall.New(solution, correct, resets, deps.Source)
	if err != nil {
		return nil, fmt.Errorf("light wall: %w", err)
	}
	return &LightwallSystem{session: newSession(PuzzleLightwall, deps), puzzle: p}, nil
}

// Reset relights the wall; button wiring is kept for the life of the room.
func (ls *LightwallSystem) Reset(now time.Time) {
	ls.rewind()
	ls.puzzle.Reset()
}

func (ls *LightwallSystem) Start(now time.Time) bool { return ls.begin(now, "") }

// Stop and Update are no-ops: nothing here runs against the clock.
func (ls *LightwallSystem) Stop() {}

func (ls *LightwallSystem) Update(time.Time, time.Duration) {}

func (ls *LightwallSystem) Handle(a Action, now time.Time) error {
	switch a.Type {
	case ActionStart:
		ls.begin(now, a.ActorID)
		return nil
	case ActionPressButton:
		return ls.press(a, now)
	}
	return unsupported(ls.id, a)
}

func (ls *LightwallSystem) press(a Action, now time.Time) error {
	if a.Index < 0 || a.Index >= ls.puzzle.Len() {
		_, err := ls.puzzle.Press(a.Index)
		return err
	}
	ls.begin(now, a.ActorID)
	out, err := ls.puzzle.Press(a.Index)
	if err != nil {
		return err
	}
	payload := ButtonPressedPayload{Index: a.Index, Outcome: out}
	switch out {
	case lightwall.OutcomeCleared:
		ls.emit(events.EventTypeButtonPressed, a.ActorID, events.OutcomeGood, payload)
	case lightwall.OutcomeReset:
		ls.emit(events.EventTypeBoardReset, a.ActorID, events.OutcomeBad, payload)
	}
	return nil
}

func (ls *LightwallSystem) IsSolved() bool { return ls.running() && ls.puzzle.IsSolved() }

// IsFailed is always false: the wall can only be reset, never lost.
func (ls *LightwallSystem) IsFailed() bool { return false }

func (ls *LightwallSystem) View() interface{} {
	return LightwallView{Phase: ls.phase, Board: ls.puzzle.Board(), Buttons: ls.puzzle.Buttons()}
}

// Puzzle exposes the model for scripted play.
func (ls *LightwallSystem) Puzzle() *lightwall.Puzzle { return ls.puzzle }
