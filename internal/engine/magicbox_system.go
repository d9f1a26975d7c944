package engine

import (
	"time"

	"github.com/MRamiBalles/SalaTrece/server/internal/domain/grid"
	"github.com/MRamiBalles/SalaTrece/server/internal/domain/magicbox"
	"github.com/MRamiBalles/SalaTrece/server/internal/events"
)

// TilePickedPayload is attached to TILE_PICKED events.
type TilePickedPayload struct {
	From     string           `json:"from"` // "rack" or "board"
	Index    int              `json:"index,omitempty"`
	Cell     *grid.Pos        `json:"cell,omitempty"`
	Outcome  magicbox.Outcome `json:"outcome"`
	Selected int              `json:"selected"`
}

// LineSum is one row, column or diagonal total.
type LineSum struct {
	Raw      int     `json:"raw"`
	Display  float64 `json:"display"`
	OnTarget bool    `json:"on_target"`
}

// MagicBoxView is the magic square as clients see it.
type MagicBoxView struct {
	Phase    Phase                             `json:"phase"`
	Board    [magicbox.Size][magicbox.Size]int `json:"board"`
	Clues    []grid.Pos                        `json:"clues"`
	Rack     []int                             `json:"rack"`
	Selected int                               `json:"selected"`
	Rows     []LineSum                         `json:"rows"`
	Cols     []LineSum                         `json:"cols"`
	Diagonal [2]LineSum                        `json:"diagonals"`
}

// MagicBoxSystem hosts the magic square. The first pick starts it.
type MagicBoxSystem struct {
	session
	puzzle *magicbox.Puzzle
	clues  []grid.Pos
}

func NewMagicBoxSystem(deps Deps) *MagicBoxSystem {
	return &MagicBoxSystem{
		session: newSession(PuzzleMagicBox, deps),
		puzzle:  magicbox.NewDefault(deps.Source),
		clues:   magicbox.DefaultClues,
	}
}

func (ms *MagicBoxSystem) Reset(now time.Time) {
	ms.rewind()
	ms.puzzle.Reset()
}

func (ms *MagicBoxSystem) Start(now time.Time) bool { return ms.begin(now, "") }

// Stop and Update are no-ops: nothing here runs against the clock.
func (ms *MagicBoxSystem) Stop() {}

func (ms *MagicBoxSystem) Update(time.Time, time.Duration) {}

func (ms *MagicBoxSystem) Handle(a Action, now time.Time) error {
	switch a.Type {
	case ActionStart:
		ms.begin(now, a.ActorID)
		return nil
	case ActionPickRack:
		if a.Index < 0 || a.Index >= len(ms.puzzle.Rack()) {
			_, err := ms.puzzle.PickRack(a.Index)
			return err
		}
		ms.begin(now, a.ActorID)
		out, err := ms.puzzle.PickRack(a.Index)
		if err != nil {
			return err
		}
		ms.picked(a.ActorID, TilePickedPayload{From: "rack", Index: a.Index, Outcome: out})
		return nil
	case ActionPickBoard:
		x, y, err := a.cell()
		if err != nil {
			return err
		}
		if !(grid.Pos{X: x, Y: y}).In(magicbox.Size, magicbox.Size) {
			_, err := ms.puzzle.PickBoard(x, y)
			return err
		}
		ms.begin(now, a.ActorID)
		out, err := ms.puzzle.PickBoard(x, y)
		if err != nil || out == magicbox.OutcomeNoop {
			return err
		}
		ms.picked(a.ActorID, TilePickedPayload{From: "board", Cell: &grid.Pos{X: x, Y: y}, Outcome: out})
		return nil
	}
	return unsupported(ms.id, a)
}

func (ms *MagicBoxSystem) picked(actor string, p TilePickedPayload) {
	p.Selected = ms.puzzle.Selected()
	ms.emit(events.EventTypeTilePicked, actor, events.OutcomeNeutral, p)
}

func (ms *MagicBoxSystem) IsSolved() bool { return ms.running() && ms.puzzle.IsSolved() }

// IsFailed is always false: tiles can be moved forever.
func (ms *MagicBoxSystem) IsFailed() bool { return false }

func line(raw int) LineSum {
	return LineSum{Raw: raw, Display: magicbox.Display(raw), OnTarget: magicbox.OnTarget(raw)}
}

func (ms *MagicBoxSystem) View() interface{} {
	v := MagicBoxView{
		Phase:    ms.phase,
		Board:    ms.puzzle.Board(),
		Clues:    append([]grid.Pos(nil), ms.clues...),
		Rack:     ms.puzzle.Rack(),
		Selected: ms.puzzle.Selected(),
		Diagonal: [2]LineSum{line(ms.puzzle.DiagSum(false)), line(ms.puzzle.DiagSum(true))},
	}
	for i := 0; i < magicbox.Size; i++ {
		v.Rows = append(v.Rows, line(ms.puzzle.RowSum(i)))
		v.Cols = append(v.Cols, line(ms.puzzle.ColSum(i)))
	}
	return v
}

// Puzzle exposes the model for scripted play.
func (ms *MagicBoxSystem) Puzzle() *magicbox.Puzzle { return ms.puzzle }
