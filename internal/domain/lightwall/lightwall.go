// Package lightwall models the button wall: a board of lights that must be
// switched off into a hidden picture. Correct buttons each clear their own
// share of the picture's dark cells; reset buttons relight the whole board.
// This package is PURE and must NOT import any infrastructure packages.
package lightwall

import (
	"errors"
	"fmt"

	"github.com/MRamiBalles/SalaTrece/server/internal/domain/chance"
	"github.com/MRamiBalles/SalaTrece/server/internal/domain/grid"
)

var (
	ErrIndexOutOfRange = errors.New("lightwall: index out of range")
	ErrInvalidSolution = errors.New("lightwall: invalid solution")
)

const (
	DefaultCorrectButtons = 13
	DefaultResetButtons   = 5
)

// DefaultSolution spells "13" in unlit cells; 1 stays lit, 0 must go dark.
var DefaultSolution = [][]int{
	{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0},
	{0, 0, 0, 1, 1, 0, 0, 1, 1, 1, 0, 0, 0},
	{0, 0, 1, 0, 1, 0, 0, 0, 0, 0, 1, 0, 0},
	{0, 0, 0, 0, 1, 0, 0, 0, 1, 1, 0, 0, 0},
	{0, 0, 0, 0, 1, 0, 0, 0, 0, 0, 1, 0, 0},
	{0, 0, 0, 0, 1, 0, 0, 1, 0, 0, 1, 0, 0},
	{0, 0, 1, 1, 1, 1, 0, 0, 1, 1, 0, 0, 0},
	{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0},
}

// Outcome is what a press did to the board.
type Outcome int

const (
	// OutcomeNoop: the button was already on.
	OutcomeNoop Outcome = iota
	// OutcomeCleared: a correct button switched its lights off.
	OutcomeCleared
	// OutcomeReset: a reset button relit the whole board.
	OutcomeReset
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCleared:
		return "cleared"
	case OutcomeReset:
		return "reset"
	}
	return "noop"
}

// MarshalText encodes the outcome by name.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

type button struct {
	reset bool
	cells []grid.Pos
	on    bool
}

// ButtonView is a render-agnostic copy of one button.
type ButtonView struct {
	Index int  `json:"index"`
	On    bool `json:"on"`
}

// Puzzle is the light wall. Board rows are indexed [y][x], y growing downwards.
type Puzzle struct {
	solution [][]bool // true = lit
	board    [][]bool
	buttons  []*button
	solved   bool
}

// New deals the solution's dark cells round-robin across correct buttons, adds
// reset buttons and shuffles the wall. When the picture has fewer dark cells
// than requested correct buttons, the correct button count shrinks to match so
// that every correct button owns at least one cell.
func New(solution [][]int, correct, resets int, src chance.Source) (*Puzzle, error) {
	if len(solution) == 0 || len(solution[0]) == 0 {
		return nil, fmt.Errorf("empty board: %w", ErrInvalidSolution)
	}
	if correct < 1 || resets < 0 {
		return nil, fmt.Errorf("buttons correct=%d reset=%d: %w", correct, resets, ErrInvalidSolution)
	}

	width := len(solution[0])
	p := &Puzzle{solution: make([][]bool, len(solution))}
	var dark []grid.Pos
	for y, row := range solution {
		if len(row) != width {
			return nil, fmt.Errorf("row %d has %d cells, want %d: %w", y, len(row), width, ErrInvalidSolution)
		}
		p.solution[y] = make([]bool, width)
		for x, v := range row {
			switch v {
			case 0:
				dark = append(dark, grid.Pos{X: x, Y: y})
			case 1:
				p.solution[y][x] = true
			default:
				return nil, fmt.Errorf("cell %d,%d = %d: %w", x, y, v, ErrInvalidSolution)
			}
		}
	}
	if len(dark) == 0 {
		return nil, fmt.Errorf("nothing to switch off: %w", ErrInvalidSolution)
	}

	chance.Shuffle(src, dark)
	if correct > len(dark) {
		correct = len(dark)
	}
	for i := 0; i < correct; i++ {
		p.buttons = append(p.buttons, &button{})
	}
	for i, cell := range dark {
		b := p.buttons[i%correct]
		b.cells = append(b.cells, cell)
	}
	for i := 0; i < resets; i++ {
		p.buttons = append(p.buttons, &button{reset: true})
	}
	chance.Shuffle(src, p.buttons)

	p.Reset()
	return p, nil
}

// Press activates button i.
func (p *Puzzle) Press(i int) (Outcome, error) {
	if i < 0 || i >= len(p.buttons) {
		return OutcomeNoop, fmt.Errorf("press button %d of %d: %w", i, len(p.buttons), ErrIndexOutOfRange)
	}
	b := p.buttons[i]
	if b.on {
		return OutcomeNoop, nil
	}
	if b.reset {
		p.Reset()
		return OutcomeReset, nil
	}
	for _, c := range b.cells {
		p.board[c.Y][c.X] = false
	}
	b.on = true
	return OutcomeCleared, nil
}

// IsSolved compares the board with the picture cell for cell. Latches.
func (p *Puzzle) IsSolved() bool {
	if p.solved {
		return true
	}
	for y, row := range p.solution {
		for x, want := range row {
			if p.board[y][x] != want {
				return false
			}
		}
	}
	p.solved = true
	return true
}

// Reset relights the board and releases every button. Cell ownership is kept.
func (p *Puzzle) Reset() {
	p.solved = false
	for _, b := range p.buttons {
		b.on = false
	}
	p.board = make([][]bool, len(p.solution))
	for y, row := range p.solution {
		p.board[y] = make([]bool, len(row))
		for x := range row {
			p.board[y][x] = true
		}
	}
}

func (p *Puzzle) Width() int  { return len(p.solution[0]) }
func (p *Puzzle) Height() int { return len(p.solution) }
func (p *Puzzle) Len() int    { return len(p.buttons) }

// Board copies the current lights (true = lit).
func (p *Puzzle) Board() [][]bool {
	return cloneRows(p.board)
}

// Solution copies the target picture (true = lit).
func (p *Puzzle) Solution() [][]bool {
	return cloneRows(p.solution)
}

// Buttons copies the on flags in display order.
func (p *Puzzle) Buttons() []ButtonView {
	out := make([]ButtonView, len(p.buttons))
	for i, b := range p.buttons {
		out[i] = ButtonView{Index: i, On: b.on}
	}
	return out
}

// Cells returns the board cells button i switches off; reset buttons own none.
func (p *Puzzle) Cells(i int) ([]grid.Pos, error) {
	if i < 0 || i >= len(p.buttons) {
		return nil, fmt.Errorf("button %d of %d: %w", i, len(p.buttons), ErrIndexOutOfRange)
	}
	return append([]grid.Pos(nil), p.buttons[i].cells...), nil
}

// IsReset reports whether button i is a reset button.
func (p *Puzzle) IsReset(i int) bool {
	return i >= 0 && i < len(p.buttons) && p.buttons[i].reset
}

func cloneRows(rows [][]bool) [][]bool {
	out := make([][]bool, len(rows))
	for y, row := range rows {
		out[y] = append([]bool(nil), row...)
	}
	return out
}
