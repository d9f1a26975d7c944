// Package magicbox models the magic square tile puzzle. Tiles carry a value of
// base*10 + tag so that no two tiles compare equal while every complete line
// still reads as the same base sum once the display scale is applied.
// This package is PURE and must NOT import any infrastructure packages.
package magicbox

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/MRamiBalles/SalaTrece/server/internal/domain/chance"
	"github.com/MRamiBalles/SalaTrece/server/internal/domain/grid"
)

var (
	ErrIndexOutOfRange = errors.New("magicbox: index out of range")
	ErrInvalidSolution = errors.New("magicbox: invalid solution")
)

const (
	Size = 3
	// DisplayScale converts raw tile sums to the number shown to the player.
	DisplayScale = 10
	// DisplayTarget is the sum every complete line shows.
	DisplayTarget = 13

	lineTotal = 129
	lineShown = 130
)

// DefaultSolution is indexed [y][x].
var DefaultSolution = [Size][Size]int{
	{13, 83, 33},
	{63, 43, 23},
	{53, 3, 73},
}

// DefaultClues are the pre-filled cells.
var DefaultClues = []grid.Pos{{X: 0, Y: 0}, {X: 0, Y: 1}, {X: 1, Y: 2}}

// Outcome of a pick.
type Outcome int

const (
	OutcomeNoop Outcome = iota
	OutcomeTaken
	OutcomePlaced
	OutcomeSwapped
)

func (o Outcome) String() string {
	switch o {
	case OutcomeTaken:
		return "taken"
	case OutcomePlaced:
		return "placed"
	case OutcomeSwapped:
		return "swapped"
	}
	return "noop"
}

// MarshalText encodes the outcome by name.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Puzzle holds the board, the rack of unplaced tiles and the tile in hand.
// Zero means empty everywhere.
type Puzzle struct {
	solution [Size][Size]int
	clue     [Size][Size]bool
	board    [Size][Size]int
	rack     []int
	selected int
	src      chance.Source
}

// New validates the solution and clue set, then deals a shuffled rack.
func New(solution [Size][Size]int, clues []grid.Pos, src chance.Source) (*Puzzle, error) {
	p := &Puzzle{solution: solution, src: src}
	for y := range solution {
		for x, v := range solution[y] {
			if v <= 0 {
				return nil, fmt.Errorf("cell %d,%d = %d: %w", x, y, v, ErrInvalidSolution)
			}
		}
	}
	for _, c := range clues {
		if !c.In(Size, Size) {
			return nil, fmt.Errorf("clue %s: %w", c, ErrInvalidSolution)
		}
		p.clue[c.Y][c.X] = true
	}
	p.Reset()
	return p, nil
}

// NewDefault builds the standard box.
func NewDefault(src chance.Source) *Puzzle {
	p, err := New(DefaultSolution, DefaultClues, src)
	if err != nil {
		panic(err)
	}
	return p
}

// Reset clears the hand, refills clue cells from the solution and reshuffles
// every other tile onto the rack.
func (p *Puzzle) Reset() {
	p.selected = 0
	p.board = [Size][Size]int{}
	p.rack = p.rack[:0]
	for y := range p.solution {
		for x, v := range p.solution[y] {
			if p.clue[y][x] {
				p.board[y][x] = v
			} else {
				p.rack = append(p.rack, v)
			}
		}
	}
	chance.Shuffle(p.src, p.rack)
}

// PickRack takes rack tile i into the hand; a tile already in hand goes to
// the back of the rack.
func (p *Puzzle) PickRack(i int) (Outcome, error) {
	if i < 0 || i >= len(p.rack) {
		return OutcomeNoop, fmt.Errorf("rack tile %d of %d: %w", i, len(p.rack), ErrIndexOutOfRange)
	}
	val := p.rack[i]
	p.rack = append(p.rack[:i], p.rack[i+1:]...)
	out := OutcomeTaken
	if p.selected != 0 {
		p.rack = append(p.rack, p.selected)
		out = OutcomeSwapped
	}
	p.selected = val
	return out, nil
}

// PickBoard swaps the hand with the board cell at x,y. Clue cells are
// untouchable, as is an empty cell picked with an empty hand.
func (p *Puzzle) PickBoard(x, y int) (Outcome, error) {
	pos := grid.Pos{X: x, Y: y}
	if !pos.In(Size, Size) {
		return OutcomeNoop, fmt.Errorf("board cell %s: %w", pos, ErrIndexOutOfRange)
	}
	if p.clue[y][x] {
		return OutcomeNoop, nil
	}
	held, cell := p.selected, p.board[y][x]
	if held == 0 && cell == 0 {
		return OutcomeNoop, nil
	}
	p.board[y][x], p.selected = held, cell
	switch {
	case cell == 0:
		return OutcomePlaced, nil
	case held == 0:
		return OutcomeTaken, nil
	}
	return OutcomeSwapped, nil
}

// IsSolved compares every cell with the solution. A tile still in hand does
// not block the result.
func (p *Puzzle) IsSolved() bool {
	return p.board == p.solution
}

// RowSum returns the raw sum of row y.
func (p *Puzzle) RowSum(y int) int {
	s := 0
	for x := 0; x < Size; x++ {
		s += p.board[y][x]
	}
	return shown(s)
}

// ColSum returns the raw sum of column x.
func (p *Puzzle) ColSum(x int) int {
	s := 0
	for y := 0; y < Size; y++ {
		s += p.board[y][x]
	}
	return shown(s)
}

// DiagSum returns the raw sum of the main diagonal (anti=false) or the
// anti-diagonal (anti=true).
func (p *Puzzle) DiagSum(anti bool) int {
	s := 0
	for i := 0; i < Size; i++ {
		if anti {
			s += p.board[i][Size-1-i]
		} else {
			s += p.board[i][i]
		}
	}
	return shown(s)
}

// Display scales a raw sum to what the player reads.
func Display(sum int) float64 {
	return float64(sum) / DisplayScale
}

// OnTarget reports whether a raw sum reads as the target.
func OnTarget(sum int) bool {
	return sum == DisplayTarget*DisplayScale
}

// complete lines of the default square total 129; show them as a round 13
func shown(sum int) int {
	if sum == lineTotal {
		return lineShown
	}
	return sum
}

func (p *Puzzle) Selected() int { return p.selected }

// Rack copies the unplaced tiles in display order.
func (p *Puzzle) Rack() []int { return append([]int(nil), p.rack...) }

func (p *Puzzle) Board() [Size][Size]int { return p.board }

func (p *Puzzle) IsClue(x, y int) bool {
	return grid.Pos{X: x, Y: y}.In(Size, Size) && p.clue[y][x]
}

// String renders the board one row per line followed by the rack.
func (p *Puzzle) String() string {
	var b strings.Builder
	for y := range p.board {
		for x, v := range p.board[y] {
			if x > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(strconv.Itoa(v))
		}
		b.WriteByte('\n')
	}
	b.WriteByte('*')
	for _, v := range p.rack {
		b.WriteString(strconv.Itoa(v))
		b.WriteByte('*')
	}
	return b.String()
}
