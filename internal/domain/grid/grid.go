// Package grid holds the small value types shared by the board puzzles.
// This package is PURE and must NOT import any infrastructure packages.
package grid

import "fmt"

// Pos is a board cell. Y grows upwards for the snake board and downwards for
// row-major boards; each puzzle documents its own orientation.
type Pos struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Add returns p translated by d.
func (p Pos) Add(d Pos) Pos {
	return Pos{X: p.X + d.X, Y: p.Y + d.Y}
}

// In reports whether p lies inside a width x height board.
func (p Pos) In(width, height int) bool {
	return p.X >= 0 && p.X < width && p.Y >= 0 && p.Y < height
}

func (p Pos) String() string {
	return fmt.Sprintf("%d,%d", p.X, p.Y)
}

// Direction is one of the four axis moves.
type Direction int

const (
	Up Direction = iota
	Down
	Left
	Right
)

var deltas = [...]Pos{
	Up:    {X: 0, Y: 1},
	Down:  {X: 0, Y: -1},
	Left:  {X: -1, Y: 0},
	Right: {X: 1, Y: 0},
}

// Delta is the unit step for d.
func (d Direction) Delta() Pos {
	return deltas[d]
}

func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Down:
		return "down"
	case Left:
		return "left"
	case Right:
		return "right"
	}
	return fmt.Sprintf("Direction(%d)", int(d))
}

// MarshalText encodes the direction by name.
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}
