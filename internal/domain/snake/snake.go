// Package snake models the snake board: snakes crawl one cell per tick toward
// a steering target, grow on food and die on walls or bodies.
// Board coordinates have Y growing upwards.
// This package is PURE and must NOT import any infrastructure packages.
package snake

import (
	"errors"
	"fmt"
	"math"

	"github.com/MRamiBalles/SalaTrece/server/internal/domain/chance"
	"github.com/MRamiBalles/SalaTrece/server/internal/domain/grid"
)

var (
	ErrIndexOutOfRange = errors.New("snake: index out of range")
	ErrInvalidConfig   = errors.New("snake: invalid config")
)

// Spawn places one snake. Body is head first.
type Spawn struct {
	Body      []grid.Pos
	Direction grid.Direction
}

type Config struct {
	Width      int
	Height     int
	GoalLength int
	// SpawnAttempts caps random food placement before falling back to a scan
	// of the free cells.
	SpawnAttempts int
	Spawns        []Spawn
}

// DefaultConfig is a 10x10 board with one two-segment snake in the centre
// heading up.
func DefaultConfig() Config {
	c := grid.Pos{X: 5, Y: 5}
	return Config{
		Width:         10,
		Height:        10,
		GoalLength:    13,
		SpawnAttempts: 64,
		Spawns:        []Spawn{{Body: []grid.Pos{c, c}, Direction: grid.Up}},
	}
}

func (c Config) validate() error {
	if c.Width < 1 || c.Height < 1 || c.GoalLength < 1 {
		return fmt.Errorf("board %dx%d goal %d: %w", c.Width, c.Height, c.GoalLength, ErrInvalidConfig)
	}
	if len(c.Spawns) == 0 {
		return fmt.Errorf("no snakes: %w", ErrInvalidConfig)
	}
	for i, s := range c.Spawns {
		if len(s.Body) == 0 {
			return fmt.Errorf("snake %d has no body: %w", i, ErrInvalidConfig)
		}
		for _, p := range s.Body {
			if !p.In(c.Width, c.Height) {
				return fmt.Errorf("snake %d segment %s off board: %w", i, p, ErrInvalidConfig)
			}
		}
	}
	return nil
}

// Snake is one crawler.
type Snake struct {
	body      []grid.Pos
	direction grid.Direction
	alive     bool
}

func (s *Snake) head() grid.Pos { return s.body[0] }
func (s *Snake) tail() grid.Pos { return s.body[len(s.body)-1] }

// View is a copy of a snake's state.
type View struct {
	Body      []grid.Pos     `json:"body"`
	Direction grid.Direction `json:"direction"`
	Alive     bool           `json:"alive"`
}

// Report lists what one tick did.
type Report struct {
	Moved   []int      `json:"moved,omitempty"`
	Ate     []int      `json:"ate,omitempty"`
	Died    []int      `json:"died,omitempty"`
	Spawned []grid.Pos `json:"spawned,omitempty"`
}

// Puzzle is the board.
type Puzzle struct {
	cfg    Config
	src    chance.Source
	snakes []*Snake
	food   []grid.Pos
	target *[2]float64
	solved bool
	failed bool
}

func New(cfg Config, src chance.Source) (*Puzzle, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.SpawnAttempts < 1 {
		cfg.SpawnAttempts = 1
	}
	p := &Puzzle{cfg: cfg, src: src}
	p.Reset()
	return p, nil
}

// Reset puts every snake back on its spawn, clears food, steering and latches.
func (p *Puzzle) Reset() {
	p.snakes = p.snakes[:0]
	for _, s := range p.cfg.Spawns {
		p.snakes = append(p.snakes, &Snake{
			body:      append([]grid.Pos(nil), s.Body...),
			direction: s.Direction,
			alive:     true,
		})
	}
	p.food = nil
	p.target = nil
	p.solved = false
	p.failed = false
}

// SetTarget steers every snake toward the board-space point x,y. The point
// may lie off the board.
func (p *Puzzle) SetTarget(x, y float64) {
	p.target = &[2]float64{x, y}
}

func (p *Puzzle) ClearTarget() { p.target = nil }

// AddFood drops food on pos. It reports false when the cell already holds
// food or any snake segment.
func (p *Puzzle) AddFood(pos grid.Pos) (bool, error) {
	if !pos.In(p.cfg.Width, p.cfg.Height) {
		return false, fmt.Errorf("food at %s: %w", pos, ErrIndexOutOfRange)
	}
	if !p.isEmpty(pos) {
		return false, nil
	}
	p.food = append(p.food, pos)
	return true, nil
}

// Tick advances every living snake one cell. Moves are resolved against the
// board as it stood when the tick began, so snake order never matters.
func (p *Puzzle) Tick() Report {
	var rep Report
	if !p.Running() {
		return rep
	}

	// Cells blocked this tick: every living body minus the tail it vacates.
	blocked := map[grid.Pos]bool{}
	for _, s := range p.snakes {
		if !s.alive {
			continue
		}
		for _, b := range s.body[:len(s.body)-1] {
			blocked[b] = true
		}
	}

	dest := make([]grid.Pos, len(p.snakes))
	dying := make([]bool, len(p.snakes))
	heads := map[grid.Pos]int{}
	for i, s := range p.snakes {
		if !s.alive {
			continue
		}
		if p.target != nil {
			if d := steer(s.head(), *p.target); !blocked[s.head().Add(d.Delta())] {
				s.direction = d
			}
		}
		dest[i] = s.head().Add(s.direction.Delta())
		if !dest[i].In(p.cfg.Width, p.cfg.Height) || blocked[dest[i]] {
			dying[i] = true
			continue
		}
		heads[dest[i]]++
	}
	for i, s := range p.snakes {
		if s.alive && !dying[i] && heads[dest[i]] > 1 {
			dying[i] = true
		}
	}
	// A dying snake keeps its tail, which may now block a mover.
	for changed := true; changed; {
		changed = false
		for i, s := range p.snakes {
			if !s.alive || dying[i] {
				continue
			}
			for j, o := range p.snakes {
				if j != i && o.alive && dying[j] && o.tail() == dest[i] {
					dying[i] = true
					changed = true
					break
				}
			}
		}
	}

	for i, s := range p.snakes {
		if !s.alive {
			continue
		}
		if dying[i] {
			s.alive = false
			p.failed = true
			rep.Died = append(rep.Died, i)
			continue
		}
		last := s.tail()
		s.body = s.body[:len(s.body)-1]
		if k := p.foodAt(dest[i]); k >= 0 {
			if n := len(s.body); n > 0 {
				last = s.body[n-1]
			}
			s.body = append(s.body, last)
			p.food = append(p.food[:k], p.food[k+1:]...)
			rep.Ate = append(rep.Ate, i)
		}
		s.body = append([]grid.Pos{dest[i]}, s.body...)
		rep.Moved = append(rep.Moved, i)
	}

	if len(p.food) == 0 {
		if pos, ok := p.spawnFood(); ok {
			p.food = append(p.food, pos)
			rep.Spawned = append(rep.Spawned, pos)
		}
	}
	return rep
}

// steer picks the axis with the larger distance; ties go horizontal.
func steer(head grid.Pos, target [2]float64) grid.Direction {
	dx := target[0] - float64(head.X)
	dy := target[1] - float64(head.Y)
	if math.Abs(dy) > math.Abs(dx) {
		if dy < 0 {
			return grid.Down
		}
		return grid.Up
	}
	if dx < 0 {
		return grid.Left
	}
	return grid.Right
}

func (p *Puzzle) spawnFood() (grid.Pos, bool) {
	w, h := p.cfg.Width, p.cfg.Height
	for i := 0; i < p.cfg.SpawnAttempts; i++ {
		pos := grid.Pos{X: p.src.Intn(w), Y: p.src.Intn(h)}
		if p.isEmpty(pos) {
			return pos, true
		}
	}
	var free []grid.Pos
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if pos := (grid.Pos{X: x, Y: y}); p.isEmpty(pos) {
				free = append(free, pos)
			}
		}
	}
	if len(free) == 0 {
		return grid.Pos{}, false
	}
	return chance.Sample(p.src, free), true
}

// isEmpty is true for cells with no food and no segment of any snake, tails
// and dead snakes included.
func (p *Puzzle) isEmpty(pos grid.Pos) bool {
	if p.foodAt(pos) >= 0 {
		return false
	}
	for _, s := range p.snakes {
		for _, b := range s.body {
			if b == pos {
				return false
			}
		}
	}
	return true
}

func (p *Puzzle) foodAt(pos grid.Pos) int {
	for i, f := range p.food {
		if f == pos {
			return i
		}
	}
	return -1
}

// IsSolved latches once any snake reaches the goal length.
func (p *Puzzle) IsSolved() bool {
	if p.solved {
		return true
	}
	for _, s := range p.snakes {
		if len(s.body) >= p.cfg.GoalLength {
			p.solved = true
		}
	}
	return p.solved
}

// IsFailed is set the tick any snake dies.
func (p *Puzzle) IsFailed() bool { return p.failed }

// Running reports whether any snake is still alive.
func (p *Puzzle) Running() bool {
	for _, s := range p.snakes {
		if s.alive {
			return true
		}
	}
	return false
}

// Score is the first snake's length.
func (p *Puzzle) Score() int { return len(p.snakes[0].body) }

func (p *Puzzle) Config() Config { return p.cfg }

func (p *Puzzle) Food() []grid.Pos { return append([]grid.Pos(nil), p.food...) }

// Target returns the steering point, if any.
func (p *Puzzle) Target() (x, y float64, ok bool) {
	if p.target == nil {
		return 0, 0, false
	}
	return p.target[0], p.target[1], true
}

func (p *Puzzle) Snakes() []View {
	out := make([]View, len(p.snakes))
	for i, s := range p.snakes {
		out[i] = View{Body: append([]grid.Pos(nil), s.body...), Direction: s.direction, Alive: s.alive}
	}
	return out
}
