package engine

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/MRamiBalles/SalaTrece/server/internal/domain/grid"
	"github.com/MRamiBalles/SalaTrece/server/internal/domain/snake"
	"github.com/MRamiBalles/SalaTrece/server/internal/events"
)

// SnakeTickPayload is attached to SNAKE_TICK events.
type SnakeTickPayload struct {
	Moved []int `json:"moved,omitempty"`
	Score int   `json:"score"`
}

// SnakeAtePayload is attached to SNAKE_ATE events.
type SnakeAtePayload struct {
	Index  int `json:"index"`
	Length int `json:"length"`
}

// SnakeDiedPayload is attached to SNAKE_DIED events.
type SnakeDiedPayload struct {
	Index  int      `json:"index"`
	Head   grid.Pos `json:"head"`
	Length int      `json:"length"`
}

// FoodSpawnedPayload is attached to FOOD_SPAWNED events.
type FoodSpawnedPayload struct {
	Cell grid.Pos `json:"cell"`
}

// SnakeTarget is the steering point, when one is set.
type SnakeTarget struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// SnakeView is the snake board as clients see it.
type SnakeView struct {
	Phase  Phase        `json:"phase"`
	Width  int          `json:"width"`
	Height int          `json:"height"`
	Goal   int          `json:"goal"`
	Score  int          `json:"score"`
	Snakes []snake.View `json:"snakes"`
	Food   []grid.Pos   `json:"food"`
	Target *SnakeTarget `json:"target,omitempty"`
}

// SnakeSystem hosts the snake board. It starts from START and steps on its
// own cadence, independent of the frame rate.
type SnakeSystem struct {
	session
	puzzle  *snake.Puzzle
	cadence *Cadence
}

func NewSnakeSystem(cfg snake.Config, interval time.Duration, deps Deps) (*SnakeSystem, error) {
	p, err := snake.New(cfg, deps.Source)
	if err != nil {
		return nil, fmt.Errorf("snake: %w", err)
	}
	return &SnakeSystem{
		session: newSession(PuzzleSnake, deps),
		puzzle:  p,
		cadence: NewCadence(interval),
	}, nil
}

func (ss *SnakeSystem) Reset(now time.Time) {
	ss.rewind()
	ss.puzzle.Reset()
	ss.cadence.Reset()
}

func (ss *SnakeSystem) Start(now time.Time) bool { return ss.begin(now, "") }

func (ss *SnakeSystem) Stop() { ss.cadence.Reset() }

func (ss *SnakeSystem) Update(now time.Time, dt time.Duration) {
	if !ss.running() || !ss.puzzle.Running() {
		return
	}
	if ss.cadence.Advance(dt) {
		ss.step()
	}
}

// step runs one board tick and reports it.
func (ss *SnakeSystem) step() {
	r := ss.puzzle.Tick()
	ss.metrics.RecordPuzzleTick()
	ss.emit(events.EventTypeSnakeTick, "", events.OutcomeNeutral, SnakeTickPayload{
		Moved: r.Moved,
		Score: ss.puzzle.Score(),
	})
	views := ss.puzzle.Snakes()
	for _, i := range r.Ate {
		ss.emit(events.EventTypeSnakeAte, "", events.OutcomeGood, SnakeAtePayload{
			Index:  i,
			Length: len(views[i].Body),
		})
	}
	for _, i := range r.Died {
		ss.emit(events.EventTypeSnakeDied, "", events.OutcomeBad, SnakeDiedPayload{
			Index:  i,
			Head:   views[i].Body[0],
			Length: len(views[i].Body),
		})
		ss.logger.Info("snake died", zap.Int("index", i), zap.Int("length", len(views[i].Body)))
	}
	for _, c := range r.Spawned {
		ss.emit(events.EventTypeFoodSpawned, "", events.OutcomeNeutral, FoodSpawnedPayload{Cell: c})
	}
}

func (ss *SnakeSystem) Handle(a Action, now time.Time) error {
	switch a.Type {
	case ActionStart:
		ss.begin(now, a.ActorID)
		return nil
	case ActionSteer:
		ss.puzzle.SetTarget(a.X, a.Y)
		return nil
	}
	return unsupported(ss.id, a)
}

func (ss *SnakeSystem) IsSolved() bool { return ss.running() && ss.puzzle.IsSolved() }
func (ss *SnakeSystem) IsFailed() bool { return ss.running() && ss.puzzle.IsFailed() }

func (ss *SnakeSystem) View() interface{} {
	cfg := ss.puzzle.Config()
	v := SnakeView{
		Phase:  ss.phase,
		Width:  cfg.Width,
		Height: cfg.Height,
		Goal:   cfg.GoalLength,
		Score:  ss.puzzle.Score(),
		Snakes: ss.puzzle.Snakes(),
		Food:   ss.puzzle.Food(),
	}
	if x, y, ok := ss.puzzle.Target(); ok {
		v.Target = &SnakeTarget{X: x, Y: y}
	}
	return v
}

// Puzzle exposes the model for scripted play.
func (ss *SnakeSystem) Puzzle() *snake.Puzzle { return ss.puzzle }
