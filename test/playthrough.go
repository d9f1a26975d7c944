// Package test drives a whole room through scripted play on a synthetic
// clock. It backs cmd/test-runner and doubles as an end-to-end check of the
// engine against the real puzzle models.
package test

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/MRamiBalles/SalaTrece/server/internal/domain/chance"
	"github.com/MRamiBalles/SalaTrece/server/internal/domain/grid"
	"github.com/MRamiBalles/SalaTrece/server/internal/domain/magicbox"
	"github.com/MRamiBalles/SalaTrece/server/internal/engine"
	"github.com/MRamiBalles/SalaTrece/server/internal/events"
	"github.com/MRamiBalles/SalaTrece/server/internal/infra/archive"
	"github.com/MRamiBalles/SalaTrece/server/internal/platform/config"
	"github.com/MRamiBalles/SalaTrece/server/internal/platform/logger"
	"github.com/MRamiBalles/SalaTrece/server/internal/platform/metrics"
)

const (
	actor    = "playthrough"
	maxSteps = 1000
)

// Result captures the outcome of one box.
type Result struct {
	Puzzle  engine.PuzzleID
	Passed  bool
	Frames  int
	Elapsed time.Duration
	Reason  string
}

// Playthrough solves every box of a seeded room in order.
type Playthrough struct {
	cfg      config.Config
	room     *engine.Engine
	eventLog *events.EventLog
	archive  *archive.Writer
	logger   *logger.Logger
	metrics  *metrics.Collector

	now     time.Time
	frames  int
	results []Result
}

// NewPlaythrough builds the room. A non-empty archiveDir also writes the
// durable events there.
func NewPlaythrough(cfg config.Config, seed int64, archiveDir string, log *logger.Logger) (*Playthrough, error) {
	if log == nil {
		log = logger.Nop()
	}
	p := &Playthrough{
		cfg:     cfg,
		logger:  log,
		metrics: metrics.New(),
		now:     time.Date(2026, 3, 13, 13, 0, 0, 0, time.UTC),
	}
	var persister events.EventPersister
	if archiveDir != "" {
		p.archive = archive.NewWriter(archiveDir, cfg.RoomID, p.metrics)
		persister = p.archive
	}
	p.eventLog = events.NewEventLog(cfg.RoomID, persister)

	room, err := engine.NewEngine(cfg, engine.Deps{
		EventLog: p.eventLog,
		Logger:   log,
		Metrics:  p.metrics,
		Source:   chance.New(seed),
	})
	if err != nil {
		return nil, fmt.Errorf("playthrough: %w", err)
	}
	p.room = room
	return p, nil
}

// Run plays every box and returns one result per box.
func (p *Playthrough) Run() []Result {
	fmt.Println("\n" + strings.Repeat("=", 60))
	fmt.Printf("PLAYTHROUGH: %s\n", p.cfg.RoomID)
	fmt.Println(strings.Repeat("=", 60))

	scripts := map[engine.PuzzleID]func() error{
		engine.PuzzleTimer:     p.playTimer,
		engine.PuzzleLightwall: p.playLightwall,
		engine.PuzzleMagicBox:  p.playMagicBox,
		engine.PuzzleSnake:     p.playSnake,
	}
	for _, id := range p.room.Puzzles() {
		p.results = append(p.results, p.play(id, scripts[id]))
	}

	if p.archive != nil {
		if err := p.archive.Close(); err != nil {
			p.logger.Warn("archive close failed", zap.Error(err))
		}
	}
	if p.room.Snapshot().Completed {
		fmt.Println("\nRoom completed")
	}
	return p.results
}

func (p *Playthrough) play(id engine.PuzzleID, script func() error) Result {
	res := Result{Puzzle: id}
	start, frames := p.now, p.frames

	err := p.do(engine.Action{Type: engine.ActionOpen, Puzzle: id})
	if err == nil {
		err = script()
	}
	res.Frames = p.frames - frames
	res.Elapsed = p.now.Sub(start)

	switch {
	case err != nil:
		res.Reason = err.Error()
	case !p.solved(id):
		res.Reason = "box still locked after the script"
	default:
		res.Passed = true
		res.Reason = "solved"
	}
	mark := "PASS"
	if !res.Passed {
		mark = "FAIL"
	}
	fmt.Printf("  %s %-10s frames=%-5d elapsed=%-8v %s\n", mark, id, res.Frames, res.Elapsed, res.Reason)
	p.logger.Info("box played",
		zap.String("puzzle", string(id)), zap.Bool("passed", res.Passed), zap.Int("frames", res.Frames))
	return res
}

func (p *Playthrough) do(a engine.Action) error {
	a.ActorID = actor
	return p.room.HandleAction(a, p.now)
}

// advance moves the synthetic clock and runs one frame.
func (p *Playthrough) advance(dt time.Duration) {
	p.now = p.now.Add(dt)
	p.frames++
	p.room.Advance(p.now, dt)
}

// settle runs one frame so the room notices a finished box.
func (p *Playthrough) settle() { p.advance(p.cfg.FrameInterval()) }

func (p *Playthrough) solved(id engine.PuzzleID) bool {
	for _, b := range p.room.Snapshot().Boxes {
		if b.ID == id {
			return b.Solved
		}
	}
	return false
}

// playTimer stops each clock, shortest first, when it shows the target.
func (p *Playthrough) playTimer() error {
	sys, err := p.room.System(engine.PuzzleTimer)
	if err != nil {
		return err
	}
	ch := sys.(*engine.TimerSystem).Challenge()
	if err := p.do(engine.Action{Type: engine.ActionStart}); err != nil {
		return err
	}
	started := p.now

	order := make([]int, ch.Len())
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		ca, _ := ch.Clock(order[a])
		cb, _ := ch.Clock(order[b])
		return ca.Duration() < cb.Duration()
	})

	target := time.Duration(ch.Config().Target) * time.Second
	for _, i := range order {
		clk, err := ch.Clock(i)
		if err != nil {
			return err
		}
		// Half a second inside the target's display window.
		at := started.Add(clk.Duration() - target + 500*time.Millisecond)
		if at.After(p.now) {
			p.advance(at.Sub(p.now))
		}
		if err := p.do(engine.Action{Type: engine.ActionPickClock, Index: i}); err != nil {
			return err
		}
	}
	p.settle()
	return nil
}

// playLightwall presses every button except the resets.
func (p *Playthrough) playLightwall() error {
	sys, err := p.room.System(engine.PuzzleLightwall)
	if err != nil {
		return err
	}
	wall := sys.(*engine.LightwallSystem).Puzzle()
	for i := 0; i < wall.Len(); i++ {
		if wall.IsReset(i) {
			continue
		}
		if err := p.do(engine.Action{Type: engine.ActionPressButton, Index: i}); err != nil {
			return err
		}
	}
	p.settle()
	return nil
}

// playMagicBox carries each rack tile to its solution cell.
func (p *Playthrough) playMagicBox() error {
	sys, err := p.room.System(engine.PuzzleMagicBox)
	if err != nil {
		return err
	}
	box := sys.(*engine.MagicBoxSystem).Puzzle()
	for y := 0; y < magicbox.Size; y++ {
		for x := 0; x < magicbox.Size; x++ {
			if box.IsClue(x, y) {
				continue
			}
			idx := indexOf(box.Rack(), magicbox.DefaultSolution[y][x])
			if idx < 0 {
				return fmt.Errorf("no tile %d on the rack", magicbox.DefaultSolution[y][x])
			}
			if err := p.do(engine.Action{Type: engine.ActionPickRack, Index: idx}); err != nil {
				return err
			}
			if err := p.do(engine.Action{Type: engine.ActionPickBoard, X: float64(x), Y: float64(y)}); err != nil {
				return err
			}
		}
	}
	p.settle()
	return nil
}

// playSnake feeds the snake one cell ahead on a route up to the top edge and
// then clockwise round the border, steering onto it every step.
func (p *Playthrough) playSnake() error {
	sys, err := p.room.System(engine.PuzzleSnake)
	if err != nil {
		return err
	}
	board := sys.(*engine.SnakeSystem).Puzzle()
	cfg := board.Config()
	if err := p.do(engine.Action{Type: engine.ActionStart}); err != nil {
		return err
	}

	tick := p.cfg.SnakeTick()
	for step := 0; step < maxSteps && p.room.Snapshot().Active == engine.PuzzleSnake; step++ {
		head := board.Snakes()[0].Body[0]
		next := nextOnRoute(head, cfg.Width, cfg.Height)
		if _, err := board.AddFood(next); err != nil {
			return err
		}
		if err := p.do(engine.Action{Type: engine.ActionSteer, X: float64(next.X), Y: float64(next.Y)}); err != nil {
			return err
		}
		p.advance(tick)
	}
	if board.IsFailed() {
		return fmt.Errorf("snake died at length %d", board.Score())
	}
	return nil
}

func nextOnRoute(head grid.Pos, w, h int) grid.Pos {
	var d grid.Direction
	switch {
	case head.X > 0 && head.X < w-1 && head.Y > 0 && head.Y < h-1:
		d = grid.Up
	case head.Y == h-1 && head.X < w-1:
		d = grid.Right
	case head.X == w-1 && head.Y > 0:
		d = grid.Down
	case head.Y == 0 && head.X > 0:
		d = grid.Left
	default:
		d = grid.Up
	}
	return head.Add(d.Delta())
}

func indexOf(values []int, want int) int {
	for i, v := range values {
		if v == want {
			return i
		}
	}
	return -1
}

// Metrics exposes the room's collector.
func (p *Playthrough) Metrics() *metrics.Collector { return p.metrics }

// EventLog exposes every event the run produced.
func (p *Playthrough) EventLog() *events.EventLog { return p.eventLog }

// Results returns what Run collected.
func (p *Playthrough) Results() []Result { return p.results }
