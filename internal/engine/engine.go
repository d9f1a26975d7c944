package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/MRamiBalles/SalaTrece/server/internal/domain/chance"
	"github.com/MRamiBalles/SalaTrece/server/internal/domain/lightwall"
	"github.com/MRamiBalles/SalaTrece/server/internal/events"
	"github.com/MRamiBalles/SalaTrece/server/internal/platform/config"
	"github.com/MRamiBalles/SalaTrece/server/internal/platform/logger"
	"github.com/MRamiBalles/SalaTrece/server/internal/platform/metrics"
)

// Deps are the collaborators shared by the room and every puzzle system.
type Deps struct {
	EventLog *events.EventLog
	Logger   *logger.Logger
	Metrics  *metrics.Collector
	Source   chance.Source
}

// PuzzleSolvedPayload is attached to PUZZLE_SOLVED events.
type PuzzleSolvedPayload struct {
	ElapsedMs int64 `json:"elapsed_ms"`
}

// RoomCompletedPayload is attached to ROOM_COMPLETED.
type RoomCompletedPayload struct {
	Solved []PuzzleID `json:"solved"`
}

// BoxView is one puzzle box on the room floor.
type BoxView struct {
	ID     PuzzleID `json:"id"`
	Solved bool     `json:"solved"`
	Active bool     `json:"active"`
}

// RoomView is the published state of the room.
type RoomView struct {
	RoomID    string      `json:"room_id"`
	Frame     int64       `json:"frame"`
	Active    PuzzleID    `json:"active,omitempty"`
	Boxes     []BoxView   `json:"boxes"`
	Completed bool        `json:"completed"`
	Puzzle    interface{} `json:"puzzle,omitempty"`
}

type envelope struct {
	action Action
	reply  chan error
}

// Engine hosts the room: four puzzle boxes, at most one open at a time.
//
// All puzzle state belongs to the goroutine running Run. Other goroutines
// Submit actions through the inbox and read published snapshots.
type Engine struct {
	roomID   string
	eventLog *events.EventLog
	logger   *logger.Logger
	metrics  *metrics.Collector
	ticker   *Ticker

	inbox chan envelope
	done  chan struct{}

	systems   map[PuzzleID]System
	order     []PuzzleID
	solved    map[PuzzleID]bool
	active    System
	completed bool
	frame     int64

	mu       sync.RWMutex
	snapshot RoomView
}

// NewEngine builds the room and its puzzles from cfg. Missing deps fall back
// to a discarding logger, the global metrics collector and a source seeded
// from cfg.Seed.
func NewEngine(cfg config.Config, deps Deps) (*Engine, error) {
	if deps.EventLog == nil {
		deps.EventLog = events.NewEventLog(cfg.RoomID, nil)
	}
	if deps.Logger == nil {
		deps.Logger = logger.Nop()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.Get()
	}
	if deps.Source == nil {
		deps.Source = chance.New(cfg.Seed)
	}

	wall, err := NewLightwallSystem(lightwall.DefaultSolution, cfg.Lightwall.CorrectButtons, cfg.Lightwall.ResetButtons, deps)
	if err != nil {
		return nil, err
	}
	crawler, err := NewSnakeSystem(cfg.SnakeConfig(), cfg.SnakeTick(), deps)
	if err != nil {
		return nil, err
	}
	inbox := cfg.Network.InboxBuffer
	if inbox < 1 {
		inbox = 1
	}

	e := &Engine{
		roomID:   cfg.RoomID,
		eventLog: deps.EventLog,
		logger:   deps.Logger.With(zap.String("room", cfg.RoomID)),
		metrics:  deps.Metrics,
		ticker:   NewTicker(cfg.FrameInterval(), deps.Logger),
		inbox:    make(chan envelope, inbox),
		done:     make(chan struct{}),
		systems:  map[PuzzleID]System{},
		solved:   map[PuzzleID]bool{},
	}
	for _, s := range []System{NewTimerSystem(cfg.ClockConfig(), deps), wall, NewMagicBoxSystem(deps), crawler} {
		e.systems[s.ID()] = s
		e.order = append(e.order, s.ID())
	}
	e.publish()
	return e, nil
}

func (e *Engine) RoomID() string { return e.roomID }

// EventLog exposes the room's log to transports.
func (e *Engine) EventLog() *events.EventLog { return e.eventLog }

// System returns the hosted puzzle for id.
func (e *Engine) System(id PuzzleID) (System, error) {
	s, ok := e.systems[id]
	if !ok {
		return nil, fmt.Errorf("%q: %w", id, ErrUnknownPuzzle)
	}
	return s, nil
}

// Puzzles lists the boxes in room order.
func (e *Engine) Puzzles() []PuzzleID { return append([]PuzzleID(nil), e.order...) }

// RestoreSolved marks boxes solved from persisted progress. Call before Run.
func (e *Engine) RestoreSolved(ids ...PuzzleID) {
	for _, id := range ids {
		if _, ok := e.systems[id]; ok {
			e.solved[id] = true
		}
	}
	e.completed = len(e.solved) == len(e.systems)
	e.publish()
}

// Submit queues an action for the loop and waits for its result. It fails
// fast with ErrInboxFull when the loop is behind.
func (e *Engine) Submit(ctx context.Context, a Action) error {
	env := envelope{action: a, reply: make(chan error, 1)}
	select {
	case <-e.done:
		return ErrEngineStopped
	default:
	}
	select {
	case e.inbox <- env:
	default:
		e.metrics.RecordInboxDrop()
		e.metrics.RecordAction(false)
		return ErrInboxFull
	}
	select {
	case err := <-env.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-e.done:
		return ErrEngineStopped
	}
}

// Run drives the room until ctx ends. It must be called once.
func (e *Engine) Run(ctx context.Context) error {
	defer close(e.done)
	e.logger.Info("room open", zap.Duration("frame", e.ticker.Interval()), zap.Int("puzzles", len(e.order)))

	go e.ticker.Start(ctx)
	defer e.ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("room closed", zap.Int64("frames", e.frame))
			return ctx.Err()
		case env := <-e.inbox:
			env.reply <- e.HandleAction(env.action, time.Now())
		case f := <-e.ticker.Frames():
			e.drain(f.At)
			e.Advance(f.At, f.Delta)
		}
	}
}

func (e *Engine) drain(now time.Time) {
	for {
		select {
		case env := <-e.inbox:
			env.reply <- e.HandleAction(env.action, now)
		default:
			return
		}
	}
}

// HandleAction applies one action synchronously. Only the loop goroutine, or
// a test driving the room by hand, may call it.
func (e *Engine) HandleAction(a Action, now time.Time) error {
	err := e.apply(a, now)
	e.metrics.RecordAction(err == nil)
	if err != nil {
		e.logger.Warn("action rejected",
			zap.String("type", string(a.Type)), zap.String("actor", a.ActorID), zap.Error(err))
	}
	e.publish()
	return err
}

func (e *Engine) apply(a Action, now time.Time) error {
	switch a.Type {
	case ActionOpen:
		return e.open(a.Puzzle, a.ActorID, now)
	case ActionLeave:
		if e.active == nil {
			return ErrNoActivePuzzle
		}
		e.abandon(a.ActorID)
		return nil
	}
	if e.active == nil {
		return ErrNoActivePuzzle
	}
	if a.Puzzle != "" && a.Puzzle != e.active.ID() {
		return fmt.Errorf("%s is not open: %w", a.Puzzle, ErrInvalidAction)
	}
	return e.active.Handle(a, now)
}

// open resets a box and makes it the active puzzle, leaving any other box.
func (e *Engine) open(id PuzzleID, actor string, now time.Time) error {
	sys, err := e.System(id)
	if err != nil {
		return err
	}
	if e.solved[id] {
		return fmt.Errorf("%s: %w", id, ErrPuzzleLocked)
	}
	if e.active != nil {
		if e.active.ID() == id {
			return nil
		}
		e.abandon(actor)
	}
	sys.Reset(now)
	e.active = sys
	e.emit(events.EventTypePuzzleOpened, id, actor, events.OutcomeNeutral, nil)
	e.metrics.RecordOpened()
	e.logger.Event(string(events.EventTypePuzzleOpened), actorOrSystem(actor), "puzzle opened", zap.String("puzzle", string(id)))
	return nil
}

func (e *Engine) abandon(actor string) {
	id := e.active.ID()
	e.active.Stop()
	e.active = nil
	e.emit(events.EventTypePuzzleAbandoned, id, actor, events.OutcomeNeutral, nil)
}

// Advance runs one frame: the active puzzle moves by dt, then the room checks
// whether it was solved or lost.
func (e *Engine) Advance(now time.Time, dt time.Duration) {
	start := time.Now()
	e.frame++
	if e.active != nil {
		e.active.Update(now, dt)
		e.poll(now)
	}
	e.publish()
	e.metrics.RecordFrame(time.Since(start))
}

func (e *Engine) poll(now time.Time) {
	sys := e.active
	id := sys.ID()
	switch {
	case sys.IsSolved():
		sys.Stop()
		e.active = nil
		e.solved[id] = true
		elapsed := now.Sub(sys.StartedAt())
		e.emit(events.EventTypePuzzleSolved, id, "", events.OutcomeGood, PuzzleSolvedPayload{ElapsedMs: elapsed.Milliseconds()})
		e.metrics.RecordSolved()
		e.logger.Info("puzzle solved", zap.String("puzzle", string(id)), zap.Duration("elapsed", elapsed))
		if !e.completed && len(e.solved) == len(e.systems) {
			e.completed = true
			e.emit(events.EventTypeRoomCompleted, "", "", events.OutcomeGood, RoomCompletedPayload{Solved: e.Puzzles()})
			e.logger.Info("room completed")
		}
	case sys.IsFailed():
		sys.Stop()
		e.active = nil
		e.emit(events.EventTypePuzzleFailed, id, "", events.OutcomeBad, nil)
		e.metrics.RecordFailed()
		e.logger.Info("puzzle failed", zap.String("puzzle", string(id)))
	}
}

func (e *Engine) emit(t events.EventType, id PuzzleID, actor string, outcome events.Outcome, payload interface{}) {
	e.eventLog.Append(events.GameEvent{
		Type:    t,
		ActorID: actorOrSystem(actor),
		Puzzle:  string(id),
		Outcome: outcome,
		Payload: payload,
	})
}

func actorOrSystem(actor string) string {
	if actor == "" {
		return events.ActorSystem
	}
	return actor
}

func (e *Engine) publish() {
	v := RoomView{
		RoomID:    e.roomID,
		Frame:     e.frame,
		Completed: e.completed,
		Boxes:     make([]BoxView, 0, len(e.order)),
	}
	if e.active != nil {
		v.Active = e.active.ID()
		v.Puzzle = e.active.View()
	}
	for _, id := range e.order {
		v.Boxes = append(v.Boxes, BoxView{ID: id, Solved: e.solved[id], Active: id == v.Active})
	}
	e.mu.Lock()
	e.snapshot = v
	e.mu.Unlock()
}

// Snapshot returns the last published room state. Safe from any goroutine.
func (e *Engine) Snapshot() RoomView {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snapshot
}
