package engine

import (
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/MRamiBalles/SalaTrece/server/internal/events"
	"github.com/MRamiBalles/SalaTrece/server/internal/platform/logger"
	"github.com/MRamiBalles/SalaTrece/server/internal/platform/metrics"
)

var (
	ErrInboxFull      = errors.New("engine: action inbox full")
	ErrUnknownPuzzle  = errors.New("engine: unknown puzzle")
	ErrNoActivePuzzle = errors.New("engine: no active puzzle")
	ErrPuzzleLocked   = errors.New("engine: puzzle already solved")
	ErrInvalidAction  = errors.New("engine: invalid action")
	ErrEngineStopped  = errors.New("engine: stopped")
)

// PuzzleID names a puzzle box in the room.
type PuzzleID string

const (
	PuzzleTimer     PuzzleID = "timer"
	PuzzleLightwall PuzzleID = "lightwall"
	PuzzleMagicBox  PuzzleID = "magicbox"
	PuzzleSnake     PuzzleID = "snake"
)

// Phase is a puzzle session's own lifecycle, separate from the puzzle model.
type Phase string

const (
	PhaseIntro   Phase = "intro"
	PhaseRunning Phase = "running"
)

// System hosts one puzzle model inside the room. Systems are driven only by
// the engine loop goroutine.
type System interface {
	ID() PuzzleID
	// Reset rebuilds the puzzle for a fresh attempt and returns to intro.
	Reset(now time.Time)
	// Start moves to running; false when already running.
	Start(now time.Time) bool
	// Stop freezes the puzzle once the room has taken its outcome.
	Stop()
	// Update advances timers by dt of frame time.
	Update(now time.Time, dt time.Duration)
	// Handle applies one player action aimed at this puzzle.
	Handle(a Action, now time.Time) error
	// IsSolved and IsFailed only report while running; both latch.
	IsSolved() bool
	IsFailed() bool
	Phase() Phase
	StartedAt() time.Time
	View() interface{}
}

// session carries what every system shares: phase, start time and the
// event emitter.
type session struct {
	id        PuzzleID
	phase     Phase
	startedAt time.Time

	eventLog *events.EventLog
	logger   *logger.Logger
	metrics  *metrics.Collector
}

func newSession(id PuzzleID, deps Deps) session {
	return session{
		id:       id,
		phase:    PhaseIntro,
		eventLog: deps.EventLog,
		logger:   deps.Logger.With(zap.String("puzzle", string(id))),
		metrics:  deps.Metrics,
	}
}

func (s *session) ID() PuzzleID         { return s.id }
func (s *session) Phase() Phase         { return s.phase }
func (s *session) StartedAt() time.Time { return s.startedAt }
func (s *session) running() bool        { return s.phase == PhaseRunning }

// begin flips intro to running and announces it.
func (s *session) begin(now time.Time, actor string) bool {
	if s.phase == PhaseRunning {
		return false
	}
	s.phase = PhaseRunning
	s.startedAt = now
	s.emit(events.EventTypePuzzleStarted, actor, events.OutcomeNeutral, nil)
	return true
}

func (s *session) rewind() {
	s.phase = PhaseIntro
	s.startedAt = time.Time{}
}

func (s *session) emit(t events.EventType, actor string, outcome events.Outcome, payload interface{}) events.GameEvent {
	if actor == "" {
		actor = events.ActorSystem
	}
	return s.eventLog.Append(events.GameEvent{
		Type:    t,
		ActorID: actor,
		Puzzle:  string(s.id),
		Outcome: outcome,
		Payload: payload,
	})
}
