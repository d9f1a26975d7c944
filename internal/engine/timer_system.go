package engine

import (
	"time"

	"go.uber.org/zap"

	"github.com/MRamiBalles/SalaTrece/server/internal/domain/clock"
	"github.com/MRamiBalles/SalaTrece/server/internal/events"
)

// ClockTickPayload is attached to CLOCK_TICK events.
type ClockTickPayload struct {
	Index        int  `json:"index"`
	Remaining    int  `json:"remaining"`
	NearDeadline bool `json:"near_deadline"`
}

// ClockStoppedPayload is attached to CLOCK_STOPPED events.
type ClockStoppedPayload struct {
	Index     int         `json:"index"`
	Remaining int         `json:"remaining"`
	Target    int         `json:"target"`
	State     clock.State `json:"state"`
}

// LifeLostPayload is attached to LIFE_LOST events.
type LifeLostPayload struct {
	Index int `json:"index"`
	Lives int `json:"lives"`
}

// TimerView is the timer box as clients see it.
type TimerView struct {
	Phase  Phase        `json:"phase"`
	Lives  int          `json:"lives"`
	Clocks []clock.View `json:"clocks"`
}

// TimerSystem hosts the clock challenge. It starts from an explicit START.
type TimerSystem struct {
	session
	challenge *clock.Challenge
}

func NewTimerSystem(cfg clock.Config, deps Deps) *TimerSystem {
	return &TimerSystem{
		session:   newSession(PuzzleTimer, deps),
		challenge: clock.NewChallenge(cfg, deps.Source),
	}
}

func (ts *TimerSystem) Reset(now time.Time) {
	ts.rewind()
	ts.challenge.Reset(ts.challenge.Config().Count)
}

func (ts *TimerSystem) Start(now time.Time) bool {
	return ts.startBy(now, "")
}

func (ts *TimerSystem) startBy(now time.Time, actor string) bool {
	if !ts.begin(now, actor) {
		return false
	}
	ts.challenge.Start(now)
	return true
}

func (ts *TimerSystem) Stop() { ts.challenge.Stop() }

// Update emits a tick for every clock whose display changed and a lost life
// for every clock that ran past its target.
func (ts *TimerSystem) Update(now time.Time, dt time.Duration) {
	if !ts.running() {
		return
	}
	for _, t := range ts.challenge.Update(now) {
		ts.metrics.RecordPuzzleTick()
		ts.emit(events.EventTypeClockTick, "", events.OutcomeNeutral, ClockTickPayload{
			Index:        t.Index,
			Remaining:    t.Remaining,
			NearDeadline: t.NearDeadline,
		})
		if t.Failed {
			ts.loseLife(t.Index, "")
		}
	}
}

func (ts *TimerSystem) Handle(a Action, now time.Time) error {
	switch a.Type {
	case ActionStart:
		ts.startBy(now, a.ActorID)
		return nil
	case ActionPickClock:
		return ts.pick(a)
	}
	return unsupported(ts.id, a)
}

func (ts *TimerSystem) pick(a Action) error {
	// The stop compares the value displayed at the last frame.
	st, ok, err := ts.challenge.Pick(a.Index)
	if err != nil || !ok {
		return err
	}
	clk, _ := ts.challenge.Clock(a.Index)
	outcome := events.OutcomeGood
	if st == clock.StateFailed {
		outcome = events.OutcomeBad
	}
	ts.emit(events.EventTypeClockStopped, a.ActorID, outcome, ClockStoppedPayload{
		Index:     a.Index,
		Remaining: clk.Remaining(),
		Target:    clk.Target(),
		State:     st,
	})
	ts.logger.Info("clock stopped",
		zap.Int("index", a.Index), zap.Int("remaining", clk.Remaining()), zap.Stringer("state", st))
	if st == clock.StateFailed {
		ts.loseLife(a.Index, a.ActorID)
	}
	return nil
}

func (ts *TimerSystem) loseLife(index int, actor string) {
	ts.emit(events.EventTypeLifeLost, actor, events.OutcomeBad, LifeLostPayload{
		Index: index,
		Lives: ts.challenge.Lives(),
	})
}

func (ts *TimerSystem) IsSolved() bool { return ts.running() && ts.challenge.IsSolved() }
func (ts *TimerSystem) IsFailed() bool { return ts.running() && ts.challenge.IsFailed() }

func (ts *TimerSystem) View() interface{} {
	return TimerView{Phase: ts.phase, Lives: ts.challenge.Lives(), Clocks: ts.challenge.Views()}
}

// Challenge exposes the model for scripted play.
func (ts *TimerSystem) Challenge() *clock.Challenge { return ts.challenge }
