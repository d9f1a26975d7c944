// Package events provides the room's event log: an append-only record of
// every puzzle decision, read by the websocket hub and the replay endpoints.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType defines the category of a room event.
type EventType string

const (
	EventTypePuzzleOpened    EventType = "PUZZLE_OPENED"
	EventTypePuzzleStarted   EventType = "PUZZLE_STARTED"
	EventTypePuzzleSolved    EventType = "PUZZLE_SOLVED"
	EventTypePuzzleFailed    EventType = "PUZZLE_FAILED"
	EventTypePuzzleAbandoned EventType = "PUZZLE_ABANDONED"
	EventTypeRoomCompleted   EventType = "ROOM_COMPLETED"

	EventTypeClockTick    EventType = "CLOCK_TICK"
	EventTypeClockStopped EventType = "CLOCK_STOPPED"
	EventTypeLifeLost     EventType = "LIFE_LOST"

	EventTypeButtonPressed EventType = "BUTTON_PRESSED"
	EventTypeBoardReset    EventType = "BOARD_RESET"

	EventTypeTilePicked EventType = "TILE_PICKED"

	EventTypeSnakeTick   EventType = "SNAKE_TICK"
	EventTypeSnakeAte    EventType = "SNAKE_ATE"
	EventTypeSnakeDied   EventType = "SNAKE_DIED"
	EventTypeFoodSpawned EventType = "FOOD_SPAWNED"
)

// Ephemeral events are broadcast but never persisted.
func (t EventType) Ephemeral() bool {
	switch t {
	case EventTypeClockTick, EventTypeSnakeTick, EventTypeFoodSpawned:
		return true
	}
	return false
}

// Outcome tells the client which feedback cue to play.
type Outcome string

const (
	OutcomeGood    Outcome = "GOOD"
	OutcomeBad     Outcome = "BAD"
	OutcomeNeutral Outcome = "NEUTRAL"
)

// GameEvent represents an immutable record of something the room decided.
type GameEvent struct {
	ID        string      `json:"id"`
	Seq       int64       `json:"seq"`
	Timestamp time.Time   `json:"timestamp"`
	Type      EventType   `json:"type"`
	RoomID    string      `json:"room_id"`
	ActorID   string      `json:"actor_id"` // Who caused it; SYSTEM for the loop
	Puzzle    string      `json:"puzzle,omitempty"`
	Outcome   Outcome     `json:"outcome"`
	Payload   interface{} `json:"payload,omitempty"`
}

// ActorSystem marks events raised by the room loop itself.
const ActorSystem = "SYSTEM"

// EventPersister defines how an event is durably stored.
type EventPersister interface {
	Append(event GameEvent) error
}

// DefaultRetention bounds how many events stay in memory.
const DefaultRetention = 8192

// EventLog is the in-memory append-only log of room events. Old entries are
// trimmed past the retention bound; offsets stay absolute.
type EventLog struct {
	mu        sync.RWMutex
	events    []GameEvent
	base      int // absolute offset of events[0]
	seq       int64
	retention int
	roomID    string
	persister EventPersister
}

// NewEventLog creates a new event log with an optional persister.
func NewEventLog(roomID string, persister EventPersister) *EventLog {
	return &EventLog{
		events:    make([]GameEvent, 0),
		retention: DefaultRetention,
		roomID:    roomID,
		persister: persister,
	}
}

// SetRetention changes the in-memory bound; n < 1 keeps everything.
func (el *EventLog) SetRetention(n int) {
	el.mu.Lock()
	defer el.mu.Unlock()
	el.retention = n
}

// SetSeq continues numbering after a restart.
func (el *EventLog) SetSeq(seq int64) {
	el.mu.Lock()
	defer el.mu.Unlock()
	el.seq = seq
}

// Append stamps the event with an ID, sequence number, room and time, adds it
// to the log and hands durable events to the persister. Events are immutable
// once appended.
func (el *EventLog) Append(event GameEvent) GameEvent {
	el.mu.Lock()
	defer el.mu.Unlock()

	el.seq++
	event.Seq = el.seq
	if event.ID == "" {
		event.ID = GenerateEventID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.RoomID == "" {
		event.RoomID = el.roomID
	}
	if event.Outcome == "" {
		event.Outcome = OutcomeNeutral
	}
	el.events = append(el.events, event)

	if el.retention > 0 && len(el.events) > el.retention {
		drop := len(el.events) - el.retention/2
		el.events = append([]GameEvent(nil), el.events[drop:]...)
		el.base += drop
	}

	if el.persister != nil && !event.Type.Ephemeral() {
		_ = el.persister.Append(event)
	}
	return event
}

// Since returns events at absolute offsets >= offset and the offset to pass
// next time. Trimmed entries are skipped.
func (el *EventLog) Since(offset int) ([]GameEvent, int) {
	el.mu.RLock()
	defer el.mu.RUnlock()

	end := el.base + len(el.events)
	if offset < el.base {
		offset = el.base
	}
	if offset >= end {
		return nil, end
	}
	out := make([]GameEvent, end-offset)
	copy(out, el.events[offset-el.base:])
	return out, end
}

// Len is the absolute offset of the next event.
func (el *EventLog) Len() int {
	el.mu.RLock()
	defer el.mu.RUnlock()
	return el.base + len(el.events)
}

// GetByPuzzle returns the retained events for one puzzle box.
func (el *EventLog) GetByPuzzle(puzzle string) []GameEvent {
	el.mu.RLock()
	defer el.mu.RUnlock()

	var result []GameEvent
	for _, e := range el.events {
		if e.Puzzle == puzzle {
			result = append(result, e)
		}
	}
	return result
}

// Replay returns the retained durable history, oldest first.
func (el *EventLog) Replay() []GameEvent {
	el.mu.RLock()
	defer el.mu.RUnlock()

	result := make([]GameEvent, 0, len(el.events))
	for _, e := range el.events {
		if !e.Type.Ephemeral() {
			result = append(result, e)
		}
	}
	return result
}

// GenerateEventID creates a unique event identifier.
func GenerateEventID() string {
	return uuid.NewString()
}
