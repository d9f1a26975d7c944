package events

import (
	"errors"
	"sync"
)

var ErrQueueFull = errors.New("events: persist queue full")

// Fanout writes each event to every persister in order.
type Fanout []EventPersister

func (f Fanout) Append(event GameEvent) error {
	var errs []error
	for _, p := range f {
		if err := p.Append(event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// AsyncPersister moves persistence off the room loop onto one writer
// goroutine, preserving append order. When the queue is full the event is
// dropped and ErrQueueFull returned.
type AsyncPersister struct {
	next    EventPersister
	onError func(GameEvent, error)

	mu     sync.RWMutex
	ch     chan GameEvent
	wg     sync.WaitGroup
	closed bool
}

// NewAsyncPersister starts the writer. onError may be nil.
func NewAsyncPersister(next EventPersister, buffer int, onError func(GameEvent, error)) *AsyncPersister {
	if buffer < 1 {
		buffer = 1
	}
	a := &AsyncPersister{next: next, onError: onError, ch: make(chan GameEvent, buffer)}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		for ev := range a.ch {
			if err := a.next.Append(ev); err != nil && a.onError != nil {
				a.onError(ev, err)
			}
		}
	}()
	return a
}

func (a *AsyncPersister) Append(event GameEvent) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return nil
	}
	select {
	case a.ch <- event:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close drains the queue and waits for the writer.
func (a *AsyncPersister) Close() {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.ch)
	}
	a.mu.Unlock()
	a.wg.Wait()
}
