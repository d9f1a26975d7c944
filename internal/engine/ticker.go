package engine

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/MRamiBalles/SalaTrece/server/internal/platform/logger"
)

// DefaultFrameInterval is 60 frames a second.
const DefaultFrameInterval = time.Second / 60

// Frame is one heartbeat of the room loop.
type Frame struct {
	Number int64
	At     time.Time
	// Delta is the time since the previous delivered frame.
	Delta time.Duration
}

// Ticker is the room heartbeat. It only knows about time; a frame the loop
// has not consumed yet is skipped rather than queued.
type Ticker struct {
	interval time.Duration
	logger   *logger.Logger
	frames   chan Frame
	stopChan chan struct{}
	stopOnce sync.Once
	number   int64
}

func NewTicker(interval time.Duration, log *logger.Logger) *Ticker {
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	return &Ticker{
		interval: interval,
		logger:   log,
		frames:   make(chan Frame, 1),
		stopChan: make(chan struct{}),
	}
}

// Start emits frames until ctx ends or Stop is called. Call in a goroutine.
func (t *Ticker) Start(ctx context.Context) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	last := time.Now()
	skipped := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.stopChan:
			return
		case now := <-ticker.C:
			t.number++
			select {
			case t.frames <- Frame{Number: t.number, At: now, Delta: now.Sub(last)}:
				last = now
				if skipped > 0 {
					t.logger.Warn("room loop fell behind", zap.Int("skipped_frames", skipped))
					skipped = 0
				}
			default:
				skipped++
			}
		}
	}
}

// Stop halts the ticker. Safe to call more than once.
func (t *Ticker) Stop() {
	t.stopOnce.Do(func() { close(t.stopChan) })
}

func (t *Ticker) Frames() <-chan Frame { return t.frames }

func (t *Ticker) Interval() time.Duration { return t.interval }
