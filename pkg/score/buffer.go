// Package score keeps a bounded history of posture scores and answers
// time-windowed averages over it.
package score

import (
	"errors"
	"sync"
	"time"
)

// Defaults match the stock runtime settings.
const (
	DefaultCapacity = 1000
	DefaultWindow   = 5 * time.Second
)

// ErrInvalidCapacity is returned for a non-positive buffer size.
var ErrInvalidCapacity = errors.New("score: capacity must be positive")

// Buffer is a fixed-capacity ring of timestamped scores.
// One goroutine may add while others read averages.
type Buffer struct {
	mu         sync.Mutex
	timestamps []time.Time
	scores     []float64
	next       int
	full       bool
	window     time.Duration
	now        func() time.Time
}

// NewBuffer allocates a buffer holding up to capacity scores.
// defaultWindow is used by Average when no window is given.
func NewBuffer(capacity int, defaultWindow time.Duration) (*Buffer, error) {
	if capacity <= 0 {
		return nil, ErrInvalidCapacity
	}
	if defaultWindow <= 0 {
		defaultWindow = DefaultWindow
	}
	return &Buffer{
		timestamps: make([]time.Time, capacity),
		scores:     make([]float64, capacity),
		window:     defaultWindow,
		now:        time.Now,
	}, nil
}

// Add records score at the current time, overwriting the oldest entry
// once the buffer is full.
func (b *Buffer) Add(score float64) {
	b.AddAt(b.now(), score)
}

// AddAt records score with an explicit timestamp.
func (b *Buffer) AddAt(ts time.Time, score float64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.timestamps[b.next] = ts
	b.scores[b.next] = score
	b.next = (b.next + 1) % len(b.scores)
	if b.next == 0 {
		b.full = true
	}
}

// Average returns the mean of scores recorded within window of now.
// A non-positive window uses the buffer's default. An empty buffer,
// or one with nothing inside the window, averages to 0.
func (b *Buffer) Average(window time.Duration) float64 {
	return b.AverageAt(b.now(), window)
}

// AverageAt is Average measured from an explicit time.
func (b *Buffer) AverageAt(now time.Time, window time.Duration) float64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	if window <= 0 {
		window = b.window
	}

	n := b.lenLocked()
	var sum float64
	var count int
	for i := 0; i < n; i++ {
		if now.Sub(b.timestamps[i]) <= window {
			sum += b.scores[i]
			count++
		}
	}
	if count == 0 {
		return 0.0
	}
	return sum / float64(count)
}

// Resize changes the capacity. A different capacity discards all
// recorded scores; the same capacity keeps them.
func (b *Buffer) Resize(capacity int) error {
	if capacity <= 0 {
		return ErrInvalidCapacity
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if capacity == len(b.scores) {
		return nil
	}
	b.timestamps = make([]time.Time, capacity)
	b.scores = make([]float64, capacity)
	b.next = 0
	b.full = false
	return nil
}

// SetWindow changes the default averaging window.
func (b *Buffer) SetWindow(window time.Duration) {
	if window <= 0 {
		return
	}
	b.mu.Lock()
	b.window = window
	b.mu.Unlock()
}

// Window returns the default averaging window.
func (b *Buffer) Window() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.window
}

// Len returns the number of valid entries.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lenLocked()
}

// Cap returns the capacity.
func (b *Buffer) Cap() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.scores)
}

// Full reports whether the buffer has wrapped at least once.
func (b *Buffer) Full() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.full
}

func (b *Buffer) lenLocked() int {
	if b.full {
		return len(b.scores)
	}
	return b.next
}
