package score

import (
	"errors"
	"math"
	"sync"
	"testing"
	"time"
)

// fakeClock returns a controllable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestBuffer(t *testing.T, capacity int) (*Buffer, *fakeClock) {
	t.Helper()
	b, err := NewBuffer(capacity, DefaultWindow)
	if err != nil {
		t.Fatalf("NewBuffer: %v", err)
	}
	clk := &fakeClock{now: time.Unix(1700000000, 0)}
	b.now = clk.Now
	return b, clk
}

func TestNewBuffer_InvalidCapacity(t *testing.T) {
	for _, c := range []int{0, -1} {
		if _, err := NewBuffer(c, time.Second); !errors.Is(err, ErrInvalidCapacity) {
			t.Errorf("NewBuffer(%d) error = %v, want ErrInvalidCapacity", c, err)
		}
	}
}

func TestAverage_Empty(t *testing.T) {
	b, _ := newTestBuffer(t, 10)
	if got := b.Average(time.Second); got != 0 {
		t.Errorf("Expected 0 for empty buffer, got %v", got)
	}
}

func TestAverage_AllInWindow(t *testing.T) {
	b, _ := newTestBuffer(t, 10)
	for _, s := range []float64{70, 80, 90} {
		b.Add(s)
	}
	if got := b.Average(time.Second); math.Abs(got-80) > 1e-9 {
		t.Errorf("Expected 80, got %v", got)
	}
	if b.Len() != 3 || b.Full() {
		t.Errorf("Expected 3 entries and not full, got len=%d full=%v", b.Len(), b.Full())
	}
}

func TestAverage_WindowExcludesOld(t *testing.T) {
	b, clk := newTestBuffer(t, 10)
	b.Add(50)
	clk.Advance(2 * time.Second)
	b.Add(70)
	b.Add(80)

	if got := b.Average(time.Second); math.Abs(got-75) > 1e-9 {
		t.Errorf("Expected 75, got %v", got)
	}
	if got := b.Average(3 * time.Second); math.Abs(got-200.0/3) > 1e-9 {
		t.Errorf("Expected %v, got %v", 200.0/3, got)
	}
}

func TestAverage_WindowBoundaryInclusive(t *testing.T) {
	b, clk := newTestBuffer(t, 10)
	b.Add(40)
	clk.Advance(time.Second)

	if got := b.Average(time.Second); got != 40 {
		t.Errorf("Expected entry exactly window old to count, got %v", got)
	}
	clk.Advance(time.Nanosecond)
	if got := b.Average(time.Second); got != 0 {
		t.Errorf("Expected 0 once entry is outside window, got %v", got)
	}
}

func TestAverage_DefaultWindow(t *testing.T) {
	b, clk := newTestBuffer(t, 10)
	b.Add(10)
	clk.Advance(4 * time.Second)
	b.Add(30)

	if got := b.Average(0); math.Abs(got-20) > 1e-9 {
		t.Errorf("Expected default 5s window average 20, got %v", got)
	}
	b.SetWindow(time.Second)
	if got := b.Average(0); got != 30 {
		t.Errorf("Expected 1s window average 30, got %v", got)
	}
}

func TestAdd_Wraparound(t *testing.T) {
	b, _ := newTestBuffer(t, 3)
	for _, s := range []float64{10, 20, 30, 40} {
		b.Add(s)
	}

	if !b.Full() {
		t.Error("Expected buffer to be full after wrapping")
	}
	if b.next != 1 {
		t.Errorf("Expected next index 1, got %d", b.next)
	}
	if b.scores[0] != 40 {
		t.Errorf("Expected slot 0 overwritten with 40, got %v", b.scores[0])
	}
	if got := b.Average(time.Second); math.Abs(got-30) > 1e-9 {
		t.Errorf("Expected average of 20,30,40 = 30, got %v", got)
	}
	if b.Len() != 3 {
		t.Errorf("Expected len 3, got %d", b.Len())
	}
}

func TestAverage_PartialIgnoresUnwrittenSlots(t *testing.T) {
	b, clk := newTestBuffer(t, 5)
	// Zero-value timestamps in unwritten slots must not be counted even
	// with a huge window.
	b.Add(60)
	clk.Advance(time.Millisecond)
	if got := b.Average(100 * 365 * 24 * time.Hour); got != 60 {
		t.Errorf("Expected 60, got %v", got)
	}
}

func TestResize(t *testing.T) {
	b, _ := newTestBuffer(t, 3)
	b.Add(50)
	b.Add(60)

	if err := b.Resize(3); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	if b.Len() != 2 {
		t.Errorf("Expected same capacity to keep data, got len %d", b.Len())
	}

	if err := b.Resize(5); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	if b.Len() != 0 || b.Cap() != 5 {
		t.Errorf("Expected reset buffer of cap 5, got len=%d cap=%d", b.Len(), b.Cap())
	}
	if err := b.Resize(0); !errors.Is(err, ErrInvalidCapacity) {
		t.Errorf("Expected ErrInvalidCapacity, got %v", err)
	}
}

func TestAddAt_ReplayClock(t *testing.T) {
	b, _ := newTestBuffer(t, 10)
	start := time.Unix(0, 0)
	for i := 0; i < 10; i++ {
		b.AddAt(start.Add(time.Duration(i)*time.Second), float64(i*10))
	}
	// Entries at 7, 8, 9 seconds are within 2s of t=9.
	if got := b.AverageAt(start.Add(9*time.Second), 2*time.Second); math.Abs(got-80) > 1e-9 {
		t.Errorf("Expected 80, got %v", got)
	}
}

func TestBuffer_ConcurrentAccess(t *testing.T) {
	b, _ := newTestBuffer(t, 64)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			b.Add(50)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			if got := b.Average(time.Second); got != 0 && got != 50 {
				t.Errorf("Unexpected average %v", got)
				return
			}
		}
	}()
	wg.Wait()

	if !b.Full() {
		t.Error("Expected buffer to be full")
	}
}
