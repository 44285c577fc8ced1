package clock

import (
	"math"
	"sync"
	"sync/atomic"
	"time"
)

// Source supplies the host's notion of time. Now is seconds since the host
// started; Tick is a monotonically increasing frame counter.
type Source interface {
	Now() float64
	Tick() int64
}

var (
	_ Source = (*Manual)(nil)
	_ Source = (*Frame)(nil)
)

// Manual is a Source that only moves when told to. Safe for concurrent use.
type Manual struct {
	seconds atomic.Uint64 // float64 bits
	tick    atomic.Int64
}

// NewManual returns a manual clock starting at the given time and tick.
func NewManual(seconds float64, tick int64) *Manual {
	m := &Manual{}
	m.Set(seconds, tick)
	return m
}

func (m *Manual) Now() float64 { return math.Float64frombits(m.seconds.Load()) }
func (m *Manual) Tick() int64  { return m.tick.Load() }

// Set moves the clock to an absolute position.
func (m *Manual) Set(seconds float64, tick int64) {
	m.seconds.Store(math.Float64bits(seconds))
	m.tick.Store(tick)
}

// Advance adds seconds to the clock time without touching the tick.
func (m *Manual) Advance(seconds float64) {
	for {
		old := m.seconds.Load()
		next := math.Float64bits(math.Float64frombits(old) + seconds)
		if m.seconds.CompareAndSwap(old, next) {
			return
		}
	}
}

// Step advances the tick by one and the time by dt.
func (m *Manual) Step(dt float64) {
	m.Advance(dt)
	m.tick.Add(1)
}

// Frame is the clock of a running host. Time is sampled from the wall clock
// once per frame, so every reader within a frame sees the same value.
type Frame struct {
	mu      sync.RWMutex
	start   time.Time
	now     float64
	tick    int64
	elapsed func(time.Time) time.Duration
}

// NewFrame starts a frame clock at time zero, tick zero.
func NewFrame() *Frame {
	return &Frame{
		start:   time.Now(),
		elapsed: time.Since,
	}
}

// BeginFrame samples the wall clock and increments the tick. It returns the
// time elapsed since the previous frame in seconds.
func (f *Frame) BeginFrame() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := f.elapsed(f.start).Seconds()
	dt := now - f.now
	f.now = now
	f.tick++
	return dt
}

func (f *Frame) Now() float64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.now
}

func (f *Frame) Tick() int64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.tick
}
