package messaging

import (
	"errors"
	"sync"
	"testing"

	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/zeusync/courier/internal/core/clock"
	"github.com/zeusync/courier/internal/core/observability/log"
)

type hotspotChanged struct {
	Envelope
	Address string
	Value   bool
}

func newHotspot(h *Header, address string, value bool) *hotspotChanged {
	return &hotspotChanged{Envelope: NewEnvelope(h), Address: address, Value: value}
}

// borrowedEnvelope embeds the envelope by pointer and may leave it nil.
type borrowedEnvelope struct {
	*Envelope
}

type doorOpened struct {
	Envelope
	Door string
}

// recorder keeps every event a dispatcher publishes.
type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) OnEvent(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recorder) reports(target error) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Kind == EventReport && errors.Is(e.Err, target) {
			n++
		}
	}
	return n
}

func (r *recorder) count(kind EventKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

type fixture struct {
	d     *Dispatcher
	clock *clock.Manual
	logs  *observer.ObservedLogs
	rec   *recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	f := &fixture{
		clock: clock.NewManual(0, 0),
		logs:  logs,
		rec:   &recorder{},
	}
	f.d = New(
		WithName(t.Name()),
		WithClock(f.clock),
		WithLogger(log.NewWithCore(core, log.LevelDebug)),
		WithObserver(f.rec),
	)
	t.Cleanup(func() { _ = f.d.Close() })
	return f
}

func (f *fixture) reportLogs() int {
	return f.logs.FilterMessage("dispatcher report").Len()
}

// resetInstance returns the package singleton to its initial state.
func resetInstance(t *testing.T) {
	t.Helper()
	instanceMu.Lock()
	instance = nil
	instanceOptions = nil
	instanceState.Store(int32(StateUninitialized))
	instanceMu.Unlock()

	liveMu.Lock()
	live = nil
	liveMu.Unlock()
}
