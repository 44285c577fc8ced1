package messaging

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/zeusync/courier/internal/core/observability/log"
)

// State is the lifecycle of the process-wide dispatcher.
type State int32

const (
	StateUninitialized State = iota
	StateActive
	StateShuttingDown
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateActive:
		return "active"
	case StateShuttingDown:
		return "shutting_down"
	case StateDestroyed:
		return "destroyed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

var (
	instanceMu      sync.Mutex
	instance        *Dispatcher
	instanceState   atomic.Int32
	instanceOptions []Option

	liveMu sync.Mutex
	live   []*Dispatcher
)

func track(d *Dispatcher) {
	liveMu.Lock()
	live = append(live, d)
	liveMu.Unlock()
}

func untrack(d *Dispatcher) {
	liveMu.Lock()
	defer liveMu.Unlock()
	for i, candidate := range live {
		if candidate == d {
			live = append(live[:i], live[i+1:]...)
			return
		}
	}
}

func liveDispatchers() []*Dispatcher {
	liveMu.Lock()
	defer liveMu.Unlock()
	out := make([]*Dispatcher, len(live))
	copy(out, live)
	return out
}

// CurrentState reports where the process-wide dispatcher is in its lifecycle.
func CurrentState() State {
	return State(instanceState.Load())
}

// Configure sets the options used when Default has to create the instance.
// It has no effect once the instance exists. Pass WithClock with the clock the
// host advances every frame: without it the instance reads a frame clock that
// nothing advances, and time-delayed messages never come due.
func Configure(opts ...Option) {
	instanceMu.Lock()
	instanceOptions = append([]Option(nil), opts...)
	instanceMu.Unlock()
}

// Default returns the process-wide dispatcher, resolving it on first use.
// A single live dispatcher built with New is adopted; with none live, one is
// created from the Configure options. Finding several live dispatchers is
// reported and the oldest one is used. Once Shutdown has started Default
// returns nil. See Configure for the clock a created instance reads.
func Default() *Dispatcher {
	if CurrentState() >= StateShuttingDown {
		log.Provide().Warn("dispatcher instance already destroyed, not creating again")
		return nil
	}

	instanceMu.Lock()
	defer instanceMu.Unlock()

	if CurrentState() >= StateShuttingDown {
		log.Provide().Warn("dispatcher instance already destroyed, not creating again")
		return nil
	}
	if instance != nil && !instance.Closed() {
		return instance
	}

	existing := liveDispatchers()
	switch {
	case len(existing) > 1:
		instance = existing[0]
		instance.report(fmt.Errorf("%w: %d found", ErrMultipleInstances, len(existing)), nil)
	case len(existing) == 1:
		instance = existing[0]
		instance.logger.Info("using dispatcher instance already created")
	default:
		instance = New(instanceOptions...)
		instance.logger.Info("no dispatcher instance found, created one")
	}
	instanceState.Store(int32(StateActive))
	return instance
}

// SetDefault installs d as the process-wide dispatcher.
func SetDefault(d *Dispatcher) error {
	if d == nil {
		return ErrNilDispatcher
	}
	instanceMu.Lock()
	defer instanceMu.Unlock()
	if CurrentState() >= StateShuttingDown {
		return ErrShuttingDown
	}
	instance = d
	instanceState.Store(int32(StateActive))
	return nil
}

// Shutdown closes the process-wide dispatcher. From the moment it starts,
// Default returns nil and the package level helpers do nothing.
func Shutdown() {
	instanceMu.Lock()
	if CurrentState() >= StateShuttingDown {
		instanceMu.Unlock()
		return
	}
	instanceState.Store(int32(StateShuttingDown))
	d := instance
	instanceMu.Unlock()

	if d != nil {
		_ = d.Close()
	}

	instanceMu.Lock()
	instance = nil
	instanceState.Store(int32(StateDestroyed))
	instanceMu.Unlock()
}

// Send sends msg through the process-wide dispatcher.
func Send(msg Message) {
	if d := Default(); d != nil {
		d.Send(msg)
	}
}

// Unsubscribe removes reg from the process-wide dispatcher. It is a no-op
// once shutdown has started.
func Unsubscribe(reg *Registration) {
	if CurrentState() >= StateShuttingDown {
		return
	}
	if d := Default(); d != nil {
		d.Unsubscribe(reg)
	}
}

// SubscribeDefault registers sub on the process-wide dispatcher.
func SubscribeDefault[T Message](sub Subscription[T]) *Registration {
	d := Default()
	if d == nil {
		return nil
	}
	return Subscribe(d, sub)
}

// SubscribeDefaultFunc registers receive on the process-wide dispatcher.
func SubscribeDefaultFunc[T Message](receive func(T)) *Registration {
	return SubscribeDefault(Subscription[T]{Receive: receive})
}
