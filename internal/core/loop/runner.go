package loop

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zeusync/courier/internal/core/clock"
	"github.com/zeusync/courier/internal/core/messaging"
	"github.com/zeusync/courier/internal/core/observability/log"
)

var (
	ErrSystemExists   = errors.New("system already registered")
	ErrSystemNotFound = errors.New("system not found")
	ErrInvalidSystem  = errors.New("system must have a name")
)

const (
	DefaultFixedStep     = 0.02
	DefaultFrameRate     = 60
	DefaultMaxFixedSteps = 5
)

// FrameClock is a clock advanced by the runner at the start of every frame.
type FrameClock interface {
	clock.Source
	BeginFrame() float64
}

// Metrics provides runner statistics.
type Metrics struct {
	Frames        uint64
	FixedSteps    uint64
	SystemErrors  uint64
	Delivered     uint64
	LastFrameTime time.Duration
}

// Runner drives a dispatcher from a host frame loop. Each frame runs the
// fixed, update and late phases of every system and flushes the matching
// delayed queue after each phase.
type Runner struct {
	clock      FrameClock
	dispatcher *messaging.Dispatcher
	logger     log.Log

	fixedStep     float64
	frameRate     int
	maxFixedSteps int
	accumulator   float64

	mx      sync.RWMutex
	systems []System

	// step serializes frames.
	step sync.Mutex

	frames        atomic.Uint64
	fixedSteps    atomic.Uint64
	systemErrors  atomic.Uint64
	delivered     atomic.Uint64
	lastFrameTime atomic.Int64
}

type Option func(*Runner)

// WithFixedStep sets the fixed update interval in seconds.
func WithFixedStep(seconds float64) Option {
	return func(r *Runner) {
		if seconds > 0 {
			r.fixedStep = seconds
		}
	}
}

// WithFrameRate sets how many frames per second Run executes.
func WithFrameRate(fps int) Option {
	return func(r *Runner) {
		if fps > 0 {
			r.frameRate = fps
		}
	}
}

// WithMaxFixedSteps bounds the fixed update catch-up done in a single frame.
func WithMaxFixedSteps(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.maxFixedSteps = n
		}
	}
}

func WithLogger(l log.Log) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRunner builds a runner. The dispatcher must read time from c, otherwise
// delayed messages are judged against a clock the runner never advances.
func NewRunner(c FrameClock, d *messaging.Dispatcher, opts ...Option) *Runner {
	r := &Runner{
		clock:         c,
		dispatcher:    d,
		fixedStep:     DefaultFixedStep,
		frameRate:     DefaultFrameRate,
		maxFixedSteps: DefaultMaxFixedSteps,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	if r.logger == nil {
		r.logger = log.Provide()
	}
	r.logger = r.logger.With(log.String("component", "loop"))
	if d != nil && !sameSource(c, d.Clock()) {
		r.logger.Warn("dispatcher reads a different clock than the runner advances, delayed messages may never come due",
			log.String("dispatcher", d.Name()),
		)
	}
	return r
}

func sameSource(a, b clock.Source) bool {
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || ta == nil || !ta.Comparable() {
		return false
	}
	return a == b
}

func (r *Runner) Dispatcher() *messaging.Dispatcher { return r.dispatcher }
func (r *Runner) FixedStep() float64                { return r.fixedStep }
func (r *Runner) FrameRate() int                    { return r.frameRate }

// Register adds a system. Systems run by descending priority, ties in
// registration order.
func (r *Runner) Register(s System) error {
	if s == nil || s.Name() == "" {
		return ErrInvalidSystem
	}
	r.mx.Lock()
	defer r.mx.Unlock()
	for _, existing := range r.systems {
		if existing.Name() == s.Name() {
			return fmt.Errorf("%w: %s", ErrSystemExists, s.Name())
		}
	}
	r.systems = append(r.systems, s)
	sort.SliceStable(r.systems, func(i, j int) bool {
		return r.systems[i].Priority() > r.systems[j].Priority()
	})
	r.logger.Debug("system registered", log.String("system", s.Name()))
	return nil
}

func (r *Runner) Unregister(name string) error {
	r.mx.Lock()
	defer r.mx.Unlock()
	for i, s := range r.systems {
		if s.Name() == name {
			r.systems = append(r.systems[:i], r.systems[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrSystemNotFound, name)
}

// Systems returns the execution order.
func (r *Runner) Systems() []string {
	r.mx.RLock()
	defer r.mx.RUnlock()
	names := make([]string, len(r.systems))
	for i, s := range r.systems {
		names[i] = s.Name()
	}
	return names
}

// Step runs one frame and returns how many delayed messages it delivered.
func (r *Runner) Step() int {
	r.step.Lock()
	defer r.step.Unlock()

	start := time.Now()
	dt := r.clock.BeginFrame()
	systems := r.snapshot()
	delivered := 0

	r.accumulator += dt
	for steps := 0; r.accumulator >= r.fixedStep; steps++ {
		if steps == r.maxFixedSteps {
			r.logger.Warn("fixed update falling behind, dropping accumulated time",
				log.Float64("behind", r.accumulator),
			)
			r.accumulator = 0
			break
		}
		r.accumulator -= r.fixedStep
		r.run(PhaseFixedUpdate, systems, r.fixedStep)
		r.fixedSteps.Add(1)
		delivered += r.dispatcher.Flush(messaging.FixedUpdate)
	}

	r.run(PhaseUpdate, systems, dt)
	delivered += r.dispatcher.Flush(messaging.Update)

	r.run(PhaseLateUpdate, systems, dt)
	delivered += r.dispatcher.Flush(messaging.LateUpdate)

	delivered += r.dispatcher.Flush(messaging.EndOfFrame)

	r.frames.Add(1)
	r.delivered.Add(uint64(delivered))
	r.lastFrameTime.Store(int64(time.Since(start)))
	return delivered
}

func (r *Runner) snapshot() []System {
	r.mx.RLock()
	defer r.mx.RUnlock()
	out := make([]System, len(r.systems))
	copy(out, r.systems)
	return out
}

func (r *Runner) run(phase Phase, systems []System, dt float64) {
	for _, s := range systems {
		var err error
		switch phase {
		case PhaseFixedUpdate:
			err = s.FixedUpdate(dt)
		case PhaseUpdate:
			err = s.Update(dt)
		case PhaseLateUpdate:
			err = s.LateUpdate(dt)
		}
		if err != nil {
			r.systemErrors.Add(1)
			r.logger.Error("system failed",
				log.String("system", s.Name()),
				log.String("phase", phase.String()),
				log.Error(err),
			)
		}
	}
}

// Run steps the loop at the configured frame rate until ctx is done.
func (r *Runner) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(r.frameRate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	r.logger.Info("loop started",
		log.Int("frame_rate", r.frameRate),
		log.Float64("fixed_step", r.fixedStep),
	)
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("loop stopped", log.Int64("frames", int64(r.frames.Load())))
			return nil
		case <-ticker.C:
			r.Step()
		}
	}
}

func (r *Runner) Metrics() Metrics {
	return Metrics{
		Frames:        r.frames.Load(),
		FixedSteps:    r.fixedSteps.Load(),
		SystemErrors:  r.systemErrors.Load(),
		Delivered:     r.delivered.Load(),
		LastFrameTime: time.Duration(r.lastFrameTime.Load()),
	}
}
