package messaging

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/zeusync/courier/internal/core/clock"
	"github.com/zeusync/courier/internal/core/observability/log"
)

// Dispatcher routes messages to subscriptions, either right away or through
// one delayed queue per queued timing class.
//
// Send, Deliver and Flush run on the calling goroutine and invoke callbacks
// synchronously. Callbacks may send, subscribe and unsubscribe. Unsubscribe
// takes effect for delivery immediately, while the registry itself is only
// compacted once the outermost delivery or flush has returned.
type Dispatcher struct {
	name     string
	clock    clock.Source
	logger   log.Log
	shards   int
	registry *registry
	queues   [queuedClasses]*DelayedQueue

	// depth counts nested Deliver/Flush cycles in progress.
	depth     atomic.Int32
	closed    atomic.Bool
	closeOnce sync.Once

	observersMu sync.RWMutex
	observers   []Observer

	metrics dispatcherMetrics
}

type dispatcherMetrics struct {
	sent      atomic.Uint64
	delivered atomic.Uint64
	dropped   atomic.Uint64
	reports   atomic.Uint64
}

// Stats is a snapshot of dispatcher counters.
type Stats struct {
	Sent        uint64
	Delivered   uint64
	Dropped     uint64
	Reports     uint64
	Pending     int
	Subscribers int
}

// Receipt tells which delivery passes reached a visible subscription.
type Receipt struct {
	ByType    bool
	ByBase    bool
	Receivers int
}

// Received reports whether any visible subscription accepted the message.
func (r Receipt) Received() bool { return r.ByType || r.ByBase }

type Option func(*Dispatcher)

func WithName(name string) Option {
	return func(d *Dispatcher) {
		if name != "" {
			d.name = name
		}
	}
}

func WithClock(c clock.Source) Option {
	return func(d *Dispatcher) {
		if c != nil {
			d.clock = c
		}
	}
}

func WithLogger(l log.Log) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithRegistryShards sets how many lock shards the subscription registry uses.
func WithRegistryShards(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.shards = n
		}
	}
}

func WithObserver(obs ...Observer) Option {
	return func(d *Dispatcher) {
		for _, o := range obs {
			if o != nil {
				d.observers = append(d.observers, o)
			}
		}
	}
}

// New builds a dispatcher and counts it as live until Close. Without WithClock
// it reads its own frame clock, which only a host calling BeginFrame on it
// (see Clock) moves forward.
func New(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		name:   "dispatcher",
		shards: defaultRegistryShards,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	if d.clock == nil {
		d.clock = clock.NewFrame()
	}
	if d.logger == nil {
		d.logger = log.Provide()
	}
	d.logger = d.logger.With(log.String("dispatcher", d.name))
	d.registry = newRegistry(d.shards)
	for i, class := range QueuedClasses {
		d.queues[i] = NewDelayedQueue(class)
	}

	track(d)
	return d
}

func (d *Dispatcher) Name() string        { return d.name }
func (d *Dispatcher) Clock() clock.Source { return d.clock }

// Queue returns the delayed queue for class, or nil for Immediate and unknown
// classes.
func (d *Dispatcher) Queue(class TimingClass) *DelayedQueue {
	idx, ok := class.queueIndex()
	if !ok {
		return nil
	}
	return d.queues[idx]
}

// Send stamps msg with the current clock position and routes it by its
// timing class. Immediate messages are delivered before Send returns.
// Problems are reported, never returned.
func (d *Dispatcher) Send(msg Message) {
	if d.closed.Load() {
		d.report(ErrClosed, msg)
		return
	}
	if isNilMessage(msg) {
		d.drop(fmt.Errorf("%w: nil message", ErrMalformedSend), msg)
		return
	}
	env := msg.envelope()
	if env == nil || env.header == nil || env.header.Sender == nil {
		d.drop(fmt.Errorf("%w: %s", ErrMalformedSend, typeName(msg)), msg)
		return
	}
	if !finiteDelay(env.header) {
		d.drop(fmt.Errorf("%w: %s delay %v", ErrMalformedSend, typeName(msg), env.header.DelaySeconds), msg)
		return
	}

	env.stamp(d.clock.Now(), d.clock.Tick())
	d.metrics.sent.Add(1)
	d.notify(d.event(EventSent, msg))

	h := env.header
	if h.Timing == Immediate {
		d.Deliver(msg)
		return
	}
	idx, ok := h.Timing.queueIndex()
	if !ok {
		d.drop(fmt.Errorf("%w: %d", ErrUnknownTiming, uint8(h.Timing)), msg)
		return
	}
	d.queues[idx].Add(msg)
	d.notify(d.event(EventQueued, msg))
}

// Deliver hands msg to every matching subscription of its exact type and then
// to every matching base-type subscription.
func (d *Dispatcher) Deliver(msg Message) Receipt {
	var rc Receipt
	if isNilMessage(msg) || msg.envelope() == nil || msg.envelope().header == nil {
		d.drop(fmt.Errorf("%w: %s", ErrMalformedSend, typeName(msg)), msg)
		return rc
	}
	if d.closed.Load() {
		d.report(ErrClosed, msg)
		return rc
	}

	d.depth.Add(1)
	defer d.endCycle()

	h := msg.envelope().header
	var n int
	if key := reflect.TypeOf(msg); key != envelopeType {
		rc.ByType, n = d.distribute(msg, h, d.registry.snapshot(key))
		rc.Receivers += n
	}
	rc.ByBase, n = d.distribute(msg, h, d.registry.snapshot(messageType))
	rc.Receivers += n

	d.metrics.delivered.Add(1)
	e := d.event(EventDelivered, msg)
	e.Receivers = rc.Receivers
	d.notify(e)

	if h.RequireReceiver && !rc.Received() {
		d.report(fmt.Errorf("%w: %s", ErrNoReceiver, typeName(msg)), msg)
	}
	return rc
}

func (d *Dispatcher) distribute(msg Message, h *Header, regs []*Registration) (received bool, fired int) {
	for _, reg := range regs {
		if reg.removed.Load() || !reg.matches(h) {
			continue
		}
		d.invoke(reg, msg)
		fired++
		if !reg.hidden {
			received = true
		}
	}
	return received, fired
}

func (d *Dispatcher) invoke(reg *Registration, msg Message) {
	defer func() {
		if r := recover(); r != nil {
			d.report(fmt.Errorf("%w: %v", ErrCallbackPanic, r), msg, log.String("subscription", reg.id.String()))
		}
	}()
	reg.deliver(msg)
}

// Flush delivers the messages of class that are due at the current clock
// position and returns how many were delivered.
func (d *Dispatcher) Flush(class TimingClass) int {
	q := d.Queue(class)
	if q == nil || d.closed.Load() {
		return 0
	}

	d.depth.Add(1)
	defer d.endCycle()

	return q.Flush(d.clock.Now(), d.clock.Tick(), func(msg Message) {
		d.Deliver(msg)
	})
}

// FlushAll flushes every queued class in frame order.
func (d *Dispatcher) FlushAll() int {
	n := 0
	for _, class := range QueuedClasses {
		n += d.Flush(class)
	}
	return n
}

func (d *Dispatcher) register(reg *Registration) bool {
	if d.closed.Load() {
		d.report(ErrClosed, nil, log.String("message_type", reg.key.String()))
		return false
	}
	count := d.registry.add(reg)
	d.logger.Debug("subscribed",
		log.String("message_type", reg.key.String()),
		log.Bool("hidden", reg.hidden),
		log.Int64("subscribers", count),
	)
	d.notify(Event{Kind: EventSubscribed, Dispatcher: d.name, MessageType: reg.key.String()})
	return true
}

// Unsubscribe stops reg from receiving messages. The registry drops it after
// the current delivery cycle; unknown registrations are reported then.
func (d *Dispatcher) Unsubscribe(reg *Registration) {
	if d.closed.Load() {
		d.report(ErrClosed, nil)
		return
	}
	if reg == nil || reg.key == nil {
		d.report(fmt.Errorf("%w: empty registration", ErrSubscriptionNotFound), nil)
		return
	}
	d.registry.markRemoval(reg)
	if d.depth.Load() == 0 {
		d.applyRemovals()
	}
}

func (d *Dispatcher) endCycle() {
	if d.depth.Add(-1) == 0 && d.registry.hasPending() {
		d.applyRemovals()
	}
}

func (d *Dispatcher) applyRemovals() {
	removed, errs := d.registry.applyRemovals()
	for _, err := range errs {
		d.report(err, nil)
	}
	if removed > 0 {
		d.logger.Debug("unsubscribed",
			log.Int("removed", removed),
			log.Int("subscribers", d.registry.len()),
		)
		d.notify(Event{Kind: EventUnsubscribed, Dispatcher: d.name, Receivers: removed})
	}
}

// Stats returns a snapshot of the dispatcher counters.
func (d *Dispatcher) Stats() Stats {
	pending := 0
	for _, q := range d.queues {
		pending += q.Len()
	}
	return Stats{
		Sent:        d.metrics.sent.Load(),
		Delivered:   d.metrics.delivered.Load(),
		Dropped:     d.metrics.dropped.Load(),
		Reports:     d.metrics.reports.Load(),
		Pending:     pending,
		Subscribers: d.registry.len(),
	}
}

func (d *Dispatcher) AddObserver(obs Observer) {
	if obs == nil {
		return
	}
	d.observersMu.Lock()
	d.observers = append(d.observers, obs)
	d.observersMu.Unlock()
}

func (d *Dispatcher) RemoveObserver(obs Observer) {
	if obs == nil {
		return
	}
	d.observersMu.Lock()
	defer d.observersMu.Unlock()
	for i, o := range d.observers {
		if sameObserver(o, obs) {
			d.observers = append(d.observers[:i], d.observers[i+1:]...)
			return
		}
	}
}

// Closed reports whether Close has been called.
func (d *Dispatcher) Closed() bool { return d.closed.Load() }

// Close rejects further work, drops every pending message and subscription
// and stops counting d as live. It is idempotent.
func (d *Dispatcher) Close() error {
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		untrack(d)
		dropped := 0
		for _, q := range d.queues {
			dropped += q.Clear()
		}
		d.metrics.dropped.Add(uint64(dropped))
		d.registry.clear()
		d.logger.Info("dispatcher closed", log.Int("dropped", dropped))
	})
	return nil
}

func (d *Dispatcher) drop(err error, msg Message) {
	d.metrics.dropped.Add(1)
	d.report(err, msg)
}

// report surfaces a problem through the logger and observers. It never
// unwinds the caller.
func (d *Dispatcher) report(err error, msg Message, fields ...log.Field) {
	d.metrics.reports.Add(1)

	level := log.LevelError
	switch {
	case errors.Is(err, ErrSubscriptionNotFound),
		errors.Is(err, ErrNoSubscriptionsOfType),
		errors.Is(err, ErrClosed):
		level = log.LevelWarn
	}

	e := Event{Kind: EventReport, Dispatcher: d.name, Err: err}
	if !isNilMessage(msg) {
		e = d.event(EventReport, msg)
		e.Err = err
		fields = append(fields,
			log.String("message_type", e.MessageType),
			log.String("sender", e.Sender),
			log.String("receiver", e.Receiver),
		)
	}
	d.logger.Log(level, "dispatcher report", append(fields, log.Error(err))...)
	d.notify(e)
}

func (d *Dispatcher) event(kind EventKind, msg Message) Event {
	e := Event{Kind: kind, Dispatcher: d.name, MessageType: typeName(msg)}
	env := msg.envelope()
	if env == nil {
		return e
	}
	e.Time, e.Tick = env.sentTime, env.sentTick
	if h := env.header; h != nil {
		e.Timing = h.Timing
		e.Sender = h.Sender.String()
		e.Receiver = h.Receiver.String()
	}
	return e
}

// sameObserver compares observers without panicking on uncomparable
// implementations such as ObserverFunc.
func sameObserver(a, b Observer) bool {
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}

func (d *Dispatcher) notify(e Event) {
	d.observersMu.RLock()
	if len(d.observers) == 0 {
		d.observersMu.RUnlock()
		return
	}
	obs := make([]Observer, len(d.observers))
	copy(obs, d.observers)
	d.observersMu.RUnlock()

	for _, o := range obs {
		o.OnEvent(e)
	}
}
