package messaging

import (
	"math"
	"sync"
)

// DelayedQueue holds the not-yet-delivered messages of one timing class. It
// remembers the soonest due time and tick so that flushes before then cost
// nothing.
type DelayedQueue struct {
	class TimingClass

	mu          sync.Mutex
	entries     []queueEntry
	nextDueTime float64
	nextDueTick int64
	hasNextTick bool
}

type queueEntry struct {
	msg     Message
	byTime  bool
	dueTime float64
	dueTick int64
}

func (e queueEntry) due(now float64, tick int64) bool {
	if e.byTime {
		return e.dueTime <= now
	}
	return e.dueTick <= tick
}

// NewDelayedQueue returns an empty queue for class.
func NewDelayedQueue(class TimingClass) *DelayedQueue {
	return &DelayedQueue{
		class:       class,
		nextDueTime: math.Inf(1),
	}
}

func (q *DelayedQueue) Class() TimingClass { return q.class }

// Add parks a stamped message. The delay driver is captured now; later header
// edits do not move the message between drivers.
func (q *DelayedQueue) Add(msg Message) {
	env := msg.envelope()
	e := queueEntry{
		msg:     msg,
		byTime:  env.header.timeDriven(),
		dueTime: env.desiredArrivalTime,
		dueTick: env.desiredArrivalTick,
	}

	q.mu.Lock()
	q.entries = append(q.entries, e)
	q.foldLocked(e)
	q.mu.Unlock()
}

func (q *DelayedQueue) foldLocked(e queueEntry) {
	if e.byTime {
		if e.dueTime < q.nextDueTime {
			q.nextDueTime = e.dueTime
		}
		return
	}
	if !q.hasNextTick || e.dueTick < q.nextDueTick {
		q.nextDueTick = e.dueTick
		q.hasNextTick = true
	}
}

// Flush hands every message due at (now, tick) to deliver, in the order the
// messages were added, and returns how many were delivered. Due messages leave
// the queue before deliver runs, so each is delivered exactly once even if
// deliver sends more messages into this queue.
func (q *DelayedQueue) Flush(now float64, tick int64, deliver func(Message)) int {
	q.mu.Lock()
	if !(now >= q.nextDueTime || (q.hasNextTick && tick >= q.nextDueTick)) {
		q.mu.Unlock()
		return 0
	}

	q.nextDueTime = math.Inf(1)
	q.hasNextTick = false

	var due []Message
	keep := make([]queueEntry, 0, len(q.entries))
	for _, e := range q.entries {
		if e.due(now, tick) {
			due = append(due, e.msg)
			continue
		}
		keep = append(keep, e)
		q.foldLocked(e)
	}
	q.entries = keep
	q.mu.Unlock()

	for _, msg := range due {
		deliver(msg)
	}
	return len(due)
}

func (q *DelayedQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// NextDue returns the soonest due time (+Inf when none is time driven) and
// the soonest due tick (ok is false when none is tick driven).
func (q *DelayedQueue) NextDue() (seconds float64, tick int64, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.nextDueTime, q.nextDueTick, q.hasNextTick
}

// Clear drops every pending message and returns how many were dropped.
func (q *DelayedQueue) Clear() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.entries)
	q.entries = nil
	q.nextDueTime = math.Inf(1)
	q.hasNextTick = false
	return n
}
