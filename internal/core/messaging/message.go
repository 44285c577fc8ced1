package messaging

import (
	"fmt"
	"math"
	"reflect"
	"slices"

	"github.com/zeusync/courier/internal/core/entity"
)

// TimingClass selects the pipeline that delivers a message. Everything other
// than Immediate is parked in a delayed queue flushed during the matching phase
// of the host frame.
type TimingClass uint8

const (
	Immediate TimingClass = iota
	FixedUpdate
	Update
	LateUpdate
	EndOfFrame
)

const queuedClasses = int(EndOfFrame - FixedUpdate + 1)

// QueuedClasses lists the timing classes backed by a delayed queue, in the
// order a frame flushes them.
var QueuedClasses = []TimingClass{FixedUpdate, Update, LateUpdate, EndOfFrame}

func (c TimingClass) String() string {
	switch c {
	case Immediate:
		return "immediate"
	case FixedUpdate:
		return "fixed_update"
	case Update:
		return "update"
	case LateUpdate:
		return "late_update"
	case EndOfFrame:
		return "end_of_frame"
	default:
		return fmt.Sprintf("timing(%d)", uint8(c))
	}
}

func (c TimingClass) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c TimingClass) queueIndex() (int, bool) {
	if c < FixedUpdate || c > EndOfFrame {
		return 0, false
	}
	return int(c - FixedUpdate), true
}

// Tag classifies a message. Tags are carried for consumers and never used
// for routing.
type Tag uint8

const (
	TagNetwork Tag = iota
	TagPlayerCommand
	TagAI
)

func (t Tag) String() string {
	switch t {
	case TagNetwork:
		return "network"
	case TagPlayerCommand:
		return "player_command"
	case TagAI:
		return "ai"
	default:
		return fmt.Sprintf("tag(%d)", uint8(t))
	}
}

// NoDelay disables DelaySeconds (switching to tick-based delay) or
// DelayTicks.
const NoDelay = -1

const headlessName = "Headless Message"

// Header carries the routing metadata of a message.
type Header struct {
	Sender   *entity.Handle
	Receiver *entity.Handle
	// RequireReceiver makes it a reportable error when no visible
	// subscription accepts the message.
	RequireReceiver bool
	// DelaySeconds postpones delivery by wall time. When it is NoDelay the
	// message is driven by DelayTicks instead.
	DelaySeconds float64
	DelayTicks   int64
	Tags         []Tag
	Timing       TimingClass
}

// NewHeader returns an immediate, undelayed header from sender.
func NewHeader(sender *entity.Handle) *Header {
	return &Header{
		Sender:       sender,
		DelaySeconds: NoDelay,
		DelayTicks:   NoDelay,
		Timing:       Immediate,
	}
}

func (h *Header) HasTag(t Tag) bool {
	return slices.Contains(h.Tags, t)
}

// timeDriven reports whether due-ness is decided by time rather than ticks.
func (h *Header) timeDriven() bool {
	return h.DelaySeconds != NoDelay
}

// Message is implemented by every type that embeds Envelope. The concrete
// type of a message is what subscribers select on.
type Message interface {
	Header() *Header
	SentTime() float64
	SentTick() int64
	DesiredArrivalTime() float64
	DesiredArrivalTick() int64

	envelope() *Envelope
}

var (
	messageType  = reflect.TypeOf((*Message)(nil)).Elem()
	envelopeType = reflect.TypeOf((**Envelope)(nil)).Elem()
)

// Envelope is the part of a message owned by the dispatcher. Embed it by value:
//
//	type DoorOpened struct {
//		messaging.Envelope
//		Door string
//	}
//
//	msg := &DoorOpened{Envelope: messaging.NewEnvelope(header), Door: "north"}
//
// A bare *Envelope is a message of the base type and only reaches base-type
// subscribers.
type Envelope struct {
	header *Header

	sentTime           float64
	sentTick           int64
	desiredArrivalTime float64
	desiredArrivalTick int64
}

func NewEnvelope(h *Header) Envelope {
	return Envelope{header: h, sentTime: -1, sentTick: -1}
}

// NewMessage builds a message of the base type.
func NewMessage(h *Header) *Envelope {
	e := NewEnvelope(h)
	return &e
}

// WithDefaultHeader builds an envelope whose header names a throwaway sender
// and no receiver. It exists so that a missing header is a visible choice at
// the call site.
func WithDefaultHeader() Envelope {
	return NewEnvelope(NewHeader(entity.New(headlessName)))
}

// MessageWithDefaultHeader is WithDefaultHeader for base-type messages.
func MessageWithDefaultHeader() *Envelope {
	e := WithDefaultHeader()
	return &e
}

func (e *Envelope) envelope() *Envelope { return e }

func (e *Envelope) Header() *Header             { return e.header }
func (e *Envelope) SentTime() float64           { return e.sentTime }
func (e *Envelope) SentTick() int64             { return e.sentTick }
func (e *Envelope) DesiredArrivalTime() float64 { return e.desiredArrivalTime }
func (e *Envelope) DesiredArrivalTick() int64   { return e.desiredArrivalTick }

// stamp records the send position and resolves the desired arrival on both
// drivers.
func (e *Envelope) stamp(now float64, tick int64) {
	e.sentTime = now
	e.sentTick = tick

	e.desiredArrivalTime = now
	if e.header.DelaySeconds != NoDelay {
		e.desiredArrivalTime = now + e.header.DelaySeconds
	}
	e.desiredArrivalTick = tick
	if e.header.DelayTicks != NoDelay {
		e.desiredArrivalTick = tick + e.header.DelayTicks
	}
}

// finiteDelay rejects time delays that would never come due.
func finiteDelay(h *Header) bool {
	if !h.timeDriven() {
		return true
	}
	return !math.IsNaN(h.DelaySeconds) && !math.IsInf(h.DelaySeconds, 0)
}

func isNilMessage(msg Message) bool {
	if msg == nil {
		return true
	}
	v := reflect.ValueOf(msg)
	return v.Kind() == reflect.Pointer && v.IsNil()
}

func typeName(msg Message) string {
	if isNilMessage(msg) {
		return "<nil>"
	}
	return reflect.TypeOf(msg).String()
}
