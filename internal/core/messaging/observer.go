package messaging

import (
	"github.com/zeusync/courier/internal/core/observability/log"
)

// EventKind enumerates what an Event describes.
type EventKind string

const (
	EventSent         EventKind = "sent"
	EventQueued       EventKind = "queued"
	EventDelivered    EventKind = "delivered"
	EventSubscribed   EventKind = "subscribed"
	EventUnsubscribed EventKind = "unsubscribed"
	EventReport       EventKind = "report"
)

// Event is published to observers for every step a message takes and for
// every report the dispatcher raises.
type Event struct {
	Kind        EventKind
	Dispatcher  string
	MessageType string
	Timing      TimingClass
	Sender      string
	Receiver    string
	// Receivers counts the callbacks that ran, hidden ones included.
	Receivers int
	Time      float64
	Tick      int64
	Err       error
}

// Observer receives dispatcher events synchronously on the dispatching
// goroutine. Implementations must return quickly and must not block.
type Observer interface {
	OnEvent(e Event)
}

// ObserverFunc lets a plain function satisfy Observer.
type ObserverFunc func(e Event)

func (f ObserverFunc) OnEvent(e Event) { f(e) }

// LoggingObserver writes the message flow at debug level. Reports are logged
// by the dispatcher itself and are skipped here.
type LoggingObserver struct {
	Logger log.Log
}

func (o LoggingObserver) OnEvent(e Event) {
	if o.Logger == nil || e.Kind == EventReport {
		return
	}
	o.Logger.Debug("message "+string(e.Kind),
		log.String("message_type", e.MessageType),
		log.String("timing", e.Timing.String()),
		log.String("sender", e.Sender),
		log.String("receiver", e.Receiver),
		log.Int("receivers", e.Receivers),
		log.Float64("time", e.Time),
		log.Int64("tick", e.Tick),
	)
}
