package messaging

import (
	"reflect"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/zeusync/courier/internal/core/entity"
)

// Subscription describes interest in messages of type T. Nil Sender or
// Receiver filters match anything. A hidden subscription receives messages
// but never satisfies Header.RequireReceiver.
type Subscription[T Message] struct {
	Sender   *entity.Handle
	Receiver *entity.Handle
	Hidden   bool
	Receive  func(T)
}

// Registration is the handle returned by Subscribe and consumed by
// Unsubscribe.
type Registration struct {
	id       uuid.UUID
	key      reflect.Type
	sender   *entity.Handle
	receiver *entity.Handle
	hidden   bool
	deliver  func(Message)

	owner   *registry
	removed atomic.Bool
}

func (r *Registration) ID() uuid.UUID { return r.id }

// MessageType names the bucket the registration lives in.
func (r *Registration) MessageType() string { return r.key.String() }

func (r *Registration) Hidden() bool { return r.hidden }

// Active reports whether the registration still receives messages. It turns
// false as soon as Unsubscribe is called, before the bucket is compacted.
func (r *Registration) Active() bool {
	return r != nil && r.owner != nil && !r.removed.Load()
}

func (r *Registration) matches(h *Header) bool {
	return (r.sender == nil || r.sender == h.Sender) &&
		(r.receiver == nil || r.receiver == h.Receiver)
}

// keyOf maps T to its registry bucket. Message and *Envelope both select the
// base-type bucket.
func keyOf[T Message]() reflect.Type {
	t := reflect.TypeOf((*T)(nil)).Elem()
	if t == envelopeType {
		return messageType
	}
	return t
}

// Subscribe registers sub on d for messages of exact type T. Subscribing with
// T set to Message or *Envelope listens to every message. It returns nil when
// d rejects the subscription.
func Subscribe[T Message](d *Dispatcher, sub Subscription[T]) *Registration {
	if d == nil {
		return nil
	}
	if sub.Receive == nil {
		d.report(ErrNilCallback, nil)
		return nil
	}
	receive := sub.Receive
	reg := &Registration{
		id:       uuid.New(),
		key:      keyOf[T](),
		sender:   sub.Sender,
		receiver: sub.Receiver,
		hidden:   sub.Hidden,
		deliver: func(m Message) {
			if v, ok := m.(T); ok {
				receive(v)
				return
			}
			// base-type listeners declared as *Envelope
			if v, ok := Message(m.envelope()).(T); ok {
				receive(v)
			}
		},
	}
	if !d.register(reg) {
		return nil
	}
	return reg
}

// SubscribeFunc registers an unfiltered, visible subscription.
func SubscribeFunc[T Message](d *Dispatcher, receive func(T)) *Registration {
	return Subscribe(d, Subscription[T]{Receive: receive})
}

// SubscribeFiltered registers a visible subscription restricted to the given
// sender and receiver.
func SubscribeFiltered[T Message](d *Dispatcher, sender, receiver *entity.Handle, receive func(T)) *Registration {
	return Subscribe(d, Subscription[T]{Sender: sender, Receiver: receiver, Receive: receive})
}
