package messaging

import "errors"

var (
	ErrMalformedSend         = errors.New("message must include a header and a header sender")
	ErrUnknownTiming         = errors.New("unknown timing class")
	ErrNoReceiver            = errors.New("message sent without the required receiver")
	ErrSubscriptionNotFound  = errors.New("subscription not found")
	ErrNoSubscriptionsOfType = errors.New("no subscriptions of that message type")
	ErrNilCallback           = errors.New("subscription has no receive callback")
	ErrCallbackPanic         = errors.New("subscriber panicked")
	ErrClosed                = errors.New("dispatcher is closed")
	ErrMultipleInstances     = errors.New("more than one dispatcher instance is live")
	ErrShuttingDown          = errors.New("dispatcher instance is shutting down")
	ErrNilDispatcher         = errors.New("nil dispatcher")
)
