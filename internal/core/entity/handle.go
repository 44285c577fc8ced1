package entity

import (
	"github.com/google/uuid"
)

// Handle identifies a sender or receiver of messages. Handles are compared by
// pointer; two handles with the same name are still different entities.
type Handle struct {
	id   uuid.UUID
	name string
}

// New creates a handle with a fresh identifier.
func New(name string) *Handle {
	return &Handle{id: uuid.New(), name: name}
}

func (h *Handle) ID() uuid.UUID {
	if h == nil {
		return uuid.Nil
	}
	return h.id
}

func (h *Handle) Name() string {
	if h == nil {
		return ""
	}
	return h.name
}

// String renders the handle for logs; a nil handle is the wildcard "*".
func (h *Handle) String() string {
	if h == nil {
		return "*"
	}
	if h.name == "" {
		return h.id.String()
	}
	return h.name + "#" + h.id.String()[:8]
}
