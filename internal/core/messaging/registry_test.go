package messaging

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func registration(key any) *Registration {
	reg := &Registration{deliver: func(Message) {}}
	switch key.(type) {
	case *doorOpened:
		reg.key = keyOf[*doorOpened]()
	default:
		reg.key = keyOf[*hotspotChanged]()
	}
	return reg
}

func TestRegistry(t *testing.T) {
	t.Run("insertion order per bucket", func(t *testing.T) {
		r := newRegistry(4)
		a, b, c := registration(nil), registration(nil), registration(&doorOpened{})
		r.add(a)
		r.add(b)
		require.Equal(t, int64(3), r.add(c))

		require.Equal(t, []*Registration{a, b}, r.snapshot(a.key))
		require.Equal(t, []*Registration{c}, r.snapshot(c.key))
		require.Nil(t, r.snapshot(messageType))
	})

	t.Run("snapshot is detached", func(t *testing.T) {
		r := newRegistry(1)
		a := registration(nil)
		r.add(a)
		snap := r.snapshot(a.key)

		r.markRemoval(a)
		removed, errs := r.applyRemovals()
		require.Equal(t, 1, removed)
		require.Empty(t, errs)
		require.Len(t, snap, 1)
		require.Nil(t, r.snapshot(a.key))
	})

	t.Run("two phase removal", func(t *testing.T) {
		r := newRegistry(2)
		a := registration(nil)
		r.add(a)

		r.markRemoval(a)
		require.True(t, a.removed.Load())
		require.True(t, r.hasPending())
		require.Equal(t, 1, r.len())

		removed, errs := r.applyRemovals()
		require.Equal(t, 1, removed)
		require.Empty(t, errs)
		require.False(t, r.hasPending())
		require.Zero(t, r.len())
	})

	t.Run("removal errors", func(t *testing.T) {
		r := newRegistry(2)
		a := registration(nil)
		r.add(a)
		r.markRemoval(a)
		r.markRemoval(a)
		r.markRemoval(registration(&doorOpened{}))

		removed, errs := r.applyRemovals()
		require.Equal(t, 1, removed)
		require.Len(t, errs, 2)
		require.True(t, errors.Is(errs[0], ErrSubscriptionNotFound))
		require.True(t, errors.Is(errs[1], ErrNoSubscriptionsOfType))
		require.Zero(t, r.len())
	})

	t.Run("foreign registrations are not flagged", func(t *testing.T) {
		r, other := newRegistry(1), newRegistry(1)
		a := registration(nil)
		other.add(a)

		r.markRemoval(a)
		require.False(t, a.removed.Load())
	})

	t.Run("clear", func(t *testing.T) {
		r := newRegistry(3)
		a, b := registration(nil), registration(&doorOpened{})
		r.add(a)
		r.add(b)
		r.markRemoval(a)

		r.clear()
		require.Zero(t, r.len())
		require.False(t, r.hasPending())
		require.True(t, b.removed.Load())
		require.Nil(t, r.snapshot(b.key))
	})

	t.Run("keys", func(t *testing.T) {
		require.Equal(t, messageType, keyOf[Message]())
		require.Equal(t, messageType, keyOf[*Envelope]())
		require.NotEqual(t, messageType, keyOf[*hotspotChanged]())
	})
}
