package messaging

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zeusync/courier/internal/core/entity"
)

func queuedMessage(t *testing.T, seconds float64, ticks int64, now float64, tick int64) *hotspotChanged {
	t.Helper()
	h := NewHeader(entity.New("sender"))
	h.Timing = Update
	h.DelaySeconds = seconds
	h.DelayTicks = ticks
	msg := newHotspot(h, "box1", true)
	msg.stamp(now, tick)
	return msg
}

func collect(out *[]Message) func(Message) {
	return func(m Message) { *out = append(*out, m) }
}

func TestDelayedQueue(t *testing.T) {
	t.Run("empty queue never triggers", func(t *testing.T) {
		q := NewDelayedQueue(Update)
		seconds, _, ok := q.NextDue()
		require.True(t, math.IsInf(seconds, 1))
		require.False(t, ok)

		var got []Message
		require.Zero(t, q.Flush(1e9, 1e9, collect(&got)))
	})

	t.Run("time driven", func(t *testing.T) {
		q := NewDelayedQueue(Update)
		msg := queuedMessage(t, 2.0, NoDelay, 10.0, 0)
		q.Add(msg)

		seconds, _, ok := q.NextDue()
		require.Equal(t, 12.0, seconds)
		require.False(t, ok)

		var got []Message
		require.Zero(t, q.Flush(11.9, 100, collect(&got)))
		require.Empty(t, got)
		require.Equal(t, 1, q.Len())

		require.Equal(t, 1, q.Flush(12.0, 100, collect(&got)))
		require.Equal(t, []Message{msg}, got)
		require.Zero(t, q.Len())

		require.Zero(t, q.Flush(13.0, 101, collect(&got)))
		require.Len(t, got, 1)
	})

	t.Run("tick driven", func(t *testing.T) {
		q := NewDelayedQueue(Update)
		msg := queuedMessage(t, NoDelay, 3, 0, 5)
		q.Add(msg)

		_, tick, ok := q.NextDue()
		require.True(t, ok)
		require.Equal(t, int64(8), tick)

		var got []Message
		require.Zero(t, q.Flush(100, 7, collect(&got)))
		require.Equal(t, 1, q.Flush(100, 8, collect(&got)))
		require.Equal(t, []Message{msg}, got)
	})

	t.Run("time driven ignores ticks", func(t *testing.T) {
		q := NewDelayedQueue(Update)
		q.Add(queuedMessage(t, 1.0, 0, 0, 0))

		var got []Message
		require.Zero(t, q.Flush(0.5, 50, collect(&got)))
		require.Equal(t, 1, q.Flush(1.0, 50, collect(&got)))
	})

	t.Run("no delay is due on the sending tick", func(t *testing.T) {
		q := NewDelayedQueue(EndOfFrame)
		q.Add(queuedMessage(t, NoDelay, NoDelay, 3.0, 9))

		var got []Message
		require.Equal(t, 1, q.Flush(3.0, 9, collect(&got)))
	})

	t.Run("keeps not yet due entries and their minimum", func(t *testing.T) {
		q := NewDelayedQueue(Update)
		early := queuedMessage(t, 1.0, NoDelay, 0, 0)
		late := queuedMessage(t, 5.0, NoDelay, 0, 0)
		later := queuedMessage(t, 9.0, NoDelay, 0, 0)
		byTick := queuedMessage(t, NoDelay, 4, 0, 0)
		q.Add(later)
		q.Add(early)
		q.Add(byTick)
		q.Add(late)

		var got []Message
		require.Equal(t, 1, q.Flush(1.0, 0, collect(&got)))
		require.Equal(t, []Message{early}, got)

		seconds, tick, ok := q.NextDue()
		require.Equal(t, 5.0, seconds)
		require.True(t, ok)
		require.Equal(t, int64(4), tick)

		got = nil
		require.Equal(t, 1, q.Flush(2.0, 4, collect(&got)))
		require.Equal(t, []Message{byTick}, got)

		got = nil
		require.Equal(t, 2, q.Flush(9.0, 5, collect(&got)))
		require.Equal(t, []Message{later, late}, got, "delivered in insertion order")
	})

	t.Run("messages added while flushing wait for the next flush", func(t *testing.T) {
		q := NewDelayedQueue(Update)
		first := queuedMessage(t, NoDelay, NoDelay, 0, 1)
		second := queuedMessage(t, NoDelay, NoDelay, 0, 1)
		q.Add(first)

		var got []Message
		delivered := q.Flush(0, 1, func(m Message) {
			got = append(got, m)
			if m == first {
				q.Add(second)
			}
		})
		require.Equal(t, 1, delivered)
		require.Equal(t, []Message{first}, got)
		require.Equal(t, 1, q.Len())

		require.Equal(t, 1, q.Flush(0, 1, collect(&got)))
		require.Equal(t, []Message{first, second}, got)
	})

	t.Run("Clear", func(t *testing.T) {
		q := NewDelayedQueue(LateUpdate)
		q.Add(queuedMessage(t, 1.0, NoDelay, 0, 0))
		q.Add(queuedMessage(t, NoDelay, 1, 0, 0))
		require.Equal(t, 2, q.Clear())
		require.Zero(t, q.Len())

		var got []Message
		require.Zero(t, q.Flush(100, 100, collect(&got)))
	})
}
