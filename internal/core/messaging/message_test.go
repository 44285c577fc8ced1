package messaging

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zeusync/courier/internal/core/entity"
)

func TestHeader(t *testing.T) {
	t.Run("NewHeader defaults", func(t *testing.T) {
		sender := entity.New("sender")
		h := NewHeader(sender)
		require.Same(t, sender, h.Sender)
		require.Nil(t, h.Receiver)
		require.Equal(t, float64(NoDelay), h.DelaySeconds)
		require.Equal(t, int64(NoDelay), h.DelayTicks)
		require.Equal(t, Immediate, h.Timing)
		require.False(t, h.timeDriven())
	})

	t.Run("Tags", func(t *testing.T) {
		h := NewHeader(nil)
		h.Tags = []Tag{TagAI, TagNetwork}
		require.True(t, h.HasTag(TagAI))
		require.False(t, h.HasTag(TagPlayerCommand))
	})
}

func TestEnvelopeStamp(t *testing.T) {
	t.Run("time driven", func(t *testing.T) {
		h := NewHeader(entity.New("s"))
		h.DelaySeconds = 2
		msg := newHotspot(h, "box1", true)
		msg.stamp(10, 40)

		require.Equal(t, 10.0, msg.SentTime())
		require.Equal(t, int64(40), msg.SentTick())
		require.Equal(t, 12.0, msg.DesiredArrivalTime())
		require.Equal(t, int64(40), msg.DesiredArrivalTick())
	})

	t.Run("tick driven", func(t *testing.T) {
		h := NewHeader(entity.New("s"))
		h.DelayTicks = 3
		msg := NewMessage(h)
		msg.stamp(1.5, 7)

		require.Equal(t, 1.5, msg.DesiredArrivalTime())
		require.Equal(t, int64(10), msg.DesiredArrivalTick())
	})

	t.Run("unsent", func(t *testing.T) {
		msg := NewMessage(NewHeader(nil))
		require.Equal(t, -1.0, msg.SentTime())
		require.Equal(t, int64(-1), msg.SentTick())
	})
}

func TestDefaultHeader(t *testing.T) {
	msg := MessageWithDefaultHeader()
	require.NotNil(t, msg.Header())
	require.NotNil(t, msg.Header().Sender)
	require.Equal(t, headlessName, msg.Header().Sender.Name())
	require.Nil(t, msg.Header().Receiver)

	other := &doorOpened{Envelope: WithDefaultHeader(), Door: "north"}
	require.NotSame(t, msg.Header().Sender, other.Header().Sender)
}

func TestTimingClass(t *testing.T) {
	for i, class := range QueuedClasses {
		idx, ok := class.queueIndex()
		require.True(t, ok)
		require.Equal(t, i, idx)
	}
	_, ok := Immediate.queueIndex()
	require.False(t, ok)
	_, ok = TimingClass(42).queueIndex()
	require.False(t, ok)

	text, err := LateUpdate.MarshalText()
	require.NoError(t, err)
	require.Equal(t, "late_update", string(text))
}

func TestIsNilMessage(t *testing.T) {
	var typed *hotspotChanged
	require.True(t, isNilMessage(nil))
	require.True(t, isNilMessage(typed))
	require.False(t, isNilMessage(NewMessage(nil)))
	require.Equal(t, "*messaging.hotspotChanged", typeName(newHotspot(nil, "", false)))
}
