package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestManual(t *testing.T) {
	t.Run("Set", func(t *testing.T) {
		m := NewManual(10, 3)
		require.Equal(t, 10.0, m.Now())
		require.Equal(t, int64(3), m.Tick())
	})

	t.Run("Advance keeps tick", func(t *testing.T) {
		m := NewManual(1, 7)
		m.Advance(0.5)
		require.InDelta(t, 1.5, m.Now(), 1e-9)
		require.Equal(t, int64(7), m.Tick())
	})

	t.Run("Step", func(t *testing.T) {
		m := NewManual(0, 0)
		m.Step(0.25)
		m.Step(0.25)
		require.InDelta(t, 0.5, m.Now(), 1e-9)
		require.Equal(t, int64(2), m.Tick())
	})
}

func TestFrame(t *testing.T) {
	f := NewFrame()
	var fake time.Duration
	f.elapsed = func(time.Time) time.Duration { return fake }

	require.Equal(t, 0.0, f.Now())
	require.Equal(t, int64(0), f.Tick())

	fake = 100 * time.Millisecond
	dt := f.BeginFrame()
	require.InDelta(t, 0.1, dt, 1e-9)
	require.InDelta(t, 0.1, f.Now(), 1e-9)
	require.Equal(t, int64(1), f.Tick())

	// time is frozen inside a frame
	fake = 250 * time.Millisecond
	require.InDelta(t, 0.1, f.Now(), 1e-9)

	dt = f.BeginFrame()
	require.InDelta(t, 0.15, dt, 1e-9)
	require.Equal(t, int64(2), f.Tick())
}
