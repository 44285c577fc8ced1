package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/zeusync/courier/internal/core/clock"
	"github.com/zeusync/courier/internal/core/loop"
	"github.com/zeusync/courier/internal/core/messaging"
	"github.com/zeusync/courier/internal/core/observability/log"
)

type halfSecondClock struct{ *clock.Manual }

func (c halfSecondClock) BeginFrame() float64 {
	c.Step(0.5)
	return 0.5
}

func TestDemoDeliversToLamp(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := log.NewWithCore(core, log.LevelDebug)

	c := halfSecondClock{clock.NewManual(0, 0)}
	d := messaging.New(messaging.WithName(t.Name()), messaging.WithClock(c), messaging.WithLogger(logger))
	t.Cleanup(func() { _ = d.Close() })
	runner := loop.NewRunner(c, d, loop.WithFixedStep(0.25), loop.WithLogger(logger))

	require.NoError(t, registerDemo(d, runner, logger))

	// Sent at 0.5 and due one second later, on the first fixed step of frame three.
	runner.Step()
	runner.Step()
	require.Zero(t, logs.FilterMessage("hotspot changed").Len())
	runner.Step()

	entries := logs.FilterMessage("hotspot changed").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	require.Equal(t, "box1", fields["address"])
	require.Equal(t, true, fields["value"])
	require.True(t, strings.HasPrefix(fields["receiver"].(string), "lamp#"))
	require.Equal(t, 0.5, fields["sent"])
	require.Equal(t, 1.5, fields["arrived"])

	require.Zero(t, logs.FilterMessage("dispatcher report").Len(), "the lamp subscription counts as a receiver")
	require.Equal(t, 1, d.Stats().Pending, "the next flip is queued")
}
