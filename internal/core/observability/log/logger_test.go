package log

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   LevelDebug,
		"":        LevelInfo,
		"INFO":    LevelInfo,
		" warn ":  LevelWarn,
		"warning": LevelWarn,
		"error":   LevelError,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("verbose")
	require.Error(t, err)
}

func TestLoggerLevels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewWithCore(core, LevelWarn)
	require.Equal(t, LevelWarn, l.GetLevel())

	l.Debug("hidden")
	l.Info("hidden")
	l.Warn("shown")
	l.Error("shown")
	require.Equal(t, 2, logs.FilterMessage("shown").Len())
	require.Zero(t, logs.FilterMessage("hidden").Len())

	l.SetLevel(LevelDebug)
	l.Debug("now shown")
	require.Equal(t, 1, logs.FilterMessage("now shown").Len())
}

func TestLoggerFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewWithCore(core, LevelDebug).With(String("dispatcher", "main"))

	l.Info("event",
		Bool("hidden", true),
		Duration("wait", time.Second),
		Float64("time", 1.5),
		Int("count", 2),
		Int64("tick", 7),
		Any("tags", []string{"ai"}),
		Error(errors.New("boom")),
		Error(nil),
	)

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "main", fields["dispatcher"])
	assert.Equal(t, true, fields["hidden"])
	assert.Equal(t, time.Second, fields["wait"])
	assert.Equal(t, 1.5, fields["time"])
	assert.Equal(t, int64(2), fields["count"])
	assert.Equal(t, int64(7), fields["tick"])
	assert.Equal(t, "boom", fields["error"])
	assert.Len(t, fields, 8)
}

func TestLoggerWithSharesLevel(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	parent := NewWithCore(core, LevelInfo)
	child := parent.With(String("k", "v"))

	parent.SetLevel(LevelError)
	child.Warn("dropped")
	require.Zero(t, logs.Len())
	require.Equal(t, LevelError, child.GetLevel())
}

func TestProvide(t *testing.T) {
	require.Same(t, Provide(), Provide())
	require.NotNil(t, Nop())
	Nop().Error("discarded")
}
