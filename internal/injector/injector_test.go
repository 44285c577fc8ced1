package injector

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zeusync/courier/internal/config"
	"github.com/zeusync/courier/internal/core/entity"
	"github.com/zeusync/courier/internal/core/loop"
	"github.com/zeusync/courier/internal/core/messaging"
)

type heartbeat struct {
	messaging.Envelope
}

func TestInitializeApp(t *testing.T) {
	cfg := config.Default()
	cfg.Log.Level = "error"
	cfg.Loop.FrameRate = 200
	cfg.Monitor.Enabled = true
	cfg.Monitor.Addr = "127.0.0.1:0"

	app, cleanup, err := InitializeApp(cfg)
	require.NoError(t, err)
	require.NotNil(t, app.Monitor)
	require.Same(t, app.Dispatcher, messaging.Default())
	require.Equal(t, "courier", app.Dispatcher.Name())

	var received atomic.Int64
	messaging.SubscribeDefaultFunc(func(*heartbeat) { received.Add(1) })

	sender := entity.New("heart")
	require.NoError(t, app.Runner.Register(&loop.Funcs{
		ID: "heart",
		OnUpdate: func(float64) error {
			h := messaging.NewHeader(sender)
			h.Timing = messaging.LateUpdate
			messaging.Send(&heartbeat{Envelope: messaging.NewEnvelope(h)})
			return nil
		},
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	require.NoError(t, app.Run(ctx))

	require.NotZero(t, received.Load())
	require.Equal(t, uint64(received.Load()), app.Runner.Metrics().Delivered)

	cleanup()
	require.Equal(t, messaging.StateDestroyed, messaging.CurrentState())
	require.True(t, app.Dispatcher.Closed())
	require.Nil(t, messaging.Default())
}
