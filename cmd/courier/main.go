package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/zeusync/courier/internal/config"
	"github.com/zeusync/courier/internal/core/entity"
	"github.com/zeusync/courier/internal/core/loop"
	"github.com/zeusync/courier/internal/core/messaging"
	"github.com/zeusync/courier/internal/core/observability/log"
	"github.com/zeusync/courier/internal/injector"
)

// hotspotChanged is the demo message: a wired input changed its value.
type hotspotChanged struct {
	messaging.Envelope
	Address string
	Value   bool
}

func main() {
	path := flag.String("config", "", "path to a YAML config file")
	demo := flag.Bool("demo", true, "run the hotspot demo system")
	flag.Parse()

	cfg, err := config.Load(*path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error loading config:", err)
		os.Exit(1)
	}

	app, cleanup, err := injector.InitializeApp(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error starting courier:", err)
		os.Exit(1)
	}
	defer cleanup()

	if *demo {
		if err := registerDemo(app.Dispatcher, app.Runner, app.Logger); err != nil {
			app.Logger.Error("failed to register demo", log.Error(err))
			return
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx); err != nil {
		app.Logger.Error("courier stopped with error", log.Error(err))
	}
	st := app.Dispatcher.Stats()
	app.Logger.Info("courier stopped",
		log.Int64("sent", int64(st.Sent)),
		log.Int64("delivered", int64(st.Delivered)),
		log.Int64("reports", int64(st.Reports)),
	)
	_ = app.Logger.Sync()
}

// registerDemo wires a panel that flips a hotspot once a second through the
// fixed update queue and a lamp that only hears the panel's messages addressed
// to it.
func registerDemo(d *messaging.Dispatcher, runner *loop.Runner, logger log.Log) error {
	panel, lamp := entity.New("panel"), entity.New("lamp")
	value := false

	messaging.SubscribeFiltered(d, panel, lamp, func(m *hotspotChanged) {
		logger.Info("hotspot changed",
			log.String("address", m.Address),
			log.Bool("value", m.Value),
			log.String("receiver", m.Header().Receiver.String()),
			log.Float64("sent", m.SentTime()),
			log.Float64("arrived", d.Clock().Now()),
		)
	})

	pending := false
	return runner.Register(&loop.Funcs{
		ID:    "panel",
		Order: loop.PriorityHigh,
		OnUpdate: func(float64) error {
			if pending {
				return nil
			}
			pending = true
			value = !value

			h := messaging.NewHeader(panel)
			h.Receiver = lamp
			h.DelaySeconds = 1
			h.Timing = messaging.FixedUpdate
			h.RequireReceiver = true
			d.Send(&hotspotChanged{Envelope: messaging.NewEnvelope(h), Address: "box1", Value: value})
			return nil
		},
		OnFixedUpdate: func(float64) error {
			if d.Queue(messaging.FixedUpdate).Len() == 0 {
				pending = false
			}
			return nil
		},
	})
}
