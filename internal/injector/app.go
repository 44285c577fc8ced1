package injector

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/zeusync/courier/internal/config"
	"github.com/zeusync/courier/internal/core/loop"
	"github.com/zeusync/courier/internal/core/messaging"
	"github.com/zeusync/courier/internal/core/observability/log"
	"github.com/zeusync/courier/internal/server"
)

// App is a wired courier host.
type App struct {
	Config     *config.Config
	Logger     *log.Logger
	Dispatcher *messaging.Dispatcher
	Runner     *loop.Runner
	Monitor    *server.Monitor
}

func NewApp(cfg *config.Config, logger *log.Logger, d *messaging.Dispatcher, runner *loop.Runner, monitor *server.Monitor) *App {
	return &App{
		Config:     cfg,
		Logger:     logger,
		Dispatcher: d,
		Runner:     runner,
		Monitor:    monitor,
	}
}

// Run drives the frame loop, and the monitor when enabled, until ctx is done
// or one of them fails.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.Runner.Run(ctx)
	})
	if a.Monitor != nil {
		g.Go(func() error {
			return a.Monitor.ListenAndServe(ctx, a.Config.Monitor.Addr)
		})
	}
	return g.Wait()
}
