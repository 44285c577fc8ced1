package injector

import (
	"github.com/google/wire"

	"github.com/zeusync/courier/internal/config"
	"github.com/zeusync/courier/internal/core/clock"
	"github.com/zeusync/courier/internal/core/loop"
	"github.com/zeusync/courier/internal/core/messaging"
	"github.com/zeusync/courier/internal/core/observability/log"
	"github.com/zeusync/courier/internal/server"
)

var ProviderSet = wire.NewSet(
	ProvideLogger,
	ProvideFrameClock,
	ProvideDispatcher,
	ProvideMonitor,
	ProvideRunner,
	NewApp,
)

func ProvideLogger(cfg *config.Config) *log.Logger {
	return log.New(cfg.LogLevel())
}

func ProvideFrameClock() *clock.Frame {
	return clock.NewFrame()
}

// ProvideDispatcher builds the host dispatcher and installs it as the process
// default. The cleanup shuts the default down.
func ProvideDispatcher(cfg *config.Config, logger *log.Logger, frame *clock.Frame) (*messaging.Dispatcher, func(), error) {
	opts := []messaging.Option{
		messaging.WithName(cfg.Dispatcher.Name),
		messaging.WithClock(frame),
		messaging.WithLogger(logger),
		messaging.WithRegistryShards(cfg.Dispatcher.RegistryShards),
	}
	if cfg.LogLevel() == log.LevelDebug {
		opts = append(opts, messaging.WithObserver(messaging.LoggingObserver{Logger: logger}))
	}
	d := messaging.New(opts...)
	if err := messaging.SetDefault(d); err != nil {
		_ = d.Close()
		return nil, nil, err
	}
	return d, messaging.Shutdown, nil
}

// ProvideMonitor returns nil when the monitor is disabled.
func ProvideMonitor(cfg *config.Config, logger *log.Logger, d *messaging.Dispatcher) *server.Monitor {
	if !cfg.Monitor.Enabled {
		return nil
	}
	m := server.NewMonitor(server.MonitorConfig{
		Path:         cfg.Monitor.Path,
		Backlog:      cfg.Monitor.Backlog,
		WriteTimeout: cfg.Monitor.Timeout,
	}, logger, d)
	d.AddObserver(m)
	return m
}

func ProvideRunner(cfg *config.Config, logger *log.Logger, frame *clock.Frame, d *messaging.Dispatcher) *loop.Runner {
	return loop.NewRunner(frame, d,
		loop.WithFixedStep(cfg.Loop.FixedStep),
		loop.WithFrameRate(cfg.Loop.FrameRate),
		loop.WithMaxFixedSteps(cfg.Loop.MaxFixedSteps),
		loop.WithLogger(logger),
	)
}
