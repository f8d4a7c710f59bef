package loader

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"tokibot/pkg/commands"
	"tokibot/pkg/config"
	"tokibot/pkg/cron"
	"tokibot/pkg/logger"
)

// Module provides the loader. It expects a Catalog and a MenuPublisher.
var Module = fx.Module("loader",
	fx.Provide(NewForFx),
	fx.Invoke(startLoader),
)

// NewForFx creates the loader for fx.
func NewForFx(
	log *logger.Logger,
	cfg *config.Config,
	catalog Catalog,
	registry *commands.Registry,
	scheduler *cron.Manager,
	menu MenuPublisher,
) *Loader {
	return New(log, config.ExpandPath(cfg.Handlers.Dir), catalog, registry, scheduler, menu)
}

// startLoader runs the initial load pass and, when enabled, the directory
// watcher.
func startLoader(lc fx.Lifecycle, log *logger.Logger, cfg *config.Config, l *Loader) {
	var watcher *Watcher
	ctx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			if _, err := l.Load(ctx); err != nil {
				log.Error("Initial handler load failed", zap.Error(err))
			}
			if !cfg.Handlers.Watch {
				return nil
			}
			w, err := NewWatcher(l)
			if err != nil {
				return err
			}
			if err := w.Start(ctx); err != nil {
				_ = w.Stop()
				return err
			}
			watcher = w
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			if watcher != nil {
				return watcher.Stop()
			}
			return nil
		},
	})
}
