package cron

import (
	"context"

	"go.uber.org/fx"

	"tokibot/pkg/chat"
	"tokibot/pkg/commands"
	"tokibot/pkg/config"
	"tokibot/pkg/dispatch"
	"tokibot/pkg/logger"
)

// Module is the fx module for cron.
var Module = fx.Module("cron",
	fx.Provide(NewManager),
)

// NewManager creates a new cron manager for fx.
func NewManager(
	lc fx.Lifecycle,
	log *logger.Logger,
	cfg *config.Config,
	chats *chat.Factory,
	bindings commands.Bindings,
	registry *commands.Registry,
	d *dispatch.Dispatcher,
) *Manager {
	manager := New(log, chats, bindings, registry, d, cfg.Handlers.Timezone)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return manager.Start()
		},
		OnStop: func(ctx context.Context) error {
			return manager.Stop()
		},
	})

	return manager
}
