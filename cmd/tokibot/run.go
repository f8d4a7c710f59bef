package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"tokibot/pkg/channels/telegram"
	"tokibot/pkg/chat"
	"tokibot/pkg/commands"
	"tokibot/pkg/config"
	"tokibot/pkg/cron"
	"tokibot/pkg/dispatch"
	"tokibot/pkg/loader"
	"tokibot/pkg/logger"
	"tokibot/pkg/plugins"
	"tokibot/pkg/state"
	"tokibot/pkg/version"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the bot in the foreground",
	Long: `Run the bot until interrupted. When installed as a service, the service
manager calls this command.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !isInteractive() {
			return RunService()
		}
		return runForeground()
	},
}

// configModule loads configuration from the --config flag or the default locations.
func configModule() fx.Option {
	return fx.Module("config",
		fx.Provide(config.ProvideLoader),
		fx.Provide(config.ProvideConfigWithPath(configPath)),
		fx.Provide(config.ProvideWatcher),
	)
}

// appOptions assembles the bot application.
func appOptions() fx.Option {
	return fx.Options(
		configModule(),
		logger.Module,
		state.Module,
		commands.Module,
		chat.Module,
		dispatch.Module,
		cron.Module,
		plugins.Module,
		loader.Module,
		telegram.Module,

		fx.Provide(func(c *telegram.Client) loader.MenuPublisher { return c }),
		fx.Invoke(watchAccess),
	)
}

// watchAccess swaps the dispatcher's guard inputs when the config file changes.
func watchAccess(w *config.Watcher, d *dispatch.Dispatcher, log *logger.Logger) {
	w.AddHandler(func(cfg *config.Config) error {
		d.SetAccess(dispatch.AccessFromConfig(cfg.Bot))
		log.Info("Access lists updated",
			zap.String("prefix", cfg.Bot.Prefix),
			zap.Int("admins", len(cfg.Bot.Admins)),
			zap.Int("vips", len(cfg.Bot.VIPs)))
		return nil
	})
}

func runForeground() error {
	app := fx.New(
		appOptions(),
		fx.Invoke(func(lc fx.Lifecycle, log *logger.Logger, client *telegram.Client) {
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					log.Info("tokibot started",
						zap.String("mode", "foreground"),
						zap.String("version", version.GetVersion()),
						zap.String("bot", client.Username()))
					log.Info("Press Ctrl+C to stop")
					return nil
				},
			})
		}),
		fx.NopLogger,
	)
	if err := app.Err(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), app.StopTimeout())
	defer cancel()
	return app.Stop(stopCtx)
}
