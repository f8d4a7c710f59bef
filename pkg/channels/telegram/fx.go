package telegram

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"tokibot/pkg/chat"
	"tokibot/pkg/config"
	"tokibot/pkg/dispatch"
	"tokibot/pkg/logger"
)

// Module provides the Telegram client as the chat transport and runs the
// update loop for the application lifetime.
var Module = fx.Module("telegram",
	fx.Provide(
		newClient,
		func(c *Client) chat.Transport { return c },
	),
	fx.Invoke(startPolling),
)

func newClient(log *logger.Logger, cfg *config.Config) (*Client, error) {
	return Connect(log, cfg.Telegram)
}

func startPolling(lc fx.Lifecycle, log *logger.Logger, client *Client, d *dispatch.Dispatcher) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				if err := client.Run(ctx, d); err != nil {
					log.Error("Telegram update loop failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
			case <-stopCtx.Done():
				return stopCtx.Err()
			}
			return nil
		},
	})
}
