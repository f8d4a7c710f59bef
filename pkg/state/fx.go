package state

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"tokibot/pkg/config"
	"tokibot/pkg/dispatch"
	"tokibot/pkg/logger"
)

// Module is the fx module for state management.
var Module = fx.Module("state",
	fx.Provide(
		NewKVStore,
		NewUsage,
		func(u *Usage) dispatch.UsageRecorder { return u },
	),
)

// NewKVStore creates the configured KV store for fx.
func NewKVStore(lc fx.Lifecycle, log *logger.Logger, cfg *config.Config) (KV, error) {
	stateConfig := &Config{
		Backend:       BackendType(cfg.State.Backend),
		FilePath:      cfg.State.FilePath,
		AutoSave:      true,
		SaveIntervalS: 5,
		RedisAddr:     cfg.State.Redis.Addr,
		RedisPassword: cfg.State.Redis.Password,
		RedisDB:       cfg.State.Redis.DB,
		RedisPrefix:   cfg.State.Redis.Prefix,
	}

	store, err := NewKV(context.Background(), log.Named("state"), stateConfig)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("State store initialized", zap.String("backend", string(stateConfig.Backend)))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return store.Close()
		},
	})

	return store, nil
}
