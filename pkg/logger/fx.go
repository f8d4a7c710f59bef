package logger

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"tokibot/pkg/config"
)

// Module provides the logger for fx dependency injection.
var Module = fx.Module("logger",
	fx.Provide(ProvideLogger),
	fx.Provide(func(l *Logger) *zap.Logger { return l.Logger }),
)

// FromConfig converts the logger section of the application config.
func FromConfig(c config.LoggerConfig) *Config {
	cfg := DefaultConfig()
	if c.Level != "" {
		cfg.Level = Level(c.Level)
	}
	cfg.OutputPath = c.OutputPath
	if c.MaxSizeMB > 0 {
		cfg.MaxSize = c.MaxSizeMB
	}
	if c.MaxBackups > 0 {
		cfg.MaxBackups = c.MaxBackups
	}
	if c.MaxAgeDays > 0 {
		cfg.MaxAge = c.MaxAgeDays
	}
	cfg.Compress = c.Compress
	cfg.Development = c.Development
	return cfg
}

// ProvideLogger builds the logger from configuration and flushes it on stop.
func ProvideLogger(lc fx.Lifecycle, cfg *config.Config) (*Logger, error) {
	lcfg := FromConfig(cfg.Logger)
	log, err := New(lcfg)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("Logger initialized",
				zap.String("level", string(lcfg.Level)),
				zap.String("output", lcfg.OutputPath))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return log.Sync()
		},
	})

	return log, nil
}
