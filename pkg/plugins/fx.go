package plugins

import (
	"go.uber.org/fx"

	"tokibot/pkg/config"
	"tokibot/pkg/cron"
	"tokibot/pkg/loader"
	"tokibot/pkg/logger"
	"tokibot/pkg/state"
)

// Module provides the handler catalog.
var Module = fx.Module("plugins",
	fx.Provide(
		newCatalog,
		func(c *Catalog) loader.Catalog { return c },
	),
	fx.Invoke(func(c *Catalog, l *loader.Loader) { c.SetReloader(l) }),
)

func newCatalog(cfg *config.Config, log *logger.Logger, usage *state.Usage, jobs *cron.Manager) *Catalog {
	return NewCatalog(Deps{
		API:   NewAPI(cfg.API.BaseURL, nil, cfg.API.Timeout()),
		Usage: usage,
		Jobs:  jobs,
		Log:   log.Named("plugins"),
	})
}
