package chat

import (
	"net/http"

	"go.uber.org/fx"

	"tokibot/pkg/config"
)

// Module provides the reply normalizer factory. It expects a Transport.
var Module = fx.Module("chat",
	fx.Provide(
		newProber,
		newDownloader,
		NewFactory,
	),
)

func newProber(cfg *config.Config) Prober {
	return NewHTTPProber(http.DefaultClient, cfg.Media.ProbeTimeout())
}

func newDownloader(cfg *config.Config) Downloader {
	return NewHTTPDownloader(http.DefaultClient, cfg.Media.DownloadTimeout(), cfg.Media.MaxDownloadBytes())
}

