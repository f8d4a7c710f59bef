package dispatch

import (
	"go.uber.org/fx"

	"tokibot/pkg/commands"
	"tokibot/pkg/config"
	"tokibot/pkg/ratelimit"
)

// Module provides the dispatcher.
var Module = fx.Module("dispatch",
	fx.Provide(
		newLimiter,
		newAccess,
		fx.Annotate(New, fx.ParamTags("", "", "", "", "", `optional:"true"`, "")),
	),
)

func newLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(cfg.Bot.Cooldown())
}

func newAccess(cfg *config.Config) *commands.Access {
	return AccessFromConfig(cfg.Bot)
}

// AccessFromConfig builds guard inputs from the bot section.
func AccessFromConfig(bot config.BotConfig) *commands.Access {
	return commands.NewAccess(bot.Prefix, bot.Admins, bot.VIPs)
}
