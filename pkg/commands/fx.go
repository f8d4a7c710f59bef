package commands

import (
	"go.uber.org/fx"

	"tokibot/pkg/callbacks"
	"tokibot/pkg/listeners"
)

// Module provides the command registry and the shared callback registries.
var Module = fx.Module("commands",
	fx.Provide(
		NewRegistry,
		listeners.NewRegistry,
		callbacks.NewReplyTable,
		callbacks.NewAnswerTable,
		newBindings,
	),
)

func newBindings(l *listeners.Registry, a *callbacks.AnswerTable, r *callbacks.ReplyTable) Bindings {
	return Bindings{Listeners: l, Answers: a, Replies: r}
}
