package commands

import (
	"context"
	"strings"

	"tokibot/pkg/callbacks"
	"tokibot/pkg/chat"
	"tokibot/pkg/listeners"
	"tokibot/pkg/logger"
	"tokibot/pkg/update"
)

// Context is what a command, event or job receives.
type Context struct {
	Chat *chat.Chat
	// Message is the triggering message. It is nil for jobs.
	Message *update.Message
	// Name is the name or alias the command was invoked with.
	Name   string
	Args   []string
	ChatID int64
	UserID int64
	Access *Access
	// Table is the command table the update was resolved against.
	Table *Table
	Log   *logger.Logger

	listeners *listeners.Registry
	answers   *callbacks.AnswerTable
	replies   *callbacks.ReplyTable
}

// Bindings are the shared registries a Context registers into.
type Bindings struct {
	Listeners *listeners.Registry
	Answers   *callbacks.AnswerTable
	Replies   *callbacks.ReplyTable
}

// Bind attaches the shared registries to c.
func (c *Context) Bind(b Bindings) *Context {
	c.listeners = b.Listeners
	c.answers = b.Answers
	c.replies = b.Replies
	return c
}

// ArgString returns the arguments joined by single spaces.
func (c *Context) ArgString() string { return strings.Join(c.Args, " ") }

// Reply is shorthand for c.Chat.Reply.
func (c *Context) Reply(ctx context.Context, r chat.Reply, opts ...chat.Option) *chat.Handle {
	return c.Chat.Reply(ctx, r, opts...)
}

// Say sends plain text to the originating chat.
func (c *Context) Say(ctx context.Context, text string) *chat.Handle {
	return c.Chat.Say(ctx, text)
}

// Listen registers a passive message listener.
func (c *Context) Listen(match listeners.MessagePredicate, action listeners.MessageAction) listeners.Unregister {
	if c.listeners == nil {
		return func() {}
	}
	return c.listeners.Add(match, action)
}

// ListenButtons registers a passive button listener.
func (c *Context) ListenButtons(match listeners.ButtonPredicate, action listeners.ButtonAction) listeners.Unregister {
	if c.listeners == nil {
		return func() {}
	}
	return c.listeners.AddButton(match, action)
}

// OnButton registers the callback for a button payload.
func (c *Context) OnButton(buttonID string, fn callbacks.AnswerFunc) {
	if c.answers != nil {
		c.answers.Set(buttonID, fn)
	}
}

// OnReply registers fn for every reply to the message behind h.
func (c *Context) OnReply(h *chat.Handle, fn callbacks.ReplyFunc) {
	if c.replies == nil || h == nil {
		return
	}
	c.replies.Set(h.ChatID, h.MessageID(), fn)
}
