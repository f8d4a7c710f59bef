// Package dispatch routes inbound updates to reply callbacks, commands,
// listeners and button callbacks.
package dispatch

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"
	"unicode"

	"go.uber.org/zap"

	"tokibot/pkg/callbacks"
	"tokibot/pkg/chat"
	"tokibot/pkg/commands"
	"tokibot/pkg/logger"
	"tokibot/pkg/ratelimit"
	"tokibot/pkg/update"
)

// User-visible notices.
const (
	textReplyError     = "Error processing reply."
	textAdminRequired  = "Admin access required."
	textVIPRequired    = "VIP access required."
	textSlowDown       = "Slow down! Try again in a moment."
	textCommandError   = "Error executing command."
	textUnknownCommand = "Unknown command. Try /help."
	textButtonError    = "Error processing button action."
	textUnknownButton  = "Unknown button action."
)

// UsageRecorder counts accepted command executions.
type UsageRecorder interface {
	IncrUsage(ctx context.Context, command string) (int64, error)
}

// Dispatcher is the entry point for every inbound update.
type Dispatcher struct {
	registry *commands.Registry
	bindings commands.Bindings
	limiter  *ratelimit.Limiter
	chats    *chat.Factory
	usage    UsageRecorder
	log      *logger.Logger

	access atomic.Pointer[commands.Access]
}

// New creates a dispatcher. usage may be nil.
func New(
	registry *commands.Registry,
	bindings commands.Bindings,
	limiter *ratelimit.Limiter,
	chats *chat.Factory,
	access *commands.Access,
	usage UsageRecorder,
	log *logger.Logger,
) *Dispatcher {
	d := &Dispatcher{
		registry: registry,
		bindings: bindings,
		limiter:  limiter,
		chats:    chats,
		usage:    usage,
		log:      log.Named("dispatch"),
	}
	if access == nil {
		access = commands.NewAccess("", nil, nil)
	}
	d.access.Store(access)
	return d
}

// SetAccess replaces the guard inputs used by subsequent updates.
func (d *Dispatcher) SetAccess(a *commands.Access) {
	if a != nil {
		d.access.Store(a)
	}
}

// Access returns the current guard inputs.
func (d *Dispatcher) Access() *commands.Access {
	return d.access.Load()
}

// Tokenize splits text into a lower-cased command name and arguments.
// The split happens whether or not text starts with prefix. The name ends
// at the first whitespace; arguments are separated by runs of spaces only,
// so line breaks inside an argument survive.
func Tokenize(text, prefix string) (name string, args []string, hasPrefix bool) {
	hasPrefix = prefix != "" && strings.HasPrefix(text, prefix)
	if hasPrefix {
		text = text[len(prefix):]
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", nil, hasPrefix
	}
	rest := ""
	if i := strings.IndexFunc(text, unicode.IsSpace); i >= 0 {
		text, rest = text[:i], text[i:]
	}
	name = strings.ToLower(text)
	if hasPrefix {
		// "/help@tokibot" addresses this bot in groups.
		if at := strings.Index(name, "@"); at > 0 {
			name = name[:at]
		}
	}
	rest = strings.TrimLeftFunc(rest, unicode.IsSpace)
	for _, f := range strings.Split(rest, " ") {
		if f != "" {
			args = append(args, f)
		}
	}
	return name, args, hasPrefix
}

// HandleMessage runs the message pipeline for msg. It never panics.
func (d *Dispatcher) HandleMessage(ctx context.Context, msg *update.Message) {
	defer d.recoverUpdate("message")

	if msg == nil || msg.From == nil {
		d.log.Debug("Ignoring message with no sender information")
		return
	}

	access := d.access.Load()
	table := d.registry.Table()
	c := d.chats.ForMessage(msg)
	name, args, hasPrefix := Tokenize(msg.Text, access.Prefix)

	base := commands.Context{
		Chat:    c,
		Message: msg,
		Name:    name,
		Args:    args,
		ChatID:  msg.Chat.ID,
		UserID:  msg.From.ID,
		Access:  access,
		Table:   table,
		Log:     d.log,
	}

	var wg sync.WaitGroup
	if !msg.From.IsBot {
		for _, ev := range table.Events() {
			wg.Add(1)
			go func(ev *commands.Event) {
				defer wg.Done()
				d.runEvent(ctx, ev, base)
			}(ev)
		}
	}
	defer wg.Wait()

	d.route(ctx, msg, c, table, access, base, hasPrefix)
}

func (d *Dispatcher) route(
	ctx context.Context,
	msg *update.Message,
	c *chat.Chat,
	table *commands.Table,
	access *commands.Access,
	base commands.Context,
	hasPrefix bool,
) {
	userID := msg.From.ID

	if anchor := msg.ReplyToID(); anchor != 0 {
		if fn, ok := d.bindings.Replies.Get(msg.Chat.ID, anchor); ok {
			d.log.Debug("Handling reply callback",
				zap.Int64("chat_id", msg.Chat.ID),
				zap.Int("anchor", anchor))
			if err := call(func() error { return fn(ctx, msg) }); err != nil {
				d.log.Error("Reply callback failed",
					zap.Int("anchor", anchor),
					zap.Int64("user_id", userID),
					zap.Error(err))
				c.Say(ctx, textReplyError)
			}
			return
		}
	}

	name := base.Name
	cmd, found := table.Get(name)
	if name == "" {
		found = false
	}

	switch {
	case found:
		fields := []zap.Field{zap.String("command", cmd.Name), zap.Int64("user_id", userID)}

		if !cmd.Prefix.Allows(hasPrefix) {
			d.log.Debug("Command ignored: prefix mismatch",
				append(fields, zap.String("prefix_mode", string(cmd.Prefix)))...)
			return
		}
		if cmd.AdminOnly && !access.IsAdmin(userID) {
			d.log.Info("Command blocked: not admin", fields...)
			c.Say(ctx, textAdminRequired)
			return
		}
		if cmd.VIPOnly && !access.IsVIP(userID) && !access.IsAdmin(userID) {
			d.log.Info("Command blocked: not VIP or admin", fields...)
			c.Say(ctx, textVIPRequired)
			return
		}
		if !d.limiter.Allow(userID, cmd.Name) {
			d.log.Info("Command blocked: rate limit", fields...)
			c.Say(ctx, textSlowDown)
			return
		}

		cctx := base
		cctx.Bind(d.bindings)
		err := call(func() error { return cmd.Execute(ctx, &cctx) })
		d.recordUsage(ctx, cmd.Name)
		if err != nil {
			d.log.Error("Command failed", append(fields, zap.Error(err))...)
			c.Say(ctx, textCommandError)
			return
		}
		d.log.Info("Command executed", fields...)

	case hasPrefix:
		d.log.Debug("Unknown command", zap.String("command", name), zap.Int64("user_id", userID))
		c.Say(ctx, textUnknownCommand)

	default:
		for _, action := range d.bindings.Listeners.MatchMessage(msg) {
			action(ctx, msg)
		}
	}
}

func (d *Dispatcher) runEvent(ctx context.Context, ev *commands.Event, base commands.Context) {
	cctx := base
	cctx.Bind(d.bindings)
	if err := call(func() error { return ev.Execute(ctx, &cctx) }); err != nil {
		d.log.Error("Event failed",
			zap.String("event", ev.Name),
			zap.Int64("chat_id", base.ChatID),
			zap.Error(err))
	}
}

func (d *Dispatcher) recordUsage(ctx context.Context, command string) {
	if d.usage == nil {
		return
	}
	if _, err := d.usage.IncrUsage(ctx, command); err != nil {
		d.log.Warn("Failed to record command usage", zap.String("command", command), zap.Error(err))
	}
}

// HandleCallback runs the button pipeline for q. It never panics.
func (d *Dispatcher) HandleCallback(ctx context.Context, q *update.CallbackQuery) {
	defer d.recoverUpdate("callback_query")

	if q == nil || q.From == nil {
		d.log.Debug("Ignoring callback query with no sender information")
		return
	}

	var c *chat.Chat
	if q.Message != nil {
		c = d.chats.ForMessage(q.Message)
	} else {
		c = d.chats.ForChat(0)
	}

	if err := c.Acknowledge(ctx, q.ID, ""); err != nil {
		d.log.Warn("Failed to answer callback query", zap.String("query_id", q.ID), zap.Error(err))
	}

	for _, action := range d.bindings.Listeners.MatchButton(q) {
		action(ctx, q)
	}

	if q.Message == nil {
		d.log.Debug("Callback query without message", zap.String("data", q.Data))
		return
	}

	fields := []zap.Field{zap.String("button", q.Data), zap.Int64("user_id", q.From.ID)}
	fn, ok := d.bindings.Answers.Get(q.Data)
	if !ok {
		d.log.Debug("No callback for button", fields...)
		c.Say(ctx, textUnknownButton)
		return
	}

	answer := &callbacks.Answer{Query: q, Chat: c, ChatID: q.ChatID(), UserID: q.From.ID}
	if err := call(func() error { return fn(ctx, answer) }); err != nil {
		d.log.Error("Button callback failed", append(fields, zap.Error(err))...)
		c.Say(ctx, textButtonError)
		return
	}
	d.log.Debug("Button callback executed", fields...)
}

func (d *Dispatcher) recoverUpdate(kind string) {
	if r := recover(); r != nil {
		d.log.Error("Recovered panic while dispatching update",
			zap.String("kind", kind),
			zap.Any("panic", r),
			zap.ByteString("stack", debug.Stack()))
	}
}

// call runs fn, converting a panic into an error.
func call(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}
