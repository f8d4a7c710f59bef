// Package chat turns reply descriptions into platform sends.
//
// A Chat is bound to the chat an update came from. Reply resolves the kind
// of a reply, sniffs media types, batches media groups and delivers the
// result with two bounded fallbacks: a closed forum topic is retried once on
// the general thread, and a media URL the platform could not fetch is
// downloaded and uploaded once as raw bytes. Reply never returns an error;
// a nil handle means nothing was sent.
package chat

import (
	"context"

	"go.uber.org/zap"

	"tokibot/pkg/logger"
	"tokibot/pkg/update"
)

const (
	genericFailureText = "Error processing the request."
	mediaFailureText   = "Failed to send media."
)

// Origin describes the chat an update came from.
type Origin struct {
	ChatID   int64
	ChatType string
	IsForum  bool
	ThreadID int
}

// Factory creates Chat instances sharing one transport.
type Factory struct {
	transport  Transport
	prober     Prober
	downloader Downloader
	log        *logger.Logger
}

// NewFactory creates a factory.
func NewFactory(transport Transport, prober Prober, downloader Downloader, log *logger.Logger) *Factory {
	return &Factory{
		transport:  transport,
		prober:     prober,
		downloader: downloader,
		log:        log.Named("chat"),
	}
}

// ForMessage binds a Chat to the chat of msg.
func (f *Factory) ForMessage(msg *update.Message) *Chat {
	return f.bind(Origin{
		ChatID:   msg.Chat.ID,
		ChatType: msg.Chat.Type,
		IsForum:  msg.Chat.IsForum,
		ThreadID: msg.ThreadID,
	})
}

// ForChat binds a Chat to a chat id with no originating update.
func (f *Factory) ForChat(chatID int64) *Chat {
	return f.bind(Origin{ChatID: chatID})
}

func (f *Factory) bind(origin Origin) *Chat {
	return &Chat{
		transport:  f.transport,
		prober:     f.prober,
		downloader: f.downloader,
		log:        f.log,
		origin:     origin,
	}
}

// Chat is a reply normalizer bound to one originating chat.
type Chat struct {
	transport  Transport
	prober     Prober
	downloader Downloader
	log        *logger.Logger
	origin     Origin
}

// ID returns the originating chat id.
func (c *Chat) ID() int64 { return c.origin.ChatID }

// Origin returns the originating chat.
func (c *Chat) Origin() Origin { return c.origin }

type replyConfig struct {
	chatID  int64
	options Options
}

// Option adjusts a single Reply or Delete call.
type Option func(*replyConfig)

// To sends to another chat instead of the originating one.
func To(chatID int64) Option {
	return func(c *replyConfig) { c.chatID = chatID }
}

// WithOptions supplies call-level delivery options. Options carried by the
// Reply itself take precedence.
func WithOptions(o Options) Option {
	return func(c *replyConfig) { c.options = o }
}

func (c *Chat) config(opts []Option) replyConfig {
	cfg := replyConfig{chatID: c.origin.ChatID}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// target applies the originating thread only inside the originating forum.
func (c *Chat) target(chatID int64) Target {
	t := Target{ChatID: chatID}
	if chatID == c.origin.ChatID && c.origin.ChatType == update.ChatSupergroup && c.origin.IsForum {
		t.ThreadID = c.origin.ThreadID
	}
	return t
}

// Reply delivers r and returns what was sent, or nil when nothing was.
func (c *Chat) Reply(ctx context.Context, r Reply, opts ...Option) *Handle {
	cfg := c.config(opts)
	to := c.target(cfg.chatID)
	r = r.normalized()

	req, err := c.build(ctx, r, cfg.options)
	if err != nil {
		c.fail(ctx, to, r.Kind, err)
		return nil
	}
	if req == nil {
		return nil
	}

	h, err := c.deliver(ctx, to, req)
	if err != nil {
		c.fail(ctx, to, r.Kind, err)
		return nil
	}
	return h
}

// Say is shorthand for a plain text reply.
func (c *Chat) Say(ctx context.Context, text string, opts ...Option) *Handle {
	return c.Reply(ctx, Text(text), opts...)
}

// Delete removes every message of h. Failures are logged only.
func (c *Chat) Delete(ctx context.Context, h *Handle, opts ...Option) {
	if h == nil {
		return
	}
	chatID := h.ChatID
	if chatID == 0 {
		chatID = c.origin.ChatID
	}
	cfg := replyConfig{chatID: chatID}
	for _, opt := range opts {
		opt(&cfg)
	}

	for _, id := range h.MessageIDs {
		if err := c.transport.DeleteMessage(ctx, cfg.chatID, id); err != nil {
			c.log.Warn("Failed to delete message",
				zap.Int64("chat_id", cfg.chatID),
				zap.Int("message_id", id),
				zap.Error(err))
		}
	}
}

// Acknowledge answers a button press, optionally with toast text.
func (c *Chat) Acknowledge(ctx context.Context, queryID, text string) error {
	return c.transport.AnswerCallback(ctx, queryID, text)
}
