package plugins

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"tokibot/pkg/commands"
	"tokibot/pkg/loader"
)

func (c *Catalog) registerEvents() {
	c.add(loader.Definition{
		Kind:        loader.KindEvent,
		Name:        "message_logger",
		Description: "Logs sender, chat, topic and text of every incoming message.",
	}, c.logMessage)

	c.add(loader.Definition{
		Kind:        loader.KindEvent,
		Name:        "greeter",
		Description: "Answers a plain hello.",
	}, greet)

	c.add(loader.Definition{
		Kind:        loader.KindCronjob,
		Name:        "daily_reminder",
		Description: "Sends a good morning reminder.",
		Schedule:    "0 9 * * *",
		Disabled:    true, // needs a chat_id
	}, c.dailyReminder)
}

func (c *Catalog) logMessage(_ context.Context, cc *commands.Context) error {
	msg := cc.Message
	if msg == nil {
		return nil
	}

	fields := []zap.Field{
		zap.Int64("chat_id", msg.Chat.ID),
		zap.String("chat_type", msg.Chat.Type),
		zap.Int("message_id", msg.ID),
	}
	if msg.From != nil {
		fields = append(fields,
			zap.Int64("user_id", msg.From.ID),
			zap.String("username", msg.From.Username),
			zap.String("name", strings.TrimSpace(msg.From.FirstName+" "+msg.From.LastName)),
		)
	}
	if msg.ThreadID != 0 && msg.Chat.IsForum {
		fields = append(fields, zap.Int("topic_id", msg.ThreadID))
	}
	if msg.Date > 0 {
		fields = append(fields, zap.Time("sent_at", time.Unix(msg.Date, 0)))
	}
	text := msg.Text
	if text == "" {
		text = "Non-text message"
	}
	fields = append(fields, zap.String("text", text))

	c.deps.Log.Info("Received message", fields...)
	return nil
}

func greet(ctx context.Context, cc *commands.Context) error {
	if cc.Message == nil || !strings.EqualFold(strings.TrimSpace(cc.Message.Text), "hello") {
		return nil
	}
	cc.Say(ctx, "Hi there! How can I help you?")
	return nil
}

func (c *Catalog) dailyReminder(ctx context.Context, cc *commands.Context) error {
	cc.Say(ctx, "Good morning! This is your daily reminder.")
	c.deps.Log.Info("Daily reminder sent", zap.Int64("chat_id", cc.ChatID))
	return nil
}
