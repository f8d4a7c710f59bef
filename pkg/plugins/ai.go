package plugins

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"tokibot/pkg/chat"
	"tokibot/pkg/commands"
	"tokibot/pkg/update"
)

const textAIFailed = "Failed to get a response. Please try again later."

func (c *Catalog) registerAI() {
	ai := command("ai", "Chats with the GPT-4o assistant. Reply to its answer to continue.")
	ai.Usage = "/ai <prompt>"
	ai.Category = "ai"
	c.add(ai, c.ai)

	agen := command("agen", "Generates an anime style image.")
	agen.Aliases = []string{"animagine", "animegen", "crushimg"}
	agen.Prefix = required()
	agen.Usage = "/agen <prompt>"
	agen.Category = "ai"
	c.add(agen, c.agen)
}

func (c *Catalog) ai(ctx context.Context, cc *commands.Context) error {
	if c.deps.API == nil {
		return fmt.Errorf("ai: %w", errUnavailable)
	}
	prompt := cc.ArgString()
	if prompt == "" {
		cc.Say(ctx, "Please provide your prompt!")
		return nil
	}
	uid := strconv.FormatInt(cc.UserID, 10)

	pending := cc.Say(ctx, "Generating response...")
	answer, err := c.deps.API.Chat(ctx, prompt, uid)
	cc.Chat.Delete(ctx, pending)
	if err != nil {
		c.deps.Log.Error("AI request failed", zap.Int64("user_id", cc.UserID), zap.Error(err))
		cc.Say(ctx, textAIFailed)
		return nil
	}

	c.converse(ctx, cc, cc.Say(ctx, answer), uid)
	return nil
}

// converse keeps the conversation going through replies to each answer.
func (c *Catalog) converse(ctx context.Context, cc *commands.Context, h *chat.Handle, uid string) {
	cc.OnReply(h, func(ctx context.Context, reply *update.Message) error {
		if reply.Text == "" {
			return nil
		}
		answer, err := c.deps.API.Chat(ctx, reply.Text, uid)
		if err != nil {
			return err
		}
		c.converse(ctx, cc, cc.Say(ctx, answer), uid)
		return nil
	})
}

func (c *Catalog) agen(ctx context.Context, cc *commands.Context) error {
	if c.deps.API == nil {
		return fmt.Errorf("agen: %w", errUnavailable)
	}
	prompt := cc.ArgString()
	if prompt == "" {
		cc.Say(ctx, "Provide A Prompt first!")
		return nil
	}

	pending := cc.Say(ctx, "Generating image...")
	cc.Reply(ctx, chat.Photo(c.deps.API.ImageURL(prompt), "Here's your generated image!"))
	cc.Chat.Delete(ctx, pending)
	return nil
}
