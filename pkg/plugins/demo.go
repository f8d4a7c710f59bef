package plugins

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"tokibot/pkg/callbacks"
	"tokibot/pkg/chat"
	"tokibot/pkg/commands"
	"tokibot/pkg/update"
)

// listenWindow is how long the converse listener stays registered.
var listenWindow = time.Minute

var demoFeatures = []string{"inline", "reply", "photo", "video", "document", "location", "animation", "sticker"}

const demoSticker = "CAACAgQAAxkBAAIBDGhD1T-tSooTYrAZKWK-y_1bojq_AAIDEwACGhBAUgTfLwvZLYNWNgQ"

func (c *Catalog) registerDemos() {
	demo := command("demo", "Tests the reply features (admin only).")
	demo.Prefix = required()
	demo.Admin = true
	demo.Usage = "/demo <feature> (e.g., " + strings.Join(demoFeatures, ", ") + ")"
	demo.Category = "demo"
	c.add(demo, runDemo)

	converse := command("converse", "Demonstrates listeners and reply callbacks.")
	converse.Prefix = required()
	converse.Category = "demo"
	c.add(converse, converseDemo)

	button := command("button", "Demonstrates an inline button callback.")
	button.Prefix = required()
	button.Category = "demo"
	c.add(button, buttonDemo)
}

func runDemo(ctx context.Context, cc *commands.Context) error {
	available := strings.Join(demoFeatures, ", ")
	if len(cc.Args) == 0 {
		cc.Reply(ctx, chat.Markdown(fmt.Sprintf(
			"Please specify a feature to test.\nAvailable features: %s\nUsage: /demo <feature>", available)))
		return nil
	}

	feature := strings.ToLower(cc.Args[0])
	var r chat.Reply
	switch feature {
	case "inline":
		r = chat.Markdown("Test *inline keyboard* with buttons:")
		r.Options.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("Option 1", "test_inline_1"),
				tgbotapi.NewInlineKeyboardButtonData("Option 2", "test_inline_2"),
			),
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonURL("Visit xAI", "https://x.ai"),
			),
		)
	case "reply":
		keyboard := tgbotapi.NewOneTimeReplyKeyboard(
			tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton("Yes"), tgbotapi.NewKeyboardButton("No")),
			tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButtonContact("Cancel")),
		)
		keyboard.ResizeKeyboard = true
		r = chat.Markdown("Test *reply keyboard*:")
		r.Options.ReplyMarkup = keyboard
	case "photo":
		r = chat.Photo("https://picsum.photos/800/600", "Here’s a test *photo*!")
	case "video":
		r = chat.Video("https://sample-videos.com/video321/mp4/720/big_buck_bunny_720p_1mb.mp4", "Here’s a test *video*!")
		r.Options.DisableNotification = true
	case "document":
		r = chat.Document("https://www.w3.org/WAI/ER/tests/xhtml/testfiles/resources/pdf/dummy.pdf", "Here’s a test *document*!")
	case "location":
		r = chat.Locate(40.7128, -74.0060)
		r.Body = "Test *location* (New York City):"
	case "animation":
		r = chat.Animation("https://media.giphy.com/media/3oEjI6SIIHBdRxXI40/giphy.gif", "Here’s a test *animation* (GIF)!")
	case "sticker":
		cc.Reply(ctx, chat.Sticker(demoSticker))
		return nil
	default:
		cc.Reply(ctx, chat.Markdown(fmt.Sprintf("Unknown feature: %s\nAvailable features: %s", feature, available)))
		return nil
	}

	r.ParseMode = "Markdown"
	cc.Reply(ctx, r)
	return nil
}

func converseDemo(ctx context.Context, cc *commands.Context) error {
	chatID := cc.ChatID
	remove := cc.Listen(
		func(m *update.Message) bool {
			return m.Chat.ID == chatID && strings.Contains(strings.ToLower(m.Text), "hello")
		},
		func(ctx context.Context, _ *update.Message) {
			cc.Say(ctx, `I heard you say "hello"! What's up?`)
		},
	)
	time.AfterFunc(listenWindow, func() {
		remove()
		cc.Say(context.Background(), `Listener for "hello" has been removed.`)
	})

	h := cc.Say(ctx, "Please reply to this message with your name!")
	cc.OnReply(h, func(ctx context.Context, reply *update.Message) error {
		name := strings.TrimSpace(reply.Text)
		if name == "" {
			name = "Anonymous"
		}
		cc.Say(ctx, fmt.Sprintf("Nice to meet you, %s!", name))
		return nil
	})
	return nil
}

func buttonDemo(ctx context.Context, cc *commands.Context) error {
	buttonID := callbacks.NewButtonID("button")

	r := chat.Text("Click the button!")
	r.Options.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("Click Me", buttonID)),
	)
	cc.OnButton(buttonID, func(ctx context.Context, a *callbacks.Answer) error {
		a.Chat.Say(ctx, fmt.Sprintf("Button clicked by user %d!", a.UserID))
		return nil
	})
	cc.Reply(ctx, r)
	return nil
}
