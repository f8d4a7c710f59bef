package plugins

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"tokibot/pkg/callbacks"
	"tokibot/pkg/chat"
	"tokibot/pkg/commands"
	"tokibot/pkg/loader"
)

const (
	textNoCosplay     = "No matching cosplay found."
	textCosplayFailed = "❌ Error fetching cosplay. Try again!"
)

func (c *Catalog) registerCosplay() {
	cosplay := command("cosplay", "Sends a random cosplay set.")
	cosplay.Aliases = []string{"costele", "cptele"}
	cosplay.Prefix = required()
	cosplay.Usage = "/cosplay [search term]"
	cosplay.Category = "media"
	c.add(cosplay, c.cosplay)

	c.add(loader.Definition{
		Kind:        loader.KindCronjob,
		Name:        "daily_cosplay",
		Description: "Posts a random cosplay set every morning.",
		Schedule:    "0 7 * * *",
		Disabled:    true, // needs a chat_id
	}, c.dailyCosplay)
}

func (c *Catalog) cosplay(ctx context.Context, cc *commands.Context) error {
	if c.deps.API == nil {
		return fmt.Errorf("cosplay: %w", errUnavailable)
	}
	term := strings.TrimSpace(cc.ArgString())

	loading := cc.Say(ctx, "🎲 Selecting random cosplay...")
	data, err := c.deps.API.SearchCosplay(ctx, term)
	cc.Chat.Delete(ctx, loading)
	if err != nil {
		c.deps.Log.Warn("Cosplay search failed", zap.String("term", term), zap.Error(err))
		cc.Say(ctx, textCosplayFailed)
		return nil
	}

	replyTo := 0
	if cc.Message != nil {
		replyTo = cc.Message.ID
	}
	c.sendCosplay(ctx, cc, data, term, replyTo)
	return nil
}

// sendCosplay posts one random entry with a refresh button. Pressing the
// button deletes what was sent and posts another entry.
func (c *Catalog) sendCosplay(ctx context.Context, cc *commands.Context, data *CosplayResult, term string, replyTo int) {
	if len(data.Result) == 0 {
		cc.Say(ctx, textNoCosplay)
		return
	}
	entry := data.Result[rand.IntN(len(data.Result))]
	caption := cosplayCaption("🎲 Random Cosplay", entry, data.Password, term)

	buttonID := callbacks.NewButtonID("cosplay")
	rows := [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("🔁 Get Another", buttonID)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL("🌐 Web", c.deps.API.CosplayURL())),
	}
	rows = append(rows, downloadRows(entry)...)
	keyboard := tgbotapi.NewInlineKeyboardMarkup(rows...)
	opts := chat.Options{ReplyToMessageID: replyTo}

	var sent []*chat.Handle
	images := shuffled(entry.Images)
	switch len(images) {
	case 0:
		r := chat.Text(caption)
		r.Options = opts
		r.Options.ReplyMarkup = keyboard
		sent = append(sent, cc.Reply(ctx, r))
	case 1:
		r := chat.Photo(images[0], caption)
		r.Options = opts
		r.Options.ReplyMarkup = keyboard
		sent = append(sent, cc.Reply(ctx, r))
	default:
		if len(images) > chat.MaxGroupSize {
			images = images[:chat.MaxGroupSize]
		}
		album := chat.Album(caption, images...)
		album.Options = opts
		sent = append(sent, cc.Reply(ctx, album))

		prompt := chat.Text("Want another cosplay or download?")
		prompt.Options = opts
		prompt.Options.ReplyMarkup = keyboard
		sent = append(sent, cc.Reply(ctx, prompt))
	}

	cc.OnButton(buttonID, func(ctx context.Context, a *callbacks.Answer) error {
		for _, h := range sent {
			a.Chat.Delete(ctx, h)
		}
		next, err := c.deps.API.SearchCosplay(ctx, term)
		if err != nil {
			return err
		}
		c.sendCosplay(ctx, cc, next, term, replyTo)
		return nil
	})
}

func (c *Catalog) dailyCosplay(ctx context.Context, cc *commands.Context) error {
	if c.deps.API == nil {
		return fmt.Errorf("daily_cosplay: %w", errUnavailable)
	}
	loading := cc.Say(ctx, "🎲 Selecting daily random cosplay...")
	data, err := c.deps.API.SearchCosplay(ctx, "")
	cc.Chat.Delete(ctx, loading)
	if err != nil {
		cc.Say(ctx, "❌ Error fetching daily cosplay. Try again later!")
		return err
	}
	if len(data.Result) == 0 {
		cc.Say(ctx, textNoCosplay)
		return nil
	}

	entry := data.Result[rand.IntN(len(data.Result))]
	caption := cosplayCaption("🎲 Daily Random Cosplay", entry, data.Password, "")
	images := shuffled(entry.Images)
	if len(images) > chat.MaxGroupSize {
		images = images[:chat.MaxGroupSize]
	}

	var r chat.Reply
	switch len(images) {
	case 0:
		r = chat.Text(caption)
	case 1:
		r = chat.Photo(images[0], caption)
	default:
		r = chat.Album(caption, images...)
	}
	if rows := downloadRows(entry); len(rows) > 0 && len(images) <= 1 {
		r.Options.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	}
	cc.Reply(ctx, r)
	return nil
}

func cosplayCaption(title string, entry Cosplay, password, term string) string {
	var b strings.Builder
	b.WriteString(title + "\n")
	if term != "" {
		fmt.Fprintf(&b, "🔍 Search Term: %s\n", term)
	}
	fmt.Fprintf(&b, "🎭 Title: %s\n", entry.Title)
	fmt.Fprintf(&b, "👤 Cosplayer: %s\n", entry.Cosplayer)
	fmt.Fprintf(&b, "🎮 Character: %s\n", entry.Character)
	if len(entry.DownloadLinks) > 0 {
		if password == "" {
			password = "N/A"
		}
		fmt.Fprintf(&b, "\n🔐 Password: %s", password)
	}
	return b.String()
}

func downloadRows(entry Cosplay) [][]tgbotapi.InlineKeyboardButton {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(entry.DownloadLinks))
	for i, link := range entry.DownloadLinks {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL(fmt.Sprintf("📥 Link %d", i+1), link),
		))
	}
	return rows
}

func shuffled(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	rand.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}
