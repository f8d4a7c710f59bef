package plugins

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"tokibot/pkg/chat"
	"tokibot/pkg/commands"
)

const (
	textReloaded     = "Commands, events, and cronjobs reloaded successfully."
	textReloadFailed = "Error reloading commands, events, or cronjobs."
	textNoSticker    = "Please reply to a sticker to get its file_id.\nUsage: /getsticker"
)

func (c *Catalog) registerBasics() {
	help := command("help", "Lists the available commands.")
	help.Aliases = []string{"commands", "menu"}
	help.Category = "general"
	c.add(help, c.help)

	ping := command("ping", "Checks that the bot is alive.")
	ping.Aliases = []string{"p"}
	ping.Prefix = required()
	ping.Category = "general"
	c.add(ping, func(ctx context.Context, cc *commands.Context) error {
		cc.Say(ctx, "Pong!")
		return nil
	})

	sticker := command("getsticker", "Shows the file_id of a replied sticker.")
	sticker.Aliases = []string{"stickerid"}
	sticker.Prefix = required()
	sticker.Usage = "/getsticker (reply to a sticker)"
	sticker.Category = "utility"
	c.add(sticker, getSticker)

	stats := command("stats", "Shows command usage and scheduled jobs.")
	stats.Prefix = required()
	stats.Admin = true
	stats.Category = "admin"
	c.add(stats, c.stats)

	reload := command("reload", "Reloads commands, events and cronjobs.")
	reload.Prefix = required()
	reload.Admin = true
	reload.Category = "admin"
	c.add(reload, c.reload)
}

func (c *Catalog) help(ctx context.Context, cc *commands.Context) error {
	if cc.Table == nil {
		return fmt.Errorf("help: %w", errUnavailable)
	}
	cmds := cc.Table.Commands()
	if len(cmds) == 0 {
		cc.Say(ctx, "No commands available.")
		return nil
	}

	prefix := commands.DefaultPrefix
	if cc.Access != nil {
		prefix = cc.Access.Prefix
	}

	var b strings.Builder
	b.WriteString("Available commands:\n")
	for _, cmd := range cmds {
		desc := cmd.Description
		if desc == "" {
			desc = "No description"
		}
		fmt.Fprintf(&b, "%s%s - %s\n", prefix, cmd.Name, desc)
	}
	cc.Say(ctx, strings.TrimRight(b.String(), "\n"))
	return nil
}

func getSticker(ctx context.Context, cc *commands.Context) error {
	msg := cc.Message
	if msg == nil || msg.ReplyTo == nil || msg.ReplyTo.Sticker == nil {
		cc.Say(ctx, textNoSticker)
		return nil
	}
	cc.Reply(ctx, chat.Reply{
		Body:    msg.ReplyTo.Sticker.FileID,
		Options: chat.Options{ReplyToMessageID: msg.ID},
	})
	return nil
}

func (c *Catalog) stats(ctx context.Context, cc *commands.Context) error {
	var b strings.Builder

	b.WriteString("Command usage:\n")
	if c.deps.Usage == nil {
		b.WriteString("  (not recorded)\n")
	} else {
		counts, err := c.deps.Usage.Counts(ctx)
		if err != nil {
			return fmt.Errorf("reading usage: %w", err)
		}
		if len(counts) == 0 {
			b.WriteString("  (none yet)\n")
		}
		for _, count := range counts {
			fmt.Fprintf(&b, "  %s: %d\n", count.Command, count.Total)
		}
	}

	if c.deps.Jobs != nil {
		jobs := c.deps.Jobs.List()
		fmt.Fprintf(&b, "\nScheduled jobs: %d\n", len(jobs))
		for _, j := range jobs {
			next := "-"
			if !j.NextRun.IsZero() {
				next = j.NextRun.Format("2006-01-02 15:04 MST")
			}
			fmt.Fprintf(&b, "  %s (%s) next %s, runs %d\n", j.Name, j.Schedule, next, j.RunCount)
		}
	}

	cc.Say(ctx, strings.TrimRight(b.String(), "\n"))
	return nil
}

func (c *Catalog) reload(ctx context.Context, cc *commands.Context) error {
	r := c.getReloader()
	if r == nil {
		cc.Say(ctx, textReloadFailed)
		return nil
	}
	if err := r.Reload(ctx); err != nil {
		c.deps.Log.Error("Reload failed", zap.Error(err))
		cc.Say(ctx, textReloadFailed)
		return nil
	}
	cc.Say(ctx, textReloaded)
	return nil
}

