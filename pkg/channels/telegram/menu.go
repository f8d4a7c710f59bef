package telegram

import (
	"fmt"
	"sort"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"tokibot/pkg/commands"
)

const (
	maxMenuCommands    = 100
	maxMenuDescription = 256
	maxMenuName        = 32
)

// SetCommands publishes the command menu for the default and private-chat
// scopes. An empty menu is not published.
func (c *Client) SetCommands(entries []commands.MenuEntry) error {
	menu := menuCommands(entries)
	if len(menu) == 0 {
		return nil
	}

	if _, err := c.bot.Request(tgbotapi.NewSetMyCommands(menu...)); err != nil {
		return fmt.Errorf("setting commands (default scope): %w", err)
	}
	if _, err := c.bot.Request(
		tgbotapi.NewSetMyCommandsWithScope(
			tgbotapi.NewBotCommandScopeAllPrivateChats(),
			menu...,
		),
	); err != nil {
		return fmt.Errorf("setting commands (private scope): %w", err)
	}

	c.log.Info("Synced Telegram command menu", zap.Int("count", len(menu)))
	return nil
}

func menuCommands(entries []commands.MenuEntry) []tgbotapi.BotCommand {
	menu := make([]tgbotapi.BotCommand, 0, len(entries))
	seen := make(map[string]struct{})

	for _, e := range entries {
		name := sanitizeCommandName(e.Name)
		if name == "" {
			continue
		}
		if _, exists := seen[name]; exists {
			continue
		}
		seen[name] = struct{}{}

		desc := strings.TrimSpace(e.Description)
		if desc == "" {
			desc = strings.TrimSpace(e.Usage)
		}
		if desc == "" {
			desc = "Command"
		}
		if r := []rune(desc); len(r) > maxMenuDescription {
			desc = string(r[:maxMenuDescription])
		}
		menu = append(menu, tgbotapi.BotCommand{Command: name, Description: desc})
	}

	sort.Slice(menu, func(i, j int) bool {
		return menu[i].Command < menu[j].Command
	})
	if len(menu) > maxMenuCommands {
		menu = menu[:maxMenuCommands]
	}
	return menu
}

// sanitizeCommandName maps a command name onto Telegram's [a-z0-9_]{1,32}.
func sanitizeCommandName(name string) string {
	normalized := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), "/"))

	var b strings.Builder
	lastUnderscore := false
	for _, r := range normalized {
		if b.Len() >= maxMenuName {
			break
		}
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		case r == '-' || r == '_':
			if b.Len() > 0 && !lastUnderscore {
				b.WriteRune('_')
				lastUnderscore = true
			}
		}
	}
	return strings.Trim(b.String(), "_")
}
