// Package commands defines command, event and job descriptors and the
// table the dispatcher resolves them from.
package commands

import (
	"context"
	"fmt"
	"strings"
)

// PrefixMode states whether a command must be invoked with the prefix.
type PrefixMode string

const (
	PrefixRequired  PrefixMode = "required"
	PrefixForbidden PrefixMode = "forbidden"
	PrefixEither    PrefixMode = "either"
)

// ParsePrefixMode parses a prefix mode. Empty means either.
func ParsePrefixMode(s string) (PrefixMode, error) {
	switch PrefixMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", PrefixEither:
		return PrefixEither, nil
	case PrefixRequired:
		return PrefixRequired, nil
	case PrefixForbidden:
		return PrefixForbidden, nil
	default:
		return "", fmt.Errorf("invalid prefix mode %q", s)
	}
}

// Allows reports whether an invocation with or without the prefix passes.
func (m PrefixMode) Allows(hasPrefix bool) bool {
	switch m {
	case PrefixRequired:
		return hasPrefix
	case PrefixForbidden:
		return !hasPrefix
	default:
		return true
	}
}

// Handler executes a command, event or job.
type Handler func(ctx context.Context, c *Context) error

// Command is a command descriptor.
type Command struct {
	// Name is the primary lookup key, lower case without prefix.
	Name string
	// Aliases share the lookup table with names.
	Aliases []string
	Prefix  PrefixMode
	// AdminOnly restricts the command to admins.
	AdminOnly bool
	// VIPOnly restricts the command to VIPs and admins.
	VIPOnly     bool
	Description string
	Usage       string
	Category    string
	Execute     Handler
}

// Event runs on every text message from a non-bot sender.
type Event struct {
	Name        string
	Description string
	Execute     Handler
}

// Job runs on a cron schedule, bound to a chat.
type Job struct {
	Name        string
	Description string
	// Schedule is a five field cron expression.
	Schedule string
	// Timezone is an IANA zone name the schedule is evaluated in.
	Timezone string
	ChatID   int64
	UserID   int64
	Execute  Handler
}

// MenuEntry is one line of the platform command menu.
type MenuEntry struct {
	Name        string
	Description string
	Usage       string
}

// normalizeName lower-cases a registered command name and strips a leading
// slash written in a definition.
func normalizeName(name string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), "/"))
}
