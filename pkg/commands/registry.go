package commands

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
)

var (
	// ErrEmptyName is returned when a descriptor has no name.
	ErrEmptyName = errors.New("commands: name cannot be empty")
	// ErrDuplicateName is returned when a name is registered twice in one table.
	ErrDuplicateName = errors.New("commands: name already registered")
)

// Table is one registration pass of commands and events. A table is built
// once and then only read; reloads build a new table and swap it in.
type Table struct {
	lookup   map[string]*Command
	commands []*Command
	events   []*Event
	names    map[string]struct{}
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{
		lookup: make(map[string]*Command),
		names:  make(map[string]struct{}),
	}
}

// AddCommand registers cmd under its name and aliases. Aliases overwrite
// earlier aliases but never a primary name.
func (t *Table) AddCommand(cmd *Command) error {
	if cmd == nil {
		return fmt.Errorf("command cannot be nil")
	}
	name := normalizeName(cmd.Name)
	if name == "" {
		return ErrEmptyName
	}
	if _, exists := t.names[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateName, name)
	}
	if cmd.Prefix == "" {
		cmd.Prefix = PrefixEither
	}
	cmd.Name = name

	t.names[name] = struct{}{}
	t.lookup[name] = cmd
	t.commands = append(t.commands, cmd)

	for _, alias := range cmd.Aliases {
		alias = normalizeName(alias)
		if alias == "" {
			continue
		}
		if _, primary := t.names[alias]; primary {
			continue
		}
		t.lookup[alias] = cmd
	}
	return nil
}

// AddEvent registers an event handler.
func (t *Table) AddEvent(ev *Event) error {
	if ev == nil {
		return fmt.Errorf("event cannot be nil")
	}
	if ev.Name == "" {
		return ErrEmptyName
	}
	for _, existing := range t.events {
		if existing.Name == ev.Name {
			return fmt.Errorf("%w: event %s", ErrDuplicateName, ev.Name)
		}
	}
	t.events = append(t.events, ev)
	return nil
}

// Get resolves a name or alias. The caller strips its own prefix; a
// leading slash is part of the looked-up name.
func (t *Table) Get(name string) (*Command, bool) {
	cmd, ok := t.lookup[strings.ToLower(strings.TrimSpace(name))]
	return cmd, ok
}

// Commands returns the commands sorted by name.
func (t *Table) Commands() []*Command {
	out := make([]*Command, len(t.commands))
	copy(out, t.commands)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Events returns the events in registration order.
func (t *Table) Events() []*Event {
	out := make([]*Event, len(t.events))
	copy(out, t.events)
	return out
}

// MenuEntries returns the distinct (name, description) pairs sorted by name.
func (t *Table) MenuEntries() []MenuEntry {
	entries := make([]MenuEntry, 0, len(t.commands))
	for _, cmd := range t.Commands() {
		entries = append(entries, MenuEntry{Name: cmd.Name, Description: cmd.Description, Usage: cmd.Usage})
	}
	return entries
}

// Registry holds the current table. Readers never block a reload.
type Registry struct {
	current atomic.Pointer[Table]
}

// NewRegistry creates a registry holding an empty table.
func NewRegistry() *Registry {
	r := &Registry{}
	r.current.Store(NewTable())
	return r
}

// Table returns the current table.
func (r *Registry) Table() *Table {
	return r.current.Load()
}

// Swap installs t and returns the previous table.
func (r *Registry) Swap(t *Table) *Table {
	if t == nil {
		t = NewTable()
	}
	return r.current.Swap(t)
}
