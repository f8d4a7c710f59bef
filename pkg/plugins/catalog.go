// Package plugins is the compiled catalog of command, event and job
// handlers that handler definitions refer to.
package plugins

import (
	"context"
	"errors"
	"sync"

	"tokibot/pkg/commands"
	"tokibot/pkg/cron"
	"tokibot/pkg/loader"
	"tokibot/pkg/logger"
	"tokibot/pkg/state"
)

// UsageReader lists command usage counters.
type UsageReader interface {
	Counts(ctx context.Context) ([]state.Count, error)
}

// JobLister lists scheduled jobs.
type JobLister interface {
	List() []cron.Status
}

// Reloader re-runs the handler load pass.
type Reloader interface {
	Reload(ctx context.Context) error
}

// Deps are the collaborators handlers use. Any field may be nil; handlers
// that need a missing collaborator fail when invoked.
type Deps struct {
	API   *API
	Usage UsageReader
	Jobs  JobLister
	Log   *logger.Logger
}

var errUnavailable = errors.New("plugin dependency not configured")

// Catalog implements loader.Catalog.
type Catalog struct {
	deps     Deps
	handlers map[loader.Kind]map[string]commands.Handler
	defaults []loader.Definition

	mu       sync.RWMutex
	reloader Reloader
}

// NewCatalog creates the catalog with every built-in handler.
func NewCatalog(deps Deps) *Catalog {
	if deps.Log == nil {
		deps.Log = logger.NewNop()
	}
	c := &Catalog{
		deps: deps,
		handlers: map[loader.Kind]map[string]commands.Handler{
			loader.KindCommand: {},
			loader.KindEvent:   {},
			loader.KindCronjob: {},
		},
	}
	c.registerBasics()
	c.registerDemos()
	c.registerAI()
	c.registerCosplay()
	c.registerEvents()
	return c
}

// SetReloader wires the loader used by the reload command.
func (c *Catalog) SetReloader(r Reloader) {
	c.mu.Lock()
	c.reloader = r
	c.mu.Unlock()
}

func (c *Catalog) getReloader() Reloader {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.reloader
}

// Handler implements loader.Catalog.
func (c *Catalog) Handler(kind loader.Kind, name string) (commands.Handler, bool) {
	h, ok := c.handlers[kind][name]
	return h, ok
}

// Defaults implements loader.Catalog.
func (c *Catalog) Defaults() []loader.Definition {
	out := make([]loader.Definition, len(c.defaults))
	copy(out, c.defaults)
	return out
}

// add registers a handler together with its default definition.
func (c *Catalog) add(def loader.Definition, h commands.Handler) {
	c.handlers[def.Kind][def.HandlerName()] = h
	c.defaults = append(c.defaults, def)
}

func command(name, description string) loader.Definition {
	return loader.Definition{Kind: loader.KindCommand, Name: name, Description: description}
}

func required() loader.Prefix {
	return loader.Prefix(commands.PrefixRequired)
}
