package loader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"tokibot/pkg/commands"
	"tokibot/pkg/fileutil"
	"tokibot/pkg/logger"
)

// Catalog resolves handler names to compiled handlers.
type Catalog interface {
	Handler(kind Kind, name string) (commands.Handler, bool)
	// Defaults are used when the handler directory does not exist.
	Defaults() []Definition
}

// JobScheduler receives the job set of every load pass.
type JobScheduler interface {
	Replace(jobs []commands.Job) error
}

// MenuPublisher receives the command menu of every load pass.
type MenuPublisher interface {
	SetCommands(entries []commands.MenuEntry) error
}

// Result summarizes a load pass.
type Result struct {
	Commands int
	Events   int
	Jobs     int
	Skipped  int
	// FromDefaults is set when the catalog defaults were used.
	FromDefaults bool
}

// Loader runs load passes. Passes are serialized.
type Loader struct {
	log       *logger.Logger
	dir       string
	catalog   Catalog
	registry  *commands.Registry
	scheduler JobScheduler
	menu      MenuPublisher

	mu sync.Mutex
}

// New creates a loader. scheduler and menu may be nil.
func New(log *logger.Logger, dir string, catalog Catalog, registry *commands.Registry, scheduler JobScheduler, menu MenuPublisher) *Loader {
	return &Loader{
		log:       log.Named("loader"),
		dir:       dir,
		catalog:   catalog,
		registry:  registry,
		scheduler: scheduler,
		menu:      menu,
	}
}

// Dir returns the handler directory.
func (l *Loader) Dir() string { return l.dir }

// Reload runs a load pass. It implements the reload command's contract.
func (l *Loader) Reload(ctx context.Context) error {
	_, err := l.Load(ctx)
	return err
}

// Load discovers definitions, builds a new table and installs it together
// with the job set. Invalid definitions are skipped. Only a failure to read
// the directory or to schedule jobs is returned.
func (l *Loader) Load(ctx context.Context) (*Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	defs, fromDefaults, skipped, err := l.discover()
	if err != nil {
		return nil, err
	}

	res := &Result{Skipped: skipped, FromDefaults: fromDefaults}
	table := commands.NewTable()
	var jobs []commands.Job

	for _, d := range defs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if d.Disabled {
			continue
		}
		if err := l.install(table, &jobs, d); err != nil {
			l.log.Warn("Skipping handler definition",
				zap.String("name", d.Name),
				zap.String("kind", string(d.Kind)),
				zap.String("source", d.Source),
				zap.Error(err))
			res.Skipped++
			continue
		}
		switch d.Kind {
		case KindCommand:
			res.Commands++
		case KindEvent:
			res.Events++
		case KindCronjob:
			res.Jobs++
		}
	}

	l.registry.Swap(table)

	var schedErr error
	if l.scheduler != nil {
		if err := l.scheduler.Replace(jobs); err != nil {
			schedErr = fmt.Errorf("scheduling jobs: %w", err)
		}
	}

	if l.menu != nil {
		if err := l.menu.SetCommands(table.MenuEntries()); err != nil {
			l.log.Warn("Failed to publish command menu", zap.Error(err))
		}
	}

	l.log.Info("Handlers loaded",
		zap.Int("commands", res.Commands),
		zap.Int("events", res.Events),
		zap.Int("cronjobs", res.Jobs),
		zap.Int("skipped", res.Skipped),
		zap.Bool("defaults", res.FromDefaults))

	return res, schedErr
}

func (l *Loader) install(table *commands.Table, jobs *[]commands.Job, d Definition) error {
	if err := d.Validate(); err != nil {
		return err
	}
	handler, ok := l.catalog.Handler(d.Kind, d.HandlerName())
	if !ok {
		return fmt.Errorf("unknown %s handler %q", d.Kind, d.HandlerName())
	}

	switch d.Kind {
	case KindCommand:
		mode, err := d.Prefix.Mode()
		if err != nil {
			return err
		}
		return table.AddCommand(&commands.Command{
			Name:        d.Name,
			Aliases:     d.Aliases,
			Prefix:      mode,
			AdminOnly:   d.Admin,
			VIPOnly:     d.VIP,
			Description: d.Description,
			Usage:       d.Usage,
			Category:    d.Category,
			Execute:     handler,
		})
	case KindEvent:
		return table.AddEvent(&commands.Event{
			Name:        d.Name,
			Description: d.Description,
			Execute:     handler,
		})
	default:
		*jobs = append(*jobs, commands.Job{
			Name:        d.Name,
			Description: d.Description,
			Schedule:    d.Schedule,
			Timezone:    d.Timezone,
			ChatID:      d.ChatID,
			UserID:      d.UserID,
			Execute:     handler,
		})
		return nil
	}
}

// discover reads every definition file under the directory. When the
// directory does not exist or holds no definition files the catalog
// defaults are returned.
func (l *Loader) discover() (defs []Definition, fromDefaults bool, skipped int, err error) {
	info, err := os.Stat(l.dir)
	if errors.Is(err, fs.ErrNotExist) {
		l.log.Info("Handler directory not found, using built-in definitions", zap.String("dir", l.dir))
		return l.catalog.Defaults(), true, 0, nil
	}
	if err != nil {
		return nil, false, 0, fmt.Errorf("reading handler directory: %w", err)
	}
	if !info.IsDir() {
		return nil, false, 0, fmt.Errorf("handler path %s is not a directory", l.dir)
	}

	files, err := definitionFiles(l.dir)
	if err != nil {
		return nil, false, 0, err
	}
	if len(files) == 0 {
		l.log.Info("Handler directory is empty, using built-in definitions", zap.String("dir", l.dir))
		return l.catalog.Defaults(), true, 0, nil
	}

	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			l.log.Warn("Failed to read handler definition", zap.String("path", path), zap.Error(err))
			skipped++
			continue
		}
		parsed, err := Parse(data)
		if err != nil {
			l.log.Warn("Failed to parse handler definition", zap.String("path", path), zap.Error(err))
			skipped++
			continue
		}
		for i := range parsed {
			parsed[i].Source = path
		}
		defs = append(defs, parsed...)
	}
	return defs, false, skipped, nil
}

// definitionFiles returns every .yaml/.yml file under dir in lexical order.
func definitionFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if isDefinitionFile(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking handler directory: %w", err)
	}
	sort.Strings(files)
	return files, nil
}

func isDefinitionFile(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	switch strings.ToLower(filepath.Ext(base)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// WriteDefaults writes the catalog defaults into dir, one file per
// definition grouped by kind. Existing files are left untouched.
func WriteDefaults(dir string, catalog Catalog) ([]string, error) {
	var written []string
	for _, d := range catalog.Defaults() {
		sub := filepath.Join(dir, string(d.Kind)+"s")
		if err := os.MkdirAll(sub, 0o755); err != nil {
			return written, fmt.Errorf("creating %s: %w", sub, err)
		}
		path := filepath.Join(sub, d.Name+".yaml")
		if _, err := os.Stat(path); err == nil {
			continue
		}
		data, err := Marshal([]Definition{d})
		if err != nil {
			return written, err
		}
		if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
			return written, fmt.Errorf("writing %s: %w", path, err)
		}
		written = append(written, path)
	}
	return written, nil
}
