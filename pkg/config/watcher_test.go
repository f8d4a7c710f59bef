package config

import (
	"path/filepath"
	"testing"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

func TestWatcherNotifiesHandlersOnValidChange(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.json")
	loader := NewLoader()
	cfg, err := loader.Load(cfgPath)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	w := NewWatcher(loader, cfg, zap.NewNop())
	var got *Config
	w.AddHandler(func(c *Config) error {
		got = c
		return nil
	})
	w.watching = true

	next := DefaultConfig()
	next.Bot.Admins = []string{"42"}
	if err := loader.Save(cfgPath, next); err != nil {
		t.Fatalf("save: %v", err)
	}
	w.handleChange(fsnotify.Event{Name: cfgPath, Op: fsnotify.Write})

	if got == nil || len(got.Bot.Admins) != 1 || got.Bot.Admins[0] != "42" {
		t.Fatalf("handler got %+v", got)
	}
	if w.GetConfig() != got {
		t.Fatal("watcher config not updated")
	}
}

func TestWatcherIgnoresChangesWhenStopped(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.json")
	loader := NewLoader()
	cfg, err := loader.Load(cfgPath)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	w := NewWatcher(loader, cfg, zap.NewNop())
	called := false
	w.AddHandler(func(*Config) error { called = true; return nil })

	w.handleChange(fsnotify.Event{Name: cfgPath, Op: fsnotify.Write})
	if called {
		t.Fatal("handler called while not watching")
	}
}
