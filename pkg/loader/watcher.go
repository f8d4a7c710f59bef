package loader

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DebounceDelay is how long the watcher waits for a burst of changes to
// settle before reloading.
const DebounceDelay = 300 * time.Millisecond

// Watcher reloads the loader when the handler directory changes.
type Watcher struct {
	loader  *Loader
	watcher *fsnotify.Watcher
	delay   time.Duration

	mu       sync.Mutex
	timer    *time.Timer
	reloads  int
	started  bool
	stopOnce sync.Once
	done     chan struct{}
}

// NewWatcher creates a watcher for l's directory.
func NewWatcher(l *Loader) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		loader:  l,
		watcher: fsw,
		delay:   DebounceDelay,
		done:    make(chan struct{}),
	}, nil
}

// Start adds the directory tree to the watch list and begins processing.
// A missing directory is not created; its nearest existing parent is
// watched until it appears.
func (w *Watcher) Start(ctx context.Context) error {
	dir := w.loader.Dir()
	if _, err := w.watchDir(); err != nil {
		return err
	}

	w.mu.Lock()
	w.started = true
	w.mu.Unlock()

	w.loader.log.Info("Handler watcher started", zap.String("dir", dir))
	go w.processEvents(ctx)
	return nil
}

// Stop stops watching.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		w.mu.Lock()
		if w.timer != nil {
			w.timer.Stop()
		}
		started := w.started
		w.mu.Unlock()
		err = w.watcher.Close()
		if started {
			<-w.done
		}
	})
	return err
}

// Reloads returns how many debounced reloads have run.
func (w *Watcher) Reloads() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.reloads
}

// watchDir watches the handler tree when it exists, else the nearest
// existing ancestor. It reports whether the handler tree is watched.
func (w *Watcher) watchDir() (bool, error) {
	dir := w.loader.Dir()
	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		return true, w.addTree(dir)
	}
	for parent := filepath.Dir(dir); ; parent = filepath.Dir(parent) {
		if info, err := os.Stat(parent); err == nil && info.IsDir() {
			return false, w.watcher.Add(parent)
		}
		if next := filepath.Dir(parent); next == parent {
			return false, fmt.Errorf("no existing parent for %s", dir)
		}
	}
}

// inTree reports whether path is the handler directory or below it.
func (w *Watcher) inTree(path string) bool {
	rel, err := filepath.Rel(w.loader.Dir(), path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.watcher.Add(path)
		}
		return nil
	})
}

func (w *Watcher) processEvents(ctx context.Context) {
	defer close(w.done)
	log := w.loader.log

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			if event.Op&fsnotify.Create == fsnotify.Create {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if !w.inTree(event.Name) {
						// An ancestor of a missing handler directory gained a child.
						watched, err := w.watchDir()
						if err != nil {
							log.Warn("Failed to watch handler directory", zap.String("path", event.Name), zap.Error(err))
						}
						if watched {
							w.schedule(ctx)
						}
						continue
					}
					if err := w.addTree(event.Name); err != nil {
						log.Warn("Failed to watch new directory", zap.String("path", event.Name), zap.Error(err))
					}
					w.schedule(ctx)
					continue
				}
			}
			if !w.inTree(event.Name) || !isDefinitionFile(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			w.schedule(ctx)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Warn("Handler watcher error", zap.Error(err))
		}
	}
}

// schedule restarts the debounce timer.
func (w *Watcher) schedule(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.delay, func() {
		if ctx.Err() != nil {
			return
		}
		if _, err := w.loader.Load(ctx); err != nil {
			w.loader.log.Error("Automatic handler reload failed", zap.Error(err))
		}
		w.mu.Lock()
		w.reloads++
		w.mu.Unlock()
	})
}
