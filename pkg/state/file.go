package state

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"tokibot/pkg/fileutil"
	"tokibot/pkg/logger"
)

// FileStore keeps state in memory and persists it as a JSON file.
type FileStore struct {
	log      *logger.Logger
	filePath string
	data     map[string]any
	mu       sync.RWMutex

	autoSave     bool
	saveInterval time.Duration
	saveTicker   *time.Ticker
	stopSave     chan struct{}
	dirty        bool
}

// FileStoreConfig configures the file store.
type FileStoreConfig struct {
	FilePath string
	// AutoSave batches writes and flushes every SaveInterval.
	AutoSave     bool
	SaveInterval time.Duration
}

// NewFileStore creates a file-based store, loading any existing file.
func NewFileStore(log *logger.Logger, cfg *FileStoreConfig) (*FileStore, error) {
	if cfg.SaveInterval == 0 {
		cfg.SaveInterval = 5 * time.Second
	}
	if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0755); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}

	s := &FileStore{
		log:          log,
		filePath:     cfg.FilePath,
		data:         make(map[string]any),
		autoSave:     cfg.AutoSave,
		saveInterval: cfg.SaveInterval,
		stopSave:     make(chan struct{}),
	}

	if err := s.load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("loading state: %w", err)
	}
	if s.autoSave {
		s.startAutoSave()
	}
	return s, nil
}

func (s *FileStore) Get(_ context.Context, key string) (any, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *FileStore) Set(_ context.Context, key string, value any) error {
	s.mu.Lock()
	s.data[key] = value
	s.dirty = true
	s.mu.Unlock()
	return s.flushIfSync()
}

func (s *FileStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.data, key)
	s.dirty = true
	s.mu.Unlock()
	return s.flushIfSync()
}

func (s *FileStore) Keys(_ context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *FileStore) Incr(_ context.Context, key string, delta int64) (int64, error) {
	s.mu.Lock()
	current, err := toInt64(s.data[key])
	if err != nil {
		s.mu.Unlock()
		return 0, fmt.Errorf("incr %s: %w", key, err)
	}
	next := current + delta
	s.data[key] = next
	s.dirty = true
	s.mu.Unlock()

	return next, s.flushIfSync()
}

func (s *FileStore) flushIfSync() error {
	if s.autoSave {
		return nil
	}
	return s.Save()
}

func (s *FileStore) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, &s.data); err != nil {
		return fmt.Errorf("unmarshaling state: %w", err)
	}

	s.log.Info("Loaded state", zap.String("file", s.filePath), zap.Int("keys", len(s.data)))
	return nil
}

// Save writes the state atomically via a temp file and rename.
func (s *FileStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.dirty {
		return nil
	}

	data, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling state: %w", err)
	}

	if err := fileutil.WriteFileAtomic(s.filePath, data, 0o644); err != nil {
		return fmt.Errorf("writing state file: %w", err)
	}

	s.dirty = false
	s.log.Debug("Saved state", zap.String("file", s.filePath), zap.Int("keys", len(s.data)))
	return nil
}

func (s *FileStore) startAutoSave() {
	s.saveTicker = time.NewTicker(s.saveInterval)

	go func() {
		for {
			select {
			case <-s.saveTicker.C:
				if err := s.Save(); err != nil {
					s.log.Error("Auto-save failed", zap.Error(err))
				}
			case <-s.stopSave:
				return
			}
		}
	}()
}

// Close stops auto-save and performs a final save.
func (s *FileStore) Close() error {
	if s.autoSave && s.saveTicker != nil {
		s.saveTicker.Stop()
		close(s.stopSave)
	}
	return s.Save()
}
