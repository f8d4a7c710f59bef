package logger

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"tokibot/pkg/config"
)

func TestNewWritesToRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "tokibot.log")

	cfg := DefaultConfig()
	cfg.OutputPath = path
	log, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	log.Info("hello", zap.String("k", "v"))
	_ = log.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected log file to contain the entry")
	}
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Level = "loud"
	if _, err := New(cfg); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestFromConfigKeepsDefaultsForZeroValues(t *testing.T) {
	cfg := FromConfig(config.LoggerConfig{Level: "debug", Development: true})
	if cfg.Level != LevelDebug {
		t.Errorf("Level = %q, want debug", cfg.Level)
	}
	if cfg.MaxSize != 100 || cfg.MaxBackups != 3 || cfg.MaxAge != 7 {
		t.Errorf("rotation defaults lost: %+v", cfg)
	}
	if !cfg.Development {
		t.Error("Development flag lost")
	}
}
