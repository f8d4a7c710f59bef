// Package config provides configuration management for tokibot.
// It uses Viper for flexible configuration loading with support for:
// - Multiple formats (JSON, YAML, TOML)
// - Environment variables
// - Hot-reload
// - Default values
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config represents the complete tokibot configuration.
type Config struct {
	Telegram TelegramConfig `mapstructure:"telegram" json:"telegram"`
	Bot      BotConfig      `mapstructure:"bot" json:"bot"`
	Media    MediaConfig    `mapstructure:"media" json:"media"`
	Handlers HandlersConfig `mapstructure:"handlers" json:"handlers"`
	API      APIConfig      `mapstructure:"api" json:"api"`
	State    StateConfig    `mapstructure:"state" json:"state"`
	Logger   LoggerConfig   `mapstructure:"logger" json:"logger"`
}

// TelegramConfig configures the Bot API connection.
type TelegramConfig struct {
	Token string `mapstructure:"token" json:"token"`
	// Proxy is an optional http(s) or socks5 proxy URL.
	Proxy          string `mapstructure:"proxy" json:"proxy"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" json:"timeout_seconds"`
	// PollTimeout is the long-poll timeout in seconds.
	PollTimeout int `mapstructure:"poll_timeout" json:"poll_timeout"`
}

// Timeout returns the HTTP client timeout for API calls.
func (c TelegramConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// BotConfig holds the guard inputs.
type BotConfig struct {
	Prefix     string   `mapstructure:"prefix" json:"prefix"`
	Admins     []string `mapstructure:"admins" json:"admins"`
	VIPs       []string `mapstructure:"vips" json:"vips"`
	CooldownMS int      `mapstructure:"cooldown_ms" json:"cooldown_ms"`
}

// Cooldown returns the per user and command rate limit window.
func (c BotConfig) Cooldown() time.Duration {
	return time.Duration(c.CooldownMS) * time.Millisecond
}

// MediaConfig bounds media probing and local re-upload.
type MediaConfig struct {
	ProbeTimeoutSeconds    int `mapstructure:"probe_timeout_seconds" json:"probe_timeout_seconds"`
	DownloadTimeoutSeconds int `mapstructure:"download_timeout_seconds" json:"download_timeout_seconds"`
	MaxDownloadMB          int `mapstructure:"max_download_mb" json:"max_download_mb"`
}

func (c MediaConfig) ProbeTimeout() time.Duration {
	return time.Duration(c.ProbeTimeoutSeconds) * time.Second
}

func (c MediaConfig) DownloadTimeout() time.Duration {
	return time.Duration(c.DownloadTimeoutSeconds) * time.Second
}

func (c MediaConfig) MaxDownloadBytes() int64 {
	return int64(c.MaxDownloadMB) << 20
}

// HandlersConfig locates handler definitions.
type HandlersConfig struct {
	Dir string `mapstructure:"dir" json:"dir"`
	// Watch reloads handlers when files under Dir change.
	Watch    bool   `mapstructure:"watch" json:"watch"`
	Timezone string `mapstructure:"timezone" json:"timezone"`
}

// APIConfig points at the external content API used by plugins.
type APIConfig struct {
	BaseURL        string `mapstructure:"base_url" json:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" json:"timeout_seconds"`
}

// Timeout returns the per-request timeout for API calls.
func (c APIConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// StateConfig selects the usage statistics backend.
type StateConfig struct {
	Backend  string      `mapstructure:"backend" json:"backend"` // file or redis
	FilePath string      `mapstructure:"file_path" json:"file_path"`
	Redis    RedisConfig `mapstructure:"redis" json:"redis"`
}

// RedisConfig for the redis state backend.
type RedisConfig struct {
	Addr     string `mapstructure:"addr" json:"addr"`
	Password string `mapstructure:"password" json:"password"`
	DB       int    `mapstructure:"db" json:"db"`
	Prefix   string `mapstructure:"prefix" json:"prefix"`
}

// LoggerConfig configures logging.
type LoggerConfig struct {
	Level       string `mapstructure:"level" json:"level"`
	OutputPath  string `mapstructure:"output_path" json:"output_path"`
	MaxSizeMB   int    `mapstructure:"max_size_mb" json:"max_size_mb"`
	MaxBackups  int    `mapstructure:"max_backups" json:"max_backups"`
	MaxAgeDays  int    `mapstructure:"max_age_days" json:"max_age_days"`
	Compress    bool   `mapstructure:"compress" json:"compress"`
	Development bool   `mapstructure:"development" json:"development"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	home := configHomeOrDot()
	return &Config{
		Telegram: TelegramConfig{
			TimeoutSeconds: 60,
			PollTimeout:    30,
		},
		Bot: BotConfig{
			Prefix:     "/",
			Admins:     []string{},
			VIPs:       []string{},
			CooldownMS: 1000,
		},
		Media: MediaConfig{
			ProbeTimeoutSeconds:    5,
			DownloadTimeoutSeconds: 30,
			MaxDownloadMB:          50,
		},
		Handlers: HandlersConfig{
			Dir:      filepath.Join(home, "handlers"),
			Timezone: "Asia/Manila",
		},
		API: APIConfig{
			BaseURL:        "https://www.haji-mix-api.gleeze.com",
			TimeoutSeconds: 60,
		},
		State: StateConfig{
			Backend:  "file",
			FilePath: filepath.Join(home, "state.json"),
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "tokibot:",
			},
		},
		Logger: LoggerConfig{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 7,
			Compress:   true,
		},
	}
}

func configHomeOrDot() string {
	home, err := GetConfigHome()
	if err != nil {
		return ".tokibot"
	}
	return home
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
