package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// ConfigPathEnv overrides the config file location.
const ConfigPathEnv = "TOKIBOT_CONFIG_FILE"

// Loader handles configuration loading with Viper.
type Loader struct {
	viper *viper.Viper
	path  string
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("json")

	if home, err := GetConfigHome(); err == nil {
		v.AddConfigPath(home)
	}
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("TOKIBOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only applies to keys viper knows about.
	setDefaults(v, DefaultConfig())

	return &Loader{viper: v}
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("telegram.token", cfg.Telegram.Token)
	v.SetDefault("telegram.proxy", cfg.Telegram.Proxy)
	v.SetDefault("telegram.timeout_seconds", cfg.Telegram.TimeoutSeconds)
	v.SetDefault("telegram.poll_timeout", cfg.Telegram.PollTimeout)
	v.SetDefault("bot.prefix", cfg.Bot.Prefix)
	v.SetDefault("bot.admins", cfg.Bot.Admins)
	v.SetDefault("bot.vips", cfg.Bot.VIPs)
	v.SetDefault("bot.cooldown_ms", cfg.Bot.CooldownMS)
	v.SetDefault("media.probe_timeout_seconds", cfg.Media.ProbeTimeoutSeconds)
	v.SetDefault("media.download_timeout_seconds", cfg.Media.DownloadTimeoutSeconds)
	v.SetDefault("media.max_download_mb", cfg.Media.MaxDownloadMB)
	v.SetDefault("handlers.dir", cfg.Handlers.Dir)
	v.SetDefault("handlers.watch", cfg.Handlers.Watch)
	v.SetDefault("handlers.timezone", cfg.Handlers.Timezone)
	v.SetDefault("api.base_url", cfg.API.BaseURL)
	v.SetDefault("api.timeout_seconds", cfg.API.TimeoutSeconds)
	v.SetDefault("state.backend", cfg.State.Backend)
	v.SetDefault("state.file_path", cfg.State.FilePath)
	v.SetDefault("state.redis.addr", cfg.State.Redis.Addr)
	v.SetDefault("state.redis.password", cfg.State.Redis.Password)
	v.SetDefault("state.redis.db", cfg.State.Redis.DB)
	v.SetDefault("state.redis.prefix", cfg.State.Redis.Prefix)
	v.SetDefault("logger.level", cfg.Logger.Level)
	v.SetDefault("logger.output_path", cfg.Logger.OutputPath)
	v.SetDefault("logger.max_size_mb", cfg.Logger.MaxSizeMB)
	v.SetDefault("logger.max_backups", cfg.Logger.MaxBackups)
	v.SetDefault("logger.max_age_days", cfg.Logger.MaxAgeDays)
	v.SetDefault("logger.compress", cfg.Logger.Compress)
	v.SetDefault("logger.development", cfg.Logger.Development)
}

// Load loads the configuration from file and environment variables.
// If configPath is empty, TOKIBOT_CONFIG_FILE and then the default paths
// are searched. A missing file is created with defaults.
func (l *Loader) Load(configPath string) (*Config, error) {
	if strings.TrimSpace(configPath) == "" {
		configPath = strings.TrimSpace(os.Getenv(ConfigPathEnv))
	}
	explicitPath := configPath != ""
	resolvedPath, err := resolveConfigPath(configPath)
	if err != nil {
		return nil, err
	}
	if explicitPath {
		l.viper.SetConfigFile(resolvedPath)
		l.path = resolvedPath
	}

	if err := l.viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := SaveToFile(DefaultConfig(), resolvedPath); err != nil {
			return nil, fmt.Errorf("creating config file: %w", err)
		}
		l.viper.SetConfigFile(resolvedPath)
	}

	cfg := DefaultConfig()
	if err := l.viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Handlers.Dir = ExpandPath(cfg.Handlers.Dir)
	cfg.State.FilePath = ExpandPath(cfg.State.FilePath)
	cfg.Logger.OutputPath = ExpandPath(cfg.Logger.OutputPath)

	return cfg, nil
}

// Save saves the configuration to a file. The format follows the extension.
func (l *Loader) Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	format := "json"
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		format = "yaml"
	case ".toml":
		format = "toml"
	}

	v := viper.New()
	v.SetConfigType(format)
	v.Set("telegram", cfg.Telegram)
	v.Set("bot", cfg.Bot)
	v.Set("media", cfg.Media)
	v.Set("handlers", cfg.Handlers)
	v.Set("api", cfg.API)
	v.Set("state", cfg.State)
	v.Set("logger", cfg.Logger)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// SaveToFile is a convenience function to save config without creating a Loader.
func SaveToFile(cfg *Config, path string) error {
	return NewLoader().Save(path, cfg)
}

// GetConfigHome returns the default config directory.
func GetConfigHome() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".tokibot"), nil
}

// GetConfigPath returns the path of the loaded config file.
func (l *Loader) GetConfigPath() string {
	return l.viper.ConfigFileUsed()
}

// Reload reads the same file the last Load used.
func (l *Loader) Reload() (*Config, error) {
	return l.Load(l.path)
}

func resolveConfigPath(configPath string) (string, error) {
	path := strings.TrimSpace(configPath)
	if path == "" {
		home, err := GetConfigHome()
		if err != nil {
			return "", err
		}
		path = filepath.Join(home, "config.json")
	}
	abs, err := filepath.Abs(ExpandPath(path))
	if err != nil {
		return "", fmt.Errorf("resolve config path: %w", err)
	}
	return abs, nil
}
