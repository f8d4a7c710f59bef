package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for _, err := range e {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validator validates configuration.
type Validator struct {
	errors ValidationErrors
	// RequireToken makes a missing bot token an error.
	RequireToken bool
}

// NewValidator creates a new configuration validator.
func NewValidator() *Validator {
	return &Validator{
		errors:       make(ValidationErrors, 0),
		RequireToken: true,
	}
}

// Validate validates the entire configuration.
func (v *Validator) Validate(cfg *Config) error {
	v.errors = make(ValidationErrors, 0)

	v.validateTelegram(&cfg.Telegram)
	v.validateBot(&cfg.Bot)
	v.validateMedia(&cfg.Media)
	v.validateHandlers(&cfg.Handlers)
	v.validateAPI(&cfg.API)
	v.validateState(&cfg.State)
	v.validateLogger(&cfg.Logger)

	if len(v.errors) > 0 {
		return v.errors
	}
	return nil
}

func (v *Validator) validateTelegram(cfg *TelegramConfig) {
	if v.RequireToken && strings.TrimSpace(cfg.Token) == "" {
		v.addError("telegram.token", "bot token is required (set TOKIBOT_TELEGRAM_TOKEN)")
	}
	if cfg.Proxy != "" {
		u, err := url.Parse(cfg.Proxy)
		if err != nil || u.Scheme == "" || u.Host == "" {
			v.addError("telegram.proxy", "must be a URL such as socks5://host:port")
		}
	}
	if cfg.TimeoutSeconds < 0 {
		v.addError("telegram.timeout_seconds", "must be non-negative")
	}
	if cfg.PollTimeout < 0 {
		v.addError("telegram.poll_timeout", "must be non-negative")
	}
}

func (v *Validator) validateBot(cfg *BotConfig) {
	if strings.TrimSpace(cfg.Prefix) == "" || strings.ContainsAny(cfg.Prefix, " \t\n") {
		v.addError("bot.prefix", "must be a non-empty string without whitespace")
	}
	for i, id := range cfg.Admins {
		if !isNumericID(id) {
			v.addError(fmt.Sprintf("bot.admins[%d]", i), fmt.Sprintf("%q is not a numeric user id", id))
		}
	}
	for i, id := range cfg.VIPs {
		if !isNumericID(id) {
			v.addError(fmt.Sprintf("bot.vips[%d]", i), fmt.Sprintf("%q is not a numeric user id", id))
		}
	}
	if cfg.CooldownMS < 0 {
		v.addError("bot.cooldown_ms", "must be non-negative")
	}
}

func (v *Validator) validateMedia(cfg *MediaConfig) {
	if cfg.ProbeTimeoutSeconds <= 0 {
		v.addError("media.probe_timeout_seconds", "must be positive")
	}
	if cfg.DownloadTimeoutSeconds <= 0 {
		v.addError("media.download_timeout_seconds", "must be positive")
	}
	if cfg.MaxDownloadMB <= 0 {
		v.addError("media.max_download_mb", "must be positive")
	}
}

func (v *Validator) validateHandlers(cfg *HandlersConfig) {
	if cfg.Timezone != "" {
		if _, err := time.LoadLocation(cfg.Timezone); err != nil {
			v.addError("handlers.timezone", fmt.Sprintf("unknown time zone %q", cfg.Timezone))
		}
	}
}

func (v *Validator) validateAPI(cfg *APIConfig) {
	if cfg.BaseURL == "" {
		return
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		v.addError("api.base_url", "must be an http(s) URL")
	}
}

func (v *Validator) validateState(cfg *StateConfig) {
	switch cfg.Backend {
	case "", "file":
		if cfg.FilePath == "" {
			v.addError("state.file_path", "is required for the file backend")
		}
	case "redis":
		if cfg.Redis.Addr == "" {
			v.addError("state.redis.addr", "is required for the redis backend")
		}
	default:
		v.addError("state.backend", fmt.Sprintf("unknown backend %q (file or redis)", cfg.Backend))
	}
}

func (v *Validator) validateLogger(cfg *LoggerConfig) {
	switch strings.ToLower(cfg.Level) {
	case "", "debug", "info", "warn", "error", "fatal":
	default:
		v.addError("logger.level", fmt.Sprintf("unknown level %q", cfg.Level))
	}
}

func (v *Validator) addError(field, message string) {
	v.errors = append(v.errors, ValidationError{
		Field:   field,
		Message: message,
	})
}

// ValidateConfig is a convenience function to validate configuration.
func ValidateConfig(cfg *Config) error {
	return NewValidator().Validate(cfg)
}

func isNumericID(s string) bool {
	s = strings.TrimPrefix(s, "-")
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
