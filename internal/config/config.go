package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all configuration for the application
type Config struct {
	Discord DiscordConfig
	Redis   RedisConfig
	Effects EffectsConfig
}

// DiscordConfig holds Discord-specific configuration. Without a token the
// bot runs as a stdin console.
type DiscordConfig struct {
	Token   string `env:"DISCORD_TOKEN"`
	AppID   string `env:"DISCORD_APP_ID"`
	GuildID string `env:"DISCORD_GUILD_ID"` // Optional: for guild-specific commands
}

// RedisConfig holds Redis-specific configuration. Without a URL state and
// timers stay in memory.
type RedisConfig struct {
	URL       string `env:"REDIS_URL"`
	KeyPrefix string `env:"REDIS_KEY_PREFIX" envDefault:"effects"`
}

// EffectsConfig tunes the effect engine host
type EffectsConfig struct {
	PollInterval time.Duration `env:"EFFECTS_POLL_INTERVAL" envDefault:"100ms"`
	LogLevel     string        `env:"EFFECTS_LOG_LEVEL" envDefault:"info"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field combinations the tags cannot express
func (c *Config) Validate() error {
	if c.Discord.Token != "" && c.Discord.AppID == "" {
		return fmt.Errorf("DISCORD_APP_ID is required when DISCORD_TOKEN is set")
	}
	if c.Effects.PollInterval <= 0 {
		return fmt.Errorf("EFFECTS_POLL_INTERVAL must be positive, got %s", c.Effects.PollInterval)
	}
	if _, err := parseLevel(c.Effects.LogLevel); err != nil {
		return err
	}
	return nil
}

// DiscordEnabled reports whether a bot token is configured
func (c *Config) DiscordEnabled() bool {
	return c.Discord.Token != ""
}

// LogLevel returns the configured slog level
func (c *Config) LogLevel() slog.Level {
	level, err := parseLevel(c.Effects.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

func parseLevel(raw string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(raw))); err != nil {
		return slog.LevelInfo, fmt.Errorf("EFFECTS_LOG_LEVEL: %w", err)
	}
	return level, nil
}
