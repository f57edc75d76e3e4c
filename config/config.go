package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

var (
	ErrConfigNotFound = errors.New("configuration file not found")
	ErrInvalidConfig  = errors.New("invalid configuration")
)

// DefaultFile is the config file looked for when none is given.
const DefaultFile = "cowork.toml"

// Config holds everything the client core needs to be assembled. Values come
// from defaults, then an optional TOML file, then environment overrides.
type Config struct {
	// Host is the channel server authority, e.g. "channels.cowork.example".
	Host string `toml:"host"`

	// Scheme is the WebSocket scheme, "wss" in production.
	Scheme string `toml:"scheme"`

	// UserID identifies this client on the channel.
	UserID string `toml:"user_id"`

	// Token is the bearer token presented at connect time. Optional;
	// development servers accept unauthenticated connections.
	Token string `toml:"token"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `toml:"log_level"`
}

// Default returns the baseline configuration before file and env layers.
func Default() Config {
	return Config{
		Scheme:   "wss",
		LogLevel: "info",
	}
}

// Load builds the effective configuration. A missing file at the default
// path is fine; a missing file at an explicitly given path is an error.
// Callers apply any command-line overrides and then call Validate.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("%w: parse %s: %v", ErrInvalidConfig, path, err)
		}
	case os.IsNotExist(err):
		if explicit {
			return Config{}, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
	default:
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv layers COWORK_* environment variables over the current values.
func (c *Config) applyEnv() {
	if v := os.Getenv("COWORK_HOST"); v != "" {
		c.Host = v
	}
	if v := os.Getenv("COWORK_SCHEME"); v != "" {
		c.Scheme = v
	}
	if v := os.Getenv("COWORK_USER_ID"); v != "" {
		c.UserID = v
	}
	if v := os.Getenv("COWORK_TOKEN"); v != "" {
		c.Token = v
	}
	if v := os.Getenv("COWORK_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

// Validate rejects configurations the core cannot be assembled from.
// Failing here is the startup-time configuration error path; nothing else
// in the core validates these again.
func (c *Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("%w: host is required", ErrInvalidConfig)
	}
	if c.Scheme != "ws" && c.Scheme != "wss" {
		return fmt.Errorf("%w: scheme must be ws or wss, got %q", ErrInvalidConfig, c.Scheme)
	}
	if c.UserID == "" {
		return fmt.Errorf("%w: user_id is required", ErrInvalidConfig)
	}
	return nil
}
