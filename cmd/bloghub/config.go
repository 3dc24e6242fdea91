package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
)

const envPrefix = "BLOGHUB_"

// Config is the configuration of the bloghub binary.
type Config struct {
	Addr            string      `toml:"addr" validate:"required"`
	SiteName        string      `toml:"site_name"`
	LogLevel        string      `toml:"log_level" validate:"oneof=debug info warn error"`
	LogFormat       string      `toml:"log_format" validate:"oneof=json text"`
	ShutdownTimeout Duration    `toml:"shutdown_timeout"`
	Store           StoreConfig `toml:"store"`
	Admin           AdminConfig `toml:"admin"`
}

// StoreConfig selects the store backend.
type StoreConfig struct {
	Driver string `toml:"driver" validate:"oneof=memory bbolt sqlite"`
	Path   string `toml:"path" validate:"required_unless=Driver memory"`
}

// AdminConfig holds the basic auth credentials for the admin API.
type AdminConfig struct {
	User     string `toml:"user"`
	Password string `toml:"password" validate:"required_with=User"`
}

// Duration is a time.Duration read from a string such as "10s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// DefaultConfig returns the configuration used when no file or variable overrides it.
func DefaultConfig() Config {
	return Config{
		Addr:            ":8080",
		LogLevel:        "info",
		LogFormat:       "json",
		ShutdownTimeout: Duration{10 * time.Second},
		Store:           StoreConfig{Driver: "memory"},
	}
}

// LoadConfig reads the TOML file at path, if any, over the defaults, then applies
// BLOGHUB_* overrides from lookup.
func LoadConfig(path string, lookup func(string) (string, bool)) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		md, err := toml.DecodeFile(path, &cfg)
		if err != nil {
			return Config{}, fmt.Errorf("error reading config file %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return Config{}, fmt.Errorf("unknown config keys in %s: %v", path, undecoded)
		}
	}

	if err := cfg.applyEnv(lookup); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"ADDR":           &c.Addr,
		"SITE_NAME":      &c.SiteName,
		"LOG_LEVEL":      &c.LogLevel,
		"LOG_FORMAT":     &c.LogFormat,
		"STORE_DRIVER":   &c.Store.Driver,
		"STORE_PATH":     &c.Store.Path,
		"ADMIN_USER":     &c.Admin.User,
		"ADMIN_PASSWORD": &c.Admin.Password,
	}
	for key, field := range strs {
		if value, ok := lookup(envPrefix + key); ok {
			*field = value
		}
	}

	if value, ok := lookup(envPrefix + "SHUTDOWN_TIMEOUT"); ok {
		if err := c.ShutdownTimeout.UnmarshalText([]byte(value)); err != nil {
			return fmt.Errorf("invalid %sSHUTDOWN_TIMEOUT: %w", envPrefix, err)
		}
	}

	c.LogLevel = strings.ToLower(c.LogLevel)
	c.LogFormat = strings.ToLower(c.LogFormat)
	return nil
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(fields, ", "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// NewLogger builds the process logger from the configuration.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	var level slog.Level
	// LogLevel is validated, so this never fails
	_ = level.UnmarshalText([]byte(c.LogLevel))

	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}
