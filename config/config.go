// Package config loads property settings from a YAML document.
//
// Example:
//
//	ttl: 30s
//	store: /var/cache/myapp/properties.json
//	threaded: true
//	log_level: debug
package config

import (
	"io"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/jmgilman/go/errors"
	"github.com/jmgilman/go/fs/core"
	"gopkg.in/yaml.v3"
)

// Config holds the settings a property definition can be built from.
type Config struct {
	// TTL is the maximum age of a memoized value. Zero means values never
	// expire.
	TTL time.Duration `yaml:"ttl"`

	// Store is the path of the durable JSON document. Empty disables
	// persistence.
	Store string `yaml:"store"`

	// Threaded guards every access with the property's reentrant lock.
	Threaded bool `yaml:"threaded"`

	// LogLevel is one of debug, info, warn or error. Empty means info.
	LogLevel string `yaml:"log_level"`
}

// Parse decodes and validates a YAML document.
func Parse(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrap(err, errors.CodeInvalidConfig, "failed to decode configuration")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Load reads the YAML document at path from fsys.
func Load(fsys core.FS, path string) (Config, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Config{}, errors.Wrapf(err, errors.CodeNotFound, "configuration %q does not exist", path)
		}
		return Config{}, errors.Wrapf(err, errors.CodeInternal, "failed to read configuration %q", path)
	}
	return Parse(data)
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.TTL < 0 {
		return errors.WithContext(
			errors.New(errors.CodeInvalidConfig, "ttl cannot be negative"),
			"ttl", c.TTL.String(),
		)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level maps LogLevel to a slog level.
func (c Config) Level() (slog.Level, error) {
	switch strings.ToLower(c.LogLevel) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, errors.WithContext(
			errors.Newf(errors.CodeInvalidConfig, "unknown log level %q", c.LogLevel),
			"log_level", c.LogLevel,
		)
	}
}

// Logger returns a text logger writing to w at the configured level.
func (c Config) Logger(w io.Writer) *slog.Logger {
	level, err := c.Level()
	if err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
