// Package config loads and validates the drip configuration file.
//
// Configuration lives at ~/.drip/config.yaml by default, can be pointed
// elsewhere via --config or DRIP_CONFIG, and the database DSN can be
// supplied through DRIP_DSN so credentials stay out of files entirely.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/go-sql-driver/mysql"
)

// Defaults applied when the config file omits a value.
const (
	DefaultDelay           = 2 * time.Second
	DefaultMaxOpenConns    = 2
	DefaultMaxIdleConns    = 1
	DefaultConnMaxLifetime = 30 * time.Minute

	// DefaultLogLevel is intentionally quiet: progress lines go to stdout,
	// structured logs exist for diagnosis.
	DefaultLogLevel  = "info"
	DefaultLogFormat = "console"
)

// Environment variables honored at load time.
const (
	EnvConfigPath = "DRIP_CONFIG"
	EnvDSN        = "DRIP_DSN"
)

var errEmptyDSN = errors.New("database.dsn is not set (set it in the config file or via DRIP_DSN)")

// Config is the root of the YAML configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Run      RunConfig      `yaml:"run"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// DatabaseConfig describes the one target database.
type DatabaseConfig struct {
	// DSN is a go-sql-driver DSN, e.g. "user:pass@tcp(db1:3306)/app".
	DSN string `yaml:"dsn"`

	MaxOpenConns int `yaml:"max_open_conns"`
	MaxIdleConns int `yaml:"max_idle_conns"`

	// ConnMaxLifetimeStr is a duration string (e.g. "30m").
	ConnMaxLifetimeStr string `yaml:"conn_max_lifetime,omitempty"`
}

// RunConfig holds loop defaults that flags may override per invocation.
type RunConfig struct {
	// DelayStr is the inter-batch pause, as a duration string (e.g. "2s").
	DelayStr string `yaml:"delay,omitempty"`

	// ConfirmEach asks before every batch instead of only once up front.
	ConfirmEach bool `yaml:"confirm_each,omitempty"`
}

// LoggingConfig mirrors logging.Config in YAML form.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file,omitempty"`
}

// Delay returns the configured inter-batch delay, or the default (2s) when
// unset or unparseable. Parse errors are reported by Validate, not here.
func (r RunConfig) Delay() time.Duration {
	if r.DelayStr != "" {
		if d, err := time.ParseDuration(r.DelayStr); err == nil && d >= 0 {
			return d
		}
	}
	return DefaultDelay
}

// ConnMaxLifetime returns the configured connection lifetime, or the
// default (30m) when unset or unparseable.
func (d DatabaseConfig) ConnMaxLifetime() time.Duration {
	if d.ConnMaxLifetimeStr != "" {
		if v, err := time.ParseDuration(d.ConnMaxLifetimeStr); err == nil && v > 0 {
			return v
		}
	}
	return DefaultConnMaxLifetime
}

// New returns a Config populated with defaults only.
func New() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads the YAML file at path and applies defaults and environment
// overrides. A missing file is not an error: flags and environment can
// carry a full configuration on their own.
func Load(path string) (*Config, error) {
	cfg := New()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnv()
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	cfg.applyDefaults()
	cfg.applyEnv()
	return cfg, nil
}

// DefaultPath resolves the config file location: DRIP_CONFIG when set,
// otherwise ~/.drip/config.yaml.
func DefaultPath() string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".drip", "config.yaml")
	}
	return filepath.Join(home, ".drip", "config.yaml")
}

// Validate checks the loaded configuration for values that would make a run
// fail later in a less obvious place.
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return errEmptyDSN
	}
	if _, err := mysql.ParseDSN(c.Database.DSN); err != nil {
		return fmt.Errorf("database.dsn is not a valid DSN: %w", err)
	}
	if c.Database.MaxOpenConns < 0 {
		return fmt.Errorf("database.max_open_conns cannot be negative, got %d", c.Database.MaxOpenConns)
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative, got %d", c.Database.MaxIdleConns)
	}
	if c.Database.ConnMaxLifetimeStr != "" {
		if _, err := time.ParseDuration(c.Database.ConnMaxLifetimeStr); err != nil {
			return fmt.Errorf("database.conn_max_lifetime is not a duration: %w", err)
		}
	}
	if c.Run.DelayStr != "" {
		d, err := time.ParseDuration(c.Run.DelayStr)
		if err != nil {
			return fmt.Errorf("run.delay is not a duration: %w", err)
		}
		if d < 0 {
			return fmt.Errorf("run.delay cannot be negative, got %s", d)
		}
	}
	if c.Logging.Level != "" {
		switch c.Logging.Level {
		case "trace", "debug", "info", "warn", "error", "fatal", "panic":
		default:
			return fmt.Errorf("logging.level %q is not a zerolog level", c.Logging.Level)
		}
	}
	return nil
}

// applyDefaults fills unset fields with default values.
func (c *Config) applyDefaults() {
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = DefaultMaxOpenConns
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = DefaultMaxIdleConns
	}
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}
}

// applyEnv overlays environment variables on top of file values.
func (c *Config) applyEnv() {
	if dsn := os.Getenv(EnvDSN); dsn != "" {
		c.Database.DSN = dsn
	}
}
