// Package config loads viewer settings. Sources are applied in order,
// later ones winning: defaults, YAML file, .env file, PDFVIEWER_*
// environment variables. CLI flags are applied on top by main.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "PDFVIEWER_"

// Supported repository drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverMongo    = "mongo"
)

// DatabaseConfig selects the repository behind the rectangles endpoint.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
	// Name is the database name for mongo.
	Name string `yaml:"name"`
}

// Config holds every setting of the viewer, the endpoint and the MCP server.
type Config struct {
	DataDir  string `yaml:"data_dir"`
	Document string `yaml:"document"`

	// RemoteURL is the rectangles endpoint used as a backend. Empty
	// disables the remote backend.
	RemoteURL    string `yaml:"remote_url"`
	LocalStorage bool   `yaml:"local_storage"`

	Listen   string         `yaml:"listen"`
	Database DatabaseConfig `yaml:"database"`

	RetrySchedule string  `yaml:"retry_schedule"`
	RateLimit     float64 `yaml:"rate_limit"` // POSTs per second per client
	RateBurst     int     `yaml:"rate_burst"`

	Scale          float64 `yaml:"scale"`
	Mode           string  `yaml:"mode"`
	ThumbnailWidth float64 `yaml:"thumbnail_width"`

	LogLevel string `yaml:"log_level"`
}

// DefaultDataDir is ~/.local/share/pdfviewer.
func DefaultDataDir() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".local", "share", "pdfviewer")
}

// DefaultPath is ~/.config/pdfviewer/config.yaml.
func DefaultPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".config", "pdfviewer", "config.yaml")
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		DataDir:        DefaultDataDir(),
		LocalStorage:   true,
		Listen:         "127.0.0.1:8080",
		Database:       DatabaseConfig{Driver: DriverSQLite},
		RetrySchedule:  "@every 30s",
		RateLimit:      20,
		RateBurst:      40,
		Scale:          1.0,
		Mode:           "single",
		ThumbnailWidth: 160,
		LogLevel:       "warn",
	}
}

// Load builds a Config from path and envFile. A missing file is skipped;
// a file that exists but does not parse is an error.
func Load(path, envFile string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	dotenv := map[string]string{}
	if envFile != "" {
		vals, err := godotenv.Read(envFile)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read env file: %w", err)
		}
		if vals != nil {
			dotenv = vals
		}
	}

	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			return v, true
		}
		v, ok := dotenv[EnvPrefix+key]
		return v, ok
	}
	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"DATA_DIR":       &c.DataDir,
		"DOCUMENT":       &c.Document,
		"REMOTE_URL":     &c.RemoteURL,
		"LISTEN":         &c.Listen,
		"DB_DRIVER":      &c.Database.Driver,
		"DB_DSN":         &c.Database.DSN,
		"DB_NAME":        &c.Database.Name,
		"RETRY_SCHEDULE": &c.RetrySchedule,
		"MODE":           &c.Mode,
		"LOG_LEVEL":      &c.LogLevel,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok {
			*dst = strings.TrimSpace(v)
		}
	}

	floats := map[string]*float64{
		"RATE_LIMIT":      &c.RateLimit,
		"SCALE":           &c.Scale,
		"THUMBNAIL_WIDTH": &c.ThumbnailWidth,
	}
	for key, dst := range floats {
		if v, ok := lookup(key); ok {
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
			}
			*dst = f
		}
	}

	if v, ok := lookup("RATE_BURST"); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%sRATE_BURST: %w", EnvPrefix, err)
		}
		c.RateBurst = n
	}
	if v, ok := lookup("LOCAL_STORAGE"); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%sLOCAL_STORAGE: %w", EnvPrefix, err)
		}
		c.LocalStorage = b
	}
	return nil
}

// Validate checks the settings that would otherwise fail late.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverSQLite, DriverPostgres, DriverMySQL:
	case DriverMongo:
		if c.Database.DSN == "" {
			return fmt.Errorf("database: mongo needs a dsn")
		}
	default:
		return fmt.Errorf("database: unknown driver %q", c.Database.Driver)
	}
	if c.Database.Driver != DriverSQLite && c.Database.DSN == "" {
		return fmt.Errorf("database: %s needs a dsn", c.Database.Driver)
	}
	if c.Scale <= 0 {
		return fmt.Errorf("scale must be positive, got %v", c.Scale)
	}
	if c.Mode != "single" && c.Mode != "continuous" {
		return fmt.Errorf("mode must be single or continuous, got %q", c.Mode)
	}
	if c.RetrySchedule != "" {
		if _, err := cron.ParseStandard(c.RetrySchedule); err != nil {
			return fmt.Errorf("retry_schedule: %w", err)
		}
	}
	if c.RateLimit < 0 || c.RateBurst < 0 {
		return fmt.Errorf("rate limit must not be negative")
	}
	if c.ThumbnailWidth <= 0 {
		return fmt.Errorf("thumbnail_width must be positive")
	}
	return nil
}

// SQLitePath is the default repository file under DataDir.
func (c *Config) SQLitePath() string {
	return filepath.Join(c.DataDir, "annotations.db")
}

// LocalStorageDir is the per-device key/value directory under DataDir.
func (c *Config) LocalStorageDir() string {
	return filepath.Join(c.DataDir, "localstorage")
}

// ParseLogLevel maps a level name to logrus, defaulting to warn.
func ParseLogLevel(s string) logrus.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	default:
		return logrus.WarnLevel
	}
}

// NewLogger builds the process logger.
func NewLogger(level string) *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(ParseLogLevel(level))
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	return logger
}
