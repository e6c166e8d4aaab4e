// Package config loads the settings of the missyctl command.
package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/dolmen-go/contextio"
	"github.com/joho/godotenv"
	"github.com/kolypto/missymongo/domain"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Environment variables overriding file settings.
const (
	EnvURI      = "MISSY_MONGODB"
	EnvDatabase = "MISSY_MONGODB_DATABASE"
	EnvLogLevel = "MISSY_LOG_LEVEL"
)

// ErrNoURI is returned by [Load] when no connection string is configured.
var ErrNoURI = errors.New("no connection string configured")

// Config holds the connection and logging settings.
type Config struct {
	// URI is the connection string, e.g. mongodb://localhost:27017/app.
	URI string `yaml:"uri"`
	// Database overrides the database named in URI.
	Database string `yaml:"database"`
	// AppName is reported to the server.
	// Default: "missyctl"
	AppName string `yaml:"app_name"`
	// ConnectTimeout limits dialing a server.
	// Default: 10s
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	// ServerSelectionTimeout limits waiting for a suitable server.
	// Default: 30s
	ServerSelectionTimeout time.Duration `yaml:"server_selection_timeout"`
	// LogLevel is one of debug, info, warn or error.
	// Default: "info"
	LogLevel string `yaml:"log_level"`
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		AppName:                "missyctl",
		ConnectTimeout:         10 * time.Second,
		ServerSelectionTimeout: 30 * time.Second,
		LogLevel:               "info",
	}
}

// Load reads the YAML file at path, if any, then applies environment
// overrides. Variables from a .env file in the working directory are loaded
// first; existing variables are not overwritten.
func Load(ctx context.Context, path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if err := cfg.readFile(ctx, path); err != nil {
			return Config{}, err
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	if v := os.Getenv(EnvURI); v != "" {
		cfg.URI = v
	}
	if v := os.Getenv(EnvDatabase); v != "" {
		cfg.Database = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) readFile(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	b, err := io.ReadAll(contextio.NewReader(ctx, f))
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// validate fills unset values with defaults and rejects unusable ones.
func (c *Config) validate() error {
	def := DefaultConfig()
	if c.URI == "" {
		return ErrNoURI
	}
	if c.AppName == "" {
		c.AppName = def.AppName
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = def.ConnectTimeout
	}
	if c.ServerSelectionTimeout <= 0 {
		c.ServerSelectionTimeout = def.ServerSelectionTimeout
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel.
func (c Config) Level() (zapcore.Level, error) {
	lvl, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return lvl, fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	return lvl, nil
}

// MongoOptions converts the settings to connector options.
func (c Config) MongoOptions() []domain.MongoOption {
	return []domain.MongoOption{
		domain.WithMongoDatabase(c.Database),
		domain.WithMongoAppName(c.AppName),
		domain.WithMongoConnectTimeout(c.ConnectTimeout),
		domain.WithMongoServerSelectionTimeout(c.ServerSelectionTimeout),
	}
}
