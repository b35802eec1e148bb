package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Output formats understood by the analyze command.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Config holds the complete application configuration.
type Config struct {
	Analysis AnalysisConfig `mapstructure:"analysis"`
	Output   OutputConfig   `mapstructure:"output"`
	Log      LogConfig      `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
	NATS     NATSConfig     `mapstructure:"nats"`
	Sink     SinkConfig     `mapstructure:"sink"`
}

// AnalysisConfig controls parsing and extraction.
type AnalysisConfig struct {
	Concurrency    int           `mapstructure:"concurrency"`
	ParseTimeout   time.Duration `mapstructure:"parse_timeout"`
	MaxSourceSize  int64         `mapstructure:"max_source_size"`
	RequireSummary bool          `mapstructure:"require_summary"` // Ignore doc blocks without summary text
}

// OutputConfig controls report rendering.
type OutputConfig struct {
	Format string `mapstructure:"format"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// DatabaseConfig holds database configuration for the PostgreSQL report sink.
type DatabaseConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	Name           string `mapstructure:"name"`
	Schema         string `mapstructure:"schema"`
	SSLMode        string `mapstructure:"sslmode"`
	MaxConnections int    `mapstructure:"max_connections"`
}

// NATSConfig holds NATS configuration for the report publisher.
type NATSConfig struct {
	URL           string        `mapstructure:"url"`
	Subject       string        `mapstructure:"subject"`
	MaxReconnects int           `mapstructure:"max_reconnects"`
	ReconnectWait time.Duration `mapstructure:"reconnect_wait"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

// SinkConfig selects where finished reports are sent besides stdout.
type SinkConfig struct {
	Postgres bool `mapstructure:"postgres"`
	NATS     bool `mapstructure:"nats"`
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("analysis.concurrency", 4)
	v.SetDefault("analysis.parse_timeout", "30s")
	v.SetDefault("analysis.max_source_size", 10*1024*1024)
	v.SetDefault("analysis.require_summary", false)

	v.SetDefault("output.format", FormatText)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output", "stderr")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "funcscan")
	v.SetDefault("database.schema", "funcscan")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_connections", 5)

	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.subject", "funcscan.reports")
	v.SetDefault("nats.max_reconnects", 5)
	v.SetDefault("nats.reconnect_wait", "2s")
	v.SetDefault("nats.timeout", "5s")

	v.SetDefault("sink.postgres", false)
	v.SetDefault("sink.nats", false)
}

// New creates a new Config instance from Viper. It panics when the
// configuration cannot be decoded or is invalid.
func New(v *viper.Viper) *Config {
	config, err := Load(v)
	if err != nil {
		panic(err)
	}
	return config
}

// Load decodes and validates the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	var config Config

	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Analysis.Concurrency < 1 {
		return errors.New("analysis.concurrency must be at least 1")
	}

	if c.Analysis.ParseTimeout <= 0 {
		return errors.New("analysis.parse_timeout must be positive")
	}

	if c.Analysis.MaxSourceSize <= 0 {
		return errors.New("analysis.max_source_size must be positive")
	}

	if !slices.Contains([]string{FormatText, FormatJSON, FormatYAML}, strings.ToLower(c.Output.Format)) {
		return fmt.Errorf("output.format must be one of text, json, yaml: got %q", c.Output.Format)
	}

	// Connection settings only matter when the sink is enabled.
	if c.Sink.Postgres {
		if c.Database.User == "" {
			return errors.New("database.user is required when sink.postgres is enabled")
		}
		if c.Database.Name == "" {
			return errors.New("database.name is required when sink.postgres is enabled")
		}
		if c.Database.Port < 1 || c.Database.Port > 65535 {
			return errors.New("database.port must be between 1 and 65535")
		}
	}

	if c.Sink.NATS {
		if c.NATS.URL == "" {
			return errors.New("nats.url is required when sink.nats is enabled")
		}
		if c.NATS.Subject == "" {
			return errors.New("nats.subject is required when sink.nats is enabled")
		}
	}

	return nil
}
