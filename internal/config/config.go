// Package config loads hypograph settings from a YAML file, environment
// variables and built-in defaults, in increasing order of precedence.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Classifier providers.
const (
	ProviderOpenAI = "openai"
	ProviderNone   = "none"
)

// Environment variables consulted by Load.
const (
	EnvDB             = "HYPOGRAPH_DB"
	EnvLogLevel       = "HYPOGRAPH_LOG_LEVEL"
	EnvCompanyContext = "HYPOGRAPH_COMPANY_CONTEXT"
	EnvOpenAIKey      = "OPENAI_API_KEY"
	EnvOpenAIModel    = "OPENAI_MODEL"
	EnvOpenAIBaseURL  = "OPENAI_BASE_URL"
)

// Config is the complete hypograph configuration.
type Config struct {
	// DataDir holds the database when DBPath is empty.
	DataDir string `yaml:"data_dir"`
	// DBPath points at the SQLite file directly.
	DBPath   string `yaml:"db_path"`
	LogLevel string `yaml:"log_level"`
	// CompanyContext seeds the stored organization description on startup.
	// Empty leaves the stored value alone.
	CompanyContext string           `yaml:"company_context"`
	Classifier     ClassifierConfig `yaml:"classifier"`
	// MetricsAddr serves /metrics when set (e.g. ":9464").
	MetricsAddr string `yaml:"metrics_addr"`
}

// ClassifierConfig configures the evidence classifier.
type ClassifierConfig struct {
	// Provider is "openai" or "none". The OpenAI provider without an API
	// key degrades to the neutral classifier.
	Provider string        `yaml:"provider"`
	Model    string        `yaml:"model"`
	APIKey   string        `yaml:"api_key"`
	BaseURL  string        `yaml:"base_url"`
	Timeout  time.Duration `yaml:"timeout"`
}

// Default returns a Config with the data directory under the user's home.
func Default() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return &Config{
		DataDir:  filepath.Join(home, ".hypograph"),
		LogLevel: "info",
		Classifier: ClassifierConfig{
			Provider: ProviderOpenAI,
			Model:    "gpt-4o-mini",
			Timeout:  15 * time.Second,
		},
	}
}

// DefaultPath is the config file looked up when no path is given.
func DefaultPath() string {
	return filepath.Join(Default().DataDir, "config.yaml")
}

// Load reads path over the defaults and applies environment overrides.
// An empty path skips the file; a missing DefaultPath is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err) && path == DefaultPath():
		case err != nil:
			return nil, fmt.Errorf("read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}
		}
	}

	cfg.applyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv(EnvDB); v != "" {
		c.DBPath = v
	}
	if v := getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := getenv(EnvCompanyContext); v != "" {
		c.CompanyContext = v
	}
	if v := getenv(EnvOpenAIKey); v != "" {
		c.Classifier.APIKey = v
	}
	if v := getenv(EnvOpenAIModel); v != "" {
		c.Classifier.Model = v
	}
	if v := getenv(EnvOpenAIBaseURL); v != "" {
		c.Classifier.BaseURL = v
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.Classifier.Provider {
	case ProviderOpenAI, ProviderNone:
	default:
		return fmt.Errorf("classifier.provider must be %q or %q, got %q", ProviderOpenAI, ProviderNone, c.Classifier.Provider)
	}
	if c.Classifier.Timeout <= 0 {
		return fmt.Errorf("classifier.timeout must be positive")
	}
	if c.DataDir == "" && c.DBPath == "" {
		return fmt.Errorf("data_dir or db_path is required")
	}
	return nil
}

// ParseLevel maps a log level name to its slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q", s)
}

// UseOpenAI reports whether the OpenAI classifier can be built.
func (c *Config) UseOpenAI() bool {
	return c.Classifier.Provider == ProviderOpenAI && c.Classifier.APIKey != ""
}
