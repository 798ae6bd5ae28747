// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.sago/config.yaml)
//  3. Default values
//
// Main configuration categories:
//   - Model: provider selection, model name, temperature, max output tokens
//   - Storage: PostgreSQL connection (see storage.go)
//   - Server: listen address, CORS origins, upload limit
//
// Security: passwords are never logged. Validation lives in validation.go
// and uses sentinel errors for errors.Is() checks.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

var (
	// ErrInvalidProvider indicates the model provider is not supported.
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrInvalidTemperature indicates the temperature value is out of range.
	ErrInvalidTemperature = errors.New("invalid temperature")

	// ErrInvalidMaxTokens indicates the max output tokens value is out of range.
	ErrInvalidMaxTokens = errors.New("invalid max tokens")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is empty.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is empty.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrMissingAPIKey indicates the provider API key environment variable is not set.
	ErrMissingAPIKey = errors.New("missing API key")
)

// Model provider identifiers used in Config.Provider.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// Default model tuning values. The output ceiling is always set on
// provider calls to bound cost and latency; temperature stays moderate
// and non-zero.
const (
	DefaultModelName   = "gemini-2.5-flash"
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 4000
)

// DefaultAddr is the default HTTP listen address.
const DefaultAddr = "127.0.0.1:5001"

// Config stores application configuration.
type Config struct {
	// Model provider configuration
	Provider    string  `mapstructure:"provider"`    // "gemini" (default), "openai", "ollama"
	ModelName   string  `mapstructure:"model_name"`  // e.g. "gemini-2.5-flash", "gpt-4o"
	Temperature float64 `mapstructure:"temperature"` // sampling temperature, moderate non-zero
	MaxTokens   int     `mapstructure:"max_tokens"`  // output-length ceiling, always applied

	// Ollama configuration (only used when provider is "ollama")
	OllamaHost string `mapstructure:"ollama_host"`

	// Server configuration
	Addr           string   `mapstructure:"addr"`
	CORSOrigins    []string `mapstructure:"cors_origins"`
	MaxUploadBytes int64    `mapstructure:"max_upload_bytes"`

	// Logging configuration
	LogLevel string `mapstructure:"log_level"` // "debug", "info", "warn", "error"
	LogJSON  bool   `mapstructure:"log_json"`

	// Storage configuration (see storage.go)
	PostgresHost     string `mapstructure:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password"` // SENSITIVE: never logged
	PostgresDBName   string `mapstructure:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > default values.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".sago")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	setDefaults(v)
	bindEnvVariables(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is not an error; defaults apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using defaults",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// DATABASE_URL overrides individual postgres_* settings.
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("provider", ProviderGemini)
	v.SetDefault("model_name", DefaultModelName)
	v.SetDefault("temperature", DefaultTemperature)
	v.SetDefault("max_tokens", DefaultMaxTokens)
	v.SetDefault("ollama_host", "http://localhost:11434")

	v.SetDefault("addr", DefaultAddr)
	v.SetDefault("cors_origins", []string{"http://localhost:3000"})
	v.SetDefault("max_upload_bytes", int64(50<<20)) // 50 MB, matches frontend limit

	v.SetDefault("log_level", "info")
	v.SetDefault("log_json", false)

	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", 5432)
	v.SetDefault("postgres_user", "sago")
	v.SetDefault("postgres_password", "")
	v.SetDefault("postgres_db_name", "sago")
	v.SetDefault("postgres_ssl_mode", "disable")
}

func bindEnvVariables(v *viper.Viper) {
	v.SetEnvPrefix("SAGO")
	v.AutomaticEnv()

	// Explicit bindings keep the env names stable even if keys change.
	for _, key := range []string{
		"provider", "model_name", "temperature", "max_tokens", "ollama_host",
		"addr", "cors_origins", "max_upload_bytes",
		"log_level", "log_json",
		"postgres_host", "postgres_port", "postgres_user",
		"postgres_password", "postgres_db_name", "postgres_ssl_mode",
	} {
		_ = v.BindEnv(key)
	}
}
