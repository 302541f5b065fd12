package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration for the Nanban server.
// It is loaded from a YAML file and can be overridden by environment
// variables with the NANBAN_ prefix (NANBAN_LLM_API_KEY, NANBAN_SERVER_PORT...).
type Config struct {
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
	LLM     LLMConfig     `mapstructure:"llm" yaml:"llm"`
	Voice   VoiceConfig   `mapstructure:"voice" yaml:"voice"`
	Store   StoreConfig   `mapstructure:"store" yaml:"store"`
	Catalog CatalogConfig `mapstructure:"catalog" yaml:"catalog"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// ServerConfig contains the HTTP listener settings.
type ServerConfig struct {
	// Host is the bind address (default: 0.0.0.0)
	Host string `mapstructure:"host" yaml:"host"`
	// Port is the listen port (default: 8080)
	Port int `mapstructure:"port" yaml:"port"`
	// ShutdownTimeout is how long in-flight requests get to finish
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// LLMConfig contains the generation backend settings.
type LLMConfig struct {
	// Endpoint is the chat-completions API base URL
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`
	// APIKey is the authentication key for the backend
	APIKey string `mapstructure:"api_key" yaml:"api_key,omitempty"`
	// Model is the specific model to request
	Model string `mapstructure:"model" yaml:"model"`
	// TimeoutSec is the per-request timeout in seconds
	TimeoutSec int `mapstructure:"timeout_sec" yaml:"timeout_sec"`
	// MaxAttempts is how many times a generation is tried before fallback
	MaxAttempts int `mapstructure:"max_attempts" yaml:"max_attempts"`
	// RetryDelayMs is the base backoff between attempts in milliseconds
	RetryDelayMs int `mapstructure:"retry_delay_ms" yaml:"retry_delay_ms"`
}

// VoiceConfig contains the speech synthesis settings. Voice is optional:
// an empty endpoint or API key leaves the app text-only.
type VoiceConfig struct {
	// Enabled controls whether synthesis is attempted at all
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	// Endpoint is the text-to-speech REST endpoint base URL
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint,omitempty"`
	// APIKey is the synthesis API key
	APIKey string `mapstructure:"api_key" yaml:"api_key,omitempty"`
	// TimeoutSec is the synthesis request timeout in seconds
	TimeoutSec int `mapstructure:"timeout_sec" yaml:"timeout_sec"`
}

// StoreConfig contains persistence settings.
type StoreConfig struct {
	// DBPath is the path to the SQLite database file
	DBPath string `mapstructure:"db_path" yaml:"db_path"`
	// HistoryLimit is how many stored turns are loaded per chat turn
	HistoryLimit int `mapstructure:"history_limit" yaml:"history_limit"`
}

// CatalogConfig points at optional dialect/persona profile overrides.
type CatalogConfig struct {
	// ProfilePath is a YAML file overriding built-in profiles; empty
	// means built-ins only
	ProfilePath string `mapstructure:"profile_path" yaml:"profile_path,omitempty"`
}

// LoggingConfig contains application logging settings.
type LoggingConfig struct {
	// Level is the log level ("debug", "info", "warn", "error")
	Level string `mapstructure:"level" yaml:"level"`
	// File is an optional log file path; empty logs to stderr only
	File string `mapstructure:"file" yaml:"file,omitempty"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ShutdownTimeout: 10 * time.Second,
		},
		LLM: LLMConfig{
			Endpoint:     "https://api.openai.com/v1",
			APIKey:       "",
			Model:        "gpt-4o-mini",
			TimeoutSec:   30,
			MaxAttempts:  3,
			RetryDelayMs: 500,
		},
		Voice: VoiceConfig{
			Enabled:    true,
			Endpoint:   "https://texttospeech.googleapis.com",
			APIKey:     "",
			TimeoutSec: 20,
		},
		Store: StoreConfig{
			DBPath:       "nanban.db",
			HistoryLimit: 10,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from path and merges environment overrides.
// A missing file is not an error: defaults plus environment apply.
func Load(path string) (*Config, error) {
	path = expandPath(path)

	v := viper.New()
	v.SetConfigType("yaml")

	// Example: NANBAN_LLM_API_KEY overrides llm.api_key
	v.SetEnvPrefix("NANBAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil && !os.IsNotExist(err) {
			if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.Store.DBPath = expandPath(cfg.Store.DBPath)
	cfg.Logging.File = expandPath(cfg.Logging.File)
	cfg.Catalog.ProfilePath = expandPath(cfg.Catalog.ProfilePath)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	v.SetDefault("llm.endpoint", d.LLM.Endpoint)
	v.SetDefault("llm.api_key", d.LLM.APIKey)
	v.SetDefault("llm.model", d.LLM.Model)
	v.SetDefault("llm.timeout_sec", d.LLM.TimeoutSec)
	v.SetDefault("llm.max_attempts", d.LLM.MaxAttempts)
	v.SetDefault("llm.retry_delay_ms", d.LLM.RetryDelayMs)
	v.SetDefault("voice.enabled", d.Voice.Enabled)
	v.SetDefault("voice.endpoint", d.Voice.Endpoint)
	v.SetDefault("voice.timeout_sec", d.Voice.TimeoutSec)
	v.SetDefault("store.db_path", d.Store.DBPath)
	v.SetDefault("store.history_limit", d.Store.HistoryLimit)
	v.SetDefault("logging.level", d.Logging.Level)
}

// SaveToPath writes the current configuration to a YAML file.
func (c *Config) SaveToPath(path string) error {
	path = expandPath(path)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Addr returns the host:port the server binds to.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Validate checks the configuration for common errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if c.LLM.Endpoint == "" {
		return fmt.Errorf("llm.endpoint cannot be empty")
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("llm.model cannot be empty")
	}
	if c.LLM.MaxAttempts < 1 {
		return fmt.Errorf("llm.max_attempts must be at least 1")
	}
	if c.Store.DBPath == "" {
		return fmt.Errorf("store.db_path cannot be empty")
	}
	if c.Store.HistoryLimit < 1 {
		return fmt.Errorf("store.history_limit must be at least 1")
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level '%s', must be one of: debug, info, warn, error", c.Logging.Level)
	}
	return nil
}

// expandPath expands ~ to the user's home directory in a path string.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(homeDir, path[1:])
	}
	return path
}
