package config

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all service configuration.
type Config struct {
	Server    ServerConfig
	Preview   PreviewConfig
	Storage   StorageConfig
	AI        AIConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8700" yaml:"port"`
	Host string `envconfig:"HOST" default:"0.0.0.0" yaml:"host"`
}

// PreviewConfig holds sandbox execution configuration.
type PreviewConfig struct {
	// Timeout bounds a single script evaluation. The underlying platform
	// gives no way to stop a hostile synchronous loop without it.
	Timeout      time.Duration `envconfig:"PREVIEW_TIMEOUT" default:"5s" yaml:"timeout"`
	MaxCallStack int           `envconfig:"PREVIEW_MAX_CALL_STACK" default:"1024" yaml:"max_call_stack"`
	MaxLogBuffer int           `envconfig:"PREVIEW_MAX_LOG_BUFFER" default:"10000" yaml:"max_log_buffer"`
}

// StorageConfig holds snippet and session persistence configuration.
type StorageConfig struct {
	DataDir string `envconfig:"DATA_DIR" default:"/var/lib/penlab" yaml:"data_dir"`
}

// AIConfig holds generative AI service configuration.
type AIConfig struct {
	BaseURL string        `envconfig:"AI_BASE_URL" default:"https://api.openai.com/v1" yaml:"base_url"`
	APIKey  string        `envconfig:"AI_API_KEY" yaml:"api_key"`
	Model   string        `envconfig:"AI_MODEL" default:"gpt-4o" yaml:"model"`
	Timeout time.Duration `envconfig:"AI_TIMEOUT" default:"2m" yaml:"timeout"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info" yaml:"level"`
	Development bool   `envconfig:"LOG_DEV" default:"false" yaml:"development"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"50" yaml:"requests_per_second"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"100" yaml:"burst"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true" yaml:"enabled"`
}

// Load loads configuration from the environment. If PENLAB_CONFIG names a
// YAML file it is applied on top of the environment, so a deployed config
// file wins over ambient defaults.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if path := os.Getenv("PENLAB_CONFIG"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from the environment or returns defaults.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8700",
			Host: "0.0.0.0",
		},
		Preview: PreviewConfig{
			Timeout:      5 * time.Second,
			MaxCallStack: 1024,
			MaxLogBuffer: 10000,
		},
		Storage: StorageConfig{
			DataDir: "/var/lib/penlab",
		},
		AI: AIConfig{
			BaseURL: "https://api.openai.com/v1",
			Model:   "gpt-4o",
			Timeout: 2 * time.Minute,
		},
		Logging: LogConfig{
			Level: "info",
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 50,
			Burst:             100,
			Enabled:           true,
		},
	}
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}
