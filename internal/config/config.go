// Package config provides configuration management for Loom. It loads
// settings from environment variables with the LOOM_ prefix and provides
// sensible defaults for every option, so a bare `loom-web` starts a fully
// local instance out of the box.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration settings for the Loom application.
type Config struct {
	Server ServerConfig
	DB     DBConfig
	Ollama OllamaConfig
	Engine EngineConfig
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Host      string // Server host (default: 127.0.0.1)
	Port      int    // Server port (default: 6565)
	RateLimit int    // Sustained requests per second (default: 25)
	RateBurst int    // Burst allowance on top of the sustained rate (default: 50)
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DBConfig contains database configuration. Path is used by the sqlite
// driver, DSN by the postgres driver.
type DBConfig struct {
	Driver string // Storage driver: sqlite or postgres (default: sqlite)
	Path   string // SQLite database file path (default: ./data/loom.db)
	DSN    string // Postgres connection string
}

// OllamaConfig contains local LLM inference configuration.
type OllamaConfig struct {
	URL     string        // Ollama API base URL (default: http://localhost:11434)
	Model   string        // Model name for extraction (default: llama3.2)
	Timeout time.Duration // Per-request timeout (default: 10s)
}

// EngineConfig contains enrichment pipeline configuration.
type EngineConfig struct {
	Workers         int           // Enrichment worker goroutines (default: 2)
	QueueSize       int           // Enrichment queue capacity (default: 256)
	TaskTimeout     time.Duration // Per-extraction-task timeout (default: 15s)
	MaxRetries      int           // Storage-write retry ceiling per job (default: 3)
	InsightSchedule string        // Cron schedule for insight refresh (default: 17 3 * * *)
}

// LoadConfig loads configuration from environment variables with sensible
// defaults and validates it. All environment variables use the LOOM_ prefix.
func LoadConfig() (*Config, error) {
	cfg := buildBaseConfig()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values no component can run with.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: invalid port %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.RateLimit < 1 {
		return fmt.Errorf("config: rate limit must be at least 1 request/s, got %d", c.Server.RateLimit)
	}
	if c.Server.RateBurst < 1 {
		return fmt.Errorf("config: rate burst must be at least 1, got %d", c.Server.RateBurst)
	}

	switch c.DB.Driver {
	case "sqlite":
		if strings.TrimSpace(c.DB.Path) == "" {
			return fmt.Errorf("config: sqlite driver requires LOOM_DB_PATH")
		}
	case "postgres":
		if strings.TrimSpace(c.DB.DSN) == "" {
			return fmt.Errorf("config: postgres driver requires LOOM_DB_DSN")
		}
	default:
		return fmt.Errorf("config: unsupported db driver %q (want sqlite or postgres)", c.DB.Driver)
	}

	if strings.TrimSpace(c.Ollama.URL) == "" {
		return fmt.Errorf("config: ollama URL must not be empty")
	}
	if strings.TrimSpace(c.Ollama.Model) == "" {
		return fmt.Errorf("config: ollama model must not be empty")
	}
	if c.Ollama.Timeout <= 0 {
		return fmt.Errorf("config: ollama timeout must be positive, got %s", c.Ollama.Timeout)
	}

	if c.Engine.Workers < 1 {
		return fmt.Errorf("config: engine workers must be at least 1, got %d", c.Engine.Workers)
	}
	if c.Engine.QueueSize < 1 {
		return fmt.Errorf("config: engine queue size must be at least 1, got %d", c.Engine.QueueSize)
	}
	if c.Engine.TaskTimeout <= 0 {
		return fmt.Errorf("config: engine task timeout must be positive, got %s", c.Engine.TaskTimeout)
	}
	if c.Engine.MaxRetries < 0 {
		return fmt.Errorf("config: engine max retries must not be negative, got %d", c.Engine.MaxRetries)
	}
	// Cron syntax is checked by the insight scheduler at startup.
	if strings.TrimSpace(c.Engine.InsightSchedule) == "" {
		return fmt.Errorf("config: insight schedule must not be empty")
	}
	return nil
}

// buildBaseConfig constructs a Config with values from environment variables
// and defaults.
func buildBaseConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:      getEnv("LOOM_HOST", "127.0.0.1"),
			Port:      getEnvInt("LOOM_PORT", 6565),
			RateLimit: getEnvInt("LOOM_RATE_LIMIT", 25),
			RateBurst: getEnvInt("LOOM_RATE_BURST", 50),
		},
		DB: DBConfig{
			Driver: getEnv("LOOM_DB_DRIVER", "sqlite"),
			Path:   getEnv("LOOM_DB_PATH", "./data/loom.db"),
			DSN:    getEnv("LOOM_DB_DSN", ""),
		},
		Ollama: OllamaConfig{
			URL:     getEnv("LOOM_OLLAMA_URL", "http://localhost:11434"),
			Model:   getEnv("LOOM_OLLAMA_MODEL", "llama3.2"),
			Timeout: getEnvDuration("LOOM_OLLAMA_TIMEOUT", 10*time.Second),
		},
		Engine: EngineConfig{
			Workers:         getEnvInt("LOOM_ENGINE_WORKERS", 2),
			QueueSize:       getEnvInt("LOOM_ENGINE_QUEUE_SIZE", 256),
			TaskTimeout:     getEnvDuration("LOOM_ENGINE_TASK_TIMEOUT", 15*time.Second),
			MaxRetries:      getEnvInt("LOOM_ENGINE_MAX_RETRIES", 3),
			InsightSchedule: getEnv("LOOM_INSIGHT_SCHEDULE", "17 3 * * *"),
		},
	}
}

// getEnv retrieves a string environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default
// value. If the environment variable exists but cannot be parsed as an
// integer, it returns the default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvDuration retrieves a duration environment variable (time.ParseDuration
// syntax, e.g. "15s") or returns a default value. If the environment variable
// exists but cannot be parsed, it returns the default value.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
