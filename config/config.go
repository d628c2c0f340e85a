package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// APIKeyEnv is the only environment variable the server reads.
const APIKeyEnv = "GROQ_API_KEY"

type ServerConfig struct {
	Port int `toml:"port"`
}

type LLMConfig struct {
	BaseURL     string  `toml:"base_url"`
	APIKey      string  `toml:"api_key"` // Overridden by GROQ_API_KEY
	Model       string  `toml:"model"`
	Temperature float32 `toml:"temperature"`
	MaxTokens   int     `toml:"max_tokens"`
}

type StorageConfig struct {
	DataDir string `toml:"data_dir"`
}

type HistoryConfig struct {
	MaxEntries int `toml:"max_entries"` // 0 keeps every entry
}

type SecurityConfig struct {
	JWTSecret      string `toml:"jwt_secret"`
	CookieSecure   bool   `toml:"cookie_secure"`
	RateLimit      int    `toml:"rate_limit"`       // generation requests per window per client
	RateWindowSecs int    `toml:"rate_window_secs"` // window length in seconds
}

type LogConfig struct {
	Level string `toml:"level"` // debug, info, warn, error
}

type SessionConfig struct {
	IdleMinutes int `toml:"idle_minutes"` // in-memory client state lifetime
}

type Config struct {
	Server   ServerConfig   `toml:"server"`
	LLM      LLMConfig      `toml:"llm"`
	Storage  StorageConfig  `toml:"storage"`
	History  HistoryConfig  `toml:"history"`
	Security SecurityConfig `toml:"security"`
	Log      LogConfig      `toml:"log"`
	Session  SessionConfig  `toml:"session"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	var config Config

	config.Server.Port = 3000

	config.LLM.BaseURL = "https://api.groq.com/openai/v1"
	config.LLM.Model = "llama-3.1-70b-versatile"
	config.LLM.Temperature = 0.7
	config.LLM.MaxTokens = 2000

	config.Storage.DataDir = "./data"

	config.Security.RateLimit = 30
	config.Security.RateWindowSecs = 60

	config.Log.Level = "info"
	config.Session.IdleMinutes = 30

	return &config
}

// LoadConfig reads a TOML file on top of the defaults. A missing file is not
// an error; the defaults are returned instead.
func LoadConfig(filepath string) (*Config, error) {
	config := Default()

	if _, err := toml.DecodeFile(filepath, config); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("decoding %s: %w", filepath, err)
	}

	if key := os.Getenv(APIKeyEnv); key != "" {
		config.LLM.APIKey = key
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks values that would otherwise fail much later.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("llm.model is required")
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("llm.temperature must be between 0 and 2, got %v", c.LLM.Temperature)
	}
	if c.LLM.MaxTokens <= 0 {
		return fmt.Errorf("llm.max_tokens must be positive")
	}
	if c.History.MaxEntries < 0 {
		return fmt.Errorf("history.max_entries must not be negative")
	}
	if c.Security.RateLimit <= 0 || c.Security.RateWindowSecs <= 0 {
		return fmt.Errorf("security.rate_limit and security.rate_window_secs must be positive")
	}
	return nil
}

// RateWindow returns the rate limiter window as a duration.
func (c *SecurityConfig) RateWindow() time.Duration {
	return time.Duration(c.RateWindowSecs) * time.Second
}

// IdleTimeout returns how long an unused client state stays in memory.
func (c *SessionConfig) IdleTimeout() time.Duration {
	if c.IdleMinutes <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(c.IdleMinutes) * time.Minute
}
