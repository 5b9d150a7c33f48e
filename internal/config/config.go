// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"8000"`

	// Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required"`

	// Cache (Redis)
	RedisURL string `env:"REDIS_URL,required"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts. Write timeout is generous because chat turns block
	// on the remote completion call.
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"120s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Remote AI provider (OpenAI-compatible)
	OpenAIAPIKey  string        `env:"OPENAI_API_KEY,required"`
	OpenAIBaseURL string        `env:"OPENAI_BASE_URL" envDefault:"https://api.openai.com/v1"`
	ChatModel     string        `env:"CHAT_MODEL" envDefault:"gpt-4o-mini"`
	SpeechModel   string        `env:"SPEECH_MODEL" envDefault:"gpt-4o-mini-tts"`
	SpeechVoice   string        `env:"SPEECH_VOICE" envDefault:"alloy"`
	WhisperModel  string        `env:"WHISPER_MODEL" envDefault:"whisper-1"`
	RemoteTimeout time.Duration `env:"REMOTE_TIMEOUT" envDefault:"60s"`

	// Session lifetimes
	SessionTTL         time.Duration `env:"SESSION_TTL" envDefault:"1h"`
	SessionRememberTTL time.Duration `env:"SESSION_REMEMBER_TTL" envDefault:"24h"`

	// Chat behavior
	DuplicateWindow time.Duration `env:"CHAT_DUPLICATE_WINDOW" envDefault:"30s"`

	// Optional bootstrap admin account, created at startup when both are set.
	AdminHandle   string `env:"ADMIN_HANDLE" envDefault:""`
	AdminPassword string `env:"ADMIN_PASSWORD" envDefault:""`

	// Request body size limit in bytes for audio uploads (default 10MB)
	MaxUploadSize int64 `env:"MAX_UPLOAD_SIZE" envDefault:"10485760"`

	// Credential attempt throttle per client IP. 0 disables the throttle.
	LoginRatePerMinute int `env:"LOGIN_RATE_PER_MINUTE" envDefault:"10"`
	LoginBurst         int `env:"LOGIN_BURST" envDefault:"5"`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Load parses environment variables and returns a Config.
// Returns an error if required variables are missing.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}
