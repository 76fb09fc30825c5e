// Package config loads runtime settings from the environment and an
// optional .env file.
package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/joho/godotenv"

	"github.com/spherical/docprompt/internal/domain"
	"github.com/spherical/docprompt/internal/pdf"
)

// Supported generation providers
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

const (
	defaultOpenAIModel = "gpt-4o-mini"
	defaultGeminiModel = "gemini-2.5-flash"
)

// Config holds all runtime settings
type Config struct {
	Provider      string `env:"LLM_PROVIDER" envDefault:"openai"`
	OpenAIKey     string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL string `env:"OPENAI_BASE_URL" envDefault:"https://api.openai.com/v1"`
	GeminiKey     string `env:"GEMINI_API_KEY"`
	Model         string `env:"LLM_MODEL"`

	MaxTokens    int           `env:"LLM_MAX_TOKENS" envDefault:"2048"`
	MaxRetries   int           `env:"LLM_MAX_RETRIES" envDefault:"0"`
	RetryBackoff time.Duration `env:"LLM_RETRY_BACKOFF" envDefault:"1s"`

	MaxUploadBytes int64 `env:"MAX_UPLOAD_BYTES" envDefault:"52428800"`
	JPEGQuality    int   `env:"JPEG_QUALITY" envDefault:"85"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"console"`
}

// Load reads the named env files, or .env in the working directory when no
// file is named, and then the process environment. A missing .env is fine;
// a named file must exist. Values already set in the environment win.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, domain.ConfigError("failed to read .env file", err)
		}
	} else if err := godotenv.Load(files...); err != nil {
		return nil, domain.ConfigError("failed to read env file", err)
	}
	return FromEnv()
}

// FromEnv parses the process environment only
func FromEnv() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, domain.ConfigError("failed to parse environment", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) normalize() error {
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	switch c.Provider {
	case ProviderOpenAI, ProviderGemini:
	default:
		return domain.ConfigError("unknown LLM_PROVIDER "+c.Provider, nil)
	}

	if c.Model == "" {
		c.Model = c.DefaultModel()
	}
	if c.MaxTokens <= 0 {
		return domain.ConfigError("LLM_MAX_TOKENS must be positive", nil)
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.MaxUploadBytes <= 0 {
		return domain.ConfigError("MAX_UPLOAD_BYTES must be positive", nil)
	}
	if err := pdf.ValidateQuality(c.JPEGQuality); err != nil {
		return domain.ConfigError("invalid JPEG_QUALITY", err)
	}
	c.LogFormat = strings.ToLower(c.LogFormat)
	return nil
}

// DefaultModel is the model used when LLM_MODEL is unset
func (c *Config) DefaultModel() string {
	if c.Provider == ProviderGemini {
		return defaultGeminiModel
	}
	return defaultOpenAIModel
}

// APIKey returns the credential of the selected provider
func (c *Config) APIKey() string {
	if c.Provider == ProviderGemini {
		return c.GeminiKey
	}
	return c.OpenAIKey
}

// Logger builds the process logger from LOG_LEVEL and LOG_FORMAT
func (c *Config) Logger() *domain.Logger {
	return domain.NewLoggerWithOutput(domain.ParseLogLevel(c.LogLevel), os.Stderr, c.LogFormat)
}
