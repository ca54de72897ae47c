package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// DefaultSystemPrompt is the assistant persona used when SYSTEM_PROMPT is unset.
const DefaultSystemPrompt = `You are lEvO, a Gen-Z, energetic, smart assistant created by Leon.
Speak casually, friendly, fast, and helpful. Keep answers short.`

// Config contains all runtime settings for the levo chat service.
type Config struct {
	BindAddr         string        `env:"APP_BIND_ADDR" envDefault:":8080"`
	BaseURL          string        `env:"BASE_URL" envDefault:"http://localhost:8080"`
	ShutdownTimeout  time.Duration `env:"APP_SHUTDOWN_TIMEOUT" envDefault:"15s"`
	MetricsNamespace string        `env:"APP_METRICS_NAMESPACE" envDefault:"levo"`
	Debug            bool          `env:"DEBUG" envDefault:"false"`
	AllowAnyOrigin   bool          `env:"APP_ALLOW_ANY_ORIGIN" envDefault:"false"`

	RateLimitPerMinute int `env:"RATE_LIMIT_PER_MINUTE" envDefault:"15"`

	SystemPrompt  string `env:"SYSTEM_PROMPT"`
	DefaultUserID string `env:"DEFAULT_USER_ID" envDefault:"guest"`

	LLMMode         string        `env:"LLM_MODE" envDefault:"auto"`
	LLMBaseURL      string        `env:"LLM_BASE_URL" envDefault:"https://api.groq.com/openai/v1"`
	LLMAPIKey       string        `env:"GROQ_API_KEY"`
	LLMModel        string        `env:"LLM_MODEL" envDefault:"llama-3.1-8b-instant"`
	LLMTemperature  float32       `env:"LLM_TEMPERATURE" envDefault:"0.7"`
	VisionModel     string        `env:"VISION_MODEL" envDefault:"llama-3.2-11b-vision-preview"`
	ProviderTimeout time.Duration `env:"PROVIDER_TIMEOUT" envDefault:"30s"`
	StreamTimeout   time.Duration `env:"STREAM_TIMEOUT" envDefault:"2m"`

	OpenAIAPIKey  string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL string `env:"OPENAI_BASE_URL" envDefault:"https://api.openai.com/v1"`
	ImageModel    string `env:"IMAGE_MODEL" envDefault:"dall-e-3"`
	ImageSize     string `env:"IMAGE_SIZE" envDefault:"1024x1024"`

	SearchProvider     string        `env:"SEARCH_PROVIDER" envDefault:"duckduckgo"`
	SearchTimeout      time.Duration `env:"SEARCH_TIMEOUT" envDefault:"5s"`
	SearchLimit        int           `env:"SEARCH_LIMIT" envDefault:"5"`
	GoogleSearchAPIKey string        `env:"GOOGLE_SEARCH_API_KEY"`
	GoogleSearchCX     string        `env:"GOOGLE_SEARCH_CX"`

	NewsAPIKey  string `env:"NEWS_API_KEY"`
	NewsBaseURL string `env:"NEWS_BASE_URL" envDefault:"https://newsapi.org/v2"`

	DatabaseURL string `env:"DATABASE_URL" envDefault:"sqlite://data/levo.db"`
	FilesDir    string `env:"FILES_DIR" envDefault:"data/files"`
}

// Load reads environment variables and applies defaults.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	cfg.SearchProvider = strings.ToLower(strings.TrimSpace(cfg.SearchProvider))
	cfg.LLMMode = strings.ToLower(strings.TrimSpace(cfg.LLMMode))
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if strings.TrimSpace(cfg.SystemPrompt) == "" {
		cfg.SystemPrompt = DefaultSystemPrompt
	}
	if strings.TrimSpace(cfg.DefaultUserID) == "" {
		cfg.DefaultUserID = "guest"
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive")
	}
	if c.ProviderTimeout <= 0 {
		return fmt.Errorf("PROVIDER_TIMEOUT must be positive")
	}
	if c.StreamTimeout <= 0 {
		return fmt.Errorf("STREAM_TIMEOUT must be positive")
	}
	if c.SearchTimeout <= 0 {
		return fmt.Errorf("SEARCH_TIMEOUT must be positive")
	}
	if c.SearchLimit <= 0 {
		return fmt.Errorf("SEARCH_LIMIT must be positive")
	}
	if c.LLMTemperature < 0 || c.LLMTemperature > 2 {
		return fmt.Errorf("LLM_TEMPERATURE must be within [0, 2]")
	}

	switch c.LLMMode {
	case "auto", "mock":
	case "openai":
		if strings.TrimSpace(c.LLMAPIKey) == "" {
			return fmt.Errorf("LLM_MODE=openai requires GROQ_API_KEY")
		}
	default:
		return fmt.Errorf("invalid LLM_MODE: %q (expected auto|openai|mock)", c.LLMMode)
	}

	switch c.SearchProvider {
	case "duckduckgo", "none":
	case "google":
		if c.GoogleSearchAPIKey == "" || c.GoogleSearchCX == "" {
			return fmt.Errorf("SEARCH_PROVIDER=google requires GOOGLE_SEARCH_API_KEY and GOOGLE_SEARCH_CX")
		}
	default:
		return fmt.Errorf("invalid SEARCH_PROVIDER: %q (expected duckduckgo|google|none)", c.SearchProvider)
	}

	if _, err := url.Parse(c.BaseURL); err != nil {
		return fmt.Errorf("BASE_URL parse error: %w", err)
	}
	return nil
}

// LoadDotEnv merges a .env file into the process environment. A missing
// file is not an error; variables already set win.
func LoadDotEnv(path string) error {
	if strings.TrimSpace(path) == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}
