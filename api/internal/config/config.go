package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/panthibivek/InsightLens/api/internal/detect"
)

type Config struct {
	Port string `yaml:"port"`

	GeminiAPIKey  string `yaml:"gemini_api_key"`
	GeminiModel   string `yaml:"gemini_model"`
	OpenAIAPIKey  string `yaml:"openai_api_key"`
	OpenAIModel   string `yaml:"openai_model"`
	OpenAIBaseURL string `yaml:"openai_base_url"`
	DefaultEngine string `yaml:"default_engine"`

	BoxOrder          string `yaml:"box_order"`
	RequestTimeoutSec int    `yaml:"request_timeout_sec"`
	MaxUploadMB       int    `yaml:"max_upload_mb"`
	LineWidth         int    `yaml:"line_width"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	TelegramBotToken string `yaml:"telegram_bot_token"`
	WebhookURL       string `yaml:"webhook_url"`

	// malformed environment values, reported by Validate
	envErrs []error
}

func defaults() *Config {
	return &Config{
		Port:              "8000",
		GeminiModel:       "gemini-2.5-flash",
		OpenAIModel:       "gpt-4o-mini",
		DefaultEngine:     "gemini",
		BoxOrder:          "yxyx",
		RequestTimeoutSec: 60,
		MaxUploadMB:       20,
		LineWidth:         3,
		LogLevel:          "info",
		LogFormat:         "json",
	}
}

func getEnv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func (c *Config) getEnvInt(k string, def int) int {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		c.envErrs = append(c.envErrs, fmt.Errorf("%s: %q is not an integer", k, v))
		return def
	}
	return n
}

// Load builds the configuration from, in increasing priority: defaults, the YAML file at path
// (or $CONFIG_FILE), and environment variables. A .env file in the working directory is
// loaded into the environment first when present.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := defaults()
	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.GeminiAPIKey = getEnv("GEMINI_API_KEY", getEnv("GOOGLE_API_KEY", getEnv("API_KEY", cfg.GeminiAPIKey)))
	cfg.GeminiModel = getEnv("GEMINI_MODEL", cfg.GeminiModel)
	cfg.OpenAIAPIKey = getEnv("OPENAI_API_KEY", cfg.OpenAIAPIKey)
	cfg.OpenAIModel = getEnv("OPENAI_MODEL", cfg.OpenAIModel)
	cfg.OpenAIBaseURL = getEnv("OPENAI_BASE_URL", cfg.OpenAIBaseURL)
	cfg.DefaultEngine = getEnv("DEFAULT_ENGINE", cfg.DefaultEngine)
	cfg.BoxOrder = getEnv("BOX_ORDER", cfg.BoxOrder)
	cfg.RequestTimeoutSec = cfg.getEnvInt("REQUEST_TIMEOUT_SEC", cfg.RequestTimeoutSec)
	cfg.MaxUploadMB = cfg.getEnvInt("MAX_UPLOAD_MB", cfg.MaxUploadMB)
	cfg.LineWidth = cfg.getEnvInt("LINE_WIDTH", cfg.LineWidth)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnv("LOG_FORMAT", cfg.LogFormat)
	cfg.TelegramBotToken = getEnv("TELEGRAM_BOT_TOKEN", cfg.TelegramBotToken)
	cfg.WebhookURL = getEnv("WEBHOOK_URL", cfg.WebhookURL)

	return cfg, nil
}

// Validate catches misconfiguration at startup instead of on the first request.
func (c *Config) Validate() error {
	errs := append([]error(nil), c.envErrs...)
	switch strings.ToLower(c.DefaultEngine) {
	case "gemini":
		if c.GeminiAPIKey == "" {
			errs = append(errs, errors.New("missing GEMINI_API_KEY (or GOOGLE_API_KEY) for default engine gemini"))
		}
	case "gpt", "openai":
		if c.OpenAIAPIKey == "" {
			errs = append(errs, errors.New("missing OPENAI_API_KEY for default engine gpt"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown DEFAULT_ENGINE %q; use gemini or gpt", c.DefaultEngine))
	}
	if _, err := detect.ParseBoxOrder(c.BoxOrder); err != nil {
		errs = append(errs, err)
	}
	if c.RequestTimeoutSec <= 0 {
		errs = append(errs, fmt.Errorf("REQUEST_TIMEOUT_SEC must be positive, got %d", c.RequestTimeoutSec))
	}
	if c.MaxUploadMB <= 0 {
		errs = append(errs, fmt.Errorf("MAX_UPLOAD_MB must be positive, got %d", c.MaxUploadMB))
	}
	if c.LineWidth <= 0 {
		errs = append(errs, fmt.Errorf("LINE_WIDTH must be positive, got %d", c.LineWidth))
	}
	return errors.Join(errs...)
}

func (c *Config) ValidateBot() error {
	err := c.Validate()
	if c.TelegramBotToken == "" {
		err = errors.Join(err, errors.New("missing TELEGRAM_BOT_TOKEN"))
	}
	return err
}

func (c *Config) Order() detect.BoxOrder {
	o, err := detect.ParseBoxOrder(c.BoxOrder)
	if err != nil {
		return detect.YXYX
	}
	return o
}

func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSec) * time.Second
}

func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}
