package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	llmAPIKeyMock  = "mock"
	maxTemperature = 2
)

var (
	errThresholdRange   = errors.New("threshold must be within [0,1]")
	errTemperatureRange = errors.New("temperature must be within [0,2]")
	errNonPositiveValue = errors.New("value must be positive")
)

type Config struct {
	AppEnv   string `env:"APP_ENV" envDefault:"local"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	HTTPPort int    `env:"HTTP_PORT" envDefault:"8000"`

	// Data files
	DataDir      string `env:"DATA_DIR" envDefault:"data"`
	EvalFile     string `env:"EVAL_FILE" envDefault:"arrangementer_til_tagging_test_set.csv"`
	TagRulesFile string `env:"TAG_RULES_FILE" envDefault:"tagsregler.csv"`

	// Language model
	LLMAPIKey           string        `env:"OPENAI_API_KEY" envDefault:"mock"`
	LLMModel            string        `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	LLMBaseURL          string        `env:"OPENAI_BASE_URL"`
	LLMTemperature      float32       `env:"LLM_TEMPERATURE" envDefault:"0.3"`
	LLMMaxTokens        int           `env:"LLM_MAX_TOKENS" envDefault:"500"`
	LLMTimeout          time.Duration `env:"LLM_TIMEOUT" envDefault:"60s"`
	RateLimitRPS        float64       `env:"LLM_RATE_LIMIT_RPS" envDefault:"2"`
	LLMCircuitThreshold int           `env:"LLM_CIRCUIT_THRESHOLD" envDefault:"5"`
	LLMCircuitTimeout   time.Duration `env:"LLM_CIRCUIT_TIMEOUT" envDefault:"1m"`

	// Tagging
	ConfidenceThreshold  float64 `env:"CONFIDENCE_THRESHOLD" envDefault:"0.7"`
	HumanReviewThreshold float64 `env:"HUMAN_REVIEW_THRESHOLD" envDefault:"0.5"`
	BatchMaxItems        int     `env:"BATCH_MAX_ITEMS" envDefault:"100"`

	// Evaluation
	EvalConcurrency int `env:"EVAL_CONCURRENCY" envDefault:"4"`
}

func Load() (*Config, error) {
	_ = godotenv.Load() //nolint:errcheck // .env file is optional, error is expected when not present

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment config: %w", err)
	}

	applyAliases(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks value ranges that env tags cannot express.
func (c *Config) Validate() error {
	thresholds := map[string]float64{
		"CONFIDENCE_THRESHOLD":   c.ConfidenceThreshold,
		"HUMAN_REVIEW_THRESHOLD": c.HumanReviewThreshold,
	}

	for key, v := range thresholds {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s=%v: %w", key, v, errThresholdRange)
		}
	}

	if c.LLMTemperature < 0 || c.LLMTemperature > maxTemperature {
		return fmt.Errorf("LLM_TEMPERATURE=%v: %w", c.LLMTemperature, errTemperatureRange)
	}

	positives := map[string]int{
		"HTTP_PORT":        c.HTTPPort,
		"LLM_MAX_TOKENS":   c.LLMMaxTokens,
		"EVAL_CONCURRENCY": c.EvalConcurrency,
		"BATCH_MAX_ITEMS":  c.BatchMaxItems,
	}

	for key, v := range positives {
		if v <= 0 {
			return fmt.Errorf("%s=%d: %w", key, v, errNonPositiveValue)
		}
	}

	return nil
}

// EvalPath is the evaluation dataset path.
func (c *Config) EvalPath() string {
	return resolve(c.DataDir, c.EvalFile)
}

// TagRulesPath is the tag vocabulary path.
func (c *Config) TagRulesPath() string {
	return resolve(c.DataDir, c.TagRulesFile)
}

// UseMockLLM reports whether no real model is configured.
func (c *Config) UseMockLLM() bool {
	key := strings.TrimSpace(c.LLMAPIKey)

	return key == "" || key == llmAPIKeyMock
}

func resolve(dir, file string) string {
	if filepath.IsAbs(file) || dir == "" {
		return file
	}

	return filepath.Join(dir, file)
}

// applyAliases accepts the older variable names when the new ones are unset.
func applyAliases(cfg *Config) {
	if !hasEnv("OPENAI_API_KEY") {
		setStringFromEnv("LLM_API_KEY", &cfg.LLMAPIKey)
	}

	if !hasEnv("OPENAI_MODEL") {
		setStringFromEnv("LLM_MODEL", &cfg.LLMModel)
	}

	if !hasEnv("HTTP_PORT") {
		setIntFromEnv("PORT", &cfg.HTTPPort)
	}

	if !hasEnv("LLM_RATE_LIMIT_RPS") {
		setFloatFromEnv("RATE_LIMIT_RPS", &cfg.RateLimitRPS)
	}

	if !hasEnv("LLM_TIMEOUT") {
		setDurationFromEnv("OPENAI_TIMEOUT", &cfg.LLMTimeout)
	}
}

func hasEnv(key string) bool {
	_, ok := os.LookupEnv(key)
	return ok
}

func setStringFromEnv(key string, target *string) {
	val, ok := os.LookupEnv(key)
	if !ok {
		return
	}

	val = strings.TrimSpace(val)
	if val == "" {
		return
	}

	*target = val
}

func setIntFromEnv(key string, target *int) {
	val, ok := os.LookupEnv(key)
	if !ok {
		return
	}

	parsed, err := strconv.Atoi(strings.TrimSpace(val))
	if err != nil {
		return
	}

	*target = parsed
}

func setFloatFromEnv(key string, target *float64) {
	val, ok := os.LookupEnv(key)
	if !ok {
		return
	}

	parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
	if err != nil {
		return
	}

	*target = parsed
}

func setDurationFromEnv(key string, target *time.Duration) {
	val, ok := os.LookupEnv(key)
	if !ok {
		return
	}

	parsed, err := time.ParseDuration(strings.TrimSpace(val))
	if err != nil {
		return
	}

	*target = parsed
}
