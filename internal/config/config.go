package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"photo-grouper/internal/models"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	ProviderClaude = "claude"
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderStub   = "stub"

	SchemeIndex    = "index"
	SchemeFilename = "filename"
)

type Config struct {
	Environment       string `validate:"required"`
	Port              string `validate:"required,numeric"`
	Token             string
	LogLevel          string `validate:"oneof=trace debug info warn warning error fatal panic"`
	LogFormat         string `validate:"oneof=json text"`
	ExposeRawResponse bool
	ArchivePath       string
	CategoriesFile    string
	Model             ModelConfig
	Processing        ProcessingConfig
	Categories        []models.Category
}

type ModelConfig struct {
	Provider     string        `validate:"oneof=claude openai gemini stub"`
	APIKey       string        `validate:"required_unless=Provider stub"`
	Name         string        `validate:"required"`
	Timeout      time.Duration `validate:"gt=0"`
	MaxRetries   int           `validate:"gte=0,lte=5"`
	RetryBackoff time.Duration `validate:"gte=0"`
	MaxTokens    int           `validate:"gt=0"`
}

type ProcessingConfig struct {
	Concurrency     int    `validate:"gte=1"`
	MaxBatch        int    `validate:"gte=1,lte=50"`
	MaxImageBytes   int64  `validate:"gt=0"`
	MaxDimension    int    `validate:"gte=64"`
	ReferenceScheme string `validate:"oneof=index filename"`
}

// Load reads the configuration from the environment. Provider may be
// overridden before Validate by command line flags.
func Load() *Config {
	env := getEnv("ENV", "development")
	cfg := &Config{
		Environment:       env,
		Port:              getEnv("PORT", "3000"),
		Token:             getEnv("TOKEN", ""),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFormat:         getEnv("LOG_FORMAT", "json"),
		ExposeRawResponse: getBoolEnv("EXPOSE_RAW_RESPONSE", env != "production"),
		ArchivePath:       getEnv("ARCHIVE_PATH", ""),
		CategoriesFile:    getEnv("CATEGORIES_FILE", ""),
		Processing: ProcessingConfig{
			Concurrency:     getIntEnv("PROCESSING_CONCURRENCY", 5),
			MaxBatch:        getIntEnv("MAX_BATCH", 20),
			MaxImageBytes:   getInt64Env("MAX_IMAGE_BYTES", 20<<20),
			MaxDimension:    getIntEnv("MAX_IMAGE_DIMENSION", 1568),
			ReferenceScheme: getEnv("REFERENCE_SCHEME", SchemeIndex),
		},
	}
	cfg.SetProvider(getEnv("MODEL_PROVIDER", ProviderClaude))
	return cfg
}

// SetProvider selects the model provider and fills the provider-specific key
// and model name from the environment.
func (c *Config) SetProvider(provider string) {
	c.Model = ModelConfig{
		Provider:     strings.ToLower(strings.TrimSpace(provider)),
		Timeout:      getDurationEnv("MODEL_TIMEOUT", 90*time.Second),
		MaxRetries:   getIntEnv("MODEL_MAX_RETRIES", 2),
		RetryBackoff: getDurationEnv("MODEL_RETRY_BACKOFF", 2*time.Second),
		MaxTokens:    getIntEnv("MODEL_MAX_TOKENS", 4096),
	}

	switch c.Model.Provider {
	case ProviderClaude:
		c.Model.APIKey = getEnv("ANTHROPIC_API_KEY", "")
		c.Model.Name = getEnv("CLAUDE_MODEL", "claude-sonnet-4-5")
	case ProviderOpenAI:
		c.Model.APIKey = getEnv("OPENAI_API_KEY", "")
		c.Model.Name = getEnv("OPENAI_MODEL_IMAGE", "gpt-4o-mini")
	case ProviderGemini:
		c.Model.APIKey = getEnv("GEMINI_API_KEY", "")
		c.Model.Name = getEnv("GEMINI_MODEL", "gemini-2.5-flash")
	case ProviderStub:
		c.Model.Name = "stub"
	}
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// LoadCategories reads a YAML category list:
//
//	- name: Electronics
//	  subcategories: [Phones, Laptops]
func LoadCategories(path string) ([]models.Category, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read categories file: %w", err)
	}

	var categories []models.Category
	if err := yaml.Unmarshal(data, &categories); err != nil {
		return nil, fmt.Errorf("failed to parse categories file: %w", err)
	}

	out := categories[:0]
	for _, cat := range categories {
		cat.Name = strings.TrimSpace(cat.Name)
		if cat.Name == "" {
			continue
		}
		out = append(out, cat)
	}
	return out, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getInt64Env(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
