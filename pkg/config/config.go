package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/zatekoja/caretriage/pkg/errors"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Triage    TriageConfig
	Reasoning ReasoningConfig
	Directory DirectoryConfig
	Store     StoreConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Slack     SlackConfig
	OTEL      OTELConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host           string
	Port           int
	Env            string
	AllowedOrigins []string
}

// TriageConfig holds the decisioning knobs shared by the orchestrator and stage agents.
type TriageConfig struct {
	ConfidenceThreshold         float64
	HumanReviewUrgencyThreshold int
	FallbackEnabled             bool
	CallTimeout                 time.Duration
	IntakeMaxAttempts           int
	TriageMaxAttempts           int
	RoutingMaxAttempts          int
	CostPer1KInputTokens        float64
	CostPer1KOutputTokens       float64
}

// ReasoningConfig selects and configures the reasoning engine backend
type ReasoningConfig struct {
	Provider  string
	OpenAI    OpenAIConfig
	Anthropic AnthropicConfig
}

// OpenAIConfig holds OpenAI configuration
type OpenAIConfig struct {
	APIKey         string
	Model          string
	BaseURL        string
	RateLimitRPM   int
	RateLimitBurst int
}

// AnthropicConfig holds Anthropic configuration
type AnthropicConfig struct {
	APIKey    string
	Model     string
	BaseURL   string
	MaxTokens int
}

// DirectoryConfig points at the provider directory file
type DirectoryConfig struct {
	Path string
}

// StoreConfig selects where finalized cases are persisted
type StoreConfig struct {
	Driver     string
	SQLitePath string
	CacheTTL   time.Duration
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// SlackConfig holds the human-review notification target
type SlackConfig struct {
	BotToken      string
	ReviewChannel string
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

// Reasoning provider names
const (
	ProviderOffline   = "offline"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Case store drivers
const (
	StoreNone     = "none"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
)

// DefaultTriageConfig returns the decisioning defaults.
func DefaultTriageConfig() TriageConfig {
	return TriageConfig{
		ConfidenceThreshold:         0.70,
		HumanReviewUrgencyThreshold: 2,
		FallbackEnabled:             true,
		CallTimeout:                 30 * time.Second,
		IntakeMaxAttempts:           1,
		TriageMaxAttempts:           2,
		RoutingMaxAttempts:          1,
		CostPer1KInputTokens:        0.003,
		CostPer1KOutputTokens:       0.015,
	}
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	defaults := DefaultTriageConfig()

	cfg := &Config{
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           getEnvAsInt("SERVER_PORT", 8080),
			Env:            getEnv("APP_ENV", "production"),
			AllowedOrigins: getEnvAsList("ALLOWED_ORIGINS", []string{"*"}),
		},
		Triage: TriageConfig{
			ConfidenceThreshold:         getEnvAsFloat("CONFIDENCE_THRESHOLD", defaults.ConfidenceThreshold),
			HumanReviewUrgencyThreshold: getEnvAsInt("HUMAN_REVIEW_URGENCY_THRESHOLD", defaults.HumanReviewUrgencyThreshold),
			FallbackEnabled:             getEnvAsBool("FALLBACK_ENABLED", defaults.FallbackEnabled),
			CallTimeout:                 getEnvAsDuration("REASONING_CALL_TIMEOUT", defaults.CallTimeout),
			IntakeMaxAttempts:           getEnvAsInt("INTAKE_MAX_ATTEMPTS", defaults.IntakeMaxAttempts),
			TriageMaxAttempts:           getEnvAsInt("TRIAGE_MAX_ATTEMPTS", defaults.TriageMaxAttempts),
			RoutingMaxAttempts:          getEnvAsInt("ROUTING_MAX_ATTEMPTS", defaults.RoutingMaxAttempts),
			CostPer1KInputTokens:        getEnvAsFloat("COST_PER_1K_INPUT_TOKENS", defaults.CostPer1KInputTokens),
			CostPer1KOutputTokens:       getEnvAsFloat("COST_PER_1K_OUTPUT_TOKENS", defaults.CostPer1KOutputTokens),
		},
		Reasoning: ReasoningConfig{
			Provider: strings.ToLower(getEnv("REASONING_PROVIDER", ProviderOffline)),
			OpenAI: OpenAIConfig{
				APIKey:         getEnv("OPENAI_API_KEY", ""),
				Model:          getEnv("OPENAI_MODEL", "gpt-4o-mini"),
				BaseURL:        getEnv("OPENAI_BASE_URL", ""),
				RateLimitRPM:   getEnvAsInt("OPENAI_RATE_LIMIT_RPM", 60),
				RateLimitBurst: getEnvAsInt("OPENAI_RATE_LIMIT_BURST", 5),
			},
			Anthropic: AnthropicConfig{
				APIKey:    getEnv("ANTHROPIC_API_KEY", ""),
				Model:     getEnv("ANTHROPIC_MODEL", "claude-sonnet-4-5-20250929"),
				BaseURL:   getEnv("ANTHROPIC_BASE_URL", ""),
				MaxTokens: getEnvAsInt("ANTHROPIC_MAX_TOKENS", 2000),
			},
		},
		Directory: DirectoryConfig{
			Path: getEnv("PROVIDER_DIRECTORY_PATH", ""),
		},
		Store: StoreConfig{
			Driver:     strings.ToLower(getEnv("CASE_STORE", StoreNone)),
			SQLitePath: getEnv("SQLITE_PATH", "caretriage.db"),
			CacheTTL:   getEnvAsDuration("CASE_CACHE_TTL", 24*time.Hour),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "caretriage"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Slack: SlackConfig{
			BotToken:      getEnv("SLACK_BOT_TOKEN", ""),
			ReviewChannel: getEnv("SLACK_REVIEW_CHANNEL", ""),
		},
		OTEL: OTELConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "caretriage"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			Endpoint:       getEnv("OTEL_ENDPOINT", ""),
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the pipeline cannot honour.
func (c *Config) Validate() error {
	if err := c.Triage.Validate(); err != nil {
		return err
	}
	switch c.Reasoning.Provider {
	case ProviderOffline, ProviderOpenAI, ProviderAnthropic:
	default:
		return apperrors.NewValidationError(fmt.Sprintf("unknown REASONING_PROVIDER %q", c.Reasoning.Provider))
	}
	switch c.Store.Driver {
	case StoreNone, StorePostgres, StoreSQLite:
	default:
		return apperrors.NewValidationError(fmt.Sprintf("unknown CASE_STORE %q", c.Store.Driver))
	}
	return nil
}

// Validate checks threshold ranges and the one-retry ceiling per stage.
func (t TriageConfig) Validate() error {
	if t.ConfidenceThreshold < 0 || t.ConfidenceThreshold > 1 {
		return apperrors.NewValidationError("CONFIDENCE_THRESHOLD must be within 0..1")
	}
	if t.HumanReviewUrgencyThreshold < 1 || t.HumanReviewUrgencyThreshold > 5 {
		return apperrors.NewValidationError("HUMAN_REVIEW_URGENCY_THRESHOLD must be within 1..5")
	}
	if t.CallTimeout <= 0 {
		return apperrors.NewValidationError("REASONING_CALL_TIMEOUT must be positive")
	}
	for name, attempts := range map[string]int{
		"INTAKE_MAX_ATTEMPTS":  t.IntakeMaxAttempts,
		"TRIAGE_MAX_ATTEMPTS":  t.TriageMaxAttempts,
		"ROUTING_MAX_ATTEMPTS": t.RoutingMaxAttempts,
	} {
		if attempts < 1 || attempts > 2 {
			return apperrors.NewValidationError(name + " must be 1 or 2")
		}
	}
	if t.CostPer1KInputTokens < 0 || t.CostPer1KOutputTokens < 0 {
		return apperrors.NewValidationError("token prices must not be negative")
	}
	return nil
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go duration strings ("30s") or bare seconds ("30").
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
