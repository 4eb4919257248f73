package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	RedisURL       string
	RedisAddr      string
	RedisPassword  string
	RedisTLS       bool
	UseMemoryStore bool

	SessionTTL          time.Duration
	SessionHistoryLimit int
	SessionOpTimeout    time.Duration
	SessionCASRetries   int

	CatalogCSVPath string
	DatabaseURL    string

	IntentProvider         string
	IntentFallbackProvider string
	IntentTimeout          time.Duration
	OpenAIAPIKey           string
	OpenAIModel            string
	BedrockModelID         string
	GeminiAPIKey           string
	GeminiModel            string

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	OptionLimit    int
	FinancingRate  float64
	RateLimitRPS   float64
	RateLimitBurst int

	CORSAllowedOrigins []string
}

// Load reads configuration from environment variables. A .env file in the
// working directory is applied first when present; real environment values win.
func Load() *Config {
	_ = godotenv.Load()

	openAIKey := getEnv("OPENAI_API_KEY", "")
	defaultProvider := "none"
	if openAIKey != "" {
		defaultProvider = "openai"
	}

	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		RedisURL:       getEnv("REDIS_URL", "redis://localhost:6379/0"),
		RedisAddr:      getEnv("REDIS_ADDR", ""),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		RedisTLS:       getEnvAsBool("REDIS_TLS", false),
		UseMemoryStore: getEnvAsBool("USE_MEMORY_STORE", false),

		SessionTTL:          getEnvAsDuration("SESSION_TTL", 30*time.Minute),
		SessionHistoryLimit: getEnvAsInt("SESSION_HISTORY_LIMIT", 5),
		SessionOpTimeout:    getEnvAsDuration("SESSION_OP_TIMEOUT", 500*time.Millisecond),
		SessionCASRetries:   getEnvAsInt("SESSION_CAS_RETRIES", 3),

		CatalogCSVPath: getEnv("CATALOG_CSV_PATH", ""),
		DatabaseURL:    getEnv("DATABASE_URL", ""),

		IntentProvider:         normalizeProvider(getEnv("INTENT_PROVIDER", defaultProvider)),
		IntentFallbackProvider: normalizeProvider(getEnv("INTENT_FALLBACK_PROVIDER", "")),
		IntentTimeout:          getEnvAsDuration("INTENT_TIMEOUT", 3*time.Second),
		OpenAIAPIKey:           openAIKey,
		OpenAIModel:            getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		BedrockModelID:         getEnv("BEDROCK_MODEL_ID", ""),
		GeminiAPIKey:           getEnv("GEMINI_API_KEY", ""),
		GeminiModel:            getEnv("GEMINI_MODEL", "gemini-2.5-flash"),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		OptionLimit:    getEnvAsInt("OPTION_LIMIT", 5),
		FinancingRate:  getEnvAsFloat("FINANCING_RATE", 0.10),
		RateLimitRPS:   getEnvAsFloat("RATE_LIMIT_RPS", 5),
		RateLimitBurst: getEnvAsInt("RATE_LIMIT_BURST", 10),

		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),
	}
}

func normalizeProvider(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated variable, dropping blanks.
func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
