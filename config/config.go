package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the crop analyze pipeline service
type Config struct {
	// Database configuration
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Server configuration
	Port string

	// LLM provider configuration
	LLMProvider   string // "gemini", "openai" or "stub"
	GeminiAPIKeys []string
	GeminiModel   string
	OpenAIAPIKey  string
	OpenAIModel   string
	// FallbackModel is the smaller model tried on the final retry attempt
	FallbackModel   string
	MaxRetries      int
	InitialDelay    time.Duration
	AttemptTimeout  time.Duration
	Temperature     float64
	MaxOutputTokens int

	// Master key protecting the API key admin endpoints
	MasterAPIKey string

	// Redis cache configuration
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	ResultCacheTTL time.Duration

	// Rate limiting
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// RabbitMQ publishing
	AMQPURL          string
	AMQPExchange     string
	AMQPRoutingKey   string

	// Logging
	LogLevel string
}

// Load loads configuration from environment variables
func Load() *Config {
	config := &Config{
		// Database defaults
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "server"),
		DBPassword: getEnv("DB_PASSWORD", "secret_app"),
		DBName:     getEnv("DB_NAME", "cropadvisor"),

		// Server defaults
		Port: getEnv("PORT", "8080"),

		// LLM defaults
		LLMProvider:     getEnv("LLM_PROVIDER", "gemini"),
		GeminiAPIKeys:   getStringSliceEnv("GEMINI_API_KEYS", getEnv("GEMINI_API_KEY", "")),
		GeminiModel:     getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:     getEnv("OPENAI_MODEL", "gpt-4o"),
		FallbackModel:   getEnv("GEMINI_FALLBACK_MODEL", "gemini-2.0-flash-lite"),
		MaxRetries:      getIntEnv("MAX_RETRIES", 3),
		InitialDelay:    getDurationEnv("INITIAL_RETRY_DELAY", 1*time.Second),
		AttemptTimeout:  getDurationEnv("ATTEMPT_TIMEOUT", 45*time.Second),
		Temperature:     getFloatEnv("GEMINI_TEMPERATURE", 0.4),
		MaxOutputTokens: getIntEnv("GEMINI_MAX_OUTPUT_TOKENS", 4096),

		// Admin
		MasterAPIKey: getEnv("MASTER_API_KEY", ""),

		// Redis defaults
		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		RedisDB:        getIntEnv("REDIS_DB", 0),
		ResultCacheTTL: getDurationEnv("RESULT_CACHE_TTL", 1*time.Hour),

		// Rate limiting defaults (per key/IP)
		RateLimitRequests: getIntEnv("RATE_LIMIT_REQUESTS", 30),
		RateLimitWindow:   getDurationEnv("RATE_LIMIT_WINDOW", 1*time.Minute),

		// RabbitMQ defaults (empty URL disables publishing)
		AMQPURL:        getEnv("AMQP_URL", ""),
		AMQPExchange:   getEnv("AMQP_EXCHANGE", "cropadvisor"),
		AMQPRoutingKey: getEnv("AMQP_ROUTING_KEY", "analysis.completed"),

		// Logging defaults
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	return config
}

// getStringSliceEnv gets a comma-separated environment variable as a slice
func getStringSliceEnv(key, defaultValue string) []string {
	value := getEnv(key, defaultValue)
	if value == "" {
		return []string{}
	}

	parts := strings.Split(value, ",")
	var out []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getDurationEnv gets a duration environment variable or returns a default value
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getIntEnv gets an integer environment variable or returns a default value
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getFloatEnv gets a float environment variable or returns a default value
func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
