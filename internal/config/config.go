// Package config provides application configuration loaded from environment variables.
package config

import (
	"errors"
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/paperstack/invoicehub/pkg/database"
)

// Config holds all application configuration.
type Config struct {
	DatabaseURL string
	Port        string
	APIKey      string
	LogLevel    string

	// Vision/answer model provider (Gemini API)
	GoogleAIAPIKey string
	VisionModel    string
	TextModel      string

	// Embedding provider: "openai" or "huggingface"
	EmbeddingProvider       string
	EmbeddingProviderAPIKey string
	EmbeddingModel          string
	EmbeddingDimensions     int

	// Embedding calls per second during batch ingestion
	EmbeddingRateLimit int

	// Preprocess uploaded images (grayscale/contrast/sharpen) before OCR
	EnhanceImages bool

	// Max upload request body size in bytes; 0 disables the limit
	MaxRequestBodyBytes int64

	// OTEL_TRACES_EXPORTER: "otlp", "stdout", or empty (tracing disabled)
	OtelTracesExporter string
	// OTEL_METRICS_EXPORTER: "otlp" or empty (metrics disabled)
	OtelMetricsExporter string
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value.
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value.
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// databaseURL returns DATABASE_URL when set; otherwise it assembles a
// connection string from the individual DB_* credential parts.
func databaseURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}

	return database.BuildURL(
		getEnv("DB_USER", "postgres"),
		getEnv("DB_PASSWORD", "postgres"),
		getEnv("DB_HOST", "localhost"),
		getEnv("DB_PORT", "5432"),
		getEnv("DB_NAME", "invoicehub"),
	)
}

// Load reads configuration from environment variables and returns a Config struct.
// It automatically loads .env file if it exists.
// Returns default values for any missing environment variables.
// API_KEY is required and the function will return an error if it's not set.
func Load() (*Config, error) {
	// Load .env file if it exists. Skip logging when absent (e.g. env from secrets/parameter store).
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("Failed to load .env file", "error", err)
	}

	apiKey := os.Getenv("API_KEY")
	if apiKey == "" {
		return nil, errors.New("API_KEY environment variable is required but not set")
	}

	embeddingRateLimit := getEnvAsInt("EMBEDDING_RATE_LIMIT", 5)
	if embeddingRateLimit <= 0 {
		return nil, errors.New("EMBEDDING_RATE_LIMIT must be a positive integer")
	}

	embeddingDimensions := getEnvAsInt("EMBEDDING_DIMENSIONS", 1536)
	if embeddingDimensions <= 0 {
		return nil, errors.New("EMBEDDING_DIMENSIONS must be a positive integer")
	}

	cfg := &Config{
		DatabaseURL: databaseURL(),
		Port:        getEnv("PORT", "8080"),
		APIKey:      apiKey,
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		GoogleAIAPIKey: os.Getenv("GOOGLE_AI_API_KEY"),
		VisionModel:    getEnv("VISION_MODEL", "gemini-2.0-flash"),
		TextModel:      getEnv("TEXT_MODEL", "gemini-2.0-flash"),

		EmbeddingProvider:       getEnv("EMBEDDING_PROVIDER", "openai"),
		EmbeddingProviderAPIKey: os.Getenv("EMBEDDING_PROVIDER_API_KEY"),
		EmbeddingModel:          os.Getenv("EMBEDDING_MODEL"),
		EmbeddingDimensions:     embeddingDimensions,

		EmbeddingRateLimit: embeddingRateLimit,

		EnhanceImages: getEnvAsBool("ENHANCE_IMAGES", false),

		MaxRequestBodyBytes: int64(getEnvAsInt("MAX_REQUEST_BODY_BYTES", 32<<20)),

		OtelTracesExporter:  os.Getenv("OTEL_TRACES_EXPORTER"),
		OtelMetricsExporter: os.Getenv("OTEL_METRICS_EXPORTER"),
	}

	return cfg, nil
}
