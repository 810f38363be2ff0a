/**
 * Configuration for the LayoutOCR Worker
 *
 * Loads configuration from environment variables; main loads .env first.
 */

package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"
)

// Queue backends
const (
	QueueBackendRedis = "redis"
	QueueBackendAsynq = "asynq"
)

// Config holds worker configuration
type Config struct {
	// Redis configuration
	RedisURL string

	// PostgreSQL configuration
	DatabaseURL string

	// Qdrant vector database configuration; empty URL disables signatures
	QdrantURL        string
	QdrantCollection string

	// Queue configuration
	QueueBackend string
	QueueName    string

	// Worker configuration
	WorkerConcurrency  int
	MaxImageSize       int64
	ProcessingTimeout  time.Duration
	RecognitionTimeout time.Duration

	// Recognition configuration
	OCRLanguage          string
	OCRMaxImageDimension int
	Calibrate            bool
	TrailingNewline      bool

	// Layout configuration
	PadSkippedColumns bool
	MinBandGapChars   float64

	LogLevel string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		RedisURL:             getEnvOrDefault("REDIS_URL", "redis://localhost:6379"),
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		QdrantURL:            getEnvOrDefault("QDRANT_URL", ""),
		QdrantCollection:     getEnvOrDefault("QDRANT_COLLECTION", "layoutocr_signatures"),
		QueueBackend:         strings.ToLower(getEnvOrDefault("QUEUE_BACKEND", QueueBackendRedis)),
		QueueName:            getEnvOrDefault("QUEUE_NAME", "layoutocr:jobs"),
		WorkerConcurrency:    getEnvAsIntOrDefault("WORKER_CONCURRENCY", 4),
		MaxImageSize:         getEnvAsInt64OrDefault("MAX_IMAGE_SIZE", 52428800), // 50MB
		ProcessingTimeout:    getEnvAsMillisOrDefault("PROCESSING_TIMEOUT", 120000),
		RecognitionTimeout:   getEnvAsMillisOrDefault("RECOGNITION_TIMEOUT", 30000),
		OCRLanguage:          getEnvOrDefault("OCR_LANGUAGE", "en"),
		OCRMaxImageDimension: getEnvAsIntOrDefault("OCR_MAX_IMAGE_DIMENSION", 10000),
		Calibrate:            getEnvAsBoolOrDefault("CALIBRATE", true),
		TrailingNewline:      getEnvAsBoolOrDefault("TRAILING_NEWLINE", true),
		PadSkippedColumns:    getEnvAsBoolOrDefault("PAD_SKIPPED_COLUMNS", false),
		MinBandGapChars:      getEnvAsFloatOrDefault("MIN_BAND_GAP_CHARS", 2),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.RedisURL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.QueueBackend != QueueBackendRedis && c.QueueBackend != QueueBackendAsynq {
		return fmt.Errorf("QUEUE_BACKEND must be %q or %q, got %q", QueueBackendRedis, QueueBackendAsynq, c.QueueBackend)
	}

	if c.QueueName == "" {
		return fmt.Errorf("QUEUE_NAME is required")
	}

	if c.WorkerConcurrency < 1 || c.WorkerConcurrency > 100 {
		return fmt.Errorf("WORKER_CONCURRENCY must be between 1 and 100, got %d", c.WorkerConcurrency)
	}

	if c.MaxImageSize < 1024 || c.MaxImageSize > 1073741824 { // 1KB to 1GB
		return fmt.Errorf("MAX_IMAGE_SIZE must be between 1KB and 1GB, got %d", c.MaxImageSize)
	}

	if c.ProcessingTimeout <= 0 {
		return fmt.Errorf("PROCESSING_TIMEOUT must be positive")
	}

	if c.RecognitionTimeout <= 0 || c.RecognitionTimeout > c.ProcessingTimeout {
		return fmt.Errorf("RECOGNITION_TIMEOUT must be positive and at most PROCESSING_TIMEOUT, got %v", c.RecognitionTimeout)
	}

	if c.OCRMaxImageDimension < 100 {
		return fmt.Errorf("OCR_MAX_IMAGE_DIMENSION must be at least 100, got %d", c.OCRMaxImageDimension)
	}

	// zero leaves the analyzer default in place
	if c.MinBandGapChars < 0 || c.MinBandGapChars > 50 {
		return fmt.Errorf("MIN_BAND_GAP_CHARS must be between 0 and 50, got %v", c.MinBandGapChars)
	}

	return nil
}

// getEnvOrDefault gets environment variable or returns default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsIntOrDefault gets environment variable as int or returns default
func getEnvAsIntOrDefault(key string, defaultValue int) int {
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

// getEnvAsInt64OrDefault gets environment variable as int64 or returns default
func getEnvAsInt64OrDefault(key string, defaultValue int64) int64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

// getEnvAsMillisOrDefault reads a millisecond count as a Duration
func getEnvAsMillisOrDefault(key string, defaultMillis int64) time.Duration {
	return time.Duration(getEnvAsInt64OrDefault(key, defaultMillis)) * time.Millisecond
}

// getEnvAsBoolOrDefault gets environment variable as bool or returns default
func getEnvAsBoolOrDefault(key string, defaultValue bool) bool {
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

// getEnvAsFloatOrDefault gets environment variable as float64 or returns default
func getEnvAsFloatOrDefault(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return defaultValue
	}

	return value
}
