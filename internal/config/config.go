/**
 * Configuration for the document recognition service.
 *
 * Loads configuration from environment variables; the server and worker
 * entry points call godotenv.Load first so a local .env file works too.
 */

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds service configuration
type Config struct {
	// HTTP server
	ListenAddr string

	// Redis (async job queue + ephemeral job status)
	RedisURL string

	// Upload storage
	UploadDir   string
	MaskedDir   string
	MaxFileSize int64

	// Classifier model bundle (model.onnx + optional labels.yaml)
	ModelBundleDir string

	// OCR configuration
	OCRLanguages []string
	OCRDisabled  bool

	// Worker configuration
	WorkerConcurrency int
	ProcessingTimeout int // milliseconds
	JobStatusTTL      int // seconds
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		ListenAddr:        getEnvOrDefault("LISTEN_ADDR", ":5000"),
		RedisURL:          getEnvOrDefault("REDIS_URL", ""),
		UploadDir:         getEnvOrDefault("UPLOAD_DIR", "uploads"),
		MaskedDir:         getEnvOrDefault("MASKED_DIR", "masked_images"),
		MaxFileSize:       getEnvAsInt64OrDefault("MAX_FILE_SIZE", 10*1024*1024), // 10MB
		ModelBundleDir:    getEnvOrDefault("MODEL_BUNDLE_DIR", "models"),
		OCRLanguages:      splitList(getEnvOrDefault("OCR_LANGUAGES", "eng,chi_tra")),
		OCRDisabled:       getEnvAsBoolOrDefault("OCR_DISABLED", false),
		WorkerConcurrency: getEnvAsIntOrDefault("WORKER_CONCURRENCY", 4),
		ProcessingTimeout: getEnvAsIntOrDefault("PROCESSING_TIMEOUT", 300000), // 5 minutes
		JobStatusTTL:      getEnvAsIntOrDefault("JOB_STATUS_TTL", 86400),      // 24 hours
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.UploadDir == "" {
		return fmt.Errorf("UPLOAD_DIR is required")
	}

	if c.MaskedDir == "" {
		return fmt.Errorf("MASKED_DIR is required")
	}

	if c.MaxFileSize < 1024 || c.MaxFileSize > 1073741824 { // 1KB to 1GB
		return fmt.Errorf("MAX_FILE_SIZE must be between 1KB and 1GB, got %d", c.MaxFileSize)
	}

	if c.WorkerConcurrency < 1 || c.WorkerConcurrency > 100 {
		return fmt.Errorf("WORKER_CONCURRENCY must be between 1 and 100, got %d", c.WorkerConcurrency)
	}

	if c.ProcessingTimeout < 1000 {
		return fmt.Errorf("PROCESSING_TIMEOUT must be at least 1000ms, got %d", c.ProcessingTimeout)
	}

	return nil
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
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
