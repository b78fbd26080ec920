/**
 * Configuration for the invoice-points worker
 *
 * Loads configuration from environment variables (.env supported via
 * godotenv in main). Matcher weights and the acceptance threshold are
 * exposed as configuration: they are tuning knobs with shipped defaults,
 * not derived constants.
 */

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/clubefast/invoice-worker/internal/match"
)

// Config holds worker configuration
type Config struct {
	// Redis / queue configuration
	RedisURL          string
	QueueName         string
	WorkerConcurrency int
	ProcessingTimeout int // milliseconds

	// PostgreSQL configuration; empty disables persistence
	DatabaseURL string

	// HTTP API
	HTTPAddr string

	// Catalog overlay; empty uses the built-in catalog
	CatalogPath string

	// OCR configuration
	OCRLanguages []string
	OCREnhance   bool

	// Matcher tuning
	Weights match.Weights
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	defaults := match.DefaultWeights()

	cfg := &Config{
		RedisURL:          getEnvOrDefault("REDIS_URL", "redis://localhost:6379"),
		QueueName:         getEnvOrDefault("QUEUE_NAME", "invoices"),
		WorkerConcurrency: getEnvAsIntOrDefault("WORKER_CONCURRENCY", 10),
		ProcessingTimeout: getEnvAsIntOrDefault("PROCESSING_TIMEOUT", 300000), // 5 minutes
		DatabaseURL:       getEnvOrDefault("DATABASE_URL", ""),
		HTTPAddr:          getEnvOrDefault("HTTP_ADDR", ":5001"),
		CatalogPath:       getEnvOrDefault("CATALOG_PATH", ""),
		OCRLanguages:      splitList(getEnvOrDefault("OCR_LANGUAGES", "por,eng")),
		OCREnhance:        getEnvAsBoolOrDefault("OCR_ENHANCE", true),
		Weights: match.Weights{
			Keyword:         getEnvAsFloatOrDefault("MATCH_KEYWORD_WEIGHT", defaults.Keyword),
			CodePattern:     getEnvAsFloatOrDefault("MATCH_CODE_WEIGHT", defaults.CodePattern),
			NameSimilarity:  getEnvAsFloatOrDefault("MATCH_SIMILARITY_WEIGHT", defaults.NameSimilarity),
			Context:         getEnvAsFloatOrDefault("MATCH_CONTEXT_WEIGHT", defaults.Context),
			SimilarityFloor: getEnvAsFloatOrDefault("MATCH_SIMILARITY_FLOOR", defaults.SimilarityFloor),
			MinScore:        getEnvAsFloatOrDefault("MATCH_MIN_SCORE", defaults.MinScore),
		},
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

	if c.WorkerConcurrency < 1 || c.WorkerConcurrency > 100 {
		return fmt.Errorf("WORKER_CONCURRENCY must be between 1 and 100, got %d", c.WorkerConcurrency)
	}

	if c.ProcessingTimeout < 1000 {
		return fmt.Errorf("PROCESSING_TIMEOUT must be at least 1000ms, got %d", c.ProcessingTimeout)
	}

	if len(c.OCRLanguages) == 0 {
		return fmt.Errorf("OCR_LANGUAGES must name at least one language")
	}

	w := c.Weights
	for name, v := range map[string]float64{
		"MATCH_KEYWORD_WEIGHT":    w.Keyword,
		"MATCH_CODE_WEIGHT":       w.CodePattern,
		"MATCH_SIMILARITY_WEIGHT": w.NameSimilarity,
		"MATCH_CONTEXT_WEIGHT":    w.Context,
		"MATCH_SIMILARITY_FLOOR":  w.SimilarityFloor,
		"MATCH_MIN_SCORE":         w.MinScore,
	} {
		if v < 0 {
			return fmt.Errorf("%s must be non-negative, got %v", name, v)
		}
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

// getEnvAsFloatOrDefault gets environment variable as float64 or returns default
func getEnvAsFloatOrDefault(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
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

// splitList splits a comma-separated list, dropping empty entries
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
