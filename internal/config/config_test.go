package config

import "testing"

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"REDIS_URL", "QUEUE_NAME", "WORKER_CONCURRENCY", "PROCESSING_TIMEOUT",
		"DATABASE_URL", "HTTP_ADDR", "CATALOG_PATH", "OCR_LANGUAGES", "OCR_ENHANCE",
		"MATCH_KEYWORD_WEIGHT", "MATCH_CODE_WEIGHT", "MATCH_SIMILARITY_WEIGHT",
		"MATCH_CONTEXT_WEIGHT", "MATCH_SIMILARITY_FLOOR", "MATCH_MIN_SCORE",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.RedisURL != "redis://localhost:6379" {
		t.Errorf("RedisURL = %s", cfg.RedisURL)
	}
	if cfg.QueueName != "invoices" {
		t.Errorf("QueueName = %s", cfg.QueueName)
	}
	if cfg.WorkerConcurrency != 10 {
		t.Errorf("WorkerConcurrency = %d", cfg.WorkerConcurrency)
	}
	if cfg.ProcessingTimeout != 300000 {
		t.Errorf("ProcessingTimeout = %d", cfg.ProcessingTimeout)
	}
	if cfg.HTTPAddr != ":5001" {
		t.Errorf("HTTPAddr = %s", cfg.HTTPAddr)
	}
	if len(cfg.OCRLanguages) != 2 || cfg.OCRLanguages[0] != "por" || cfg.OCRLanguages[1] != "eng" {
		t.Errorf("OCRLanguages = %v", cfg.OCRLanguages)
	}
	if !cfg.OCREnhance {
		t.Error("OCREnhance = false, want true by default")
	}
	if cfg.Weights.Keyword != 0.4 || cfg.Weights.CodePattern != 0.6 || cfg.Weights.MinScore != 0.3 {
		t.Errorf("Weights = %+v, want shipped defaults", cfg.Weights)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("REDIS_URL", "redis://redis.internal:6380/2")
	t.Setenv("QUEUE_NAME", "invoices-staging")
	t.Setenv("WORKER_CONCURRENCY", "4")
	t.Setenv("OCR_LANGUAGES", "por, eng, spa")
	t.Setenv("OCR_ENHANCE", "false")
	t.Setenv("MATCH_MIN_SCORE", "0.5")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.RedisURL != "redis://redis.internal:6380/2" {
		t.Errorf("RedisURL = %s", cfg.RedisURL)
	}
	if cfg.QueueName != "invoices-staging" {
		t.Errorf("QueueName = %s", cfg.QueueName)
	}
	if cfg.WorkerConcurrency != 4 {
		t.Errorf("WorkerConcurrency = %d", cfg.WorkerConcurrency)
	}
	if len(cfg.OCRLanguages) != 3 || cfg.OCRLanguages[2] != "spa" {
		t.Errorf("OCRLanguages = %v", cfg.OCRLanguages)
	}
	if cfg.OCREnhance {
		t.Error("OCREnhance = true, want false")
	}
	if cfg.Weights.MinScore != 0.5 {
		t.Errorf("MinScore = %v, want 0.5", cfg.Weights.MinScore)
	}
	// Unset weights keep their defaults
	if cfg.Weights.Keyword != 0.4 {
		t.Errorf("Keyword = %v, want default 0.4", cfg.Weights.Keyword)
	}
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	testCases := []struct {
		name  string
		key   string
		value string
	}{
		{"zero concurrency", "WORKER_CONCURRENCY", "0"},
		{"excessive concurrency", "WORKER_CONCURRENCY", "500"},
		{"timeout under a second", "PROCESSING_TIMEOUT", "500"},
		{"negative weight", "MATCH_KEYWORD_WEIGHT", "-0.4"},
		{"empty language list", "OCR_LANGUAGES", ", ,"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tc.key, tc.value)
			if _, err := LoadConfig(); err == nil {
				t.Errorf("LoadConfig accepted %s=%s", tc.key, tc.value)
			}
		})
	}
}

func TestLoadConfigIgnoresUnparseableNumbers(t *testing.T) {
	clearEnv(t)
	t.Setenv("WORKER_CONCURRENCY", "lots")
	t.Setenv("MATCH_MIN_SCORE", "very high")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.WorkerConcurrency != 10 {
		t.Errorf("WorkerConcurrency = %d, want default 10", cfg.WorkerConcurrency)
	}
	if cfg.Weights.MinScore != 0.3 {
		t.Errorf("MinScore = %v, want default 0.3", cfg.Weights.MinScore)
	}
}
