package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the business chat service.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string

	AllowAnyOrigin bool

	ModelProvider    string
	GeminiAPIKey     string
	GeminiModel      string
	OpenAIAPIKey     string
	OpenAIModel      string
	ModelCallTimeout time.Duration
	ModelHistoryMax  int

	KeywordsPath         string
	ApplySpellCorrection bool
	CorrectionThreshold  int
	ColdThreshold        int
	WarmThreshold        int

	Cooldown time.Duration

	ConversationsFile string
	DatabaseURL       string
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:          envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace:  envOrDefault("APP_METRICS_NAMESPACE", "chatbot"),
		AllowAnyOrigin:    false,
		ModelProvider:     envOrDefault("MODEL_PROVIDER", "auto"),
		GeminiAPIKey:      stringsTrimSpace("GOOGLE_API_KEY"),
		GeminiModel:       envOrDefault("GEMINI_MODEL", "gemini-1.5-pro"),
		OpenAIAPIKey:      stringsTrimSpace("OPENAI_API_KEY"),
		OpenAIModel:       envOrDefault("OPENAI_MODEL", "gpt-4o-mini"),
		KeywordsPath:      envOrDefault("BUSINESS_KEYWORDS_FILE", "business_keywords.txt"),
		ConversationsFile: envOrDefault("CONVERSATIONS_FILE", "conversations.json"),
		DatabaseURL:       stringsTrimSpace("DATABASE_URL"),

		ApplySpellCorrection: true,
		CorrectionThreshold:  75,
		ColdThreshold:        80,
		WarmThreshold:        50,
		ModelHistoryMax:      10,

		Cooldown:         2 * time.Second,
		ModelCallTimeout: 60 * time.Second,
		ShutdownTimeout:  15 * time.Second,
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.Cooldown, err = durationFromEnv("CHAT_COOLDOWN", cfg.Cooldown)
	if err != nil {
		return Config{}, err
	}
	cfg.ModelCallTimeout, err = durationFromEnv("MODEL_CALL_TIMEOUT", cfg.ModelCallTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.ModelHistoryMax, err = intFromEnv("MODEL_HISTORY_MAX", cfg.ModelHistoryMax)
	if err != nil {
		return Config{}, err
	}
	cfg.ApplySpellCorrection, err = boolFromEnv("CLASSIFIER_SPELL_CORRECTION", cfg.ApplySpellCorrection)
	if err != nil {
		return Config{}, err
	}
	cfg.CorrectionThreshold, err = intFromEnv("CLASSIFIER_CORRECTION_THRESHOLD", cfg.CorrectionThreshold)
	if err != nil {
		return Config{}, err
	}
	cfg.ColdThreshold, err = intFromEnv("CLASSIFIER_COLD_THRESHOLD", cfg.ColdThreshold)
	if err != nil {
		return Config{}, err
	}
	cfg.WarmThreshold, err = intFromEnv("CLASSIFIER_WARM_THRESHOLD", cfg.WarmThreshold)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}

	switch strings.ToLower(strings.TrimSpace(cfg.ModelProvider)) {
	case "auto", "gemini", "openai", "mock":
	default:
		return Config{}, fmt.Errorf("invalid MODEL_PROVIDER: %q (expected auto|gemini|openai|mock)", cfg.ModelProvider)
	}
	if cfg.Cooldown < 0 {
		return Config{}, fmt.Errorf("CHAT_COOLDOWN must not be negative")
	}
	if cfg.ModelCallTimeout < time.Second {
		return Config{}, fmt.Errorf("MODEL_CALL_TIMEOUT must be at least 1s")
	}
	if cfg.ModelHistoryMax < 0 {
		return Config{}, fmt.Errorf("MODEL_HISTORY_MAX must be >= 0")
	}
	if !within100(cfg.CorrectionThreshold) {
		return Config{}, fmt.Errorf("CLASSIFIER_CORRECTION_THRESHOLD must be within 0..100")
	}
	if !within100(cfg.ColdThreshold) {
		return Config{}, fmt.Errorf("CLASSIFIER_COLD_THRESHOLD must be within 0..100")
	}
	if !within100(cfg.WarmThreshold) {
		return Config{}, fmt.Errorf("CLASSIFIER_WARM_THRESHOLD must be within 0..100")
	}
	if cfg.WarmThreshold > cfg.ColdThreshold {
		return Config{}, fmt.Errorf("CLASSIFIER_WARM_THRESHOLD must not exceed CLASSIFIER_COLD_THRESHOLD")
	}

	return cfg, nil
}

func within100(v int) bool {
	return v >= 0 && v <= 100
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func stringsTrimSpace(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(stringsTrimSpace(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
