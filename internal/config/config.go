package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the phone agent service.
type Config struct {
	BindAddr        string
	PublicBaseURL   string
	ShutdownTimeout time.Duration

	MetricsNamespace string
	AllowAnyOrigin   bool

	SettingsPath string
	DatabaseURL  string
	AudioDir     string

	BrainProvider     string
	OpenAIAPIKey      string
	OpenAIModel       string
	CompletionTimeout time.Duration
	BrainMaxAttempts  int

	SynthesisTimeout time.Duration

	GatherTimeout         time.Duration
	CallInactivityTimeout time.Duration
	JanitorInterval       time.Duration
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:         envOrDefault("APP_BIND_ADDR", ":8000"),
		PublicBaseURL:    strings.TrimRight(envOrDefault("APP_PUBLIC_BASE_URL", "http://localhost:8000"), "/"),
		MetricsNamespace: envOrDefault("APP_METRICS_NAMESPACE", "penny"),
		AllowAnyOrigin:   false,
		SettingsPath:     envOrDefault("SETTINGS_PATH", "settings.json"),
		DatabaseURL:      trimmedEnv("DATABASE_URL"),
		AudioDir:         envOrDefault("AUDIO_DIR", "static/tts"),
		BrainProvider:    envOrDefault("BRAIN_PROVIDER", "auto"),
		OpenAIAPIKey:     trimmedEnv("OPENAI_API_KEY"),
		OpenAIModel:      envOrDefault("OPENAI_MODEL", "gpt-4o-mini"),

		ShutdownTimeout:       15 * time.Second,
		CompletionTimeout:     30 * time.Second,
		SynthesisTimeout:      30 * time.Second,
		GatherTimeout:         5 * time.Second,
		CallInactivityTimeout: 10 * time.Minute,
		JanitorInterval:       30 * time.Second,
		BrainMaxAttempts:      1,
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.CompletionTimeout, err = durationFromEnv("COMPLETION_TIMEOUT", cfg.CompletionTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.SynthesisTimeout, err = durationFromEnv("SYNTHESIS_TIMEOUT", cfg.SynthesisTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.GatherTimeout, err = durationFromEnv("GATHER_TIMEOUT", cfg.GatherTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.CallInactivityTimeout, err = durationFromEnv("CALL_INACTIVITY_TIMEOUT", cfg.CallInactivityTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.JanitorInterval, err = durationFromEnv("CALL_JANITOR_INTERVAL", cfg.JanitorInterval)
	if err != nil {
		return Config{}, err
	}
	cfg.BrainMaxAttempts, err = intFromEnv("BRAIN_MAX_ATTEMPTS", cfg.BrainMaxAttempts)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}

	if cfg.CompletionTimeout <= 0 {
		return Config{}, fmt.Errorf("COMPLETION_TIMEOUT must be positive")
	}
	if cfg.SynthesisTimeout <= 0 {
		return Config{}, fmt.Errorf("SYNTHESIS_TIMEOUT must be positive")
	}
	if cfg.GatherTimeout <= 0 {
		return Config{}, fmt.Errorf("GATHER_TIMEOUT must be positive")
	}
	if cfg.CallInactivityTimeout < 30*time.Second {
		return Config{}, fmt.Errorf("CALL_INACTIVITY_TIMEOUT must be at least 30s")
	}
	if cfg.BrainMaxAttempts <= 0 {
		return Config{}, fmt.Errorf("BRAIN_MAX_ATTEMPTS must be positive")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func trimmedEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := trimmedEnv(key)
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
	v := trimmedEnv(key)
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
	v := strings.ToLower(trimmedEnv(key))
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
