package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	PostgresDSN string // empty selects the in-memory store

	KafkaBrokers    []string
	KafkaAlertTopic string
	AlertsEnabled   bool

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	AssessInterval  time.Duration
	AlertThreshold  float64
	AlertWindowDays int

	ModelPath string

	// NASA POWER weather ingestion configuration.
	PowerEnabled   bool
	PowerTimeout   time.Duration
	PowerCacheSize int
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	assessInterval, err := parseDuration("ASSESS_INTERVAL", 24*time.Hour)
	if err != nil {
		return nil, err
	}

	powerTimeout, err := parseDuration("POWER_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	threshold, err := parseFloat("ALERT_THRESHOLD", 50)
	if err != nil {
		return nil, err
	}
	if threshold < 0 || threshold > 100 {
		return nil, errors.New("ALERT_THRESHOLD must be within [0, 100]")
	}

	windowDays, err := parseInt("ALERT_WINDOW_DAYS", 2)
	if err != nil {
		return nil, err
	}
	if windowDays < 1 {
		return nil, errors.New("ALERT_WINDOW_DAYS must be at least 1")
	}

	cacheSize, err := parseInt("POWER_CACHE_SIZE", 1000)
	if err != nil {
		return nil, err
	}
	if cacheSize < 1 {
		return nil, errors.New("POWER_CACHE_SIZE must be at least 1")
	}

	alertsEnabled := true
	if v := os.Getenv("ALERTS_ENABLED"); v != "" {
		alertsEnabled = v == "true"
	}

	powerEnabled := false
	if v := os.Getenv("POWER_ENABLED"); v != "" {
		powerEnabled = v == "true"
	}

	cfg := &Config{
		PostgresDSN:     os.Getenv("POSTGRES_DSN"),
		KafkaBrokers:    parseBrokers(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaAlertTopic: envOrDefault("KAFKA_ALERT_TOPIC", "drought-alerts"),
		AlertsEnabled:   alertsEnabled,
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
		AssessInterval:  assessInterval,
		AlertThreshold:  threshold,
		AlertWindowDays: windowDays,
		ModelPath:       envOrDefault("MODEL_PATH", "data/model/drought_rf.json"),
		PowerEnabled:    powerEnabled,
		PowerTimeout:    powerTimeout,
		PowerCacheSize:  cacheSize,
	}

	if cfg.AlertsEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required when alerts are enabled")
	}
	if cfg.AlertsEnabled && cfg.KafkaAlertTopic == "" {
		return nil, errors.New("KAFKA_ALERT_TOPIC is required when alerts are enabled")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseBrokers(s string) []string {
	parts := strings.Split(s, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			brokers = append(brokers, p)
		}
	}
	return brokers
}

func parseDuration(key string, fallback time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return d, nil
}

func parseInt(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return n, nil
}

func parseFloat(key string, fallback float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return f, nil
}
