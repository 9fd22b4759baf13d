package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/qldwater/leaklocker/internal/domain"
)

// SourceSynthetic selects the built-in synthetic dataset instead of a CSV file.
const SourceSynthetic = "synthetic"

// Config holds all service settings, populated from environment variables.
type Config struct {
	// DataSource is either a CSV file path or "synthetic".
	DataSource string

	// Detection settings.
	DetectionPolicy    string
	FixedThresholdLPM  float64
	BaselineMultiplier float64

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// RefreshInterval controls how often the pipeline re-checks the source
	// for changes. LoaderCacheSize bounds the parsed-result cache.
	RefreshInterval time.Duration
	LoaderCacheSize int

	// SyntheticSeed fixes the PRNG for the synthetic source.
	SyntheticSeed int64

	// Kafka alert publishing configuration.
	KafkaBrokers    []string
	KafkaAlertTopic string
	KafkaEnabled    bool
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	refreshInterval, err := parseDuration("REFRESH_INTERVAL", "60s")
	if err != nil {
		return nil, err
	}

	fixedThreshold, err := parseFloat("FIXED_THRESHOLD_LPM", domain.DefaultFixedThresholdLPM)
	if err != nil {
		return nil, err
	}

	multiplier, err := parseFloat("BASELINE_MULTIPLIER", domain.DefaultBaselineMultiplier)
	if err != nil {
		return nil, err
	}

	seed, err := parseInt64("SYNTHETIC_SEED", 1)
	if err != nil {
		return nil, err
	}

	brokers := parseBrokers(os.Getenv("KAFKA_BROKERS"))
	kafkaEnabled := len(brokers) > 0
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		DataSource:         envOrDefault("DATA_SOURCE", SourceSynthetic),
		DetectionPolicy:    envOrDefault("DETECTION_POLICY", domain.PolicyBaseline),
		FixedThresholdLPM:  fixedThreshold,
		BaselineMultiplier: multiplier,
		HTTPAddr:           envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           envOrDefault("LOG_LEVEL", "info"),
		LogFormat:          envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		RefreshInterval:    refreshInterval,
		LoaderCacheSize:    parseLoaderCacheSize(),
		SyntheticSeed:      seed,
		KafkaBrokers:       brokers,
		KafkaAlertTopic:    envOrDefault("KAFKA_ALERT_TOPIC", "water-leak-alerts"),
		KafkaEnabled:       kafkaEnabled,
	}

	if cfg.DataSource == "" {
		return nil, errors.New("DATA_SOURCE is required")
	}
	if cfg.DetectionPolicy != domain.PolicyFixed && cfg.DetectionPolicy != domain.PolicyBaseline {
		return nil, fmt.Errorf("invalid DETECTION_POLICY %q (want %q or %q)",
			cfg.DetectionPolicy, domain.PolicyFixed, domain.PolicyBaseline)
	}
	if cfg.FixedThresholdLPM <= 0 {
		return nil, errors.New("FIXED_THRESHOLD_LPM must be positive")
	}
	if cfg.BaselineMultiplier <= 0 {
		return nil, errors.New("BASELINE_MULTIPLIER must be positive")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}
	if cfg.KafkaEnabled && cfg.KafkaAlertTopic == "" {
		return nil, errors.New("KAFKA_ALERT_TOPIC is required when Kafka is enabled")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseFloat(key string, fallback float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return v, nil
}

func parseInt64(key string, fallback int64) (int64, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return v, nil
}

func parseBrokers(value string) []string {
	var brokers []string
	for _, b := range strings.Split(value, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func parseLoaderCacheSize() int {
	if s := os.Getenv("LOADER_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 8
}
