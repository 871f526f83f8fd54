package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Incident source kinds.
const (
	SourceCSV    = "csv"
	SourceSQLite = "sqlite"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Incident source.
	IncidentSource string
	IncidentPath   string

	// Clustering and query tuning.
	EpsilonKM        float64
	MinSamples       int
	IndexStrategy    string
	RiskThresholdKM  float64
	BuildMaxAttempts int
	QueryCacheSize   int

	// Alert publishing.
	KafkaEnabled    bool
	KafkaBrokers    []string
	KafkaAlertTopic string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	epsilon, err := parsePositiveFloat("CLUSTER_EPSILON_KM", "5", true)
	if err != nil {
		return nil, err
	}
	threshold, err := parsePositiveFloat("RISK_THRESHOLD_KM", "0.5", false)
	if err != nil {
		return nil, err
	}
	minSamples, err := parseInt("CLUSTER_MIN_SAMPLES", "3", 1)
	if err != nil {
		return nil, err
	}
	attempts, err := parseInt("BUILD_MAX_ATTEMPTS", "3", 1)
	if err != nil {
		return nil, err
	}
	cacheSize, err := parseInt("QUERY_CACHE_SIZE", "1000", 0)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		IncidentSource: sharedcfg.EnvOrDefault("INCIDENT_SOURCE", SourceCSV),
		IncidentPath:   sharedcfg.EnvOrDefault("INCIDENT_PATH", "crime_data.csv"),

		EpsilonKM:        epsilon,
		MinSamples:       minSamples,
		IndexStrategy:    sharedcfg.EnvOrDefault("CLUSTER_INDEX", "vptree"),
		RiskThresholdKM:  threshold,
		BuildMaxAttempts: attempts,
		QueryCacheSize:   cacheSize,

		KafkaEnabled:    os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers:    sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaAlertTopic: sharedcfg.EnvOrDefault("KAFKA_ALERT_TOPIC", "risk-alerts"),
	}

	if cfg.IncidentSource != SourceCSV && cfg.IncidentSource != SourceSQLite {
		return nil, fmt.Errorf("INCIDENT_SOURCE must be %q or %q", SourceCSV, SourceSQLite)
	}
	if cfg.IncidentPath == "" {
		return nil, errors.New("INCIDENT_PATH is required")
	}
	if cfg.IndexStrategy != "vptree" && cfg.IndexStrategy != "linear" {
		return nil, errors.New("CLUSTER_INDEX must be vptree or linear")
	}
	if cfg.KafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
		}
		if cfg.KafkaAlertTopic == "" {
			return nil, errors.New("KAFKA_ALERT_TOPIC is required when KAFKA_ENABLED is true")
		}
	}

	return cfg, nil
}

// parsePositiveFloat reads a finite float that must be > 0, or >= 0 when allowZero.
func parsePositiveFloat(key, def string, allowZero bool) (float64, error) {
	v, err := strconv.ParseFloat(sharedcfg.EnvOrDefault(key, def), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 || (v == 0 && !allowZero) {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return v, nil
}

func parseInt(key, def string, minimum int) (int, error) {
	n, err := strconv.Atoi(sharedcfg.EnvOrDefault(key, def))
	if err != nil || n < minimum {
		return 0, fmt.Errorf("invalid %s: must be an integer >= %d", key, minimum)
	}
	return n, nil
}
