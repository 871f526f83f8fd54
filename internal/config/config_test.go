package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const defaultBroker = "localhost:9092"

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, SourceCSV, cfg.IncidentSource)
	assert.Equal(t, "crime_data.csv", cfg.IncidentPath)
	assert.InDelta(t, 5.0, cfg.EpsilonKM, 0)
	assert.Equal(t, 3, cfg.MinSamples)
	assert.Equal(t, "vptree", cfg.IndexStrategy)
	assert.InDelta(t, 0.5, cfg.RiskThresholdKM, 0)
	assert.Equal(t, 3, cfg.BuildMaxAttempts)
	assert.Equal(t, 1000, cfg.QueryCacheSize)
	assert.False(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{defaultBroker}, cfg.KafkaBrokers)
	assert.Equal(t, "risk-alerts", cfg.KafkaAlertTopic)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("INCIDENT_SOURCE", "sqlite")
	t.Setenv("INCIDENT_PATH", "/data/incidents.db")
	t.Setenv("CLUSTER_EPSILON_KM", "0.75")
	t.Setenv("CLUSTER_MIN_SAMPLES", "5")
	t.Setenv("CLUSTER_INDEX", "linear")
	t.Setenv("RISK_THRESHOLD_KM", "2")
	t.Setenv("BUILD_MAX_ATTEMPTS", "1")
	t.Setenv("QUERY_CACHE_SIZE", "0")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_ALERT_TOPIC", "alerts")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, SourceSQLite, cfg.IncidentSource)
	assert.Equal(t, "/data/incidents.db", cfg.IncidentPath)
	assert.InDelta(t, 0.75, cfg.EpsilonKM, 0)
	assert.Equal(t, 5, cfg.MinSamples)
	assert.Equal(t, "linear", cfg.IndexStrategy)
	assert.InDelta(t, 2.0, cfg.RiskThresholdKM, 0)
	assert.Equal(t, 1, cfg.BuildMaxAttempts)
	assert.Equal(t, 0, cfg.QueryCacheSize)
	assert.True(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "alerts", cfg.KafkaAlertTopic)
}

func TestLoad_ZeroEpsilonAllowed(t *testing.T) {
	t.Setenv("CLUSTER_EPSILON_KM", "0")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Zero(t, cfg.EpsilonKM)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"SHUTDOWN_TIMEOUT", "not-a-duration"},
		{"CLUSTER_EPSILON_KM", "-1"},
		{"CLUSTER_EPSILON_KM", "abc"},
		{"CLUSTER_EPSILON_KM", "NaN"},
		{"CLUSTER_MIN_SAMPLES", "0"},
		{"CLUSTER_MIN_SAMPLES", "two"},
		{"RISK_THRESHOLD_KM", "0"},
		{"RISK_THRESHOLD_KM", "+Inf"},
		{"BUILD_MAX_ATTEMPTS", "0"},
		{"QUERY_CACHE_SIZE", "-5"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestLoad_InvalidSource(t *testing.T) {
	t.Setenv("INCIDENT_SOURCE", "parquet")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INCIDENT_SOURCE")
}

func TestLoad_InvalidIndexStrategy(t *testing.T) {
	t.Setenv("CLUSTER_INDEX", "kdtree")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CLUSTER_INDEX")
}
