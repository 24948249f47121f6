package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, ":1883", cfg.MQTTBindAddress)
	assert.Equal(t, 9090, cfg.MetricsPort)
	assert.Equal(t, "data/homebase.db", cfg.DatabasePath)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.True(t, cfg.MDNSEnabled)
	assert.Equal(t, 15*time.Minute, cfg.RelogInterval)
	assert.Equal(t, 5*time.Minute, cfg.MoveThrottle)
	assert.Equal(t, 24*time.Hour, cfg.HistoryWindow)
	assert.Equal(t, 45*time.Minute, cfg.HistoryGap)
	assert.Empty(t, cfg.OTELEndpoint)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("HOMEBASE_HTTP_PORT", "8181")
	t.Setenv("HOMEBASE_MQTT_BIND", "127.0.0.1:1884")
	t.Setenv("HOMEBASE_MDNS_ENABLED", "false")
	t.Setenv("HOMEBASE_RELOG_INTERVAL", "30s")
	t.Setenv("HOMEBASE_OTEL_ENDPOINT", "http://collector:4318")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8181, cfg.HTTPPort)
	assert.Equal(t, "127.0.0.1:1884", cfg.MQTTBindAddress)
	assert.False(t, cfg.MDNSEnabled)
	assert.Equal(t, 30*time.Second, cfg.RelogInterval)
	assert.Equal(t, "http://collector:4318", cfg.OTELEndpoint)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"HOMEBASE_HTTP_PORT":     "not-a-number",
		"HOMEBASE_METRICS_PORT":  "70000",
		"HOMEBASE_MOVE_THROTTLE": "-1m",
		"HOMEBASE_HISTORY_GAP":   "soon",
		"HOMEBASE_DATABASE_PATH": " ",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
