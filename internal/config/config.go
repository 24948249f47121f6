package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config lists the tunable parameters for the HomeBase server.
type Config struct {
	HTTPPort        int           `env:"HOMEBASE_HTTP_PORT" envDefault:"8080"`
	MQTTBindAddress string        `env:"HOMEBASE_MQTT_BIND" envDefault:":1883"`
	MetricsPort     int           `env:"HOMEBASE_METRICS_PORT" envDefault:"9090"`
	DatabasePath    string        `env:"HOMEBASE_DATABASE_PATH" envDefault:"data/homebase.db"`
	LogLevel        string        `env:"HOMEBASE_LOG_LEVEL" envDefault:"info"`
	MDNSEnabled     bool          `env:"HOMEBASE_MDNS_ENABLED" envDefault:"true"`
	RelogInterval   time.Duration `env:"HOMEBASE_RELOG_INTERVAL" envDefault:"15m"`
	MoveThrottle    time.Duration `env:"HOMEBASE_MOVE_THROTTLE" envDefault:"5m"`
	HistoryWindow   time.Duration `env:"HOMEBASE_HISTORY_WINDOW" envDefault:"24h"`
	HistoryGap      time.Duration `env:"HOMEBASE_HISTORY_GAP" envDefault:"45m"`
	OTELEndpoint    string        `env:"HOMEBASE_OTEL_ENDPOINT"`
}

// Load derives configuration values from environment variables, falling back to defaults.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects values the server cannot run with.
func (c Config) Validate() error {
	if err := validPort("HOMEBASE_HTTP_PORT", c.HTTPPort); err != nil {
		return err
	}
	if err := validPort("HOMEBASE_METRICS_PORT", c.MetricsPort); err != nil {
		return err
	}
	if strings.TrimSpace(c.MQTTBindAddress) == "" {
		return fmt.Errorf("invalid HOMEBASE_MQTT_BIND: empty")
	}
	if strings.TrimSpace(c.DatabasePath) == "" {
		return fmt.Errorf("invalid HOMEBASE_DATABASE_PATH: empty")
	}
	durations := []struct {
		name  string
		value time.Duration
	}{
		{"HOMEBASE_RELOG_INTERVAL", c.RelogInterval},
		{"HOMEBASE_MOVE_THROTTLE", c.MoveThrottle},
		{"HOMEBASE_HISTORY_WINDOW", c.HistoryWindow},
		{"HOMEBASE_HISTORY_GAP", c.HistoryGap},
	}
	for _, d := range durations {
		if d.value <= 0 {
			return fmt.Errorf("invalid %s: must be positive, got %s", d.name, d.value)
		}
	}
	return nil
}

func validPort(name string, port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("invalid %s: %d is not a TCP port", name, port)
	}
	return nil
}
