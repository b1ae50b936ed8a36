package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("VITALWATCH_CONFIG", "")
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("LOG_LEVEL", "")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 30*time.Second, cfg.Simulator.Interval())
	assert.Equal(t, 0.70, cfg.Simulator.NormalWeight)
	assert.Equal(t, 0.15, cfg.Simulator.WarningWeight)
	assert.Equal(t, 0.05, cfg.Simulator.CriticalWeight)
	assert.False(t, cfg.Simulator.Enabled)
	assert.False(t, cfg.Consumers.Reevaluation)
}

func TestLoadFromYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	doc := `
http_addr: ":9090"
log_level: debug
nats_url: "nats://localhost:4222"
simulator:
  enabled: true
  interval_seconds: 5
  patients:
    - p1
    - p2
  normal_weight: 0.6
  warning_weight: 0.2
  critical_weight: 0.1
consumers:
  reevaluation: true
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))
	t.Setenv("VITALWATCH_CONFIG", path)

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "nats://localhost:4222", cfg.NATSURL)
	assert.True(t, cfg.Simulator.Enabled)
	assert.Equal(t, 5*time.Second, cfg.Simulator.Interval())
	assert.Equal(t, []string{"p1", "p2"}, cfg.Simulator.Patients)
	assert.Equal(t, 0.6, cfg.Simulator.NormalWeight)
	assert.True(t, cfg.Consumers.Reevaluation)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http_addr: \":9090\"\n"), 0o600))
	t.Setenv("VITALWATCH_CONFIG", path)
	t.Setenv("HTTP_ADDR", ":7070")
	t.Setenv("AUTH_JWT_SECRET", "topsecret")
	t.Setenv("SIMULATOR_PATIENTS", "p1, p2 ,p3")
	t.Setenv("CONSUMER_REEVALUATION", "true")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.HTTPAddr)
	assert.Equal(t, "topsecret", cfg.JWTSecret)
	assert.Equal(t, []string{"p1", "p2", "p3"}, cfg.Simulator.Patients)
	assert.True(t, cfg.Consumers.Reevaluation)
}

func TestLoadMissingConfigFile(t *testing.T) {
	t.Setenv("VITALWATCH_CONFIG", filepath.Join(t.TempDir(), "nope.yaml"))

	_, err := Load()

	require.Error(t, err)
}

func TestSimulatorIntervalFallsBackWhenUnset(t *testing.T) {
	assert.Equal(t, 30*time.Second, SimulatorConfig{}.Interval())
	assert.Equal(t, 30*time.Second, SimulatorConfig{IntervalSeconds: -1}.Interval())
	assert.Equal(t, 10*time.Second, SimulatorConfig{IntervalSeconds: 10}.Interval())
}
