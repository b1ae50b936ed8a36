package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config defines service configuration. Values come from defaults, an
// optional YAML file named by VITALWATCH_CONFIG, then env overrides, in
// that order.
type Config struct {
	DatabaseURL string          `yaml:"database_url"`
	HTTPAddr    string          `yaml:"http_addr"`
	NATSURL     string          `yaml:"nats_url"`
	JWTSecret   string          `yaml:"jwt_secret"`
	LogLevel    string          `yaml:"log_level"`
	Simulator   SimulatorConfig `yaml:"simulator"`
	Consumers   ConsumerConfig  `yaml:"consumers"`
}

// SimulatorConfig controls the synthetic load generator.
type SimulatorConfig struct {
	Enabled         bool     `yaml:"enabled"`
	IntervalSeconds int      `yaml:"interval_seconds"`
	Patients        []string `yaml:"patients"`
	NormalWeight    float64  `yaml:"normal_weight"`
	WarningWeight   float64  `yaml:"warning_weight"`
	CriticalWeight  float64  `yaml:"critical_weight"`
}

// Interval returns the emit interval.
func (c SimulatorConfig) Interval() time.Duration {
	if c.IntervalSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.IntervalSeconds) * time.Second
}

// ConsumerConfig controls which consumers run in this process.
type ConsumerConfig struct {
	// Reevaluation runs the vital-signs consumer, which re-runs the rule
	// engine over readings that already passed inline evaluation. Off by
	// default: with a single node it only duplicates alerts. Turn it on
	// when a separate process owns evaluation.
	Reevaluation bool `yaml:"reevaluation"`
}

// Load loads config from defaults, yaml and env.
func Load() (Config, error) {
	cfg := Config{
		HTTPAddr: ":8080",
		LogLevel: "info",
		Simulator: SimulatorConfig{
			IntervalSeconds: 30,
			NormalWeight:    0.70,
			WarningWeight:   0.15,
			CriticalWeight:  0.05,
		},
	}

	if path := os.Getenv("VITALWATCH_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}

	if v := getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := os.Getenv("NATS_URL"); v != "" {
		cfg.NATSURL = v
	}
	if v := getenvDefault("AUTH_JWT_SECRET", getenvDefault("JWT_SECRET", "")); v != "" {
		cfg.JWTSecret = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("SIMULATOR_ENABLED"); v != "" {
		cfg.Simulator.Enabled = parseBool(v)
	}
	if v := getenvIntDefault("SIMULATOR_INTERVAL_SECONDS", 0); v > 0 {
		cfg.Simulator.IntervalSeconds = v
	}
	if patients := splitCSV(os.Getenv("SIMULATOR_PATIENTS")); len(patients) > 0 {
		cfg.Simulator.Patients = patients
	}
	if v := os.Getenv("CONSUMER_REEVALUATION"); v != "" {
		cfg.Consumers.Reevaluation = parseBool(v)
	}

	return cfg, nil
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func parseBool(value string) bool {
	parsed, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return false
	}
	return parsed
}

func splitCSV(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	var result []string
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			result = append(result, part)
		}
	}
	return result
}
