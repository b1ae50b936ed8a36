package alerts

import (
	vitals "vitalwatch/internal/vitals/domain"
)

// Alert type tags, one per rule family.
const (
	TypeOxygenSaturation = "OXYGEN_SATURATION"
	TypeHeartRate        = "HEART_RATE"
	TypeBloodPressure    = "BLOOD_PRESSURE"
	TypeTemperature      = "TEMPERATURE"
	TypeRespiratoryRate  = "RESPIRATORY_RATE"
)

// RuleResult is the outcome of one rule over one reading. It exists only
// during an evaluation pass; the engine materializes it into an Alert.
type RuleResult struct {
	Severity    string
	AlertType   string
	MessageKey  string
	RequiresAck bool
}

// Rule evaluates a reading against one family of thresholds. Implementations
// must be pure functions of their inputs and must abstain (ok=false) when
// the observation they depend on is absent.
//
// The condition type is carried through for future per-condition thresholds;
// the current rule set does not branch on it.
type Rule interface {
	Evaluate(reading vitals.Reading, conditionType string) (RuleResult, bool)
	Supports(alertType string) bool
	Priority() int
	Describe() string
}

// DefaultRules returns the production rule set in registration order.
// Engine output order follows this order, not Priority.
func DefaultRules() []Rule {
	return []Rule{
		OxygenSaturationRule{},
		HeartRateRule{},
		BloodPressureRule{},
		TemperatureRule{},
		RespiratoryRateRule{},
	}
}

func severityForBands(critical, warning bool) (string, bool) {
	switch {
	case critical:
		return SeverityCritical, true
	case warning:
		return SeverityWarning, true
	default:
		return "", false
	}
}

// messageKey builds the deterministic localization key
// alert.<severity>.<metric>.<direction>.
func messageKey(severity, metric, direction string) string {
	key := "alert." + lower(severity) + "." + metric
	if direction != "" {
		key += "." + direction
	}
	return key
}

func lower(s string) string {
	b := []byte(s)
	for i := range b {
		if b[i] >= 'A' && b[i] <= 'Z' {
			b[i] += 'a' - 'A'
		}
	}
	return string(b)
}

func direction(value, pivot float64) string {
	if value > pivot {
		return "high"
	}
	return "low"
}
