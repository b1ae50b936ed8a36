package alerts

import (
	vitals "vitalwatch/internal/vitals/domain"
)

// Body temperature thresholds (degrees Celsius).
const (
	temperatureCriticalLow  = 35.0
	temperatureCriticalHigh = 39.5
	temperatureWarningLow   = 36.0
	temperatureWarningHigh  = 37.5
	temperaturePivot        = 37.0
)

// TemperatureRule flags hypothermia and fever.
type TemperatureRule struct{}

func (TemperatureRule) Evaluate(reading vitals.Reading, _ string) (RuleResult, bool) {
	if reading.Temperature == nil {
		return RuleResult{}, false
	}
	value := *reading.Temperature
	severity, ok := severityForBands(
		value < temperatureCriticalLow || value > temperatureCriticalHigh,
		value < temperatureWarningLow || value > temperatureWarningHigh,
	)
	if !ok {
		return RuleResult{}, false
	}
	return RuleResult{
		Severity:    severity,
		AlertType:   TypeTemperature,
		MessageKey:  messageKey(severity, "temperature", direction(value, temperaturePivot)),
		RequiresAck: severity == SeverityCritical,
	}, true
}

func (TemperatureRule) Supports(alertType string) bool {
	return alertType == TypeTemperature
}

func (TemperatureRule) Priority() int { return 7 }

func (TemperatureRule) Describe() string {
	return "Monitors body temperature for hypothermia and fever"
}
