package alerts

import (
	vitals "vitalwatch/internal/vitals/domain"
)

// Oxygen saturation thresholds (percent).
const (
	oxygenCriticalBelow = 92
	oxygenWarningBelow  = 94
)

// OxygenSaturationRule flags hypoxemia. Critical below 92%, warning below
// 94%.
type OxygenSaturationRule struct{}

func (OxygenSaturationRule) Evaluate(reading vitals.Reading, _ string) (RuleResult, bool) {
	if reading.OxygenSaturation == nil {
		return RuleResult{}, false
	}
	value := *reading.OxygenSaturation
	severity, ok := severityForBands(value < oxygenCriticalBelow, value < oxygenWarningBelow)
	if !ok {
		return RuleResult{}, false
	}
	return RuleResult{
		Severity:    severity,
		AlertType:   TypeOxygenSaturation,
		MessageKey:  messageKey(severity, "oxygen.saturation", ""),
		RequiresAck: severity == SeverityCritical,
	}, true
}

func (OxygenSaturationRule) Supports(alertType string) bool {
	return alertType == TypeOxygenSaturation
}

func (OxygenSaturationRule) Priority() int { return 10 }

func (OxygenSaturationRule) Describe() string {
	return "Monitors oxygen saturation levels for critical and warning thresholds"
}
