package alerts

import (
	vitals "vitalwatch/internal/vitals/domain"
)

// Respiratory rate thresholds (breaths per minute). Ingestion validation
// already rejects values outside 8..60, so the bands here sit inside that
// operative range.
const (
	respiratoryCriticalLow  = 10
	respiratoryCriticalHigh = 30
	respiratoryWarningLow   = 12
	respiratoryWarningHigh  = 20
	respiratoryPivot        = 20
)

// RespiratoryRateRule flags bradypnea and tachypnea.
type RespiratoryRateRule struct{}

func (RespiratoryRateRule) Evaluate(reading vitals.Reading, _ string) (RuleResult, bool) {
	if reading.RespiratoryRate == nil {
		return RuleResult{}, false
	}
	value := *reading.RespiratoryRate
	severity, ok := severityForBands(
		value < respiratoryCriticalLow || value > respiratoryCriticalHigh,
		value < respiratoryWarningLow || value > respiratoryWarningHigh,
	)
	if !ok {
		return RuleResult{}, false
	}
	return RuleResult{
		Severity:    severity,
		AlertType:   TypeRespiratoryRate,
		MessageKey:  messageKey(severity, "respiratory_rate", direction(value, respiratoryPivot)),
		RequiresAck: severity == SeverityCritical,
	}, true
}

func (RespiratoryRateRule) Supports(alertType string) bool {
	return alertType == TypeRespiratoryRate
}

func (RespiratoryRateRule) Priority() int { return 6 }

func (RespiratoryRateRule) Describe() string {
	return "Monitors respiratory rate for bradypnea and tachypnea"
}
