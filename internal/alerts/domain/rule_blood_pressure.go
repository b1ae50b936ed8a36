package alerts

import (
	vitals "vitalwatch/internal/vitals/domain"
)

// Systolic blood pressure thresholds (mmHg).
const (
	systolicCriticalLow  = 90
	systolicCriticalHigh = 180
	systolicWarningLow   = 100
	systolicWarningHigh  = 140
	systolicPivot        = 120
)

// BloodPressureRule flags hypotension and hypertensive crisis on the
// systolic observation.
type BloodPressureRule struct{}

func (BloodPressureRule) Evaluate(reading vitals.Reading, _ string) (RuleResult, bool) {
	if reading.SystolicBP == nil {
		return RuleResult{}, false
	}
	value := *reading.SystolicBP
	severity, ok := severityForBands(
		value < systolicCriticalLow || value > systolicCriticalHigh,
		value < systolicWarningLow || value > systolicWarningHigh,
	)
	if !ok {
		return RuleResult{}, false
	}
	return RuleResult{
		Severity:    severity,
		AlertType:   TypeBloodPressure,
		MessageKey:  messageKey(severity, "blood_pressure", direction(value, systolicPivot)),
		RequiresAck: severity == SeverityCritical,
	}, true
}

func (BloodPressureRule) Supports(alertType string) bool {
	return alertType == TypeBloodPressure
}

func (BloodPressureRule) Priority() int { return 8 }

func (BloodPressureRule) Describe() string {
	return "Monitors systolic blood pressure for hypotension and hypertension"
}
