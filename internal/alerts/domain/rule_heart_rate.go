package alerts

import (
	vitals "vitalwatch/internal/vitals/domain"
)

// Heart rate thresholds (bpm). The 100 bpm pivot only picks the message-key
// direction; it is not an alerting threshold.
const (
	heartRateCriticalLow  = 50
	heartRateCriticalHigh = 130
	heartRateWarningLow   = 60
	heartRateWarningHigh  = 110
	heartRatePivot        = 100
)

// HeartRateRule flags tachycardia and bradycardia.
type HeartRateRule struct{}

func (HeartRateRule) Evaluate(reading vitals.Reading, _ string) (RuleResult, bool) {
	if reading.HeartRate == nil {
		return RuleResult{}, false
	}
	value := *reading.HeartRate
	severity, ok := severityForBands(
		value < heartRateCriticalLow || value > heartRateCriticalHigh,
		value < heartRateWarningLow || value > heartRateWarningHigh,
	)
	if !ok {
		return RuleResult{}, false
	}
	return RuleResult{
		Severity:    severity,
		AlertType:   TypeHeartRate,
		MessageKey:  messageKey(severity, "heart_rate", direction(value, heartRatePivot)),
		RequiresAck: severity == SeverityCritical,
	}, true
}

func (HeartRateRule) Supports(alertType string) bool {
	return alertType == TypeHeartRate
}

func (HeartRateRule) Priority() int { return 9 }

func (HeartRateRule) Describe() string {
	return "Monitors heart rate for tachycardia and bradycardia conditions"
}
