package alerts

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vitals "vitalwatch/internal/vitals/domain"
)

func f(v float64) *float64 { return &v }

func testEngine(t *testing.T, rules []Rule) *Engine {
	t.Helper()
	seq := 0
	return NewEngine(rules, nil,
		WithEngineClock(func() time.Time { return time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC) }),
		WithEngineIDFactory(func() string {
			seq++
			return "alert-" + strconv.Itoa(seq)
		}),
	)
}

func TestEvaluateAbstainsWhenAllObservationsAbsent(t *testing.T) {
	engine := testEngine(t, DefaultRules())

	alerts := engine.Evaluate(vitals.Reading{ID: "r1", PatientID: "p1"}, "ADULT_RESTING")

	assert.Empty(t, alerts)
}

func TestEvaluateCriticalOxygenSaturation(t *testing.T) {
	engine := testEngine(t, DefaultRules())

	alerts := engine.Evaluate(vitals.Reading{
		ID:               "r1",
		PatientID:        "p1",
		OxygenSaturation: f(89.5),
	}, "ADULT_RESTING")

	require.Len(t, alerts, 1)
	alert := alerts[0]
	assert.Equal(t, "p1", alert.PatientID)
	assert.Equal(t, SeverityCritical, alert.Severity)
	assert.Equal(t, TypeOxygenSaturation, alert.AlertType)
	assert.Equal(t, "alert.critical.oxygen.saturation", alert.MessageKey)
	assert.Equal(t, StatusActive, alert.Status)
	assert.True(t, alert.RequiresAck)
	assert.False(t, alert.TriggeredAt.IsZero())
}

func TestEvaluateWarningOxygenSaturation(t *testing.T) {
	engine := testEngine(t, DefaultRules())

	alerts := engine.Evaluate(vitals.Reading{
		ID:               "r1",
		PatientID:        "p1",
		OxygenSaturation: f(93.5),
	}, "ADULT_RESTING")

	require.Len(t, alerts, 1)
	assert.Equal(t, SeverityWarning, alerts[0].Severity)
	assert.Equal(t, "alert.warning.oxygen.saturation", alerts[0].MessageKey)
	assert.False(t, alerts[0].RequiresAck)
}

func TestEvaluateHeartRateDirections(t *testing.T) {
	cases := []struct {
		name     string
		value    float64
		severity string
		key      string
	}{
		{"critical high", 135, SeverityCritical, "alert.critical.heart_rate.high"},
		{"critical low", 45, SeverityCritical, "alert.critical.heart_rate.low"},
		{"warning high", 115, SeverityWarning, "alert.warning.heart_rate.high"},
		{"warning low", 55, SeverityWarning, "alert.warning.heart_rate.low"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			engine := testEngine(t, DefaultRules())
			alerts := engine.Evaluate(vitals.Reading{
				ID:        "r1",
				PatientID: "p1",
				HeartRate: f(tc.value),
			}, "ADULT_RESTING")

			require.Len(t, alerts, 1)
			assert.Equal(t, tc.severity, alerts[0].Severity)
			assert.Equal(t, TypeHeartRate, alerts[0].AlertType)
			assert.Equal(t, tc.key, alerts[0].MessageKey)
		})
	}
}

func TestEvaluateNormalReadingRaisesNothing(t *testing.T) {
	engine := testEngine(t, DefaultRules())

	alerts := engine.Evaluate(vitals.Reading{
		ID:               "r1",
		PatientID:        "p1",
		HeartRate:        f(72),
		OxygenSaturation: f(98),
		SystolicBP:       f(118),
		DiastolicBP:      f(76),
		Temperature:      f(36.8),
		RespiratoryRate:  f(16),
	}, "ADULT_RESTING")

	assert.Empty(t, alerts)
}

func TestEvaluateMultipleRulesFire(t *testing.T) {
	engine := testEngine(t, DefaultRules())

	alerts := engine.Evaluate(vitals.Reading{
		ID:               "r1",
		PatientID:        "p1",
		HeartRate:        f(140),
		OxygenSaturation: f(88),
		SystolicBP:       f(85),
	}, "POST_SURGERY")

	require.Len(t, alerts, 3)
	// Registration order, not priority order.
	assert.Equal(t, TypeOxygenSaturation, alerts[0].AlertType)
	assert.Equal(t, TypeHeartRate, alerts[1].AlertType)
	assert.Equal(t, TypeBloodPressure, alerts[2].AlertType)
}

type panicRule struct{}

func (panicRule) Evaluate(vitals.Reading, string) (RuleResult, bool) {
	panic("boom")
}
func (panicRule) Supports(string) bool { return false }
func (panicRule) Priority() int        { return 0 }
func (panicRule) Describe() string     { return "always panics" }

func TestEvaluatePanickingRuleDoesNotSuppressOthers(t *testing.T) {
	engine := testEngine(t, []Rule{panicRule{}, OxygenSaturationRule{}})

	alerts := engine.Evaluate(vitals.Reading{
		ID:               "r1",
		PatientID:        "p1",
		OxygenSaturation: f(90),
	}, "ADULT_RESTING")

	require.Len(t, alerts, 1)
	assert.Equal(t, TypeOxygenSaturation, alerts[0].AlertType)
}

func TestBloodPressureEvaluatesSystolicOnly(t *testing.T) {
	engine := testEngine(t, []Rule{BloodPressureRule{}})

	alerts := engine.Evaluate(vitals.Reading{
		ID:         "r1",
		PatientID:  "p1",
		SystolicBP: f(185),
	}, "CARDIAC")

	require.Len(t, alerts, 1)
	assert.Equal(t, SeverityCritical, alerts[0].Severity)
	assert.Equal(t, "alert.critical.blood_pressure.high", alerts[0].MessageKey)
}
