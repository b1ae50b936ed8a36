package vitals

import (
	"context"
	"time"
)

const (
	SourceManual    = "MANUAL"
	SourceMonitor   = "MONITOR"
	SourceIoTDevice = "IOT_DEVICE"
)

// Physiologically plausible bounds. Values outside these are malformed
// input and rejected before persistence; values inside may still trip
// alerting thresholds, which is a different concern.
const (
	HeartRateMin       = 30
	HeartRateMax       = 250
	OxygenMin          = 70
	OxygenMax          = 100
	TemperatureMin     = 32
	TemperatureMax     = 45
	RespiratoryRateMin = 8
	RespiratoryRateMax = 60
)

// Reading is a normalized vital-sign snapshot for one patient at one point
// in time. Immutable once created; absent observations are nil and rules
// that need them abstain.
type Reading struct {
	ID               string    `json:"id"`
	PatientID        string    `json:"patient_id"`
	HeartRate        *float64  `json:"heart_rate,omitempty"`
	OxygenSaturation *float64  `json:"oxygen_saturation,omitempty"`
	SystolicBP       *float64  `json:"systolic_bp,omitempty"`
	DiastolicBP      *float64  `json:"diastolic_bp,omitempty"`
	Temperature      *float64  `json:"temperature,omitempty"`
	RespiratoryRate  *float64  `json:"respiratory_rate,omitempty"`
	Source           string    `json:"source"`
	Timestamp        time.Time `json:"timestamp"`
	CreatedAt        time.Time `json:"created_at"`
}

// ReadingInput is the submission payload shared by the HTTP surface, the
// device consumer and the load simulator.
type ReadingInput struct {
	PatientID        string   `json:"patient_id"`
	HeartRate        *float64 `json:"heart_rate,omitempty"`
	OxygenSaturation *float64 `json:"oxygen_saturation,omitempty"`
	SystolicBP       *float64 `json:"systolic_bp,omitempty"`
	DiastolicBP      *float64 `json:"diastolic_bp,omitempty"`
	Temperature      *float64 `json:"temperature,omitempty"`
	RespiratoryRate  *float64 `json:"respiratory_rate,omitempty"`
	Source           string   `json:"source,omitempty"`
}

// ToReading materializes an immutable Reading from the input.
func (in ReadingInput) ToReading(id string, at time.Time) Reading {
	source := in.Source
	if !ValidSource(source) {
		source = SourceMonitor
	}
	return Reading{
		ID:               id,
		PatientID:        in.PatientID,
		HeartRate:        in.HeartRate,
		OxygenSaturation: in.OxygenSaturation,
		SystolicBP:       in.SystolicBP,
		DiastolicBP:      in.DiastolicBP,
		Temperature:      in.Temperature,
		RespiratoryRate:  in.RespiratoryRate,
		Source:           source,
		Timestamp:        at.UTC(),
		CreatedAt:        at.UTC(),
	}
}

// Validate checks the plausibility bounds on every present observation.
func (in ReadingInput) Validate() error {
	if in.PatientID == "" {
		return &ValidationError{Field: "patient_id", Reason: "required"}
	}
	if in.HeartRate != nil && (*in.HeartRate < HeartRateMin || *in.HeartRate > HeartRateMax) {
		return &ValidationError{Field: "heart_rate", Reason: "must be between 30 and 250 bpm"}
	}
	if in.OxygenSaturation != nil && (*in.OxygenSaturation < OxygenMin || *in.OxygenSaturation > OxygenMax) {
		return &ValidationError{Field: "oxygen_saturation", Reason: "must be between 70% and 100%"}
	}
	if in.Temperature != nil && (*in.Temperature < TemperatureMin || *in.Temperature > TemperatureMax) {
		return &ValidationError{Field: "temperature", Reason: "must be between 32°C and 45°C"}
	}
	if in.RespiratoryRate != nil && (*in.RespiratoryRate < RespiratoryRateMin || *in.RespiratoryRate > RespiratoryRateMax) {
		return &ValidationError{Field: "respiratory_rate", Reason: "must be between 8 and 60 breaths per minute"}
	}
	return nil
}

// ValidSource returns true for a known reading source.
func ValidSource(source string) bool {
	switch source {
	case SourceManual, SourceMonitor, SourceIoTDevice:
		return true
	default:
		return false
	}
}

// ReadingRepository persists vital-sign readings. Readings are append-only
// and retained indefinitely.
type ReadingRepository interface {
	Save(ctx context.Context, reading *Reading) error
	FindByPatient(ctx context.Context, patientID string) ([]Reading, error)
	FindSince(ctx context.Context, patientID string, since time.Time) ([]Reading, error)
}
