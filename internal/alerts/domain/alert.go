package alerts

import (
	"context"
	"time"
)

const (
	SeverityCritical = "CRITICAL"
	SeverityWarning  = "WARNING"
	SeverityInfo     = "INFO"
)

const (
	StatusActive       = "ACTIVE"
	StatusAcknowledged = "ACKNOWLEDGED"
	// StatusResolved exists in the schema but no code path transitions into
	// it; reserved for a future resolution workflow.
	StatusResolved = "RESOLVED"
)

// Alert is a generated notification with an acknowledgment lifecycle.
// Severity and type are fixed at creation; only the status and
// acknowledgment fields mutate afterwards. Alerts are never deleted.
type Alert struct {
	ID             string    `json:"id"`
	PatientID      string    `json:"patient_id"`
	Severity       string    `json:"severity"`
	AlertType      string    `json:"alert_type"`
	MessageKey     string    `json:"message_key"`
	TriggeredAt    time.Time `json:"triggered_at"`
	AcknowledgedAt time.Time `json:"acknowledged_at,omitempty"`
	AcknowledgedBy string    `json:"acknowledged_by,omitempty"`
	Status         string    `json:"status"`
	RequiresAck    bool      `json:"requires_acknowledgment"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// AlertRepository persists alerts and serves the lifecycle queries.
type AlertRepository interface {
	Save(ctx context.Context, alert *Alert) error
	FindByID(ctx context.Context, id string) (*Alert, error)
	FindActive(ctx context.Context) ([]Alert, error)
	FindByPatient(ctx context.Context, patientID string) ([]Alert, error)
	CountActiveBySeverity(ctx context.Context, severity string) (int64, error)
	// MarkAcknowledged transitions an active alert to acknowledged. The
	// returned bool reports whether this call performed the transition;
	// false means another acknowledger already claimed the alert.
	MarkAcknowledged(ctx context.Context, id, acknowledgedBy string, at time.Time) (bool, error)
}
