package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	alerts "vitalwatch/internal/alerts/domain"
	"vitalwatch/internal/audit"
	"vitalwatch/internal/auth"
)

// AlertRepository is a Postgres repository for alerts.
type AlertRepository struct {
	db *sql.DB
}

// NewAlertRepository constructs a repository.
func NewAlertRepository(db *sql.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

// Save inserts an alert.
func (r *AlertRepository) Save(ctx context.Context, alert *alerts.Alert) error {
	if r == nil || r.db == nil {
		return errors.New("alert repo: nil db")
	}
	if alert == nil {
		return errors.New("alert repo: nil alert")
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO alerts (
	id, patient_id, severity, alert_type, message_key, triggered_at,
	acknowledged_at, acknowledged_by, status, requires_acknowledgment,
	created_at, updated_at
) VALUES (
	$1, $2, $3, $4, $5, $6,
	$7, $8, $9, $10,
	$11, $12
)`,
		alert.ID, alert.PatientID, alert.Severity, alert.AlertType, alert.MessageKey, alert.TriggeredAt,
		nullTime(alert.AcknowledgedAt), nullString(alert.AcknowledgedBy), alert.Status, alert.RequiresAck,
		alert.CreatedAt, alert.UpdatedAt)
	return err
}

// FindByID loads an alert by id.
func (r *AlertRepository) FindByID(ctx context.Context, id string) (*alerts.Alert, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("alert repo: nil db")
	}
	if id == "" {
		return nil, errors.New("alert repo: invalid query")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT id, patient_id, severity, alert_type, message_key, triggered_at,
	acknowledged_at, acknowledged_by, status, requires_acknowledgment,
	created_at, updated_at
FROM alerts
WHERE id = $1
LIMIT 1`, id)
	alert, err := scanAlert(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, alerts.ErrNotFound
		}
		return nil, err
	}
	return alert, nil
}

// FindActive returns unacknowledged alerts, most recent first.
func (r *AlertRepository) FindActive(ctx context.Context) ([]alerts.Alert, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("alert repo: nil db")
	}
	return r.query(ctx, `
SELECT id, patient_id, severity, alert_type, message_key, triggered_at,
	acknowledged_at, acknowledged_by, status, requires_acknowledgment,
	created_at, updated_at
FROM alerts
WHERE status = $1
ORDER BY triggered_at DESC`, alerts.StatusActive)
}

// FindByPatient returns every alert for one patient, most recent first.
func (r *AlertRepository) FindByPatient(ctx context.Context, patientID string) ([]alerts.Alert, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("alert repo: nil db")
	}
	if patientID == "" {
		return nil, errors.New("alert repo: invalid query")
	}
	return r.query(ctx, `
SELECT id, patient_id, severity, alert_type, message_key, triggered_at,
	acknowledged_at, acknowledged_by, status, requires_acknowledgment,
	created_at, updated_at
FROM alerts
WHERE patient_id = $1
ORDER BY triggered_at DESC`, patientID)
}

// CountActiveBySeverity counts unacknowledged alerts of one severity.
func (r *AlertRepository) CountActiveBySeverity(ctx context.Context, severity string) (int64, error) {
	if r == nil || r.db == nil {
		return 0, errors.New("alert repo: nil db")
	}
	var count int64
	err := r.db.QueryRowContext(ctx, `
SELECT COUNT(*)
FROM alerts
WHERE status = $1 AND severity = $2`, alerts.StatusActive, severity).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// MarkAcknowledged transitions an active alert to acknowledged. The
// conditional UPDATE makes concurrent acknowledgments race safely; the
// returned bool reports whether this call won, and only the winner leaves
// an audit entry.
func (r *AlertRepository) MarkAcknowledged(ctx context.Context, id, acknowledgedBy string, at time.Time) (bool, error) {
	if r == nil || r.db == nil {
		return false, errors.New("alert repo: nil db")
	}
	if id == "" {
		return false, errors.New("alert repo: invalid query")
	}
	result, err := r.db.ExecContext(ctx, `
UPDATE alerts
SET status = $1, acknowledged_at = $2, acknowledged_by = $3, updated_at = $2
WHERE id = $4 AND status = $5`,
		alerts.StatusAcknowledged, at.UTC(), acknowledgedBy, id, alerts.StatusActive)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected == 0 {
		return false, nil
	}
	logAcknowledgmentAudit(ctx, r.db, id, acknowledgedBy, at)
	return true, nil
}

func (r *AlertRepository) query(ctx context.Context, query string, args ...any) ([]alerts.Alert, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []alerts.Alert
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *alert)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAlert(row rowScanner) (*alerts.Alert, error) {
	var alert alerts.Alert
	var ackedAt sql.NullTime
	var ackedBy sql.NullString
	if err := row.Scan(
		&alert.ID,
		&alert.PatientID,
		&alert.Severity,
		&alert.AlertType,
		&alert.MessageKey,
		&alert.TriggeredAt,
		&ackedAt,
		&ackedBy,
		&alert.Status,
		&alert.RequiresAck,
		&alert.CreatedAt,
		&alert.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if ackedAt.Valid {
		alert.AcknowledgedAt = ackedAt.Time.UTC()
	}
	alert.AcknowledgedBy = ackedBy.String
	alert.TriggeredAt = alert.TriggeredAt.UTC()
	alert.CreatedAt = alert.CreatedAt.UTC()
	alert.UpdatedAt = alert.UpdatedAt.UTC()
	return &alert, nil
}

func logAcknowledgmentAudit(ctx context.Context, db *sql.DB, alertID, acknowledgedBy string, at time.Time) {
	if db == nil {
		return
	}
	actor := auth.SubjectFromContext(ctx)
	if actor == "" {
		actor = acknowledgedBy
	}
	meta, _ := json.Marshal(map[string]any{
		"acknowledged_by": acknowledgedBy,
		"acknowledged_at": at.UTC(),
	})
	repo := audit.NewRepository(db)
	if repo == nil {
		return
	}
	_ = repo.Log(ctx, audit.Entry{
		Actor:        actor,
		Role:         string(auth.RoleFromContext(ctx)),
		Action:       "alert.acknowledge",
		ResourceType: "alert",
		ResourceID:   alertID,
		Metadata:     meta,
		CreatedAt:    time.Now().UTC(),
	})
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
