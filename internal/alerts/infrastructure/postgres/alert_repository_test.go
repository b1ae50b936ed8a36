package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	alerts "vitalwatch/internal/alerts/domain"
)

var alertColumns = []string{
	"id", "patient_id", "severity", "alert_type", "message_key", "triggered_at",
	"acknowledged_at", "acknowledged_by", "status", "requires_acknowledgment",
	"created_at", "updated_at",
}

func TestSaveInsertsAlert(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectExec("INSERT INTO alerts").
		WithArgs("a1", "p1", alerts.SeverityCritical, alerts.TypeHeartRate,
			"alert.critical.heart_rate.high", now,
			sqlmock.AnyArg(), sqlmock.AnyArg(), alerts.StatusActive, true,
			now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewAlertRepository(db)
	err = repo.Save(context.Background(), &alerts.Alert{
		ID:          "a1",
		PatientID:   "p1",
		Severity:    alerts.SeverityCritical,
		AlertType:   alerts.TypeHeartRate,
		MessageKey:  "alert.critical.heart_rate.high",
		TriggeredAt: now,
		Status:      alerts.StatusActive,
		RequiresAck: true,
		CreatedAt:   now,
		UpdatedAt:   now,
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByIDMapsMissingRow(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM alerts").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(alertColumns))

	repo := NewAlertRepository(db)
	_, err = repo.FindByID(context.Background(), "missing")

	require.ErrorIs(t, err, alerts.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindActiveScansRows(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	now := time.Now().UTC()
	rows := sqlmock.NewRows(alertColumns).
		AddRow("a1", "p1", alerts.SeverityCritical, alerts.TypeOxygenSaturation,
			"alert.critical.oxygen.saturation", now, nil, nil, alerts.StatusActive, true, now, now).
		AddRow("a2", "p2", alerts.SeverityWarning, alerts.TypeHeartRate,
			"alert.warning.heart_rate.high", now.Add(-time.Minute), nil, nil, alerts.StatusActive, false, now, now)
	mock.ExpectQuery("SELECT (.+) FROM alerts").
		WithArgs(alerts.StatusActive).
		WillReturnRows(rows)

	repo := NewAlertRepository(db)
	active, err := repo.FindActive(context.Background())

	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "a1", active[0].ID)
	assert.Empty(t, active[0].AcknowledgedBy)
	assert.True(t, active[0].AcknowledgedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkAcknowledgedWritesAuditEntry(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	at := time.Now().UTC()
	mock.ExpectExec("UPDATE alerts").
		WithArgs(alerts.StatusAcknowledged, at, "nurse.jones", "a1", alerts.StatusActive).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO audit_logs").
		WithArgs(sqlmock.AnyArg(), "nurse.jones", "", "alert.acknowledge", "alert", "a1", "",
			sqlmock.AnyArg(), sqlmock.AnyArg(), "", "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewAlertRepository(db)
	won, err := repo.MarkAcknowledged(context.Background(), "a1", "nurse.jones", at)

	require.NoError(t, err)
	assert.True(t, won)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkAcknowledgedAlreadyAcknowledgedSkipsAudit(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	at := time.Now().UTC()
	mock.ExpectExec("UPDATE alerts").
		WithArgs(alerts.StatusAcknowledged, at, "nurse.jones", "a1", alerts.StatusActive).
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewAlertRepository(db)
	won, err := repo.MarkAcknowledged(context.Background(), "a1", "nurse.jones", at)

	require.NoError(t, err)
	assert.False(t, won)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountActiveBySeverity(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT COUNT").
		WithArgs(alerts.StatusActive, alerts.SeverityCritical).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(3)))

	repo := NewAlertRepository(db)
	count, err := repo.CountActiveBySeverity(context.Background(), alerts.SeverityCritical)

	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
