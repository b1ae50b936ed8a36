package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	vitals "vitalwatch/internal/vitals/domain"
)

// ReadingRepository is a Postgres repository for vital-sign readings.
type ReadingRepository struct {
	db *sql.DB
}

// NewReadingRepository constructs a repository.
func NewReadingRepository(db *sql.DB) *ReadingRepository {
	return &ReadingRepository{db: db}
}

// Save inserts a reading. Readings are append-only.
func (r *ReadingRepository) Save(ctx context.Context, reading *vitals.Reading) error {
	if r == nil || r.db == nil {
		return errors.New("reading repo: nil db")
	}
	if reading == nil {
		return errors.New("reading repo: nil reading")
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO vital_sign_readings (
	id, patient_id, heart_rate, oxygen_saturation, systolic_bp, diastolic_bp,
	temperature, respiratory_rate, source, recorded_at, created_at
) VALUES (
	$1, $2, $3, $4, $5, $6,
	$7, $8, $9, $10, $11
)`,
		reading.ID, reading.PatientID,
		nullFloat(reading.HeartRate), nullFloat(reading.OxygenSaturation),
		nullFloat(reading.SystolicBP), nullFloat(reading.DiastolicBP),
		nullFloat(reading.Temperature), nullFloat(reading.RespiratoryRate),
		reading.Source, reading.Timestamp, reading.CreatedAt)
	return err
}

// FindByPatient returns all readings for a patient, newest first.
func (r *ReadingRepository) FindByPatient(ctx context.Context, patientID string) ([]vitals.Reading, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("reading repo: nil db")
	}
	if patientID == "" {
		return nil, errors.New("reading repo: invalid query")
	}
	return r.query(ctx, `
SELECT id, patient_id, heart_rate, oxygen_saturation, systolic_bp, diastolic_bp,
	temperature, respiratory_rate, source, recorded_at, created_at
FROM vital_sign_readings
WHERE patient_id = $1
ORDER BY recorded_at DESC`, patientID)
}

// FindSince returns readings for a patient recorded at or after the cutoff,
// newest first.
func (r *ReadingRepository) FindSince(ctx context.Context, patientID string, since time.Time) ([]vitals.Reading, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("reading repo: nil db")
	}
	if patientID == "" {
		return nil, errors.New("reading repo: invalid query")
	}
	return r.query(ctx, `
SELECT id, patient_id, heart_rate, oxygen_saturation, systolic_bp, diastolic_bp,
	temperature, respiratory_rate, source, recorded_at, created_at
FROM vital_sign_readings
WHERE patient_id = $1 AND recorded_at >= $2
ORDER BY recorded_at DESC`, patientID, since.UTC())
}

func (r *ReadingRepository) query(ctx context.Context, query string, args ...any) ([]vitals.Reading, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []vitals.Reading
	for rows.Next() {
		var reading vitals.Reading
		var hr, spo2, sys, dia, temp, resp sql.NullFloat64
		if err := rows.Scan(
			&reading.ID,
			&reading.PatientID,
			&hr,
			&spo2,
			&sys,
			&dia,
			&temp,
			&resp,
			&reading.Source,
			&reading.Timestamp,
			&reading.CreatedAt,
		); err != nil {
			return nil, err
		}
		reading.HeartRate = floatPtr(hr)
		reading.OxygenSaturation = floatPtr(spo2)
		reading.SystolicBP = floatPtr(sys)
		reading.DiastolicBP = floatPtr(dia)
		reading.Temperature = floatPtr(temp)
		reading.RespiratoryRate = floatPtr(resp)
		reading.Timestamp = reading.Timestamp.UTC()
		reading.CreatedAt = reading.CreatedAt.UTC()
		result = append(result, reading)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	value := v.Float64
	return &value
}
