package postgres

import (
	"context"
	"database/sql"
	"errors"

	patients "vitalwatch/internal/patients/domain"
)

// PatientRepository is a Postgres repository for patient records.
type PatientRepository struct {
	db *sql.DB
}

// NewPatientRepository constructs a repository.
func NewPatientRepository(db *sql.DB) *PatientRepository {
	return &PatientRepository{db: db}
}

// Save upserts a patient by id.
func (r *PatientRepository) Save(ctx context.Context, p *patients.Patient) error {
	if r == nil || r.db == nil {
		return errors.New("patient repo: nil db")
	}
	if p == nil {
		return errors.New("patient repo: nil patient")
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO patients (
	id, mrn, first_name, last_name, date_of_birth, gender,
	condition_type, room, status, created_at, updated_at
) VALUES (
	$1, $2, $3, $4, $5, $6,
	$7, $8, $9, $10, $11
)
ON CONFLICT (id) DO UPDATE SET
	mrn = EXCLUDED.mrn,
	first_name = EXCLUDED.first_name,
	last_name = EXCLUDED.last_name,
	date_of_birth = EXCLUDED.date_of_birth,
	gender = EXCLUDED.gender,
	condition_type = EXCLUDED.condition_type,
	room = EXCLUDED.room,
	status = EXCLUDED.status,
	updated_at = EXCLUDED.updated_at`,
		p.ID, p.MRN, p.FirstName, p.LastName, p.DateOfBirth, p.Gender,
		p.ConditionType, p.Room, p.Status, p.CreatedAt, p.UpdatedAt)
	return err
}

// FindByID loads a patient by id.
func (r *PatientRepository) FindByID(ctx context.Context, id string) (*patients.Patient, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("patient repo: nil db")
	}
	if id == "" {
		return nil, errors.New("patient repo: invalid query")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT id, mrn, first_name, last_name, date_of_birth, gender,
	condition_type, room, status, created_at, updated_at
FROM patients
WHERE id = $1
LIMIT 1`, id)
	patient, err := scanPatient(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, patients.ErrNotFound
		}
		return nil, err
	}
	return patient, nil
}

// FindAll returns every patient ordered by last name.
func (r *PatientRepository) FindAll(ctx context.Context) ([]*patients.Patient, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("patient repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT id, mrn, first_name, last_name, date_of_birth, gender,
	condition_type, room, status, created_at, updated_at
FROM patients
ORDER BY last_name ASC, first_name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*patients.Patient
	for rows.Next() {
		patient, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, patient)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPatient(row rowScanner) (*patients.Patient, error) {
	var p patients.Patient
	var gender, room sql.NullString
	if err := row.Scan(
		&p.ID,
		&p.MRN,
		&p.FirstName,
		&p.LastName,
		&p.DateOfBirth,
		&gender,
		&p.ConditionType,
		&room,
		&p.Status,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	p.Gender = gender.String
	p.Room = room.String
	p.DateOfBirth = p.DateOfBirth.UTC()
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return &p, nil
}
