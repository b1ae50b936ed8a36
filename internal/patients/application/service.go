package application

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	patients "vitalwatch/internal/patients/domain"
)

// Clock provides time.
type Clock interface {
	Now() time.Time
}

// Service manages the patient directory.
type Service struct {
	repo  patients.PatientRepository
	clock Clock
	newID func() string
}

// ServiceOption customizes the patient service.
type ServiceOption func(*Service)

// WithClock assigns a clock.
func WithClock(clock Clock) ServiceOption {
	return func(s *Service) {
		s.clock = clock
	}
}

// WithIDFactory assigns an id generator.
func WithIDFactory(f func() string) ServiceOption {
	return func(s *Service) {
		s.newID = f
	}
}

// NewService constructs a patient service.
func NewService(repo patients.PatientRepository, opts ...ServiceOption) (*Service, error) {
	if repo == nil {
		return nil, errors.New("patients: nil repository")
	}
	service := &Service{
		repo:  repo,
		clock: systemClock{},
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// Register admits a new patient. Unset condition type and status fall back
// to defaults.
func (s *Service) Register(ctx context.Context, p *patients.Patient) (*patients.Patient, error) {
	if s == nil {
		return nil, errors.New("patients: nil service")
	}
	if p == nil {
		return nil, errors.New("patients: nil patient")
	}
	if p.MRN == "" {
		return nil, errors.New("patients: mrn required")
	}
	if p.LastName == "" {
		return nil, errors.New("patients: last name required")
	}
	now := s.clock.Now().UTC()
	registered := *p
	if registered.ID == "" {
		registered.ID = s.newID()
	}
	if registered.ConditionType == "" {
		registered.ConditionType = patients.ConditionAdultResting
	}
	if registered.Status == "" {
		registered.Status = patients.StatusAdmitted
	}
	registered.CreatedAt = now
	registered.UpdatedAt = now
	if err := s.repo.Save(ctx, &registered); err != nil {
		return nil, err
	}
	return &registered, nil
}

// Get returns a patient by id.
func (s *Service) Get(ctx context.Context, id string) (*patients.Patient, error) {
	if s == nil {
		return nil, errors.New("patients: nil service")
	}
	if id == "" {
		return nil, errors.New("patients: patient id required")
	}
	return s.repo.FindByID(ctx, id)
}

// List returns all patients.
func (s *Service) List(ctx context.Context) ([]*patients.Patient, error) {
	if s == nil {
		return nil, errors.New("patients: nil service")
	}
	return s.repo.FindAll(ctx)
}

// ConditionType resolves the rule profile for a patient. Unknown patients
// return ErrNotFound; a patient without an assigned profile falls back to
// the adult resting default.
func (s *Service) ConditionType(ctx context.Context, patientID string) (string, error) {
	if s == nil {
		return "", errors.New("patients: nil service")
	}
	patient, err := s.repo.FindByID(ctx, patientID)
	if err != nil {
		return "", err
	}
	if patient.ConditionType == "" {
		return patients.ConditionAdultResting, nil
	}
	return patient.ConditionType, nil
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }
