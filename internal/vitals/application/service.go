package application

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"vitalwatch/internal/eventbus"
	"vitalwatch/internal/observability/metrics"
	vitals "vitalwatch/internal/vitals/domain"
)

// PatientDirectory resolves monitored patients. ConditionType returns the
// rule profile for a patient or the patients domain ErrNotFound.
type PatientDirectory interface {
	ConditionType(ctx context.Context, patientID string) (string, error)
}

// AlertEvaluator runs the rule engine over a persisted reading.
type AlertEvaluator interface {
	EvaluateReading(ctx context.Context, reading *vitals.Reading, conditionType string) error
}

// Clock provides time.
type Clock interface {
	Now() time.Time
}

// Service owns the reading ingestion pipeline: validate, gate on the
// patient directory, persist, publish, evaluate.
type Service struct {
	readings  vitals.ReadingRepository
	directory PatientDirectory
	evaluator AlertEvaluator
	bus       eventbus.Bus
	logger    *zap.Logger
	clock     Clock
	newID     func() string
}

// ServiceOption customizes the vitals service.
type ServiceOption func(*Service)

// WithBus assigns an event bus. Without one, readings are persisted and
// evaluated but not published.
func WithBus(bus eventbus.Bus) ServiceOption {
	return func(s *Service) {
		s.bus = bus
	}
}

// WithEvaluator assigns the alert evaluator.
func WithEvaluator(evaluator AlertEvaluator) ServiceOption {
	return func(s *Service) {
		s.evaluator = evaluator
	}
}

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

// NewService constructs a vitals service.
func NewService(readings vitals.ReadingRepository, directory PatientDirectory, logger *zap.Logger, opts ...ServiceOption) (*Service, error) {
	if readings == nil {
		return nil, errors.New("vitals: nil reading repository")
	}
	if directory == nil {
		return nil, errors.New("vitals: nil patient directory")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	service := &Service{
		readings:  readings,
		directory: directory,
		logger:    logger,
		clock:     systemClock{},
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// SubmitReading runs the full ingestion pipeline for one reading. The
// reading is validated and gated on the patient directory before anything
// is written. A publish failure does not fail the submission; an evaluator
// failure is reported to the caller with the reading already persisted.
func (s *Service) SubmitReading(ctx context.Context, input vitals.ReadingInput) (*vitals.Reading, error) {
	if s == nil {
		return nil, errors.New("vitals: nil service")
	}
	started := s.clock.Now()

	if err := input.Validate(); err != nil {
		var verr *vitals.ValidationError
		if errors.As(err, &verr) {
			metrics.IncIngestError(verr.Field)
		}
		metrics.ObserveIngest(input.Source, metrics.ResultError, s.clock.Now().Sub(started))
		return nil, err
	}

	conditionType, err := s.directory.ConditionType(ctx, input.PatientID)
	if err != nil {
		metrics.IncIngestError("unknown_patient")
		metrics.ObserveIngest(input.Source, metrics.ResultError, s.clock.Now().Sub(started))
		return nil, err
	}

	reading := input.ToReading(s.newID(), s.clock.Now().UTC())
	if err := s.readings.Save(ctx, &reading); err != nil {
		metrics.ObserveIngest(reading.Source, metrics.ResultError, s.clock.Now().Sub(started))
		return nil, err
	}

	s.publishReading(ctx, &reading)

	if s.evaluator != nil {
		if err := s.evaluator.EvaluateReading(ctx, &reading, conditionType); err != nil {
			metrics.ObserveIngest(reading.Source, metrics.ResultError, s.clock.Now().Sub(started))
			return &reading, err
		}
	}

	metrics.ObserveIngest(reading.Source, metrics.ResultSuccess, s.clock.Now().Sub(started))
	return &reading, nil
}

// SimulateIngest publishes a reading to the device topic without touching
// storage. The device consumer picks it up and runs the full pipeline, the
// same path real bedside hardware takes.
func (s *Service) SimulateIngest(ctx context.Context, input vitals.ReadingInput) error {
	if s == nil {
		return errors.New("vitals: nil service")
	}
	if s.bus == nil {
		return errors.New("vitals: no event bus configured")
	}
	if _, err := s.directory.ConditionType(ctx, input.PatientID); err != nil {
		return err
	}
	input.Source = vitals.SourceIoTDevice
	payload, err := json.Marshal(input)
	if err != nil {
		return err
	}
	return s.bus.Publish(ctx, eventbus.TopicIoTDevice, input.PatientID, payload)
}

// PatientReadings returns all readings for a patient, newest first.
func (s *Service) PatientReadings(ctx context.Context, patientID string) ([]vitals.Reading, error) {
	if s == nil {
		return nil, errors.New("vitals: nil service")
	}
	if patientID == "" {
		return nil, errors.New("vitals: patient id required")
	}
	if _, err := s.directory.ConditionType(ctx, patientID); err != nil {
		return nil, err
	}
	return s.readings.FindByPatient(ctx, patientID)
}

// RecentReadings returns readings for a patient within the given window.
func (s *Service) RecentReadings(ctx context.Context, patientID string, window time.Duration) ([]vitals.Reading, error) {
	if s == nil {
		return nil, errors.New("vitals: nil service")
	}
	if patientID == "" {
		return nil, errors.New("vitals: patient id required")
	}
	if _, err := s.directory.ConditionType(ctx, patientID); err != nil {
		return nil, err
	}
	since := s.clock.Now().UTC().Add(-window)
	return s.readings.FindSince(ctx, patientID, since)
}

func (s *Service) publishReading(ctx context.Context, reading *vitals.Reading) {
	if s.bus == nil {
		return
	}
	payload, err := json.Marshal(reading)
	if err != nil {
		s.logger.Error("marshal reading failed", zap.String("reading_id", reading.ID), zap.Error(err))
		return
	}
	if err := s.bus.Publish(ctx, eventbus.TopicVitalSigns, reading.PatientID, payload); err != nil {
		metrics.IncPublishFailure(eventbus.TopicVitalSigns)
		s.logger.Warn("publish reading failed",
			zap.String("reading_id", reading.ID),
			zap.String("patient_id", reading.PatientID),
			zap.Error(err),
		)
	}
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }
