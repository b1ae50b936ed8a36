package application

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	alerts "vitalwatch/internal/alerts/domain"
	"vitalwatch/internal/eventbus"
	"vitalwatch/internal/observability/metrics"
	vitals "vitalwatch/internal/vitals/domain"
)

// Clock provides time.
type Clock interface {
	Now() time.Time
}

// Service runs the rule engine over readings and owns the alert lifecycle.
type Service struct {
	repo   alerts.AlertRepository
	engine *alerts.Engine
	bus    eventbus.Bus
	logger *zap.Logger
	clock  Clock
}

// ServiceOption customizes the alert service.
type ServiceOption func(*Service)

// WithBus assigns an event bus. Without one, raised alerts are persisted
// but not published.
func WithBus(bus eventbus.Bus) ServiceOption {
	return func(s *Service) {
		s.bus = bus
	}
}

// WithClock assigns a clock.
func WithClock(clock Clock) ServiceOption {
	return func(s *Service) {
		s.clock = clock
	}
}

// NewService constructs an alert service.
func NewService(repo alerts.AlertRepository, engine *alerts.Engine, logger *zap.Logger, opts ...ServiceOption) (*Service, error) {
	if repo == nil {
		return nil, errors.New("alerts: nil repository")
	}
	if engine == nil {
		return nil, errors.New("alerts: nil engine")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	service := &Service{
		repo:   repo,
		engine: engine,
		logger: logger,
		clock:  systemClock{},
	}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// EvaluateReading runs every rule over the reading, persists each raised
// alert and publishes it keyed by patient. Publish failures are logged and
// counted but never fail the evaluation.
func (s *Service) EvaluateReading(ctx context.Context, reading *vitals.Reading, conditionType string) error {
	if s == nil {
		return errors.New("alerts: nil service")
	}
	if reading == nil {
		return errors.New("alerts: nil reading")
	}
	raised := s.engine.Evaluate(*reading, conditionType)
	for i := range raised {
		alert := &raised[i]
		if err := s.repo.Save(ctx, alert); err != nil {
			return err
		}
		metrics.IncAlertRaised(alert.Severity)
		if alert.Severity == alerts.SeverityCritical {
			s.logger.Warn("critical alert raised",
				zap.String("alert_id", alert.ID),
				zap.String("patient_id", alert.PatientID),
				zap.String("alert_type", alert.AlertType),
				zap.String("message_key", alert.MessageKey),
			)
		}
		s.publishAlert(ctx, alert)
	}
	return nil
}

// Acknowledge marks an alert acknowledged. Acknowledging an already
// acknowledged alert is a no-op that returns the current state; unknown
// ids return the domain ErrNotFound.
func (s *Service) Acknowledge(ctx context.Context, id, acknowledgedBy string) (*alerts.Alert, error) {
	if s == nil {
		return nil, errors.New("alerts: nil service")
	}
	if id == "" {
		return nil, errors.New("alerts: alert id required")
	}
	alert, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if alert.Status == alerts.StatusAcknowledged {
		return alert, nil
	}
	ackedAt := s.clock.Now().UTC()
	won, err := s.repo.MarkAcknowledged(ctx, alert.ID, acknowledgedBy, ackedAt)
	if err != nil {
		return nil, err
	}
	if !won {
		// A concurrent acknowledger claimed the alert between the read
		// and the update. Return the persisted state, not ours.
		return s.repo.FindByID(ctx, alert.ID)
	}
	alert.Status = alerts.StatusAcknowledged
	alert.AcknowledgedAt = ackedAt
	alert.AcknowledgedBy = acknowledgedBy
	alert.UpdatedAt = ackedAt
	metrics.IncAlertAcknowledged()
	return alert, nil
}

// Get loads one alert by id.
func (s *Service) Get(ctx context.Context, id string) (*alerts.Alert, error) {
	if s == nil {
		return nil, errors.New("alerts: nil service")
	}
	if id == "" {
		return nil, errors.New("alerts: alert id required")
	}
	return s.repo.FindByID(ctx, id)
}

// ListActive returns unacknowledged alerts, most recent first.
func (s *Service) ListActive(ctx context.Context) ([]alerts.Alert, error) {
	if s == nil {
		return nil, errors.New("alerts: nil service")
	}
	return s.repo.FindActive(ctx)
}

// ListPatientAlerts returns every alert for one patient, most recent first.
func (s *Service) ListPatientAlerts(ctx context.Context, patientID string) ([]alerts.Alert, error) {
	if s == nil {
		return nil, errors.New("alerts: nil service")
	}
	if patientID == "" {
		return nil, errors.New("alerts: patient id required")
	}
	return s.repo.FindByPatient(ctx, patientID)
}

// CountActiveCritical returns the number of unacknowledged critical alerts.
func (s *Service) CountActiveCritical(ctx context.Context) (int64, error) {
	if s == nil {
		return 0, errors.New("alerts: nil service")
	}
	return s.repo.CountActiveBySeverity(ctx, alerts.SeverityCritical)
}

func (s *Service) publishAlert(ctx context.Context, alert *alerts.Alert) {
	if s.bus == nil {
		return
	}
	payload, err := json.Marshal(alert)
	if err != nil {
		s.logger.Error("marshal alert failed", zap.String("alert_id", alert.ID), zap.Error(err))
		return
	}
	if err := s.bus.Publish(ctx, eventbus.TopicMedicalAlerts, alert.PatientID, payload); err != nil {
		metrics.IncPublishFailure(eventbus.TopicMedicalAlerts)
		s.logger.Warn("publish alert failed",
			zap.String("alert_id", alert.ID),
			zap.String("patient_id", alert.PatientID),
			zap.Error(err),
		)
	}
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }
