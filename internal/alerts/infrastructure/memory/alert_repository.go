package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	alerts "vitalwatch/internal/alerts/domain"
)

// AlertRepository is an in-memory alert store for tests and demo runs.
type AlertRepository struct {
	mu    sync.RWMutex
	items map[string]alerts.Alert
}

// NewAlertRepository constructs an empty store.
func NewAlertRepository() *AlertRepository {
	return &AlertRepository{items: make(map[string]alerts.Alert)}
}

// Save inserts an alert.
func (r *AlertRepository) Save(_ context.Context, alert *alerts.Alert) error {
	if r == nil {
		return errors.New("alert repo: nil store")
	}
	if alert == nil {
		return errors.New("alert repo: nil alert")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[alert.ID] = *alert
	return nil
}

// FindByID loads an alert by id.
func (r *AlertRepository) FindByID(_ context.Context, id string) (*alerts.Alert, error) {
	if r == nil {
		return nil, errors.New("alert repo: nil store")
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	alert, ok := r.items[id]
	if !ok {
		return nil, alerts.ErrNotFound
	}
	copied := alert
	return &copied, nil
}

// FindActive returns unacknowledged alerts, most recent first.
func (r *AlertRepository) FindActive(_ context.Context) ([]alerts.Alert, error) {
	if r == nil {
		return nil, errors.New("alert repo: nil store")
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []alerts.Alert
	for _, alert := range r.items {
		if alert.Status == alerts.StatusActive {
			result = append(result, alert)
		}
	}
	sortByTriggeredDesc(result)
	return result, nil
}

// FindByPatient returns every alert for one patient, most recent first.
func (r *AlertRepository) FindByPatient(_ context.Context, patientID string) ([]alerts.Alert, error) {
	if r == nil {
		return nil, errors.New("alert repo: nil store")
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []alerts.Alert
	for _, alert := range r.items {
		if alert.PatientID == patientID {
			result = append(result, alert)
		}
	}
	sortByTriggeredDesc(result)
	return result, nil
}

// CountActiveBySeverity counts unacknowledged alerts of one severity.
func (r *AlertRepository) CountActiveBySeverity(_ context.Context, severity string) (int64, error) {
	if r == nil {
		return 0, errors.New("alert repo: nil store")
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var count int64
	for _, alert := range r.items {
		if alert.Status == alerts.StatusActive && alert.Severity == severity {
			count++
		}
	}
	return count, nil
}

// MarkAcknowledged transitions an active alert to acknowledged. It reports
// false without touching the alert when the status already moved past
// active, so a racing acknowledger never overwrites the first one.
func (r *AlertRepository) MarkAcknowledged(_ context.Context, id, acknowledgedBy string, at time.Time) (bool, error) {
	if r == nil {
		return false, errors.New("alert repo: nil store")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	alert, ok := r.items[id]
	if !ok {
		return false, alerts.ErrNotFound
	}
	if alert.Status != alerts.StatusActive {
		return false, nil
	}
	alert.Status = alerts.StatusAcknowledged
	alert.AcknowledgedAt = at.UTC()
	alert.AcknowledgedBy = acknowledgedBy
	alert.UpdatedAt = at.UTC()
	r.items[id] = alert
	return true, nil
}

func sortByTriggeredDesc(list []alerts.Alert) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].TriggeredAt.After(list[j].TriggeredAt)
	})
}
