package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	patients "vitalwatch/internal/patients/domain"
)

// PatientRepository is an in-memory patient store for tests and demo runs.
type PatientRepository struct {
	mu    sync.RWMutex
	items map[string]patients.Patient
}

// NewPatientRepository constructs an empty store.
func NewPatientRepository() *PatientRepository {
	return &PatientRepository{items: make(map[string]patients.Patient)}
}

// Save upserts a patient by id.
func (r *PatientRepository) Save(_ context.Context, p *patients.Patient) error {
	if r == nil {
		return errors.New("patient repo: nil store")
	}
	if p == nil {
		return errors.New("patient repo: nil patient")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[p.ID] = *p
	return nil
}

// FindByID loads a patient by id.
func (r *PatientRepository) FindByID(_ context.Context, id string) (*patients.Patient, error) {
	if r == nil {
		return nil, errors.New("patient repo: nil store")
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.items[id]
	if !ok {
		return nil, patients.ErrNotFound
	}
	copied := p
	return &copied, nil
}

// FindAll returns every patient ordered by last name.
func (r *PatientRepository) FindAll(_ context.Context) ([]*patients.Patient, error) {
	if r == nil {
		return nil, errors.New("patient repo: nil store")
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]*patients.Patient, 0, len(r.items))
	for _, p := range r.items {
		copied := p
		result = append(result, &copied)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].LastName != result[j].LastName {
			return result[i].LastName < result[j].LastName
		}
		return result[i].FirstName < result[j].FirstName
	})
	return result, nil
}
