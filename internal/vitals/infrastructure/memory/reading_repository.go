package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	vitals "vitalwatch/internal/vitals/domain"
)

// ReadingRepository is an in-memory reading store for tests and demo runs.
type ReadingRepository struct {
	mu        sync.RWMutex
	byPatient map[string][]vitals.Reading
}

// NewReadingRepository constructs an empty store.
func NewReadingRepository() *ReadingRepository {
	return &ReadingRepository{byPatient: make(map[string][]vitals.Reading)}
}

// Save appends a reading.
func (r *ReadingRepository) Save(_ context.Context, reading *vitals.Reading) error {
	if r == nil {
		return errors.New("reading repo: nil store")
	}
	if reading == nil {
		return errors.New("reading repo: nil reading")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byPatient[reading.PatientID] = append(r.byPatient[reading.PatientID], *reading)
	return nil
}

// FindByPatient returns all readings for a patient, newest first.
func (r *ReadingRepository) FindByPatient(_ context.Context, patientID string) ([]vitals.Reading, error) {
	if r == nil {
		return nil, errors.New("reading repo: nil store")
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedCopy(r.byPatient[patientID]), nil
}

// FindSince returns readings recorded at or after the cutoff, newest first.
func (r *ReadingRepository) FindSince(_ context.Context, patientID string, since time.Time) ([]vitals.Reading, error) {
	if r == nil {
		return nil, errors.New("reading repo: nil store")
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var filtered []vitals.Reading
	for _, reading := range r.byPatient[patientID] {
		if !reading.Timestamp.Before(since) {
			filtered = append(filtered, reading)
		}
	}
	return sortedCopy(filtered), nil
}

func sortedCopy(readings []vitals.Reading) []vitals.Reading {
	result := append([]vitals.Reading(nil), readings...)
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Timestamp.After(result[j].Timestamp)
	})
	return result
}
