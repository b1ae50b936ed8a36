package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vitalwatch/internal/eventbus"
	patients "vitalwatch/internal/patients/domain"
	vitalsapp "vitalwatch/internal/vitals/application"
	vitals "vitalwatch/internal/vitals/domain"
	vitalsmemory "vitalwatch/internal/vitals/infrastructure/memory"
)

type stubDirectory struct{}

func (stubDirectory) ConditionType(_ context.Context, patientID string) (string, error) {
	if patientID == "p1" {
		return "ADULT_RESTING", nil
	}
	return "", patients.ErrNotFound
}

func newTestHandler(t *testing.T, bus eventbus.Bus) (*Handler, *vitalsmemory.ReadingRepository) {
	t.Helper()
	repo := vitalsmemory.NewReadingRepository()
	var opts []vitalsapp.ServiceOption
	if bus != nil {
		opts = append(opts, vitalsapp.WithBus(bus))
	}
	service, err := vitalsapp.NewService(repo, stubDirectory{}, nil, opts...)
	require.NoError(t, err)
	handler, err := NewHandler(service)
	require.NoError(t, err)
	return handler, repo
}

func TestSubmitReadingDefaultsToManualSource(t *testing.T) {
	handler, repo := newTestHandler(t, nil)

	body := strings.NewReader(`{"patient_id":"p1","heart_rate":72}`)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/vitals", body))

	require.Equal(t, http.StatusCreated, rec.Code)
	var reading vitals.Reading
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reading))
	assert.Equal(t, vitals.SourceManual, reading.Source)
	assert.NotEmpty(t, reading.ID)

	stored, err := repo.FindByPatient(context.Background(), "p1")
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestSubmitReadingValidationFailure(t *testing.T) {
	handler, repo := newTestHandler(t, nil)

	body := strings.NewReader(`{"patient_id":"p1","heart_rate":260}`)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/vitals", body))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	stored, err := repo.FindByPatient(context.Background(), "p1")
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestSubmitReadingUnknownPatient(t *testing.T) {
	handler, _ := newTestHandler(t, nil)

	body := strings.NewReader(`{"patient_id":"ghost","heart_rate":72}`)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/vitals", body))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSimulateEndpointPublishesToDeviceTopic(t *testing.T) {
	bus := eventbus.NewMemoryBus(nil)
	defer func() { _ = bus.Close(context.Background()) }()
	handler, repo := newTestHandler(t, bus)

	body := strings.NewReader(`{"patient_id":"p1","heart_rate":72}`)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/vitals/simulate", body))

	assert.Equal(t, http.StatusAccepted, rec.Code)
	// Nothing is persisted until a device consumer picks the message up.
	stored, err := repo.FindByPatient(context.Background(), "p1")
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestPatientReadingsReturnsEmptyArray(t *testing.T) {
	handler, _ := newTestHandler(t, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/vitals/p1", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestPatientReadingsRejectsBadWindow(t *testing.T) {
	handler, _ := newTestHandler(t, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/vitals/p1?window=-5m", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
