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

	alertapp "vitalwatch/internal/alerts/application"
	alerts "vitalwatch/internal/alerts/domain"
	alertmemory "vitalwatch/internal/alerts/infrastructure/memory"
	"vitalwatch/internal/auth"
)

func newTestHandler(t *testing.T) (*Handler, *alertmemory.AlertRepository) {
	t.Helper()
	repo := alertmemory.NewAlertRepository()
	engine := alerts.NewEngine(alerts.DefaultRules(), nil)
	service, err := alertapp.NewService(repo, engine, nil)
	require.NoError(t, err)
	handler, err := NewHandler(service)
	require.NoError(t, err)
	return handler, repo
}

func seedAlert(t *testing.T, repo *alertmemory.AlertRepository, id string) {
	t.Helper()
	require.NoError(t, repo.Save(context.Background(), &alerts.Alert{
		ID:          id,
		PatientID:   "p1",
		Severity:    alerts.SeverityCritical,
		AlertType:   alerts.TypeHeartRate,
		MessageKey:  "alert.critical.heart_rate.high",
		Status:      alerts.StatusActive,
		RequiresAck: true,
	}))
}

func TestListActiveReturnsEmptyArray(t *testing.T) {
	handler, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/alerts/active", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestGetAlert(t *testing.T) {
	handler, repo := newTestHandler(t)
	seedAlert(t, repo, "a1")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/alerts/a1", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var alert alerts.Alert
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &alert))
	assert.Equal(t, "a1", alert.ID)
}

func TestGetUnknownAlertIsNotFound(t *testing.T) {
	handler, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/alerts/missing", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAcknowledgeWithBody(t *testing.T) {
	handler, repo := newTestHandler(t)
	seedAlert(t, repo, "a1")

	body := strings.NewReader(`{"acknowledged_by":"nurse.jones"}`)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/alerts/a1/acknowledge", body))

	require.Equal(t, http.StatusOK, rec.Code)
	var alert alerts.Alert
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &alert))
	assert.Equal(t, alerts.StatusAcknowledged, alert.Status)
	assert.Equal(t, "nurse.jones", alert.AcknowledgedBy)
}

func TestAcknowledgeFallsBackToAuthenticatedSubject(t *testing.T) {
	handler, repo := newTestHandler(t)
	seedAlert(t, repo, "a1")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/alerts/a1/acknowledge", nil)
	req = req.WithContext(auth.WithIdentity(req.Context(), auth.RoleNurse, "nurse.smith"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var alert alerts.Alert
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &alert))
	assert.Equal(t, "nurse.smith", alert.AcknowledgedBy)
}

func TestAcknowledgeWithoutAcknowledgerIsRejected(t *testing.T) {
	handler, repo := newTestHandler(t)
	seedAlert(t, repo, "a1")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/alerts/a1/acknowledge", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCriticalCount(t *testing.T) {
	handler, repo := newTestHandler(t)
	seedAlert(t, repo, "a1")
	seedAlert(t, repo, "a2")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/alerts/active/critical-count", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var payload map[string]int64
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, int64(2), payload["count"])
}

func TestPatientAlertsRoute(t *testing.T) {
	handler, repo := newTestHandler(t)
	seedAlert(t, repo, "a1")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/alerts/patient/p1", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var list []alerts.Alert
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "p1", list[0].PatientID)
}

func TestMethodNotAllowedOnActive(t *testing.T) {
	handler, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/alerts/active", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
