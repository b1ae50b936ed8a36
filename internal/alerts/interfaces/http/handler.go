package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	alertapp "vitalwatch/internal/alerts/application"
	alerts "vitalwatch/internal/alerts/domain"
	"vitalwatch/internal/auth"
)

// Handler provides alert HTTP endpoints.
type Handler struct {
	service *alertapp.Service
}

// NewHandler constructs a handler.
func NewHandler(service *alertapp.Service) (*Handler, error) {
	if service == nil {
		return nil, errors.New("alerts handler: nil service")
	}
	return &Handler{service: service}, nil
}

// ServeHTTP handles /api/v1/alerts and subroutes.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	switch {
	case path == "/api/v1/alerts/active":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleActive(w, r)
	case path == "/api/v1/alerts/active/critical-count":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleCriticalCount(w, r)
	case strings.HasPrefix(path, "/api/v1/alerts/patient/"):
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handlePatientAlerts(w, r)
	case strings.HasPrefix(path, "/api/v1/alerts/"):
		h.handleAlert(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleActive(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListActive(r.Context())
	if err != nil {
		http.Error(w, "query alerts failed", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []alerts.Alert{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(list)
}

func (h *Handler) handleCriticalCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.service.CountActiveCritical(r.Context())
	if err != nil {
		http.Error(w, "query alerts failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]int64{"count": count})
}

func (h *Handler) handlePatientAlerts(w http.ResponseWriter, r *http.Request) {
	patientID := strings.TrimPrefix(r.URL.Path, "/api/v1/alerts/patient/")
	if patientID == "" || strings.Contains(patientID, "/") {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	list, err := h.service.ListPatientAlerts(r.Context(), patientID)
	if err != nil {
		http.Error(w, "query alerts failed", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []alerts.Alert{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(list)
}

func (h *Handler) handleAlert(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/alerts/")
	parts := strings.Split(path, "/")

	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		h.handleGet(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "acknowledge":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleAcknowledge(w, r, parts[0])
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request, id string) {
	alert, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, alerts.ErrNotFound) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		http.Error(w, "query alert failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(alert)
}

func (h *Handler) handleAcknowledge(w http.ResponseWriter, r *http.Request, id string) {
	var body struct {
		AcknowledgedBy string `json:"acknowledged_by"`
	}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&body)
	}
	acknowledgedBy := body.AcknowledgedBy
	if acknowledgedBy == "" {
		acknowledgedBy = auth.SubjectFromContext(r.Context())
	}
	if acknowledgedBy == "" {
		http.Error(w, "acknowledged_by is required", http.StatusBadRequest)
		return
	}

	alert, err := h.service.Acknowledge(r.Context(), id, acknowledgedBy)
	if err != nil {
		if errors.Is(err, alerts.ErrNotFound) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(alert)
}
