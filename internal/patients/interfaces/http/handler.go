package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	patientapp "vitalwatch/internal/patients/application"
	patients "vitalwatch/internal/patients/domain"
)

// Handler provides patient directory HTTP endpoints.
type Handler struct {
	service *patientapp.Service
}

// NewHandler constructs a handler.
func NewHandler(service *patientapp.Service) (*Handler, error) {
	if service == nil {
		return nil, errors.New("patients handler: nil service")
	}
	return &Handler{service: service}, nil
}

// ServeHTTP handles /api/v1/patients and subroutes.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/api/v1/patients":
		switch r.Method {
		case http.MethodGet:
			h.handleList(w, r)
		case http.MethodPost:
			h.handleRegister(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case strings.HasPrefix(r.URL.Path, "/api/v1/patients/"):
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleGet(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		http.Error(w, "query patients failed", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []*patients.Patient{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(list)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var patient patients.Patient
	if err := json.NewDecoder(r.Body).Decode(&patient); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	registered, err := h.service.Register(r.Context(), &patient)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(registered)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/v1/patients/")
	if id == "" || strings.Contains(id, "/") {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	patient, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, patients.ErrNotFound) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		http.Error(w, "query patient failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(patient)
}
