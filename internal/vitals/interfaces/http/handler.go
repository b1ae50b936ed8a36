package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	patients "vitalwatch/internal/patients/domain"
	vitalsapp "vitalwatch/internal/vitals/application"
	vitals "vitalwatch/internal/vitals/domain"
)

// Handler provides vital-sign HTTP endpoints.
type Handler struct {
	service *vitalsapp.Service
}

// NewHandler constructs a handler.
func NewHandler(service *vitalsapp.Service) (*Handler, error) {
	if service == nil {
		return nil, errors.New("vitals handler: nil service")
	}
	return &Handler{service: service}, nil
}

// ServeHTTP handles /api/v1/vitals and subroutes.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/api/v1/vitals":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleSubmit(w, r)
	case r.URL.Path == "/api/v1/vitals/simulate":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleSimulate(w, r)
	case strings.HasPrefix(r.URL.Path, "/api/v1/vitals/"):
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleReadings(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var input vitals.ReadingInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if input.Source == "" {
		input.Source = vitals.SourceManual
	}

	reading, err := h.service.SubmitReading(r.Context(), input)
	if err != nil {
		var verr *vitals.ValidationError
		switch {
		case errors.As(err, &verr):
			http.Error(w, verr.Error(), http.StatusBadRequest)
		case errors.Is(err, patients.ErrNotFound):
			http.Error(w, "patient not found", http.StatusNotFound)
		default:
			http.Error(w, "submit reading failed", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(reading)
}

// handleSimulate publishes the payload to the device topic instead of
// submitting it directly, so it exercises the same consumer path as real
// bedside hardware.
func (h *Handler) handleSimulate(w http.ResponseWriter, r *http.Request) {
	var input vitals.ReadingInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.service.SimulateIngest(r.Context(), input); err != nil {
		if errors.Is(err, patients.ErrNotFound) {
			http.Error(w, "patient not found", http.StatusNotFound)
			return
		}
		http.Error(w, "simulate ingest failed", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) handleReadings(w http.ResponseWriter, r *http.Request) {
	patientID := strings.TrimPrefix(r.URL.Path, "/api/v1/vitals/")
	if patientID == "" || strings.Contains(patientID, "/") {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	var (
		readings []vitals.Reading
		err      error
	)
	if raw := r.URL.Query().Get("window"); raw != "" {
		window, parseErr := time.ParseDuration(raw)
		if parseErr != nil || window <= 0 {
			http.Error(w, "window must be a positive duration", http.StatusBadRequest)
			return
		}
		readings, err = h.service.RecentReadings(r.Context(), patientID, window)
	} else {
		readings, err = h.service.PatientReadings(r.Context(), patientID)
	}
	if err != nil {
		if errors.Is(err, patients.ErrNotFound) {
			http.Error(w, "patient not found", http.StatusNotFound)
			return
		}
		http.Error(w, "query readings failed", http.StatusInternalServerError)
		return
	}
	if readings == nil {
		readings = []vitals.Reading{}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(readings)
}
