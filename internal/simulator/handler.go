package simulator

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
)

// Handler exposes simulator control endpoints.
type Handler struct {
	sim *Simulator
}

// NewHandler constructs a handler.
func NewHandler(sim *Simulator) (*Handler, error) {
	if sim == nil {
		return nil, errors.New("simulator handler: nil simulator")
	}
	return &Handler{sim: sim}, nil
}

// ServeHTTP handles /api/v1/simulator/{start,stop,status}.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/api/v1/simulator/start":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		// Detached from the request context; the loop outlives the call.
		h.sim.Start(context.Background())
		h.respondStatus(w)
	case "/api/v1/simulator/stop":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.sim.Stop()
		h.respondStatus(w)
	case "/api/v1/simulator/status":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.respondStatus(w)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) respondStatus(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]bool{"running": h.sim.Running()})
}
