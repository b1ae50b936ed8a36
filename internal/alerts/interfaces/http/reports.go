package http

import (
	"errors"
	"net/http"
	"time"

	alertapp "vitalwatch/internal/alerts/application"
	alerts "vitalwatch/internal/alerts/domain"
	"vitalwatch/internal/alerts/interfaces"
	"vitalwatch/internal/observability/metrics"
)

// ReportsHandler serves alert report exports.
type ReportsHandler struct {
	service *alertapp.Service
}

// NewReportsHandler constructs a ReportsHandler.
func NewReportsHandler(service *alertapp.Service) (*ReportsHandler, error) {
	if service == nil {
		return nil, errors.New("reports handler: nil service")
	}
	return &ReportsHandler{service: service}, nil
}

// ServeHTTP handles GET /api/v1/reports/alerts.{pdf,xlsx}.
func (h *ReportsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var format string
	switch r.URL.Path {
	case "/api/v1/reports/alerts.pdf":
		format = "pdf"
	case "/api/v1/reports/alerts.xlsx":
		format = "xlsx"
	default:
		w.WriteHeader(http.StatusNotFound)
		return
	}

	started := time.Now()
	list, summary, err := h.collect(r)
	if err != nil {
		metrics.ObserveExport(format, metrics.ResultError, time.Since(started))
		http.Error(w, "build report failed", http.StatusInternalServerError)
		return
	}

	var (
		payload     []byte
		contentType string
		filename    string
	)
	switch format {
	case "pdf":
		payload, err = interfaces.BuildAlertReportPDF(summary, list)
		contentType = "application/pdf"
		filename = "alerts.pdf"
	case "xlsx":
		payload, err = interfaces.BuildAlertReportXLSX(summary, list)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		filename = "alerts.xlsx"
	}
	if err != nil {
		metrics.ObserveExport(format, metrics.ResultError, time.Since(started))
		http.Error(w, "build report failed", http.StatusInternalServerError)
		return
	}

	metrics.ObserveExport(format, metrics.ResultSuccess, time.Since(started))
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
	_, _ = w.Write(payload)
}

func (h *ReportsHandler) collect(r *http.Request) ([]alerts.Alert, interfaces.ReportSummary, error) {
	ctx := r.Context()

	var (
		list []alerts.Alert
		err  error
	)
	if patientID := r.URL.Query().Get("patient_id"); patientID != "" {
		list, err = h.service.ListPatientAlerts(ctx, patientID)
	} else {
		list, err = h.service.ListActive(ctx)
	}
	if err != nil {
		return nil, interfaces.ReportSummary{}, err
	}

	criticalCount, err := h.service.CountActiveCritical(ctx)
	if err != nil {
		return nil, interfaces.ReportSummary{}, err
	}

	active := 0
	for _, alert := range list {
		if alert.Status == alerts.StatusActive {
			active++
		}
	}
	summary := interfaces.ReportSummary{
		GeneratedAt:   time.Now().UTC(),
		TotalAlerts:   len(list),
		ActiveAlerts:  active,
		CriticalCount: criticalCount,
	}
	return list, summary, nil
}
