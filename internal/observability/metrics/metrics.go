package metrics

import (
	"database/sql"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const (
	metricPrefix = "vitalwatch_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	ingestTotal   *prometheus.CounterVec
	ingestLatency *prometheus.HistogramVec
	ingestErrors  *prometheus.CounterVec

	alertsRaised       *prometheus.CounterVec
	alertsAcknowledged prometheus.Counter

	publishFailures  *prometheus.CounterVec
	consumerFailures *prometheus.CounterVec

	simulatorEmissions *prometheus.CounterVec

	exportTotal   *prometheus.CounterVec
	exportLatency *prometheus.HistogramVec
)

// Init registers observability metrics and DB-backed gauges.
func Init(db *sql.DB, logger *zap.Logger) {
	registerOnce.Do(func() {
		ingestTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "readings_ingested_total",
				Help: "Total vital sign readings ingested by source and result",
			},
			[]string{"source", "result"},
		)
		ingestLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "ingest_latency_seconds",
				Help:    "Reading ingest latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		ingestErrors = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ingest_errors_total",
				Help: "Total ingest errors by reason",
			},
			[]string{"reason"},
		)

		alertsRaised = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "alerts_raised_total",
				Help: "Total alerts raised by severity",
			},
			[]string{"severity"},
		)
		alertsAcknowledged = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "alerts_acknowledged_total",
				Help: "Total alerts acknowledged",
			},
		)

		publishFailures = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "event_publish_failures_total",
				Help: "Total failed event publishes by topic",
			},
			[]string{"topic"},
		)
		consumerFailures = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "event_consumer_failures_total",
				Help: "Total consumer processing failures by topic",
			},
			[]string{"topic"},
		)

		simulatorEmissions = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "simulator_emissions_total",
				Help: "Total simulated readings emitted by scenario",
			},
			[]string{"scenario"},
		)

		exportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "report_export_total",
				Help: "Total report exports by format and result",
			},
			[]string{"format", "result"},
		)
		exportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "report_export_latency_seconds",
				Help:    "Report export latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format", "result"},
		)

		prometheus.MustRegister(
			ingestTotal,
			ingestLatency,
			ingestErrors,
			alertsRaised,
			alertsAcknowledged,
			publishFailures,
			consumerFailures,
			simulatorEmissions,
			exportTotal,
			exportLatency,
		)

		if db != nil {
			registerDBMetrics(db, logger)
		}
	})
}

// ObserveIngest records reading ingest result and duration.
func ObserveIngest(source, result string, duration time.Duration) {
	if source == "" {
		source = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if ingestTotal != nil {
		ingestTotal.WithLabelValues(source, result).Inc()
	}
	if ingestLatency != nil {
		ingestLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// IncIngestError increments ingest error counter.
func IncIngestError(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	if ingestErrors != nil {
		ingestErrors.WithLabelValues(reason).Inc()
	}
}

// IncAlertRaised increments raised alert counter.
func IncAlertRaised(severity string) {
	if severity == "" {
		severity = "unknown"
	}
	if alertsRaised != nil {
		alertsRaised.WithLabelValues(severity).Inc()
	}
}

// IncAlertAcknowledged increments acknowledged alert counter.
func IncAlertAcknowledged() {
	if alertsAcknowledged != nil {
		alertsAcknowledged.Inc()
	}
}

// IncPublishFailure increments failed publish counter.
func IncPublishFailure(topic string) {
	if topic == "" {
		topic = "unknown"
	}
	if publishFailures != nil {
		publishFailures.WithLabelValues(topic).Inc()
	}
}

// IncConsumerFailure increments consumer failure counter.
func IncConsumerFailure(topic string) {
	if topic == "" {
		topic = "unknown"
	}
	if consumerFailures != nil {
		consumerFailures.WithLabelValues(topic).Inc()
	}
}

// IncSimulatorEmission increments simulated reading counter.
func IncSimulatorEmission(scenario string) {
	if scenario == "" {
		scenario = "unknown"
	}
	if simulatorEmissions != nil {
		simulatorEmissions.WithLabelValues(scenario).Inc()
	}
}

// ObserveExport records report export latency and result.
func ObserveExport(format, result string, duration time.Duration) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if exportTotal != nil {
		exportTotal.WithLabelValues(format, result).Inc()
	}
	if exportLatency != nil {
		exportLatency.WithLabelValues(format, result).Observe(duration.Seconds())
	}
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError
)
