package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	alertapp "vitalwatch/internal/alerts/application"
	alerts "vitalwatch/internal/alerts/domain"
	alertmemory "vitalwatch/internal/alerts/infrastructure/memory"
	alertpostgres "vitalwatch/internal/alerts/infrastructure/postgres"
	alertconsumer "vitalwatch/internal/alerts/interfaces/consumer"
	alerthttp "vitalwatch/internal/alerts/interfaces/http"
	"vitalwatch/internal/auth"
	"vitalwatch/internal/config"
	"vitalwatch/internal/eventbus"
	"vitalwatch/internal/observability/logging"
	"vitalwatch/internal/observability/metrics"
	patientapp "vitalwatch/internal/patients/application"
	patients "vitalwatch/internal/patients/domain"
	patientmemory "vitalwatch/internal/patients/infrastructure/memory"
	patientpostgres "vitalwatch/internal/patients/infrastructure/postgres"
	patienthttp "vitalwatch/internal/patients/interfaces/http"
	"vitalwatch/internal/simulator"
	vitalsapp "vitalwatch/internal/vitals/application"
	vitalsdomain "vitalwatch/internal/vitals/domain"
	vitalsmemory "vitalwatch/internal/vitals/infrastructure/memory"
	vitalspostgres "vitalwatch/internal/vitals/infrastructure/postgres"
	vitalsconsumer "vitalwatch/internal/vitals/interfaces/consumer"
	vitalshttp "vitalwatch/internal/vitals/interfaces/http"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if cfg.JWTSecret == "" {
		log.Fatal("AUTH_JWT_SECRET is required")
	}

	logger, err := logging.New(cfg.LogLevel, "json")
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		db          *sql.DB
		readingRepo vitalsdomain.ReadingRepository
		alertRepo   alerts.AlertRepository
		patientRepo patients.PatientRepository
	)
	if cfg.DatabaseURL != "" {
		db, err = sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("db open failed", zap.Error(err))
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			logger.Fatal("db ping failed", zap.Error(err))
		}
		readingRepo = vitalspostgres.NewReadingRepository(db)
		alertRepo = alertpostgres.NewAlertRepository(db)
		patientRepo = patientpostgres.NewPatientRepository(db)
	} else {
		logger.Warn("no database configured, using in-memory stores")
		readingRepo = vitalsmemory.NewReadingRepository()
		alertRepo = alertmemory.NewAlertRepository()
		patientRepo = patientmemory.NewPatientRepository()
	}

	metrics.Init(db, logger)

	var bus eventbus.Bus
	if cfg.NATSURL != "" {
		natsBus, err := eventbus.NewNATSBus(ctx, cfg.NATSURL, logger)
		if err != nil {
			logger.Fatal("nats bus failed", zap.Error(err))
		}
		bus = natsBus
	} else {
		logger.Info("no nats url configured, using in-memory bus")
		bus = eventbus.NewMemoryBus(logger)
	}

	patientService, err := patientapp.NewService(patientRepo)
	if err != nil {
		logger.Fatal("patient service error", zap.Error(err))
	}

	engine := alerts.NewEngine(alerts.DefaultRules(), logger)
	alertService, err := alertapp.NewService(alertRepo, engine, logger, alertapp.WithBus(bus))
	if err != nil {
		logger.Fatal("alert service error", zap.Error(err))
	}

	vitalsService, err := vitalsapp.NewService(readingRepo, patientService, logger,
		vitalsapp.WithBus(bus),
		vitalsapp.WithEvaluator(alertService),
	)
	if err != nil {
		logger.Fatal("vitals service error", zap.Error(err))
	}

	deviceConsumer, err := vitalsconsumer.NewDeviceConsumer(vitalsService, logger)
	if err != nil {
		logger.Fatal("device consumer error", zap.Error(err))
	}
	if err := deviceConsumer.Start(bus); err != nil {
		logger.Fatal("device consumer start failed", zap.Error(err))
	}

	if cfg.Consumers.Reevaluation {
		readingConsumer, err := alertconsumer.NewReadingConsumer(alertService, patientService, logger)
		if err != nil {
			logger.Fatal("reading consumer error", zap.Error(err))
		}
		if err := readingConsumer.Start(bus); err != nil {
			logger.Fatal("reading consumer start failed", zap.Error(err))
		}
	}

	var sim *simulator.Simulator
	if len(cfg.Simulator.Patients) > 0 {
		sim, err = simulator.New(vitalsService, cfg.Simulator.Patients, logger,
			simulator.WithInterval(cfg.Simulator.Interval()),
			simulator.WithTriggerProbabilities(cfg.Simulator.NormalWeight, cfg.Simulator.WarningWeight, cfg.Simulator.CriticalWeight),
		)
		if err != nil {
			logger.Fatal("simulator error", zap.Error(err))
		}
		if cfg.Simulator.Enabled {
			sim.Start(ctx)
		}
	}

	vitalsHandler, err := vitalshttp.NewHandler(vitalsService)
	if err != nil {
		logger.Fatal("vitals handler error", zap.Error(err))
	}
	alertsHandler, err := alerthttp.NewHandler(alertService)
	if err != nil {
		logger.Fatal("alerts handler error", zap.Error(err))
	}
	reportsHandler, err := alerthttp.NewReportsHandler(alertService)
	if err != nil {
		logger.Fatal("reports handler error", zap.Error(err))
	}
	patientsHandler, err := patienthttp.NewHandler(patientService)
	if err != nil {
		logger.Fatal("patients handler error", zap.Error(err))
	}

	policy := auth.NewDefaultPolicy([]string{"/healthz", "/metrics"}, nil)
	authMiddleware := auth.NewMiddleware([]byte(cfg.JWTSecret), policy)

	mux := http.NewServeMux()
	mux.Handle("/api/v1/vitals", vitalsHandler)
	mux.Handle("/api/v1/vitals/", vitalsHandler)
	mux.Handle("/api/v1/alerts/", alertsHandler)
	mux.Handle("/api/v1/reports/", reportsHandler)
	mux.Handle("/api/v1/patients", patientsHandler)
	mux.Handle("/api/v1/patients/", patientsHandler)
	if sim != nil {
		simHandler, err := simulator.NewHandler(sim)
		if err != nil {
			logger.Fatal("simulator handler error", zap.Error(err))
		}
		mux.Handle("/api/v1/simulator/", simHandler)
	}
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: loggingMiddleware(authMiddleware.Wrap(mux), logger),
	}

	go func() {
		logger.Info("http listening", zap.String("addr", cfg.HTTPAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown failed", zap.Error(err))
	}
	if sim != nil {
		sim.Stop()
	}
	if err := bus.Close(shutdownCtx); err != nil {
		logger.Warn("bus close failed", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

func loggingMiddleware(next http.Handler, logger *zap.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", resp.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
