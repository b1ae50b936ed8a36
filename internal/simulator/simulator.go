package simulator

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"vitalwatch/internal/observability/metrics"
	vitals "vitalwatch/internal/vitals/domain"
)

// Scenario selects which band the degraded observation is drawn from.
type Scenario string

const (
	ScenarioNormal   Scenario = "normal"
	ScenarioWarning  Scenario = "warning"
	ScenarioCritical Scenario = "critical"
)

const (
	defaultInterval = 30 * time.Second

	defaultNormalChance   = 0.70
	defaultWarningChance  = 0.15
	defaultCriticalChance = 0.05
)

// Normal observation bands, used for healthy readings and for the
// untouched companions of a degraded reading.
const (
	normalHeartRateLo = 60
	normalHeartRateHi = 100
	normalOxygenLo    = 95
	normalOxygenHi    = 100
	normalSystolicLo  = 100
	normalSystolicHi  = 140
	normalDiastolicLo = 60
	normalDiastolicHi = 90
	normalTempLo      = 36.0
	normalTempHi      = 37.5
	normalRespLo      = 12
	normalRespHi      = 20
)

// Rand is the randomness source. Injectable so tests run deterministically.
type Rand interface {
	Float64() float64
	Intn(n int) int
}

// Ingestor accepts simulated readings into the ingestion pipeline.
type Ingestor interface {
	SimulateIngest(ctx context.Context, input vitals.ReadingInput) error
}

// Simulator emits synthetic readings for a set of patients on a fixed
// interval. Every tick runs three independent triggers, one per scenario,
// each with its own emission probability; a tick can emit zero, one or
// several readings. A warning or critical reading degrades exactly one
// randomly chosen vital and keeps the rest in correlated companion ranges.
type Simulator struct {
	ingest   Ingestor
	patients []string
	interval time.Duration
	normal   float64
	warning  float64
	critical float64
	rng      Rand
	logger   *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// Option customizes the simulator.
type Option func(*Simulator)

// WithInterval overrides the emit interval.
func WithInterval(d time.Duration) Option {
	return func(s *Simulator) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithRand overrides the randomness source.
func WithRand(rng Rand) Option {
	return func(s *Simulator) {
		if rng != nil {
			s.rng = rng
		}
	}
}

// WithTriggerProbabilities overrides the per-tick emission probability of
// each scenario trigger. The triggers are independent, so the values need
// not sum to one.
func WithTriggerProbabilities(normal, warning, critical float64) Option {
	return func(s *Simulator) {
		if validChance(normal) && validChance(warning) && validChance(critical) {
			s.normal = normal
			s.warning = warning
			s.critical = critical
		}
	}
}

func validChance(p float64) bool { return p >= 0 && p <= 1 }

// New constructs a simulator over the given patient ids.
func New(ingest Ingestor, patients []string, logger *zap.Logger, opts ...Option) (*Simulator, error) {
	if ingest == nil {
		return nil, errors.New("simulator: nil ingestor")
	}
	if len(patients) == 0 {
		return nil, errors.New("simulator: no patients")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	sim := &Simulator{
		ingest:   ingest,
		patients: append([]string(nil), patients...),
		interval: defaultInterval,
		normal:   defaultNormalChance,
		warning:  defaultWarningChance,
		critical: defaultCriticalChance,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(sim)
	}
	return sim, nil
}

// Start launches the emit loop. Calling Start on a running simulator is a
// no-op.
func (s *Simulator) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.run(runCtx, s.done)
	s.logger.Info("simulator started",
		zap.Duration("interval", s.interval),
		zap.Int("patients", len(s.patients)),
	)
}

// Stop halts the emit loop and waits for it to exit.
func (s *Simulator) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	done := s.done
	s.cancel = nil
	s.done = nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.logger.Info("simulator stopped")
}

// Running reports whether the emit loop is active.
func (s *Simulator) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

func (s *Simulator) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Emit(ctx)
		}
	}
}

// Emit runs one tick: three independent trigger rolls in the fixed order
// normal, warning, critical. Each trigger that fires sends one reading for
// a randomly picked patient. Exposed for tests and one-shot triggering.
func (s *Simulator) Emit(ctx context.Context) {
	triggers := []struct {
		scenario Scenario
		chance   float64
	}{
		{ScenarioNormal, s.normal},
		{ScenarioWarning, s.warning},
		{ScenarioCritical, s.critical},
	}
	for _, trigger := range triggers {
		if s.rng.Float64() >= trigger.chance {
			continue
		}
		patientID := s.patients[s.rng.Intn(len(s.patients))]
		input := s.generate(patientID, trigger.scenario)
		if err := s.ingest.SimulateIngest(ctx, input); err != nil {
			s.logger.Warn("simulated ingest failed",
				zap.String("patient_id", patientID),
				zap.String("scenario", string(trigger.scenario)),
				zap.Error(err),
			)
			continue
		}
		metrics.IncSimulatorEmission(string(trigger.scenario))
	}
}

// generate draws one reading. A normal reading keeps every observation in
// healthy bands. A degraded reading picks one of the five alerting vitals,
// pushes it into the scenario band and redraws the physiologically coupled
// companions into elevated but sub-critical ranges, so a critical reading
// presents exactly one critical vital.
func (s *Simulator) generate(patientID string, scenario Scenario) vitals.ReadingInput {
	hr := s.between(normalHeartRateLo, normalHeartRateHi)
	spo2 := s.between(normalOxygenLo, normalOxygenHi)
	sys := s.between(normalSystolicLo, normalSystolicHi)
	dia := s.between(normalDiastolicLo, normalDiastolicHi)
	temp := s.between(normalTempLo, normalTempHi)
	resp := s.between(normalRespLo, normalRespHi)

	switch scenario {
	case ScenarioCritical:
		switch s.rng.Intn(5) {
		case 0:
			// Hypoxemia with compensatory tachycardia and tachypnea.
			spo2 = s.between(85, 91)
			hr = s.between(110, 129)
			resp = s.between(22, 29)
		case 1:
			// Severe tachycardia with mildly reduced saturation.
			hr = s.between(131, 160)
			spo2 = s.between(92, 96)
			resp = s.between(20, 28)
		case 2:
			// Hypertensive crisis.
			sys = s.between(181, 220)
			dia = s.between(110, 130)
		case 3:
			// High fever with an elevated heart rate.
			temp = s.between(39.6, 41.0)
			hr = s.between(100, 130)
			resp = s.between(18, 25)
		case 4:
			// Severe tachypnea with compensatory tachycardia.
			resp = s.between(31, 40)
			hr = s.between(110, 129)
			spo2 = s.between(92, 94)
		}
	case ScenarioWarning:
		switch s.rng.Intn(5) {
		case 0:
			spo2 = s.between(92, 93.9)
		case 1:
			hr = s.between(111, 120)
		case 2:
			sys = s.between(141, 160)
			dia = s.between(91, 100)
		case 3:
			temp = s.between(37.6, 38.5)
		case 4:
			resp = s.between(21, 25)
		}
	}

	return vitals.ReadingInput{
		PatientID:        patientID,
		HeartRate:        &hr,
		OxygenSaturation: &spo2,
		SystolicBP:       &sys,
		DiastolicBP:      &dia,
		Temperature:      &temp,
		RespiratoryRate:  &resp,
		Source:           vitals.SourceIoTDevice,
	}
}

func (s *Simulator) between(lo, hi float64) float64 {
	return lo + s.rng.Float64()*(hi-lo)
}
