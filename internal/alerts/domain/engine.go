package alerts

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	vitals "vitalwatch/internal/vitals/domain"
)

// Engine runs an ordered collection of rules against one reading and
// materializes the non-abstaining results into alerts. Evaluation is pure;
// persistence and publishing belong to the caller.
type Engine struct {
	rules  []Rule
	logger *zap.Logger
	clock  func() time.Time
	newID  func() string
}

// EngineOption customizes the engine.
type EngineOption func(*Engine)

// WithEngineClock overrides the engine clock.
func WithEngineClock(clock func() time.Time) EngineOption {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// WithEngineIDFactory overrides alert id generation.
func WithEngineIDFactory(newID func() string) EngineOption {
	return func(e *Engine) {
		if newID != nil {
			e.newID = newID
		}
	}
}

// NewEngine constructs an engine over the given rules. Output order follows
// the slice order. An empty rule set is valid and yields no alerts.
func NewEngine(rules []Rule, logger *zap.Logger, opts ...EngineOption) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	engine := &Engine{
		rules:  rules,
		logger: logger,
		clock:  func() time.Time { return time.Now().UTC() },
		newID:  func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(engine)
	}
	return engine
}

// Rules returns the registered rules in evaluation order.
func (e *Engine) Rules() []Rule {
	return append([]Rule(nil), e.rules...)
}

// Evaluate runs every rule against the reading. A panicking rule is treated
// as an abstention and logged; it never suppresses the other rules.
func (e *Engine) Evaluate(reading vitals.Reading, conditionType string) []Alert {
	out := make([]Alert, 0, len(e.rules))
	for _, rule := range e.rules {
		result, ok := e.evaluateRule(rule, reading, conditionType)
		if !ok {
			continue
		}
		now := e.clock().UTC()
		out = append(out, Alert{
			ID:          e.newID(),
			PatientID:   reading.PatientID,
			Severity:    result.Severity,
			AlertType:   result.AlertType,
			MessageKey:  result.MessageKey,
			TriggeredAt: now,
			Status:      StatusActive,
			RequiresAck: result.RequiresAck,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}
	return out
}

func (e *Engine) evaluateRule(rule Rule, reading vitals.Reading, conditionType string) (result RuleResult, ok bool) {
	defer func() {
		if recovered := recover(); recovered != nil {
			result, ok = RuleResult{}, false
			e.logger.Error("rule evaluation failed",
				zap.String("rule", rule.Describe()),
				zap.String("patient_id", reading.PatientID),
				zap.Any("panic", recovered),
			)
		}
	}()
	return rule.Evaluate(reading, conditionType)
}
