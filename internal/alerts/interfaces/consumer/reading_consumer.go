package consumer

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	alertapp "vitalwatch/internal/alerts/application"
	"vitalwatch/internal/eventbus"
	"vitalwatch/internal/observability/metrics"
	vitals "vitalwatch/internal/vitals/domain"
)

const (
	readingConsumerGroup = "vitalwatch-alerts"
	readingWorkers       = 3
)

// ConditionResolver maps a patient to the rule profile for evaluation.
type ConditionResolver interface {
	ConditionType(ctx context.Context, patientID string) (string, error)
}

// ReadingConsumer re-evaluates readings that flow through the vital-signs
// topic. The reading is already persisted by the producer side; this path
// only runs the rule engine, so alerts still fire when the producing node
// died between persist and evaluate.
type ReadingConsumer struct {
	service  *alertapp.Service
	resolver ConditionResolver
	logger   *zap.Logger
}

// NewReadingConsumer constructs a consumer.
func NewReadingConsumer(service *alertapp.Service, resolver ConditionResolver, logger *zap.Logger) (*ReadingConsumer, error) {
	if service == nil {
		return nil, errors.New("reading consumer: nil service")
	}
	if resolver == nil {
		return nil, errors.New("reading consumer: nil resolver")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReadingConsumer{service: service, resolver: resolver, logger: logger}, nil
}

// Start subscribes the consumer group to the vital-signs topic.
func (c *ReadingConsumer) Start(bus eventbus.Bus) error {
	if c == nil {
		return errors.New("reading consumer: nil consumer")
	}
	if bus == nil {
		return errors.New("reading consumer: nil bus")
	}
	return bus.Subscribe(eventbus.TopicVitalSigns, readingConsumerGroup, readingWorkers, c.handle)
}

// handle evaluates one reading. Failures are logged and the message acked
// anyway; a poison message must not wedge its partition. Redelivery after
// a crash can re-raise an alert that was already persisted; duplicates are
// tolerated rather than deduplicated.
func (c *ReadingConsumer) handle(ctx context.Context, msg *eventbus.Message) {
	defer msg.Ack()

	var reading vitals.Reading
	if err := json.Unmarshal(msg.Payload, &reading); err != nil {
		metrics.IncConsumerFailure(eventbus.TopicVitalSigns)
		c.logger.Error("decode reading failed",
			zap.String("key", msg.Key),
			zap.Error(err),
		)
		return
	}

	conditionType, err := c.resolver.ConditionType(ctx, reading.PatientID)
	if err != nil {
		metrics.IncConsumerFailure(eventbus.TopicVitalSigns)
		c.logger.Warn("resolve condition type failed",
			zap.String("patient_id", reading.PatientID),
			zap.Error(err),
		)
		return
	}

	if err := c.service.EvaluateReading(ctx, &reading, conditionType); err != nil {
		metrics.IncConsumerFailure(eventbus.TopicVitalSigns)
		c.logger.Error("evaluate reading failed",
			zap.String("reading_id", reading.ID),
			zap.String("patient_id", reading.PatientID),
			zap.Error(err),
		)
	}
}
