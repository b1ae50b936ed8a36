package consumer

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"vitalwatch/internal/eventbus"
	"vitalwatch/internal/observability/metrics"
	vitalsapp "vitalwatch/internal/vitals/application"
	vitals "vitalwatch/internal/vitals/domain"
)

const (
	deviceConsumerGroup = "vitalwatch-devices"
	deviceWorkers       = 3
)

// DeviceConsumer ingests readings published by bedside hardware. Each
// message runs the full pipeline: validation, patient gate, persistence,
// re-publish, rule evaluation.
type DeviceConsumer struct {
	service *vitalsapp.Service
	logger  *zap.Logger
}

// NewDeviceConsumer constructs a consumer.
func NewDeviceConsumer(service *vitalsapp.Service, logger *zap.Logger) (*DeviceConsumer, error) {
	if service == nil {
		return nil, errors.New("device consumer: nil service")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DeviceConsumer{service: service, logger: logger}, nil
}

// Start subscribes the consumer group to the device topic.
func (c *DeviceConsumer) Start(bus eventbus.Bus) error {
	if c == nil {
		return errors.New("device consumer: nil consumer")
	}
	if bus == nil {
		return errors.New("device consumer: nil bus")
	}
	return bus.Subscribe(eventbus.TopicIoTDevice, deviceConsumerGroup, deviceWorkers, c.handle)
}

// handle processes one device message. Failures are logged and the message
// acked anyway; a poison message must not wedge its partition.
func (c *DeviceConsumer) handle(ctx context.Context, msg *eventbus.Message) {
	defer msg.Ack()

	var input vitals.ReadingInput
	if err := json.Unmarshal(msg.Payload, &input); err != nil {
		metrics.IncConsumerFailure(eventbus.TopicIoTDevice)
		c.logger.Error("decode device reading failed",
			zap.String("key", msg.Key),
			zap.Error(err),
		)
		return
	}
	input.Source = vitals.SourceIoTDevice

	if _, err := c.service.SubmitReading(ctx, input); err != nil {
		metrics.IncConsumerFailure(eventbus.TopicIoTDevice)
		c.logger.Error("process device reading failed",
			zap.String("patient_id", input.PatientID),
			zap.Error(err),
		)
	}
}
