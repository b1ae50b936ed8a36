package eventbus

import (
	"context"
	"errors"
	"sync"
)

// Topics carried by the bus. Messages are keyed by patient id so delivery
// order is preserved per patient; no ordering holds across patients.
const (
	TopicVitalSigns    = "vital-signs"
	TopicMedicalAlerts = "medical-alerts"
	TopicIoTDevice     = "iot-device-data"
)

// ErrClosed is returned when publishing on a closed bus.
var ErrClosed = errors.New("eventbus: closed")

// Message is one consumed entry with manual acknowledgment. A handler must
// call Ack once processing is done or Nack to release it unprocessed;
// a message left unacknowledged when the handler returns is nacked.
type Message struct {
	Topic   string
	Key     string
	Payload []byte

	once sync.Once
	ack  func()
	nack func()
}

// Ack marks the message consumed.
func (m *Message) Ack() {
	m.once.Do(func() {
		if m.ack != nil {
			m.ack()
		}
	})
}

// Nack releases the message without consuming it.
func (m *Message) Nack() {
	m.once.Do(func() {
		if m.nack != nil {
			m.nack()
		}
	})
}

// NewMessage builds a message with explicit ack/nack hooks. Exposed for
// tests of consumer code.
func NewMessage(topic, key string, payload []byte, ack, nack func()) *Message {
	return &Message{Topic: topic, Key: key, Payload: payload, ack: ack, nack: nack}
}

// Handler processes one message and settles it via Ack or Nack.
type Handler func(ctx context.Context, msg *Message)

// Bus is the abstract publish/consume boundary between the ingestion
// pipeline and its transports. Delivery is at-least-once.
type Bus interface {
	Publish(ctx context.Context, topic, key string, payload []byte) error
	Subscribe(topic, group string, workers int, handler Handler) error
	Close(ctx context.Context) error
}
