package eventbus

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"
)

// NATSBus is a JetStream-backed bus. Each topic maps to a stream whose
// subjects carry the routing key as the last token, so consumers see all
// messages and ordering holds per subject. Acknowledgment is explicit;
// nacked messages are redelivered by the server up to the delivery cap.
type NATSBus struct {
	conn       *nats.Conn
	js         jetstream.JetStream
	logger     *zap.Logger
	maxDeliver int
	ackWait    time.Duration

	mu        sync.Mutex
	consumers []jetstream.ConsumeContext
	closed    bool
}

// NATSBusOption configures the bus.
type NATSBusOption func(*NATSBus)

// WithNATSMaxDeliver caps server-side delivery attempts.
func WithNATSMaxDeliver(n int) NATSBusOption {
	return func(b *NATSBus) {
		if n > 0 {
			b.maxDeliver = n
		}
	}
}

// WithNATSAckWait sets how long the server waits for an ack before
// redelivering.
func WithNATSAckWait(d time.Duration) NATSBusOption {
	return func(b *NATSBus) {
		if d > 0 {
			b.ackWait = d
		}
	}
}

// NewNATSBus connects to the given NATS URL and ensures a stream exists for
// every known topic.
func NewNATSBus(ctx context.Context, url string, logger *zap.Logger, opts ...NATSBusOption) (*NATSBus, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	conn, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("init jetstream: %w", err)
	}

	bus := &NATSBus{
		conn:       conn,
		js:         js,
		logger:     logger,
		maxDeliver: defaultMaxDeliver,
		ackWait:    30 * time.Second,
	}
	for _, opt := range opts {
		opt(bus)
	}

	for _, topic := range []string{TopicVitalSigns, TopicMedicalAlerts, TopicIoTDevice} {
		if err := bus.ensureStream(ctx, topic); err != nil {
			conn.Close()
			return nil, err
		}
	}
	return bus, nil
}

func (b *NATSBus) ensureStream(ctx context.Context, topic string) error {
	_, err := b.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      streamName(topic),
		Subjects:  []string{topic + ".>"},
		Retention: jetstream.LimitsPolicy,
		Storage:   jetstream.FileStorage,
		MaxAge:    7 * 24 * time.Hour,
	})
	if err != nil {
		return fmt.Errorf("ensure stream %s: %w", topic, err)
	}
	return nil
}

// Publish writes the payload to the topic's stream under a subject carrying
// the routing key.
func (b *NATSBus) Publish(ctx context.Context, topic, key string, payload []byte) error {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return ErrClosed
	}
	if _, err := b.js.Publish(ctx, subjectFor(topic, key), payload); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// Subscribe binds a durable consumer named after the group. The worker count
// bounds in-flight unacknowledged messages.
func (b *NATSBus) Subscribe(topic, group string, workers int, handler Handler) error {
	if workers <= 0 {
		workers = 1
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	consumer, err := b.js.CreateOrUpdateConsumer(ctx, streamName(topic), jetstream.ConsumerConfig{
		Durable:       durableName(group, topic),
		FilterSubject: topic + ".>",
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       b.ackWait,
		MaxDeliver:    b.maxDeliver,
		MaxAckPending: workers,
	})
	if err != nil {
		return fmt.Errorf("create consumer %s/%s: %w", topic, group, err)
	}

	cc, err := consumer.Consume(func(jsMsg jetstream.Msg) {
		msg := &Message{
			Topic:   topic,
			Key:     keyFromSubject(topic, jsMsg.Subject()),
			Payload: jsMsg.Data(),
		}
		msg.ack = func() {
			if err := jsMsg.Ack(); err != nil {
				b.logger.Warn("ack failed", zap.String("topic", topic), zap.Error(err))
			}
		}
		msg.nack = func() {
			if err := jsMsg.Nak(); err != nil {
				b.logger.Warn("nak failed", zap.String("topic", topic), zap.Error(err))
			}
		}
		handler(context.Background(), msg)
	})
	if err != nil {
		return fmt.Errorf("consume %s/%s: %w", topic, group, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		cc.Stop()
		return ErrClosed
	}
	b.consumers = append(b.consumers, cc)
	return nil
}

// Close stops consumers and drains the connection.
func (b *NATSBus) Close(ctx context.Context) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	consumers := b.consumers
	b.consumers = nil
	b.mu.Unlock()

	for _, cc := range consumers {
		cc.Stop()
	}

	done := make(chan error, 1)
	go func() { done <- b.conn.Drain() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		b.conn.Close()
		return ctx.Err()
	}
}

func streamName(topic string) string {
	return strings.ToUpper(strings.ReplaceAll(topic, "-", "_"))
}

func durableName(group, topic string) string {
	return strings.ReplaceAll(group+"_"+topic, "-", "_")
}

func subjectFor(topic, key string) string {
	return topic + "." + sanitizeToken(key)
}

func keyFromSubject(topic, subject string) string {
	return strings.TrimPrefix(subject, topic+".")
}

// sanitizeToken keeps the key a single valid subject token.
func sanitizeToken(key string) string {
	if key == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', ' ', '*', '>':
			return '_'
		}
		return r
	}, key)
}
