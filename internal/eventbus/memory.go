package eventbus

import (
	"context"
	"hash/fnv"
	"sync"

	"go.uber.org/zap"
)

const defaultMaxDeliver = 3

// MemoryBus is an in-process bus for tests and single-node deployments.
// Each subscription owns a fixed set of partitions; messages are routed to
// partitions by key hash, so all messages for one key are handled by one
// worker in publish order. Nacked messages are redelivered to the same
// partition until the delivery cap is reached.
type MemoryBus struct {
	mu         sync.Mutex
	subs       map[string][]*memorySubscription
	closed     bool
	wg         sync.WaitGroup
	maxDeliver int
	logger     *zap.Logger
}

// MemoryBusOption configures the bus.
type MemoryBusOption func(*MemoryBus)

// WithMaxDeliver caps delivery attempts per message.
func WithMaxDeliver(n int) MemoryBusOption {
	return func(b *MemoryBus) {
		if n > 0 {
			b.maxDeliver = n
		}
	}
}

// NewMemoryBus constructs an in-memory bus.
func NewMemoryBus(logger *zap.Logger, opts ...MemoryBusOption) *MemoryBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	bus := &MemoryBus{
		subs:       make(map[string][]*memorySubscription),
		maxDeliver: defaultMaxDeliver,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(bus)
	}
	return bus
}

// Publish fans the payload out to every group subscribed to the topic.
func (b *MemoryBus) Publish(_ context.Context, topic, key string, payload []byte) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}
	subs := append([]*memorySubscription(nil), b.subs[topic]...)
	b.mu.Unlock()

	data := append([]byte(nil), payload...)
	for _, sub := range subs {
		sub.enqueue(&memoryDelivery{topic: topic, key: key, payload: data})
	}
	return nil
}

// Subscribe registers a consumer group with the given worker count. Each
// worker owns one partition and processes it sequentially.
func (b *MemoryBus) Subscribe(topic, group string, workers int, handler Handler) error {
	if workers <= 0 {
		workers = 1
	}
	sub := newMemorySubscription(b, topic, group, workers, handler)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}
	b.subs[topic] = append(b.subs[topic], sub)
	b.mu.Unlock()

	for i := range sub.partitions {
		b.wg.Add(1)
		go sub.run(i)
	}
	return nil
}

// Close stops accepting publishes and waits for workers to drain their
// partitions, bounded by the context deadline.
func (b *MemoryBus) Close(ctx context.Context) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	var all []*memorySubscription
	for _, subs := range b.subs {
		all = append(all, subs...)
	}
	b.mu.Unlock()

	for _, sub := range all {
		sub.close()
	}

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type memoryDelivery struct {
	topic    string
	key      string
	payload  []byte
	attempts int
}

type memorySubscription struct {
	bus        *MemoryBus
	topic      string
	group      string
	handler    Handler
	partitions []*memoryPartition
}

func newMemorySubscription(bus *MemoryBus, topic, group string, workers int, handler Handler) *memorySubscription {
	sub := &memorySubscription{bus: bus, topic: topic, group: group, handler: handler}
	sub.partitions = make([]*memoryPartition, workers)
	for i := range sub.partitions {
		sub.partitions[i] = newMemoryPartition()
	}
	return sub
}

func (s *memorySubscription) enqueue(d *memoryDelivery) {
	idx := partitionFor(d.key, len(s.partitions))
	s.partitions[idx].push(d)
}

func (s *memorySubscription) run(idx int) {
	defer s.bus.wg.Done()
	part := s.partitions[idx]
	for {
		d, ok := part.pop()
		if !ok {
			return
		}
		s.deliver(part, d)
	}
}

func (s *memorySubscription) deliver(part *memoryPartition, d *memoryDelivery) {
	d.attempts++
	msg := &Message{
		Topic:   d.topic,
		Key:     d.key,
		Payload: d.payload,
	}
	msg.ack = func() {}
	msg.nack = func() {
		if d.attempts >= s.bus.maxDeliver {
			s.bus.logger.Warn("dropping message after delivery cap",
				zap.String("topic", d.topic),
				zap.String("group", s.group),
				zap.String("key", d.key),
				zap.Int("attempts", d.attempts),
			)
			return
		}
		part.push(d)
	}
	s.handler(context.Background(), msg)
	// Unsettled messages are released, not silently consumed.
	msg.Nack()
}

func (s *memorySubscription) close() {
	for _, part := range s.partitions {
		part.close()
	}
}

type memoryPartition struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []*memoryDelivery
	closed bool
}

func newMemoryPartition() *memoryPartition {
	part := &memoryPartition{}
	part.cond = sync.NewCond(&part.mu)
	return part
}

func (p *memoryPartition) push(d *memoryDelivery) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.queue = append(p.queue, d)
	p.cond.Signal()
}

// pop blocks until a delivery is available. After close it drains the
// remaining queue, then reports ok=false.
func (p *memoryPartition) pop() (*memoryDelivery, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for len(p.queue) == 0 && !p.closed {
		p.cond.Wait()
	}
	if len(p.queue) == 0 {
		return nil, false
	}
	d := p.queue[0]
	p.queue = p.queue[1:]
	return d, true
}

func (p *memoryPartition) close() {
	p.mu.Lock()
	p.closed = true
	p.cond.Broadcast()
	p.mu.Unlock()
}

func partitionFor(key string, partitions int) int {
	if partitions <= 1 {
		return 0
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(partitions))
}
