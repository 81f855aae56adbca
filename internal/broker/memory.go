package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"
)

const memoryPollInterval = 10 * time.Millisecond

type memRecord struct {
	id    string
	topic string
	data  string // JSON-encoded body, mirroring the wire format
}

type memGroup struct {
	cursor  int            // next never-delivered record index
	requeue []int          // redelivered record indexes, served first
	pending map[string]int // delivered but unacknowledged, id -> index
}

// MemoryBroker is an in-process Producer/Consumer used when running
// without Redis and in tests. It keeps the same semantics as the stream
// implementation: append order per consumer, consumer-group sharing,
// explicit acks and redelivery of unacknowledged records.
type MemoryBroker struct {
	mu      sync.Mutex
	records []memRecord
	nextID  int
	groups  map[string]*memGroup
}

// NewMemoryBroker creates an empty in-memory broker.
func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{groups: make(map[string]*memGroup)}
}

func (b *MemoryBroker) Publish(ctx context.Context, topic string, message map[string]any) error {
	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("encode message for %s: %w", topic, err)
	}
	b.append(topic, string(data))
	return nil
}

// PublishRaw appends a record with an arbitrary (possibly malformed)
// body. Exists for exercising the poison-pill path.
func (b *MemoryBroker) PublishRaw(topic, data string) {
	b.append(topic, data)
}

func (b *MemoryBroker) append(topic, data string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	b.records = append(b.records, memRecord{
		id:    fmt.Sprintf("%d-0", b.nextID),
		topic: topic,
		data:  data,
	})
}

// Consumer returns a consumer identity within group. The first consumer
// for a group positions it at the start of the log.
func (b *MemoryBroker) Consumer(group, name string) Consumer {
	return &memConsumer{broker: b, group: group, name: name}
}

// Redeliver moves every unacknowledged record of group back into its
// delivery queue, as the durable log would after a delivery window
// expires.
func (b *MemoryBroker) Redeliver(group string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	g, ok := b.groups[group]
	if !ok {
		return
	}
	for _, idx := range g.pending {
		g.requeue = append(g.requeue, idx)
	}
	g.pending = make(map[string]int)
}

// PendingCount reports delivered-but-unacknowledged records for group.
func (b *MemoryBroker) PendingCount(group string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if g, ok := b.groups[group]; ok {
		return len(g.pending)
	}
	return 0
}

// ensureGroup is idempotent; concurrent creation is race-tolerant.
func (b *MemoryBroker) ensureGroup(group string) *memGroup {
	b.mu.Lock()
	defer b.mu.Unlock()
	g, ok := b.groups[group]
	if !ok {
		g = &memGroup{pending: make(map[string]int)}
		b.groups[group] = g
	}
	return g
}

// pop takes the next record owed to group, preferring redeliveries, and
// marks it pending. Returns false when the group is fully caught up.
func (b *MemoryBroker) pop(group string) (memRecord, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	g := b.groups[group]

	var idx int
	switch {
	case len(g.requeue) > 0:
		idx = g.requeue[0]
		g.requeue = g.requeue[1:]
	case g.cursor < len(b.records):
		idx = g.cursor
		g.cursor++
	default:
		return memRecord{}, false
	}

	rec := b.records[idx]
	g.pending[rec.id] = idx
	return rec, true
}

func (b *MemoryBroker) ack(group, id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if g, ok := b.groups[group]; ok {
		delete(g.pending, id)
	}
}

type memConsumer struct {
	broker *MemoryBroker
	group  string
	name   string
}

func (c *memConsumer) Subscribe(ctx context.Context, topic string) (<-chan Delivery, error) {
	c.broker.ensureGroup(c.group)

	out := make(chan Delivery)
	go c.readLoop(ctx, topic, out)
	return out, nil
}

func (c *memConsumer) readLoop(ctx context.Context, topic string, out chan<- Delivery) {
	defer close(out)

	for {
		rec, ok := c.broker.pop(c.group)
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-time.After(memoryPollInterval):
			}
			continue
		}

		ackFn := func(context.Context) error {
			c.broker.ack(c.group, rec.id)
			return nil
		}

		if rec.topic != topic {
			_ = ackFn(ctx)
			continue
		}

		var payload map[string]any
		if err := json.Unmarshal([]byte(rec.data), &payload); err != nil {
			log.Printf("broker: invalid JSON in message %s, dropping: %v", rec.id, err)
			_ = ackFn(ctx)
			continue
		}

		select {
		case out <- Delivery{ID: rec.id, Topic: rec.topic, Payload: payload, ack: ackFn}:
		case <-ctx.Done():
			return
		}
	}
}
