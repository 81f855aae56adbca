// Package broker provides the durable stream abstraction used to hand
// tickets from the API to the processor: an append-only log with
// competing-consumer groups, per-message acknowledgment and at-least-once
// delivery.
package broker

import (
	"context"
	"errors"
)

// ErrUnavailable is returned when the underlying log cannot be reached.
// A failed Publish gives no guarantee the message was stored.
var ErrUnavailable = errors.New("message broker unavailable")

// Delivery is one record handed to a consumer. Payload is the decoded
// message body; Ack must be called once the corresponding work has
// completed, otherwise the record stays pending and is eligible for
// redelivery to the group.
type Delivery struct {
	ID      string
	Topic   string
	Payload map[string]any

	ack func(ctx context.Context) error
}

// Ack marks the record as fully processed for the consumer group.
func (d *Delivery) Ack(ctx context.Context) error {
	if d.ack == nil {
		return nil
	}
	return d.ack(ctx)
}

// Producer appends messages to the durable log.
type Producer interface {
	// Publish appends message under topic. It returns only after the
	// append is durable; on error the caller must assume nothing was
	// stored.
	Publish(ctx context.Context, topic string, message map[string]any) error
}

// Consumer reads records for one member of a consumer group.
type Consumer interface {
	// Subscribe delivers records matching topic on the returned channel,
	// in the log's append order as observed by this consumer, until ctx
	// is cancelled; the channel is then closed. Records delivered to this
	// consumer are not delivered to other live members of the same group.
	// The stream is infinite and not restartable: call Subscribe once per
	// consumer identity.
	Subscribe(ctx context.Context, topic string) (<-chan Delivery, error)
}
