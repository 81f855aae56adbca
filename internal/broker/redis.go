package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Stream entry fields. "data" holds the JSON-encoded message body.
const (
	fieldTopic     = "topic"
	fieldData      = "data"
	fieldTimestamp = "timestamp"
)

const (
	readBlock      = 5 * time.Second
	readRetryDelay = time.Second
)

// RedisProducer appends messages to a Redis Stream.
type RedisProducer struct {
	client    *redis.Client
	streamKey string
}

// NewRedisProducer creates a producer writing to streamKey.
func NewRedisProducer(client *redis.Client, streamKey string) *RedisProducer {
	return &RedisProducer{client: client, streamKey: streamKey}
}

func (p *RedisProducer) Publish(ctx context.Context, topic string, message map[string]any) error {
	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("encode message for %s: %w", topic, err)
	}

	err = p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.streamKey,
		Values: map[string]any{
			fieldTopic:     topic,
			fieldData:      string(data),
			fieldTimestamp: time.Now().UnixMilli(),
		},
	}).Err()
	if err != nil {
		log.Printf("broker: publish to %s failed: %v", topic, err)
		return fmt.Errorf("%w: publish: %v", ErrUnavailable, err)
	}
	return nil
}

// RedisConsumer reads a Redis Stream as one member of a consumer group.
type RedisConsumer struct {
	client    *redis.Client
	streamKey string
	group     string
	name      string
}

// NewRedisConsumer creates a consumer identity within group.
func NewRedisConsumer(client *redis.Client, streamKey, group, name string) *RedisConsumer {
	return &RedisConsumer{client: client, streamKey: streamKey, group: group, name: name}
}

// ensureGroup creates the consumer group at the start of the stream.
// BUSYGROUP means another consumer won the race, which is fine.
func (c *RedisConsumer) ensureGroup(ctx context.Context) error {
	err := c.client.XGroupCreateMkStream(ctx, c.streamKey, c.group, "0").Err()
	if err != nil {
		if strings.Contains(err.Error(), "BUSYGROUP") {
			return nil
		}
		return fmt.Errorf("%w: create group %s: %v", ErrUnavailable, c.group, err)
	}
	log.Printf("broker: created consumer group %s for stream %s", c.group, c.streamKey)
	return nil
}

func (c *RedisConsumer) Subscribe(ctx context.Context, topic string) (<-chan Delivery, error) {
	if err := c.ensureGroup(ctx); err != nil {
		return nil, err
	}

	out := make(chan Delivery)
	go c.readLoop(ctx, topic, out)
	return out, nil
}

func (c *RedisConsumer) readLoop(ctx context.Context, topic string, out chan<- Delivery) {
	defer close(out)

	for {
		if ctx.Err() != nil {
			return
		}

		streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    c.group,
			Consumer: c.name,
			Streams:  []string{c.streamKey, ">"},
			Count:    1,
			Block:    readBlock,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				// Block window elapsed with nothing new.
				continue
			}
			if ctx.Err() != nil {
				return
			}
			log.Printf("broker: error reading from stream %s: %v", c.streamKey, err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(readRetryDelay):
			}
			continue
		}

		for _, stream := range streams {
			for _, msg := range stream.Messages {
				if !c.dispatch(ctx, topic, msg, out) {
					return
				}
			}
		}
	}
}

// dispatch filters, decodes and hands one stream entry to the caller.
// Returns false when the subscription context is done.
func (c *RedisConsumer) dispatch(ctx context.Context, topic string, msg redis.XMessage, out chan<- Delivery) bool {
	id := msg.ID
	ackFn := func(ctx context.Context) error {
		if err := c.client.XAck(ctx, c.streamKey, c.group, id).Err(); err != nil {
			return fmt.Errorf("%w: ack %s: %v", ErrUnavailable, id, err)
		}
		return nil
	}

	msgTopic, _ := msg.Values[fieldTopic].(string)
	if msgTopic != topic {
		// Not ours; ack so it does not sit in the group's pending list.
		if err := ackFn(ctx); err != nil {
			log.Printf("broker: %v", err)
		}
		return true
	}

	raw, _ := msg.Values[fieldData].(string)
	var payload map[string]any
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		// Poison pill: ack and drop rather than redeliver forever.
		log.Printf("broker: invalid JSON in message %s, dropping: %v", id, err)
		if err := ackFn(ctx); err != nil {
			log.Printf("broker: %v", err)
		}
		return true
	}

	select {
	case out <- Delivery{ID: id, Topic: msgTopic, Payload: payload, ack: ackFn}:
		return true
	case <-ctx.Done():
		return false
	}
}
