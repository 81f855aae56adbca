// Package repository provides the ticket store implementations behind
// the domain ticket.Repository interface.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gradientlab/ticketflow-go/internal/domain/ticket"
)

const ticketKeyPrefix = "ticket:"

const (
	getMaxRetries = 3
	getBaseDelay  = 100 * time.Millisecond
)

// RedisTicketRepo stores tickets as JSON strings under ticket:<id>.
type RedisTicketRepo struct {
	client *redis.Client
}

// NewRedisTicketRepo creates a ticket repository backed by Redis.
func NewRedisTicketRepo(client *redis.Client) *RedisTicketRepo {
	return &RedisTicketRepo{client: client}
}

func (r *RedisTicketRepo) Save(ctx context.Context, t *ticket.Ticket) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encode ticket %s: %w", t.ID, err)
	}

	if err := r.client.Set(ctx, ticketKeyPrefix+t.ID, data, 0).Err(); err != nil {
		log.Printf("repository: error saving ticket %s: %v", t.ID, err)
		return fmt.Errorf("%w: save ticket %s: %v", ticket.ErrStorageUnavailable, t.ID, err)
	}
	return nil
}

// Get retries transient backend errors with exponential backoff before
// giving up. A missing key is a valid result, not a failure.
func (r *RedisTicketRepo) Get(ctx context.Context, id string) (*ticket.Ticket, error) {
	delay := getBaseDelay
	var lastErr error

	for attempt := 0; attempt < getMaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		data, err := r.client.Get(ctx, ticketKeyPrefix+id).Result()
		if errors.Is(err, redis.Nil) {
			return nil, ticket.ErrNotFound
		}
		if err != nil {
			lastErr = err
			continue
		}

		var t ticket.Ticket
		if err := json.Unmarshal([]byte(data), &t); err != nil {
			return nil, fmt.Errorf("decode ticket %s: %w", id, err)
		}
		return &t, nil
	}

	log.Printf("repository: error retrieving ticket %s: %v", id, lastErr)
	return nil, fmt.Errorf("%w: get ticket %s: %v", ticket.ErrStorageUnavailable, id, lastErr)
}

// Update is an upsert, same as Save.
func (r *RedisTicketRepo) Update(ctx context.Context, t *ticket.Ticket) error {
	return r.Save(ctx, t)
}
