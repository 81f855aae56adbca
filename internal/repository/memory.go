package repository

import (
	"context"
	"sync"

	"github.com/gradientlab/ticketflow-go/internal/domain/ticket"
)

// MemoryTicketRepo keeps tickets in a map. Used when running without
// Redis and in tests.
type MemoryTicketRepo struct {
	mu      sync.RWMutex
	tickets map[string]ticket.Ticket
}

// NewMemoryTicketRepo creates an empty in-memory repository.
func NewMemoryTicketRepo() *MemoryTicketRepo {
	return &MemoryTicketRepo{tickets: make(map[string]ticket.Ticket)}
}

func (r *MemoryTicketRepo) Save(ctx context.Context, t *ticket.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tickets[t.ID] = *t
	return nil
}

func (r *MemoryTicketRepo) Get(ctx context.Context, id string) (*ticket.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tickets[id]
	if !ok {
		return nil, ticket.ErrNotFound
	}
	copied := t
	return &copied, nil
}

func (r *MemoryTicketRepo) Update(ctx context.Context, t *ticket.Ticket) error {
	return r.Save(ctx, t)
}
