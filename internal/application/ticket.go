// Package application holds the service layer orchestrating tickets
// between the store and the broker.
package application

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/gradientlab/ticketflow-go/internal/broker"
	"github.com/gradientlab/ticketflow-go/internal/domain/ticket"
)

// TopicTicketCreated is published once per created ticket.
const TopicTicketCreated = "ticket.created"

// ErrEnqueueFailed means the ticket was durably persisted but the
// created event could not be published; the ticket exists but will not
// be processed automatically.
var ErrEnqueueFailed = errors.New("ticket enqueue failed")

// ErrInvalidTransition is returned for a status change that would move a
// ticket backwards through its lifecycle.
var ErrInvalidTransition = errors.New("invalid ticket status transition")

// TicketService owns all ticket state changes. Dependencies are injected
// at construction; nothing here touches shared process state.
type TicketService struct {
	repo     ticket.Repository
	producer broker.Producer
}

// NewTicketService creates a ticket service.
func NewTicketService(repo ticket.Repository, producer broker.Producer) *TicketService {
	return &TicketService{repo: repo, producer: producer}
}

// CreateTicket persists a new ticket and queues it for processing,
// returning its id. The ticket is persisted before the event is
// published so a consumer reacting to the event always finds it. When
// publishing fails the id is still returned together with
// ErrEnqueueFailed.
func (s *TicketService) CreateTicket(ctx context.Context, question string) (string, error) {
	id := uuid.NewString()
	t := ticket.New(id, question)

	if err := s.repo.Save(ctx, t); err != nil {
		return "", fmt.Errorf("create ticket: %w", err)
	}
	log.Printf("service: created ticket %s", id)

	if err := s.producer.Publish(ctx, TopicTicketCreated, map[string]any{"ticket_id": id}); err != nil {
		log.Printf("service: ticket %s persisted but not queued: %v", id, err)
		return id, fmt.Errorf("%w: ticket %s: %v", ErrEnqueueFailed, id, err)
	}
	log.Printf("service: queued ticket %s for processing", id)

	return id, nil
}

// GetTicketData returns the full ticket, or ticket.ErrNotFound.
func (s *TicketService) GetTicketData(ctx context.Context, id string) (*ticket.Ticket, error) {
	t, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ticket.ErrNotFound) {
			log.Printf("service: ticket %s not found", id)
		}
		return nil, err
	}
	return t, nil
}

// GetTicketStatus returns just the ticket's status.
func (s *TicketService) GetTicketStatus(ctx context.Context, id string) (ticket.TicketStatus, error) {
	t, err := s.GetTicketData(ctx, id)
	if err != nil {
		return "", err
	}
	return t.Status, nil
}

// UpdateTicketStatus moves the ticket to status, refusing backward
// transitions.
func (s *TicketService) UpdateTicketStatus(ctx context.Context, id string, status ticket.TicketStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, status)
	}

	t, err := s.GetTicketData(ctx, id)
	if err != nil {
		return err
	}
	if !t.Status.CanTransitionTo(status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.Status, status)
	}

	t.Status = status
	t.Touch()
	if err := s.repo.Update(ctx, t); err != nil {
		return err
	}
	log.Printf("service: updated ticket %s status to %s", id, status)
	return nil
}

// UpdateTicketAnswer records the answer and marks the ticket done. This
// is the only path into the done state.
func (s *TicketService) UpdateTicketAnswer(ctx context.Context, id, answer string) error {
	t, err := s.GetTicketData(ctx, id)
	if err != nil {
		return err
	}

	t.Answer = &answer
	t.Status = ticket.StatusDone
	t.Touch()
	if err := s.repo.Update(ctx, t); err != nil {
		return err
	}
	log.Printf("service: updated ticket %s with answer and status done", id)
	return nil
}
