// Package processor runs the long-lived worker loop that consumes
// ticket.created events and drives tickets to their answer.
package processor

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/gradientlab/ticketflow-go/internal/application"
	"github.com/gradientlab/ticketflow-go/internal/broker"
	"github.com/gradientlab/ticketflow-go/internal/domain/ticket"
	"github.com/gradientlab/ticketflow-go/internal/llm"
)

const (
	// restartDelay is waited before restarting the subscribe loop after
	// it fails. The loop itself restarts forever; only per-record
	// redelivery is bounded by the broker.
	restartDelay = 5 * time.Second

	defaultProcessTimeout = 2 * time.Minute
)

// Processor consumes ticket.created events as one member of a shared
// consumer group and advances each ticket uninitialized -> processing ->
// done. Every delivered record is handled in its own goroutine so a slow
// backend call never delays consumption of the next record.
type Processor struct {
	tickets  *application.TicketService
	llm      *llm.Service
	consumer broker.Consumer

	processTimeout time.Duration
	wg             sync.WaitGroup
}

// New creates a processor for one worker identity.
func New(tickets *application.TicketService, llmSvc *llm.Service, consumer broker.Consumer) *Processor {
	return &Processor{
		tickets:        tickets,
		llm:            llmSvc,
		consumer:       consumer,
		processTimeout: defaultProcessTimeout,
	}
}

// Run drives the subscribe loop until ctx is cancelled, restarting it
// after restartDelay whenever it fails. Always returns ctx.Err() after
// in-flight tickets have drained.
func (p *Processor) Run(ctx context.Context) error {
	log.Println("processor: starting ticket processor")

	for {
		err := p.consume(ctx)
		if ctx.Err() != nil {
			p.wg.Wait()
			log.Println("processor: stopped")
			return ctx.Err()
		}
		log.Printf("processor: consumer loop ended: %v; restarting in %s", err, restartDelay)
		select {
		case <-ctx.Done():
			p.wg.Wait()
			log.Println("processor: stopped")
			return ctx.Err()
		case <-time.After(restartDelay):
		}
	}
}

// consume reads deliveries until the subscription ends. Records without
// a usable ticket_id are acknowledged and dropped.
func (p *Processor) consume(ctx context.Context) error {
	deliveries, err := p.consumer.Subscribe(ctx, application.TopicTicketCreated)
	if err != nil {
		return err
	}

	for d := range deliveries {
		ticketID, ok := d.Payload["ticket_id"].(string)
		if !ok || ticketID == "" {
			log.Printf("processor: message %s without ticket_id", d.ID)
			if err := d.Ack(ctx); err != nil {
				log.Printf("processor: %v", err)
			}
			continue
		}

		p.wg.Add(1)
		go func(d broker.Delivery, id string) {
			defer p.wg.Done()
			p.processTicket(ctx, id)
			// Acknowledge after the attempt either way: a failed ticket
			// stays in the processing state rather than being redelivered
			// forever.
			if err := d.Ack(ctx); err != nil {
				log.Printf("processor: %v", err)
			}
		}(d, ticketID)
	}
	return nil
}

// processTicket advances one ticket. Errors are logged and swallowed so
// one bad ticket never halts the consumer loop.
func (p *Processor) processTicket(ctx context.Context, id string) {
	ctx, cancel := context.WithTimeout(ctx, p.processTimeout)
	defer cancel()

	t, err := p.tickets.GetTicketData(ctx, id)
	if err != nil {
		if errors.Is(err, ticket.ErrNotFound) {
			// Event arrived for a ticket the store cannot see; drop it.
			log.Printf("processor: ticket %s not found, dropping event", id)
			return
		}
		log.Printf("processor: error loading ticket %s: %v", id, err)
		return
	}

	if err := p.tickets.UpdateTicketStatus(ctx, id, ticket.StatusProcessing); err != nil {
		if errors.Is(err, application.ErrInvalidTransition) {
			// Redelivery of an already finished ticket; nothing to redo.
			log.Printf("processor: ticket %s already %s, skipping", id, t.Status)
			return
		}
		log.Printf("processor: error updating ticket %s: %v", id, err)
		return
	}
	log.Printf("processor: processing ticket %s", id)

	answer, err := p.llm.ProcessQuery(ctx, t.Question)
	if err != nil {
		log.Printf("processor: error processing ticket %s: %v", id, err)
		return
	}

	if err := p.tickets.UpdateTicketAnswer(ctx, id, answer); err != nil {
		log.Printf("processor: error recording answer for ticket %s: %v", id, err)
		return
	}
	log.Printf("processor: completed ticket %s", id)
}
