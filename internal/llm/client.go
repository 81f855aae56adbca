// Package llm defines the processing backend contract: turn a question
// into generated text. The processor only depends on this interface; how
// an answer is computed lives behind it.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log"
)

// ErrBackendFailure is returned when the backend cannot produce an
// answer. The processor catches it; the ticket it was working on stays
// in the processing state.
var ErrBackendFailure = errors.New("llm backend failure")

// Response is the generated output for one prompt.
type Response struct {
	Text string
}

// Client generates text from a prompt. Calls may take seconds; they
// honor ctx cancellation and deadlines.
type Client interface {
	Generate(ctx context.Context, prompt string) (*Response, error)
}

// Service wraps a Client and normalizes its failures into
// ErrBackendFailure so callers never see transport detail.
type Service struct {
	client Client
}

// NewService creates an LLM service around client.
func NewService(client Client) *Service {
	return &Service{client: client}
}

// ProcessQuery runs query through the backend and returns the answer text.
func (s *Service) ProcessQuery(ctx context.Context, query string) (string, error) {
	resp, err := s.client.Generate(ctx, query)
	if err != nil {
		log.Printf("llm: error processing query: %v", err)
		return "", fmt.Errorf("%w: %v", ErrBackendFailure, err)
	}
	return resp.Text, nil
}
