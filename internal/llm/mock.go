package llm

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"
)

// MockClient simulates a slow LLM. It answers every prompt with a canned
// response after a uniformly random delay in [minDelay, maxDelay].
type MockClient struct {
	minDelay time.Duration
	maxDelay time.Duration
}

// NewMockClient creates a mock backend with the given latency bounds.
func NewMockClient(minDelay, maxDelay time.Duration) *MockClient {
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	return &MockClient{minDelay: minDelay, maxDelay: maxDelay}
}

func (c *MockClient) Generate(ctx context.Context, prompt string) (*Response, error) {
	delay := c.minDelay
	if span := c.maxDelay - c.minDelay; span > 0 {
		delay += time.Duration(rand.Int63n(int64(span)))
	}
	log.Printf("llm: mock generating response (will take %s)", delay.Round(100*time.Millisecond))

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(delay):
	}

	text := fmt.Sprintf("This is a mock response to the question: '%s'\n\n", prompt) +
		"The answer is based on my understanding of the question. " +
		"In a real implementation, this would be replaced with an actual LLM response."
	return &Response{Text: text}, nil
}
