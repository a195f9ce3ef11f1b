package ratelimit

import (
	"context"

	"NewsDesk/internal/ports"
)

// QueuedGenerator admits every generation call through a Queue.
type QueuedGenerator struct {
	provider ports.GenerationProvider
	queue    *Queue
}

var _ ports.GenerationProvider = (*QueuedGenerator)(nil)

// NewQueuedGenerator wraps provider so that calls share queue's budget.
func NewQueuedGenerator(provider ports.GenerationProvider, queue *Queue) *QueuedGenerator {
	return &QueuedGenerator{provider: provider, queue: queue}
}

// Generate blocks until the queue admits the call and the provider answers.
func (g *QueuedGenerator) Generate(ctx context.Context, req ports.GenerationRequest) (string, error) {
	return Do(ctx, g.queue, func(ctx context.Context) (string, error) {
		return g.provider.Generate(ctx, req)
	})
}
