// Package pipeline wires stage handlers to their triggering event queues and
// runs the consumers. It owns no business logic.
package pipeline

import (
	"context"
	"log"
	"sync"

	"github.com/newm4n/pranoto.ai/pkg/rabbitmq"
)

// Consumer is the subscription a stage handler is driven by.
type Consumer interface {
	Queue() string
	Start(ctx context.Context, handler rabbitmq.Handler) error
	Close() error
}

type registration struct {
	consumer Consumer
	handler  rabbitmq.Handler
}

// Orchestrator binds each stage handler to its event queue.
type Orchestrator struct {
	registrations []registration
}

func NewOrchestrator() *Orchestrator {
	return &Orchestrator{}
}

// Register binds a handler to a consumer's queue.
func (o *Orchestrator) Register(consumer Consumer, handler rabbitmq.Handler) {
	o.registrations = append(o.registrations, registration{consumer: consumer, handler: handler})
	log.Printf("✓ Registered stage handler for queue: %s\n", consumer.Queue())
}

// Run starts one consumer loop per registration and blocks until all have
// stopped. The first consumer failure cancels the rest; its error is
// returned. Context cancellation is a clean shutdown, not an error.
func (o *Orchestrator) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	var once sync.Once
	var firstErr error

	for _, reg := range o.registrations {
		reg := reg
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := reg.consumer.Start(runCtx, reg.handler); err != nil && runCtx.Err() == nil {
				once.Do(func() { firstErr = err })
				cancel()
			}
		}()
	}

	wg.Wait()
	return firstErr
}

// Close closes every registered consumer.
func (o *Orchestrator) Close() {
	for _, reg := range o.registrations {
		if err := reg.consumer.Close(); err != nil {
			log.Printf("[!] Warning: failed to close consumer for %s: %v\n", reg.consumer.Queue(), err)
		}
	}
}
