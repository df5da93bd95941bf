package bus

import (
	"context"
	"sync"
	"time"

	"github.com/ricesearch/rice-insight/internal/pkg/errors"
	"github.com/ricesearch/rice-insight/internal/pkg/logger"
)

// DefaultDrainTimeout bounds how long Close waits for in-flight handlers.
const DefaultDrainTimeout = 10 * time.Second

// MemoryBus is an in-process event bus. Handlers run on their own goroutines.
type MemoryBus struct {
	mu         sync.RWMutex
	handlers   map[string][]Handler
	closed     bool
	inflightWg sync.WaitGroup
	log        *logger.Logger
}

// NewMemoryBus creates a new in-memory event bus.
func NewMemoryBus(log *logger.Logger) *MemoryBus {
	if log == nil {
		log = logger.Discard()
	}
	return &MemoryBus{
		handlers: make(map[string][]Handler),
		log:      log.WithComponent("bus"),
	}
}

// Publish fans an event out to all subscribers of a topic. Handler errors
// are logged and never fail the publish.
func (b *MemoryBus) Publish(ctx context.Context, topic string, event Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return errors.New(errors.CodeUnavailable, "bus is closed")
	}

	// Handlers outlive the publishing request.
	hctx := context.WithoutCancel(ctx)
	for _, handler := range b.handlers[topic] {
		b.inflightWg.Add(1)
		go func(h Handler) {
			defer b.inflightWg.Done()
			if err := h(hctx, event); err != nil {
				b.log.WithContext(ctx).WithError(err).Warn("Event handler failed",
					"topic", topic,
					"event_id", event.ID,
				)
			}
		}(handler)
	}

	return nil
}

// Subscribe registers a handler for events on a topic.
func (b *MemoryBus) Subscribe(_ context.Context, topic string, handler Handler) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return errors.New(errors.CodeUnavailable, "bus is closed")
	}

	b.handlers[topic] = append(b.handlers[topic], handler)
	return nil
}

// Close closes the bus, waiting up to DefaultDrainTimeout for in-flight handlers.
func (b *MemoryBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	if !b.Drain(DefaultDrainTimeout) {
		b.log.Warn("Event drain timeout reached, some handlers may not have completed")
	}

	b.mu.Lock()
	b.handlers = nil
	b.mu.Unlock()

	return nil
}

// Drain waits for in-flight handlers and reports whether they all finished
// within the timeout.
func (b *MemoryBus) Drain(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		b.inflightWg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}
