package events

import (
	"context"
	"sync"

	"github.com/msavelyev/authkeeper/internal/logging"
)

// Publisher delivers events to the message bus. Delivery is best-effort:
// implementations log failures instead of returning them, and callers must
// publish only after their own transaction has committed.
type Publisher interface {
	Publish(ctx context.Context, event UserEvent)
}

// LogPublisher writes events to the log instead of a bus. It is the
// default publisher in single-binary deployments without a broker.
type LogPublisher struct {
	logger logging.Logger
}

func NewLogPublisher(logger logging.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, event UserEvent) {
	p.logger.Info(ctx, "user event", "key", event.Key(), "event", event)
}

// Async wraps a Publisher with a buffered queue and a worker goroutine so
// request handlers never block on bus I/O. When the queue is full the
// event is dropped and logged; downstream consumers must tolerate
// at-least-once delivery anyway.
type Async struct {
	next   Publisher
	logger logging.Logger
	queue  chan UserEvent
	done   chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewAsync starts the worker goroutine. Close must be called to drain it.
func NewAsync(next Publisher, logger logging.Logger, buffer int) *Async {
	a := &Async{
		next:   next,
		logger: logger,
		queue:  make(chan UserEvent, buffer),
		done:   make(chan struct{}),
	}
	go a.run()
	return a
}

func (a *Async) Publish(ctx context.Context, event UserEvent) {
	// A handler that outlives the shutdown deadline may still publish
	// after Close; those events are dropped instead of panicking on a
	// closed channel.
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		a.logger.Warn(ctx, "publisher closed, dropping event", "key", event.Key())
		return
	}

	select {
	case a.queue <- event:
	default:
		a.logger.Warn(ctx, "event queue full, dropping event", "key", event.Key())
	}
}

func (a *Async) run() {
	defer close(a.done)
	// Deliveries use a background context: the request that queued the
	// event may be long finished.
	ctx := context.Background()
	for event := range a.queue {
		a.next.Publish(ctx, event)
	}
}

// Close stops accepting events and waits for queued ones to be delivered.
// Close is idempotent; Publish after Close is a logged no-op.
func (a *Async) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	close(a.queue)
	a.mu.Unlock()

	<-a.done
}
