// Package dispatcher routes inbound platform events to the handler
// registered for their kind.
package dispatcher

import (
	"context"
	"fmt"
	"sync"

	"github.com/orderbot/sheetsync/internal/models"
	"go.uber.org/zap"
)

// Event is the envelope handed to handlers. Exactly one of Message and
// Action is set, depending on the kind.
type Event struct {
	Kind    models.EventKind
	Message *models.MessageEvent
	Action  *models.CardActionEvent
}

// Handler processes one event. Handlers run one goroutine per event;
// a failure in one event's handling never affects another event.
type Handler func(ctx context.Context, evt *Event) error

// Dispatcher is a typed dispatch table from event kind to handler.
// closed and the WaitGroup Add share the mutex: Close must never
// return while an accepted event's goroutine is still being launched.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[models.EventKind]Handler
	closed   bool
	logger   *zap.Logger

	wg sync.WaitGroup
}

// New creates an empty dispatcher.
func New(logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		handlers: make(map[models.EventKind]Handler),
		logger:   logger,
	}
}

// Register binds a handler to an event kind, replacing any previous
// binding.
func (d *Dispatcher) Register(kind models.EventKind, handler Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[kind] = handler
	d.logger.Info("Handler registered", zap.String("event_kind", string(kind)))
}

// Dispatch runs the handler for the event's kind synchronously.
func (d *Dispatcher) Dispatch(ctx context.Context, evt *Event) error {
	d.mu.RLock()
	if d.closed {
		d.mu.RUnlock()
		return fmt.Errorf("dispatcher is closed")
	}
	handler, ok := d.handlers[evt.Kind]
	d.mu.RUnlock()

	if !ok {
		d.logger.Info("No handler for event kind", zap.String("event_kind", string(evt.Kind)))
		return nil
	}

	return d.safeExecute(ctx, evt, handler)
}

// DispatchAsync runs the handler in its own goroutine and returns
// immediately. Errors are logged; nothing propagates to the webhook
// response.
func (d *Dispatcher) DispatchAsync(ctx context.Context, evt *Event) {
	d.mu.RLock()
	if d.closed {
		d.mu.RUnlock()
		d.logger.Error("Dropping event, dispatcher is closed",
			zap.String("event_kind", string(evt.Kind)))
		return
	}
	d.wg.Add(1)
	d.mu.RUnlock()

	go func() {
		defer d.wg.Done()
		if err := d.Dispatch(ctx, evt); err != nil {
			d.logger.Error("Event handling failed",
				zap.String("event_kind", string(evt.Kind)),
				zap.Error(err))
		}
	}()
}

// Close stops accepting events and waits for in-flight handlers.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return fmt.Errorf("dispatcher already closed")
	}
	d.closed = true
	d.mu.Unlock()

	d.wg.Wait()
	return nil
}

// safeExecute runs a handler with panic recovery.
func (d *Dispatcher) safeExecute(ctx context.Context, evt *Event, handler Handler) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
			d.logger.Error("Handler panic recovered",
				zap.String("event_kind", string(evt.Kind)),
				zap.Any("panic", r))
		}
	}()
	return handler(ctx, evt)
}
