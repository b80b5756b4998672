// internal/events/handler.go
package events

import "context"

// Handler consumes events of a single type. Implementations must not block:
// all handlers for an event run sequentially on the dispatch goroutine.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, event Event) error

func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Subscription is a live handler registration on the bus.
type Subscription interface {
	// Unsubscribe removes the handler. Safe to call more than once.
	Unsubscribe()
}

type subscription struct {
	id       string
	eventBus *Bus
	typ      EventType
}

func (s *subscription) Unsubscribe() {
	s.eventBus.unsubscribe(s.id, s.typ)
}
