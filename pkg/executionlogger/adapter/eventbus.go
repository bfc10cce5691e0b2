package adapter

import (
	"context"

	"github.com/smartdatahq/n8n-kafka-execution-logger/pkg/events"
)

// signalEvent adapts a bare signal name into events.Event. It carries no
// payload: server-started and shutdown are pure notifications.
type signalEvent struct{ name string }

func (e signalEvent) GetEventType() string { return e.name }
func (e signalEvent) GetPayload() any      { return nil }

// funcHandler adapts a func(ctx) callback into events.EventHandler so
// EventBus.On's narrower signature can register against a real
// events.EventDispatcher.
type funcHandler func(ctx context.Context)

func (f funcHandler) Handle(ctx context.Context, _ events.Event) error {
	f(ctx)
	return nil
}

// EventDispatcherBus adapts an events.EventDispatcher to EventBus, so
// Service.Bind can register its server-started/shutdown handlers
// against the same dispatcher a host uses for its own domain events
// instead of a bespoke pub/sub type.
type EventDispatcherBus struct {
	dispatcher events.EventDispatcher
}

// NewEventDispatcherBus wraps dispatcher as an EventBus.
func NewEventDispatcherBus(dispatcher events.EventDispatcher) *EventDispatcherBus {
	return &EventDispatcherBus{dispatcher: dispatcher}
}

// On registers handler under event. events.Register errors on a nil
// handler, an empty event name, or a handler already registered under
// that name. Each call registers a fresh *funcHandler, which is
// comparable and never equal to an earlier one, so none of these
// applies and the error is discarded.
func (b *EventDispatcherBus) On(event string, handler func(ctx context.Context)) {
	h := funcHandler(handler)
	_ = b.dispatcher.Register(event, &h)
}

// Dispatch fires every handler registered under name. Hosts that want
// to drive the bus directly (rather than through their own richer
// event types) can call this instead of reaching into the dispatcher.
func (b *EventDispatcherBus) Dispatch(ctx context.Context, name string) error {
	return b.dispatcher.Dispatch(ctx, signalEvent{name: name})
}
