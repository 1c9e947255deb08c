package outbox

import "context"

// Event is a committed domain fact identified by name.
type Event interface {
	EventName() string
}

// Keyed events expose the aggregate they belong to; brokers use it for routing and dedup.
type Keyed interface {
	AggregateID() string
}

// Handler consumes one delivered event. Errors are logged by the bus, never retried.
type Handler func(ctx context.Context, e Event) error

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

type Subscriber interface {
	Subscribe(eventName string, h Handler)
}

// Bus is the publish/subscribe pair the application wires against.
type Bus interface {
	Publisher
	Subscriber
}

// KeyOf returns the aggregate id of e, or "" when e is not Keyed.
func KeyOf(e Event) string {
	if k, ok := e.(Keyed); ok {
		return k.AggregateID()
	}
	return ""
}
