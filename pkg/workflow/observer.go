package workflow

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/dukex/storyflow/pkg/eventbus"
	"github.com/dukex/storyflow/pkg/events"
)

// Observer receives lifecycle notifications. Observers run on the notifying
// goroutine and must not call JumpToNode.
type Observer interface {
	Notify(ctx context.Context, event events.Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, event events.Event)

func (f ObserverFunc) Notify(ctx context.Context, event events.Event) {
	f(ctx, event)
}

func (e *Executor) notify(ctx context.Context, event events.Event) {
	for _, observer := range e.observers {
		observer.Notify(ctx, event)
	}
}

// ChannelObserver buffers events on a channel for a consumer to drain.
// Events that do not fit in the buffer are dropped and counted.
type ChannelObserver struct {
	events  chan events.Event
	dropped atomic.Int64
}

// NewChannelObserver creates an observer with the given buffer size.
func NewChannelObserver(size int) *ChannelObserver {
	if size <= 0 {
		size = 256
	}

	return &ChannelObserver{events: make(chan events.Event, size)}
}

func (o *ChannelObserver) Notify(_ context.Context, event events.Event) {
	select {
	case o.events <- event:
	default:
		o.dropped.Add(1)
	}
}

// Events returns the channel to drain.
func (o *ChannelObserver) Events() <-chan events.Event {
	return o.events
}

// Dropped returns how many events did not fit in the buffer.
func (o *ChannelObserver) Dropped() int64 {
	return o.dropped.Load()
}

// BusObserver publishes every event on an event bus keyed by run id.
type BusObserver struct {
	publisher eventbus.EventPublisher
	logger    *slog.Logger
}

// NewBusObserver creates an observer publishing through publisher.
func NewBusObserver(publisher eventbus.EventPublisher, logger *slog.Logger) *BusObserver {
	if logger == nil {
		logger = slog.Default()
	}

	return &BusObserver{
		publisher: publisher,
		logger:    logger.With("module", "bus_observer"),
	}
}

func (o *BusObserver) Notify(ctx context.Context, event events.Event) {
	key := ""
	if keyed, ok := event.(interface{ EventKey() string }); ok {
		key = keyed.EventKey()
	}

	err := o.publisher.Publish(ctx, key, event)
	if err != nil {
		o.logger.ErrorContext(ctx, "Failed to publish event", "event_type", event.GetType(), "error", err)
	}
}
