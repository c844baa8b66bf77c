package audit

import (
	"context"
	"log/slog"
	"time"
)

// Publisher hands audit events to a buffered channel consumed by the
// worker, keeping audit persistence off the request path. Emit never
// blocks domain logic: a slow audit sink must not stall fund movements, so
// when the buffer is full the event is dropped, counted, and logged.
type Publisher struct {
	inbox   chan Event
	logger  *slog.Logger
	dropped func()
}

// NewPublisher builds a publisher with the given buffer size. dropped is
// invoked (if non-nil) whenever an event cannot be buffered.
func NewPublisher(buffer int, logger *slog.Logger, dropped func()) *Publisher {
	return &Publisher{
		inbox:   make(chan Event, buffer),
		logger:  logger,
		dropped: dropped,
	}
}

// Emit queues an event, stamping the time if unset.
func (p *Publisher) Emit(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	select {
	case p.inbox <- event:
	default:
		if p.dropped != nil {
			p.dropped()
		}
		p.logger.WarnContext(ctx, "audit buffer full, event dropped",
			"action", event.Action,
			"subject", event.Subject,
		)
	}
}

// Inbox exposes the channel for the worker.
func (p *Publisher) Inbox() <-chan Event {
	return p.inbox
}
