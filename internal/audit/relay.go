package audit

import (
	"context"
	"log/slog"
	"time"
)

// Sink is the broker side of the relay (see internal/platform/kafka).
type Sink interface {
	Produce(ctx context.Context, key string, payload []byte) error
}

// Relay drains the transactional outbox into Kafka. At-least-once: an entry
// is marked published only after the broker acknowledges, so a crash
// between produce and mark re-publishes. Consumers must dedupe on event id,
// which rides inside the payload.
type Relay struct {
	source   *PostgresStore
	sink     Sink
	logger   *slog.Logger
	interval time.Duration
	batch    int
}

// NewRelay builds a relay polling source every interval.
func NewRelay(source *PostgresStore, sink Sink, logger *slog.Logger, interval time.Duration) *Relay {
	return &Relay{
		source:   source,
		sink:     sink,
		logger:   logger,
		interval: interval,
		batch:    100,
	}
}

// Run polls until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := r.Publish(ctx); err != nil && ctx.Err() == nil {
				r.logger.ErrorContext(ctx, "audit relay pass failed", "error", err)
			}
		}
	}
}

// Publish performs one relay pass and is exposed for tests.
func (r *Relay) Publish(ctx context.Context) error {
	entries, err := r.source.ListOutbox(ctx, r.batch)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if err := r.sink.Produce(ctx, entry.Subject, entry.Payload); err != nil {
			// Stop the pass: publishing out of order within a subject would
			// break the per-partition ordering guarantee.
			return err
		}
		if err := r.source.MarkPublished(ctx, entry.ID); err != nil {
			return err
		}
	}
	return nil
}
