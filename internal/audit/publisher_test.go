package audit

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitQueuesEvent(t *testing.T) {
	p := NewPublisher(4, slog.New(slog.DiscardHandler), nil)
	p.Emit(context.Background(), Event{Action: EscrowCreated, Subject: "acc-1"})

	select {
	case event := <-p.Inbox():
		assert.Equal(t, EscrowCreated, event.Action)
		assert.False(t, event.Timestamp.IsZero(), "timestamp is stamped when unset")
	default:
		t.Fatal("expected a buffered event")
	}
}

func TestEmitNeverBlocks(t *testing.T) {
	dropped := 0
	p := NewPublisher(2, slog.New(slog.DiscardHandler), func() { dropped++ })

	for i := 0; i < 5; i++ {
		p.Emit(context.Background(), Event{Action: QuickPaySubmitted, Subject: "req-1"})
	}
	assert.Equal(t, 3, dropped)
	assert.Len(t, p.Inbox(), 2)
}

func TestWorkerPersistsAndDrains(t *testing.T) {
	store := NewMemoryStore()
	p := NewPublisher(16, slog.New(slog.DiscardHandler), nil)
	worker := NewWorker(store, p.Inbox(), slog.New(slog.DiscardHandler))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	for i := 0; i < 3; i++ {
		p.Emit(ctx, Event{Action: EscrowFunded, Subject: "acc-1"})
	}

	require.Eventually(t, func() bool {
		events, err := store.ListBySubject(context.Background(), "acc-1")
		return err == nil && len(events) == 3
	}, time.Second, 5*time.Millisecond)

	// Events buffered at shutdown are drained before Run returns.
	p.Emit(ctx, Event{Action: EscrowCompleted, Subject: "acc-2"})
	cancel()
	err := <-done
	assert.ErrorIs(t, err, context.Canceled)

	events, err := store.ListBySubject(context.Background(), "acc-2")
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestEventsKeepPerSubjectOrder(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	for _, action := range []Action{EscrowCreated, EscrowFunded, PaymentReleased, EscrowCompleted} {
		require.NoError(t, store.Append(ctx, Event{Action: action, Subject: "acc-1"}))
	}

	events, err := store.ListBySubject(ctx, "acc-1")
	require.NoError(t, err)
	require.Len(t, events, 4)
	assert.Equal(t, EscrowCreated, events[0].Action)
	assert.Equal(t, EscrowCompleted, events[3].Action)
}
