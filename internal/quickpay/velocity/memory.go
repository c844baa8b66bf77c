package velocity

import (
	"context"
	"sync"
	"time"
)

// MemoryWindow is the in-process fallback when Redis is not configured.
// Counts are per instance; a multi-replica deployment needs the Redis
// window for a coherent view.
type MemoryWindow struct {
	mu     sync.Mutex
	events map[string][]time.Time
	// retention bounds how far back events are kept before pruning.
	retention time.Duration
}

// NewMemoryWindow builds a window retaining events for the given duration.
func NewMemoryWindow(retention time.Duration) *MemoryWindow {
	return &MemoryWindow{
		events:    make(map[string][]time.Time),
		retention: retention,
	}
}

func (w *MemoryWindow) Record(_ context.Context, businessID, _ string, at time.Time) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.events[businessID] = append(w.prune(businessID, at), at)
	return nil
}

func (w *MemoryWindow) Count(_ context.Context, businessID string, since time.Time) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	count := 0
	for _, at := range w.events[businessID] {
		if !at.Before(since) {
			count++
		}
	}
	return count, nil
}

func (w *MemoryWindow) prune(businessID string, now time.Time) []time.Time {
	cutoff := now.Add(-w.retention)
	kept := w.events[businessID][:0]
	for _, at := range w.events[businessID] {
		if !at.Before(cutoff) {
			kept = append(kept, at)
		}
	}
	return kept
}
