package ledger

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Store is the append-only transaction log.
type Store interface {
	Append(ctx context.Context, entry Transaction) error
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]Transaction, error)
}

// MemoryStore keeps the transaction log in memory.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[uuid.UUID][]Transaction
}

// NewMemoryStore builds an empty transaction log.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[uuid.UUID][]Transaction)}
}

func (s *MemoryStore) Append(_ context.Context, entry Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entry.AccountID] = append(s.entries[entry.AccountID], entry)
	return nil
}

func (s *MemoryStore) ListByAccount(_ context.Context, accountID uuid.UUID) ([]Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Transaction{}, s.entries[accountID]...), nil
}
