package quorum

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory approval log. Append is atomic
// compare-and-append under the store lock, matching the Postgres store's
// ON CONFLICT DO NOTHING semantics.
type MemoryStore struct {
	mu        sync.RWMutex
	approvals map[uuid.UUID][]Approval
}

// NewMemoryStore builds an empty approval log.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{approvals: make(map[uuid.UUID][]Approval)}
}

func (s *MemoryStore) Append(_ context.Context, approval Approval) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.approvals[approval.MilestoneID] {
		if existing.ApproverID == approval.ApproverID {
			return false, nil
		}
	}
	s.approvals[approval.MilestoneID] = append(s.approvals[approval.MilestoneID], approval)
	return true, nil
}

func (s *MemoryStore) List(_ context.Context, milestoneID uuid.UUID) ([]Approval, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Approval{}, s.approvals[milestoneID]...), nil
}
