package escrow

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"keystone/pkg/platform/sentinel"
)

// MemoryStore keeps account aggregates in memory. Get and Update deep-copy
// so callers never alias store-owned state.
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[uuid.UUID]*EscrowAccount
}

// NewMemoryStore builds an empty account store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{accounts: make(map[uuid.UUID]*EscrowAccount)}
}

func (s *MemoryStore) Create(_ context.Context, account *EscrowAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[account.ID]; exists {
		return sentinel.ErrConflict
	}
	s.accounts[account.ID] = clone(account)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id uuid.UUID) (*EscrowAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.accounts[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(account), nil
}

func (s *MemoryStore) Update(_ context.Context, account *EscrowAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[account.ID]; !ok {
		return sentinel.ErrNotFound
	}
	if err := account.CheckBalances(); err != nil {
		return err
	}
	s.accounts[account.ID] = clone(account)
	return nil
}

func (s *MemoryStore) ListPendingFundingBefore(_ context.Context, cutoff time.Time) ([]*EscrowAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*EscrowAccount
	for _, account := range s.accounts {
		if account.Status == StatusPendingFunding && account.FundingDeadline.Before(cutoff) {
			out = append(out, clone(account))
		}
	}
	return out, nil
}

func clone(a *EscrowAccount) *EscrowAccount {
	copied := *a
	copied.Subcontractors = append([]Party(nil), a.Subcontractors...)
	copied.Milestones = make([]*Milestone, len(a.Milestones))
	for i, m := range a.Milestones {
		mc := *m
		mc.Requires = append([]ApprovalRequirement(nil), m.Requires...)
		copied.Milestones[i] = &mc
	}
	if a.ActivatedAt != nil {
		t := *a.ActivatedAt
		copied.ActivatedAt = &t
	}
	if a.CompletedAt != nil {
		t := *a.CompletedAt
		copied.CompletedAt = &t
	}
	return &copied
}
