package certificate

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"keystone/pkg/platform/sentinel"
)

// MemoryStore keeps certificates in memory, keyed by account.
type MemoryStore struct {
	mu    sync.RWMutex
	certs map[uuid.UUID]*PaymentCertificate
}

// NewMemoryStore builds an empty certificate store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{certs: make(map[uuid.UUID]*PaymentCertificate)}
}

func (s *MemoryStore) Save(_ context.Context, cert *PaymentCertificate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.certs[cert.AccountID]; exists {
		return sentinel.ErrConflict
	}
	copied := *cert
	s.certs[cert.AccountID] = &copied
	return nil
}

func (s *MemoryStore) GetByAccount(_ context.Context, accountID uuid.UUID) (*PaymentCertificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cert, ok := s.certs[accountID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *cert
	return &copied, nil
}
