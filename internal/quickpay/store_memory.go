package quickpay

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"keystone/pkg/platform/sentinel"
)

// MemoryStore keeps payment requests in memory. Get returns copies so the
// service never aliases store-owned state.
type MemoryStore struct {
	mu       sync.RWMutex
	requests map[uuid.UUID]*PaymentRequest
}

// NewMemoryStore builds an empty request store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{requests: make(map[uuid.UUID]*PaymentRequest)}
}

func (s *MemoryStore) Create(_ context.Context, req *PaymentRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.requests[req.ID]; exists {
		return sentinel.ErrConflict
	}
	s.requests[req.ID] = cloneRequest(req)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id uuid.UUID) (*PaymentRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	req, ok := s.requests[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneRequest(req), nil
}

func (s *MemoryStore) Update(_ context.Context, req *PaymentRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.requests[req.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.requests[req.ID] = cloneRequest(req)
	return nil
}

func (s *MemoryStore) ActiveByInvoice(_ context.Context, invoiceNumber string, exclude uuid.UUID) (*PaymentRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, req := range s.requests {
		if req.ID == exclude {
			continue
		}
		if req.InvoiceNumber == invoiceNumber && invoiceHolds(req.Status) {
			return cloneRequest(req), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *MemoryStore) ListOverdueReviews(_ context.Context, cutoff time.Time) ([]*PaymentRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*PaymentRequest
	for _, req := range s.requests {
		if req.Status != StatusProcessing || !req.RequiresReview || req.EscalatedAt != nil {
			continue
		}
		if req.RiskScoredAt != nil && req.RiskScoredAt.Before(cutoff) {
			out = append(out, cloneRequest(req))
		}
	}
	return out, nil
}

func cloneRequest(r *PaymentRequest) *PaymentRequest {
	copied := *r
	for _, pair := range []struct {
		dst **time.Time
		src *time.Time
	}{
		{&copied.VerifiedAt, r.VerifiedAt},
		{&copied.RiskScoredAt, r.RiskScoredAt},
		{&copied.ApprovedAt, r.ApprovedAt},
		{&copied.DisputedAt, r.DisputedAt},
		{&copied.FailedAt, r.FailedAt},
		{&copied.CancelledAt, r.CancelledAt},
		{&copied.EscalatedAt, r.EscalatedAt},
		{&copied.EstimatedArrival, r.EstimatedArrival},
		{&copied.ActualArrival, r.ActualArrival},
	} {
		if pair.src != nil {
			t := *pair.src
			*pair.dst = &t
		}
	}
	return &copied
}
