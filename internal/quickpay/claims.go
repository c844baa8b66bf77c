package quickpay

import (
	"context"
	"sync"
)

// DisbursementClaims guards stage-4 re-entry: a disbursement for a request
// id proceeds only after claiming the id. The external provider is also
// idempotent on the request id, so the claim is a cheap first gate, not the
// only one.
type DisbursementClaims interface {
	// Claim atomically takes the key; false means another disbursement for
	// the same request already holds it.
	Claim(ctx context.Context, key string) (bool, error)
	// Release frees the key after a failed transfer so the terminal state,
	// not a stale claim, is what blocks re-entry.
	Release(ctx context.Context, key string) error
}

// MemoryClaims is the in-process claim set used when Redis is not
// configured.
type MemoryClaims struct {
	mu     sync.Mutex
	claims map[string]struct{}
}

// NewMemoryClaims builds an empty claim set.
func NewMemoryClaims() *MemoryClaims {
	return &MemoryClaims{claims: make(map[string]struct{})}
}

func (c *MemoryClaims) Claim(_ context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, taken := c.claims[key]; taken {
		return false, nil
	}
	c.claims[key] = struct{}{}
	return true, nil
}

func (c *MemoryClaims) Release(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.claims, key)
	return nil
}
