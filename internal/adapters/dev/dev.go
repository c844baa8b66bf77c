// Package dev holds permissive in-process implementations of the external
// service ports for local development and demos. Production deployments
// replace these with adapters for the platform's real identity, contract,
// and payment services.
package dev

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"keystone/internal/ports"
)

// Identity treats every business as verified with a perfect performance
// score.
type Identity struct{}

func (Identity) IsBusinessVerified(context.Context, string) (bool, error) { return true, nil }

func (Identity) PerformanceScore(context.Context, string) (float64, error) { return 100, nil }

// Contracts resolves every reference to an active, government-issued
// contract with a high value and no disputes. The recipient account is
// derived from the reference.
type Contracts struct{}

func (Contracts) Get(_ context.Context, contractRef string) (ports.Contract, error) {
	return ports.Contract{
		Ref:              contractRef,
		GovernmentIssued: true,
		Active:           true,
		Value:            decimal.New(1, 9),
		RecipientAccount: "acct-" + contractRef,
	}, nil
}

func (Contracts) IsAuthorizedApprover(context.Context, string, string) (bool, error) {
	return true, nil
}

// Profiler reports uniformly low risk.
type Profiler struct{}

func (Profiler) PaymentHistoryRisk(context.Context, string) (float64, error) { return 10, nil }

func (Profiler) BusinessAgeRisk(context.Context, string) (float64, error) { return 10, nil }

func (Profiler) NetworkTrustRisk(context.Context, string) (float64, error) { return 10, nil }

func (Profiler) JurisdictionPairRisk(context.Context, string, string) (float64, error) {
	return 10, nil
}

// Transfers settles instantly, remembering the transaction id per
// idempotency key so a repeated call returns the same transfer.
type Transfers struct {
	mu        sync.Mutex
	transfers map[string]string
}

// NewTransfers builds the in-process transfer service.
func NewTransfers() *Transfers {
	return &Transfers{transfers: make(map[string]string)}
}

func (t *Transfers) Disburse(_ context.Context, idempotencyKey string, _ decimal.Decimal, _ string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if id, ok := t.transfers[idempotencyKey]; ok {
		return id, nil
	}
	id := uuid.NewString()
	t.transfers[idempotencyKey] = id
	return id, nil
}

// Market reports favorable appetite everywhere.
type Market struct{}

func (Market) FavorableAppetite(context.Context, string) bool { return true }
