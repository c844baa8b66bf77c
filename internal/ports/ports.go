// Package ports declares the narrow interfaces the engine consumes from the
// surrounding platform. The core never branches on a specific provider;
// adapters implement these per provider and are injected at wiring time.
package ports

import (
	"context"

	"github.com/shopspring/decimal"
)

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks

// IdentityVerifier is the identity/verification service boundary.
type IdentityVerifier interface {
	IsBusinessVerified(ctx context.Context, businessID string) (bool, error)
	PerformanceScore(ctx context.Context, businessID string) (float64, error)
}

// TransferService is the abstract fund-transfer capability. Disburse must
// be idempotent on idempotencyKey at the provider: a retried call after a
// timeout cannot create two transfers.
type TransferService interface {
	Disburse(ctx context.Context, idempotencyKey string, amount decimal.Decimal, recipientAccount string) (transactionID string, err error)
}

// Contract is the slice of contract state the engine needs for eligibility
// and verification.
type Contract struct {
	Ref string
	// GovernmentIssued gates the QuickPay fast path.
	GovernmentIssued bool
	Active           bool
	Value            decimal.Decimal
	OpenDispute      bool
	// RecipientAccount is where disbursed funds land.
	RecipientAccount string
}

// ContractDirectory resolves contracts and authorized approvers.
type ContractDirectory interface {
	Get(ctx context.Context, contractRef string) (Contract, error)
	// IsAuthorizedApprover reports whether approverID is on the contract's
	// authorized-approver list. The quorum engine trusts this check.
	IsAuthorizedApprover(ctx context.Context, contractRef, approverID string) (bool, error)
}

// RiskProfiler supplies the per-business risk facts the scoring composite
// consumes. Scores are 0-100 where higher means riskier.
type RiskProfiler interface {
	PaymentHistoryRisk(ctx context.Context, businessID string) (float64, error)
	BusinessAgeRisk(ctx context.Context, businessID string) (float64, error)
	NetworkTrustRisk(ctx context.Context, businessID string) (float64, error)
	JurisdictionPairRisk(ctx context.Context, payerJurisdiction, payeeJurisdiction string) (float64, error)
}
