package quickpay

import (
	"context"
	"errors"
	"fmt"

	"keystone/internal/ports"
	domainerrors "keystone/pkg/domain-errors"
	"keystone/pkg/platform/sentinel"
)

// VerificationPassScore is the stage-2 gate: with six equally weighted
// checks, at most one may fail.
const VerificationPassScore = 80.0

// Check names, recorded on failure so the requester learns exactly what to
// fix.
const (
	CheckBusinessVerified = "business_verified"
	CheckContractActive   = "contract_active"
	CheckInvoiceUnique    = "invoice_unique"
	CheckAmountInContract = "amount_within_contract"
	CheckNoOpenDisputes   = "no_open_disputes"
	CheckPerformance      = "performance_score"
)

// VerificationResult is the stage-2 outcome: the 0-100 score plus the names
// of any failed checks.
type VerificationResult struct {
	Score  float64
	Failed []string
}

// Passed reports whether the score clears the gate.
func (r VerificationResult) Passed() bool {
	return r.Score >= VerificationPassScore
}

// Verifier runs the multi-factor verification stage. Each check contributes
// equally; the score is passed/total x 100.
type Verifier struct {
	identity       ports.IdentityVerifier
	store          Store
	minPerformance float64
}

// NewVerifier builds the stage-2 verifier. minPerformance is the
// performance-score threshold a business must meet.
func NewVerifier(identity ports.IdentityVerifier, store Store, minPerformance float64) *Verifier {
	return &Verifier{identity: identity, store: store, minPerformance: minPerformance}
}

// Score runs all six checks against the request and its contract. Check
// evaluation errors are infrastructure failures, not failed checks; they
// abort the stage rather than skewing the score.
func (v *Verifier) Score(ctx context.Context, req *PaymentRequest, contract ports.Contract) (VerificationResult, error) {
	verified, err := v.identity.IsBusinessVerified(ctx, req.BusinessID)
	if err != nil {
		return VerificationResult{}, domainerrors.Wrap(err, domainerrors.CodeInternal, "business verification lookup")
	}
	performance, err := v.identity.PerformanceScore(ctx, req.BusinessID)
	if err != nil {
		return VerificationResult{}, domainerrors.Wrap(err, domainerrors.CodeInternal, "performance score lookup")
	}
	unique, err := v.invoiceUnique(ctx, req)
	if err != nil {
		return VerificationResult{}, err
	}

	checks := []struct {
		name   string
		passed bool
	}{
		{CheckBusinessVerified, verified},
		{CheckContractActive, contract.Active},
		{CheckInvoiceUnique, unique},
		{CheckAmountInContract, !req.Amount.GreaterThan(contract.Value)},
		{CheckNoOpenDisputes, !contract.OpenDispute},
		{CheckPerformance, performance >= v.minPerformance},
	}

	var result VerificationResult
	passed := 0
	for _, c := range checks {
		if c.passed {
			passed++
			continue
		}
		result.Failed = append(result.Failed, c.name)
	}
	result.Score = float64(passed) / float64(len(checks)) * 100
	return result, nil
}

// invoiceUnique holds unless another live request already carries the
// invoice number. Failed and cancelled requests release the number.
func (v *Verifier) invoiceUnique(ctx context.Context, req *PaymentRequest) (bool, error) {
	existing, err := v.store.ActiveByInvoice(ctx, req.InvoiceNumber, req.ID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("invoice uniqueness lookup: %w", err)
	}
	return existing == nil, nil
}
