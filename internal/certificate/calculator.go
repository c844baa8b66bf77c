package certificate

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"keystone/internal/escrow"
	domainerrors "keystone/pkg/domain-errors"
	"keystone/pkg/money"
	"keystone/pkg/platform/sentinel"
	"keystone/pkg/requestcontext"
)

// LeverageConfig holds the additive leverage model's constants. These are
// calibration knobs, not fixed policy: deployments tune them, which is why
// they live in config rather than as package constants.
type LeverageConfig struct {
	BaseMultiplier        decimal.Decimal
	OnReserveBonus        decimal.Decimal
	IndigenousOwnedBonus  decimal.Decimal
	MarketAppetiteBonus   decimal.Decimal
	LowRiskThreshold      float64
	LowRiskLoanToValue    decimal.Decimal
	NormalLoanToValue     decimal.Decimal
	BaseRate              decimal.Decimal
	RiskRateSpread        decimal.Decimal
	Validity              time.Duration
}

// DefaultLeverageConfig mirrors the launch calibration.
func DefaultLeverageConfig() LeverageConfig {
	return LeverageConfig{
		BaseMultiplier:       decimal.RequireFromString("3.0"),
		OnReserveBonus:       decimal.RequireFromString("1.0"),
		IndigenousOwnedBonus: decimal.RequireFromString("0.5"),
		MarketAppetiteBonus:  decimal.RequireFromString("1.0"),
		LowRiskThreshold:     0.2,
		LowRiskLoanToValue:   decimal.RequireFromString("0.8"),
		NormalLoanToValue:    decimal.RequireFromString("0.6"),
		BaseRate:             decimal.RequireFromString("4.5"),
		RiskRateSpread:       decimal.RequireFromString("10"),
		Validity:             365 * 24 * time.Hour,
	}
}

// MarketSignal is the external market-appetite input; a favorable signal
// adds the appetite bonus to the multiplier.
type MarketSignal interface {
	FavorableAppetite(ctx context.Context, jurisdiction string) bool
}

// Store persists issued certificates, one per account.
type Store interface {
	// Save fails with sentinel.ErrConflict if the account already has a
	// certificate.
	Save(ctx context.Context, cert *PaymentCertificate) error
	GetByAccount(ctx context.Context, accountID uuid.UUID) (*PaymentCertificate, error)
}

// Calculator issues certificates and computes leverage.
type Calculator struct {
	cfg    LeverageConfig
	signer *Signer
	store  Store
	market MarketSignal
}

// New builds a calculator. market may be nil, in which case the appetite
// bonus never applies.
func New(cfg LeverageConfig, signer *Signer, store Store, market MarketSignal) *Calculator {
	return &Calculator{cfg: cfg, signer: signer, store: store, market: market}
}

// Issue derives and persists the certificate for a newly funded,
// government-backed account. riskScore is the funder's normalized risk in
// [0,1]. Issue is called exactly once per account, at first government
// deposit; a second call surfaces the store conflict.
func (c *Calculator) Issue(ctx context.Context, account *escrow.EscrowAccount, riskScore float64) (*PaymentCertificate, error) {
	if account.Funder.Type != escrow.PartyGovernment {
		return nil, domainerrors.New(domainerrors.CodeValidation,
			"certificates are only issued for government-backed escrows")
	}
	if riskScore < 0 || riskScore > 1 {
		return nil, domainerrors.Newf(domainerrors.CodeValidation, "risk score %v out of [0,1]", riskScore)
	}

	now := requestcontext.Now(ctx)
	cert := &PaymentCertificate{
		ID:              uuid.New(),
		AccountID:       account.ID,
		GuaranteeAmount: account.TotalAmount,
		Guarantor:       account.Funder.Name,
		IssuedAt:        now,
		ExpiresAt:       now.Add(c.cfg.Validity),
		Conditions: []string{
			"funds held in trust under milestone release conditions",
			"guarantee lapses at expiry unless renewed by the guarantor",
		},
		LoanToValue:       c.loanToValue(riskScore),
		RiskRating:        rating(riskScore),
		SuggestedRate:     c.suggestedRate(riskScore),
		LeveragePotential: c.Leverage(ctx, account),
	}

	proof, err := c.signer.Sign(cert)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "sign certificate proof")
	}
	cert.Proof = proof

	if err := c.store.Save(ctx, cert); err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "save certificate")
	}
	return cert, nil
}

// Leverage computes the additive private-capital estimate:
// government amount x (base + bonuses).
func (c *Calculator) Leverage(ctx context.Context, account *escrow.EscrowAccount) decimal.Decimal {
	multiplier := c.cfg.BaseMultiplier
	if account.Location.OnReserve {
		multiplier = multiplier.Add(c.cfg.OnReserveBonus)
	}
	if account.Recipient.IndigenousOwned {
		multiplier = multiplier.Add(c.cfg.IndigenousOwnedBonus)
	}
	if c.market != nil && c.market.FavorableAppetite(ctx, string(account.Location.Jurisdiction)) {
		multiplier = multiplier.Add(c.cfg.MarketAppetiteBonus)
	}
	return money.Round2(account.TotalAmount.Mul(multiplier))
}

// GetByAccount fetches the certificate for an account.
func (c *Calculator) GetByAccount(ctx context.Context, accountID uuid.UUID) (*PaymentCertificate, error) {
	cert, err := c.store.GetByAccount(ctx, accountID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, domainerrors.Newf(domainerrors.CodeNotFound,
			"no certificate issued for account %s", accountID)
	}
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "load certificate")
	}
	return cert, nil
}

func (c *Calculator) loanToValue(riskScore float64) decimal.Decimal {
	if riskScore < c.cfg.LowRiskThreshold {
		return c.cfg.LowRiskLoanToValue
	}
	return c.cfg.NormalLoanToValue
}

// suggestedRate = base + risk x spread, in percentage points.
func (c *Calculator) suggestedRate(riskScore float64) decimal.Decimal {
	return money.Round2(c.cfg.BaseRate.Add(decimal.NewFromFloat(riskScore).Mul(c.cfg.RiskRateSpread)))
}

func rating(riskScore float64) string {
	switch {
	case riskScore < 0.2:
		return "A"
	case riskScore < 0.5:
		return "B"
	default:
		return "C"
	}
}
