// Package service is the Escrow Account Manager: it owns all EscrowAccount
// and Milestone mutation, serializes balance movements per account, and
// orchestrates releases through the quorum engine and the external transfer
// capability.
package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"keystone/internal/audit"
	"keystone/internal/certificate"
	"keystone/internal/escrow"
	"keystone/internal/ledger"
	"keystone/internal/platform/metrics"
	"keystone/internal/ports"
	"keystone/internal/quorum"
	"keystone/internal/tax"
	domainerrors "keystone/pkg/domain-errors"
	"keystone/pkg/money"
	"keystone/pkg/platform/sentinel"
	txcontext "keystone/pkg/platform/tx"
	"keystone/pkg/requestcontext"
)

// Deps are the manager's collaborators. DB is optional: when set, balance
// updates and their ledger entries commit in one transaction; nil means
// memory-backed stores where the per-account lock alone is the guarantee.
type Deps struct {
	Accounts     escrow.Store
	Ledger       ledger.Store
	Quorum       *quorum.Engine
	Contracts    ports.ContractDirectory
	Transfers    ports.TransferService
	Profiler     ports.RiskProfiler
	Certificates *certificate.Calculator
	Audit        *audit.Publisher
	Metrics      *metrics.Metrics
	DB           *sql.DB
}

// Config tunes account lifecycle defaults.
type Config struct {
	// DefaultFundingDeadline applies when funding terms carry no deadline.
	DefaultFundingDeadline time.Duration
	// FeeRate is the fraction of each release accrued as fees.
	FeeRate decimal.Decimal
}

// Manager owns the escrow account state machine.
type Manager struct {
	accounts     escrow.Store
	ledger       ledger.Store
	quorum       *quorum.Engine
	contracts    ports.ContractDirectory
	transfers    ports.TransferService
	profiler     ports.RiskProfiler
	certificates *certificate.Calculator
	audit        *audit.Publisher
	metrics      *metrics.Metrics
	db           *sql.DB
	cfg          Config
	locks        *accountLocks
	logger       *slog.Logger
}

// Option configures the manager.
type Option func(*Manager)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// New builds a manager.
func New(deps Deps, cfg Config, opts ...Option) *Manager {
	m := &Manager{
		accounts:     deps.Accounts,
		ledger:       deps.Ledger,
		quorum:       deps.Quorum,
		contracts:    deps.Contracts,
		transfers:    deps.Transfers,
		profiler:     deps.Profiler,
		certificates: deps.Certificates,
		audit:        deps.Audit,
		metrics:      deps.Metrics,
		db:           deps.DB,
		cfg:          cfg,
		locks:        newAccountLocks(),
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create validates the parties, milestones, and funding terms and opens a
// PendingFunding account. No balance exists until funding arrives.
func (m *Manager) Create(ctx context.Context, params escrow.CreateParams) (*escrow.EscrowAccount, error) {
	now := requestcontext.Now(ctx)
	account, err := escrow.NewAccount(params, now, m.cfg.DefaultFundingDeadline)
	if err != nil {
		return nil, err
	}
	if err := m.checkApprovers(ctx, account); err != nil {
		return nil, err
	}

	// Tax is previewed at creation so the audit trail records the expected
	// breakdown for the committed total alongside any exemption.
	breakdown, err := tax.Compute(account.TotalAmount, account.Location.Jurisdiction, tax.ExemptionFacts{
		OnReserve: account.Location.OnReserve,
	})
	if err != nil {
		return nil, err
	}

	if err := m.accounts.Create(ctx, account); err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "persist account")
	}

	detail := map[string]string{
		"contract_ref": account.ContractRef,
		"total":        account.TotalAmount.String(),
		"jurisdiction": string(account.Location.Jurisdiction),
		"tax_total":    breakdown.Total.String(),
	}
	if breakdown.IsExempt {
		detail["tax_exempt_reason"] = breakdown.ExemptReason
	}
	m.emit(ctx, audit.EscrowCreated, account.ID, detail)
	m.metrics.AccountsCreated.Inc()
	m.logger.InfoContext(ctx, "escrow account created",
		"account_id", account.ID, "contract_ref", account.ContractRef,
		"total", account.TotalAmount)
	return account, nil
}

// Get fetches an account aggregate.
func (m *Manager) Get(ctx context.Context, id uuid.UUID) (*escrow.EscrowAccount, error) {
	account, err := m.accounts.Get(ctx, id)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, domainerrors.Newf(domainerrors.CodeNotFound, "escrow account %s not found", id)
	}
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "load account")
	}
	return account, nil
}

// Fund applies the full committed deposit and activates the account. A
// government funder additionally triggers certificate issuance.
func (m *Manager) Fund(ctx context.Context, id uuid.UUID, amount decimal.Decimal, reference string) (*escrow.EscrowAccount, error) {
	unlock := m.locks.acquire(id)
	defer unlock()

	account, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	if err := account.CanFund(amount, now); err != nil {
		return nil, err
	}
	account.ApplyFunding(money.Round2(amount), reference, now)

	err = m.atomically(ctx, func(ctx context.Context) error {
		if err := m.accounts.Update(ctx, account); err != nil {
			return err
		}
		return m.ledger.Append(ctx, ledger.Transaction{
			ID:        uuid.New(),
			AccountID: account.ID,
			Type:      ledger.EntryDeposit,
			Amount:    account.Deposited,
			Reference: reference,
			CreatedAt: now,
		})
	})
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "persist funding")
	}

	m.emit(ctx, audit.EscrowFunded, account.ID, map[string]string{
		"amount":    account.Deposited.String(),
		"reference": reference,
	})
	m.metrics.AccountsFunded.Inc()
	m.logger.InfoContext(ctx, "escrow account funded",
		"account_id", account.ID, "amount", account.Deposited)

	if account.Funder.Type == escrow.PartyGovernment {
		m.issueCertificate(ctx, account)
	}
	return account, nil
}

// SubmitApproval authenticates the approver against the contract's
// authorized list and hands the approval to the quorum engine. Duplicate
// submissions are idempotent no-ops.
func (m *Manager) SubmitApproval(ctx context.Context, accountID, milestoneID uuid.UUID, input quorum.SubmitInput) (*escrow.Milestone, error) {
	unlock := m.locks.acquire(accountID)
	defer unlock()

	account, err := m.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account.Status != escrow.StatusPendingFunding && account.Status != escrow.StatusActive {
		return nil, domainerrors.Newf(domainerrors.CodeStateConflict,
			"account %s is %s, approvals are no longer accepted", account.ID, account.Status)
	}
	milestone := account.Milestone(milestoneID)
	if milestone == nil {
		return nil, domainerrors.Newf(domainerrors.CodeNotFound,
			"milestone %s not found on account %s", milestoneID, accountID)
	}

	authorized, err := m.contracts.IsAuthorizedApprover(ctx, account.ContractRef, input.ApproverID)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "approver authorization")
	}
	if !authorized {
		return nil, domainerrors.Newf(domainerrors.CodeValidation,
			"approver %q is not authorized on contract %s", input.ApproverID, account.ContractRef)
	}

	before := milestone.Status
	if _, err := m.quorum.Submit(ctx, milestone, input); err != nil {
		return nil, err
	}
	if milestone.Status != before {
		if err := m.accounts.Update(ctx, account); err != nil {
			return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "persist milestone status")
		}
	}

	m.emit(ctx, audit.ApprovalSubmitted, account.ID, map[string]string{
		"milestone_id": milestone.ID.String(),
		"approver_id":  input.ApproverID,
		"type":         string(input.Type),
	})
	if before != escrow.MilestoneApproved && milestone.Status == escrow.MilestoneApproved {
		m.emit(ctx, audit.MilestoneApproved, account.ID, map[string]string{
			"milestone_id": milestone.ID.String(),
		})
	}
	return milestone, nil
}

// RequestRelease releases a milestone's funds: quorum check, external
// transfer, then the balance movement. The transfer runs before any ledger
// mutation so a provider failure leaves balances untouched.
func (m *Manager) RequestRelease(ctx context.Context, accountID, milestoneID uuid.UUID) (*escrow.EscrowAccount, error) {
	unlock := m.locks.acquire(accountID)
	defer unlock()

	account, err := m.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if err := account.CanBeginRelease(); err != nil {
		return nil, err
	}
	milestone := account.Milestone(milestoneID)
	if milestone == nil {
		return nil, domainerrors.Newf(domainerrors.CodeNotFound,
			"milestone %s not found on account %s", milestoneID, accountID)
	}
	if milestone.Status == escrow.MilestoneReleased {
		return nil, domainerrors.Newf(domainerrors.CodeStateConflict,
			"milestone %s is already released", milestoneID)
	}
	if milestone.Status == escrow.MilestoneDisputed {
		return nil, domainerrors.Newf(domainerrors.CodeStateConflict,
			"milestone %s is disputed", milestoneID)
	}
	if err := m.quorum.Check(ctx, milestone); err != nil {
		return nil, err
	}

	contract, err := m.contracts.Get(ctx, account.ContractRef)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "resolve contract")
	}

	now := requestcontext.Now(ctx)
	gross := milestone.ReleaseAmount(account.TotalAmount)
	fee := money.Rate(gross, m.cfg.FeeRate)
	net := gross.Sub(fee)

	account.BeginRelease()
	if err := m.accounts.Update(ctx, account); err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "persist release start")
	}
	m.emit(ctx, audit.EscrowReleaseRequested, account.ID, map[string]string{
		"milestone_id": milestone.ID.String(),
		"gross":        gross.String(),
	})

	// Milestone id as idempotency key: one milestone, at most one transfer,
	// even across retries of this call.
	start := time.Now()
	transferID, err := m.transfers.Disburse(ctx, milestone.ID.String(), net, contract.RecipientAccount)
	m.metrics.DisbursementTime.Observe(time.Since(start).Seconds())
	if err != nil {
		account.AbortRelease()
		if updateErr := m.accounts.Update(ctx, account); updateErr != nil {
			m.logger.ErrorContext(ctx, "release abort update failed",
				"account_id", account.ID, "error", updateErr)
		}
		return nil, domainerrors.Wrap(err, domainerrors.CodeTransferFailed,
			"disburse milestone "+milestone.ID.String())
	}

	if err := account.ApplyRelease(milestone, gross, fee, now); err != nil {
		return nil, err
	}
	err = m.atomically(ctx, func(ctx context.Context) error {
		if err := m.accounts.Update(ctx, account); err != nil {
			return err
		}
		mid := milestone.ID
		if err := m.ledger.Append(ctx, ledger.Transaction{
			ID:          uuid.New(),
			AccountID:   account.ID,
			MilestoneID: &mid,
			Type:        ledger.EntryRelease,
			Amount:      net,
			Reference:   transferID,
			CreatedAt:   now,
		}); err != nil {
			return err
		}
		if !money.IsPositive(fee) {
			return nil
		}
		return m.ledger.Append(ctx, ledger.Transaction{
			ID:          uuid.New(),
			AccountID:   account.ID,
			MilestoneID: &mid,
			Type:        ledger.EntryFee,
			Amount:      fee,
			Reference:   transferID,
			CreatedAt:   now,
		})
	})
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "persist release")
	}

	m.emit(ctx, audit.PaymentReleased, account.ID, map[string]string{
		"milestone_id": milestone.ID.String(),
		"net":          net.String(),
		"fee":          fee.String(),
		"transfer_id":  transferID,
	})
	m.metrics.MilestonesReleased.Inc()
	if account.Status == escrow.StatusCompleted {
		m.emit(ctx, audit.EscrowCompleted, account.ID, nil)
	}
	m.logger.InfoContext(ctx, "milestone released",
		"account_id", account.ID, "milestone_id", milestone.ID,
		"net", net, "transfer_id", transferID)
	return account, nil
}

// Dispute freezes all remaining held funds. Released amounts stay released.
func (m *Manager) Dispute(ctx context.Context, id uuid.UUID, reason string, evidence []string) (*escrow.EscrowAccount, error) {
	unlock := m.locks.acquire(id)
	defer unlock()

	account, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := account.CanDispute(); err != nil {
		return nil, err
	}
	if reason == "" {
		return nil, domainerrors.New(domainerrors.CodeValidation, "a dispute reason is required")
	}

	now := requestcontext.Now(ctx)
	account.ApplyDispute(reason)
	err = m.atomically(ctx, func(ctx context.Context) error {
		if err := m.accounts.Update(ctx, account); err != nil {
			return err
		}
		// Zero-sum marker: balances don't move, the log records when and
		// how much was frozen.
		return m.ledger.Append(ctx, ledger.Transaction{
			ID:        uuid.New(),
			AccountID: account.ID,
			Type:      ledger.EntryFreeze,
			Amount:    account.Held,
			Reference: reason,
			CreatedAt: now,
		})
	})
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "persist dispute")
	}

	detail := map[string]string{
		"reason": reason,
		"frozen": account.Held.String(),
	}
	for i, ref := range evidence {
		detail["evidence_"+strconv.Itoa(i)] = ref
	}
	m.emit(ctx, audit.EscrowDisputed, account.ID, detail)
	m.metrics.AccountsDisputed.Inc()
	m.logger.WarnContext(ctx, "escrow account disputed",
		"account_id", account.ID, "frozen", account.Held, "reason", reason)
	return account, nil
}

// ExpireStale terminally fails PendingFunding accounts whose deadline has
// passed. Returns how many expired.
func (m *Manager) ExpireStale(ctx context.Context) (int, error) {
	now := requestcontext.Now(ctx)
	stale, err := m.accounts.ListPendingFundingBefore(ctx, now)
	if err != nil {
		return 0, domainerrors.Wrap(err, domainerrors.CodeInternal, "list stale accounts")
	}
	expired := 0
	for _, candidate := range stale {
		unlock := m.locks.acquire(candidate.ID)
		account, err := m.Get(ctx, candidate.ID)
		if err != nil {
			unlock()
			m.logger.ErrorContext(ctx, "expiry reload failed",
				"account_id", candidate.ID, "error", err)
			continue
		}
		// Re-check under the lock; a concurrent deposit may have landed.
		if !account.CanExpire(now) {
			unlock()
			continue
		}
		account.ApplyExpiry()
		err = m.accounts.Update(ctx, account)
		unlock()
		if err != nil {
			m.logger.ErrorContext(ctx, "expiry update failed",
				"account_id", account.ID, "error", err)
			continue
		}
		m.emit(ctx, audit.EscrowExpired, account.ID, map[string]string{
			"funding_deadline": account.FundingDeadline.Format(time.RFC3339),
		})
		m.metrics.AccountsExpired.Inc()
		expired++
	}
	return expired, nil
}

// Approvals returns the append-only approval log for a milestone.
func (m *Manager) Approvals(ctx context.Context, milestoneID uuid.UUID) ([]quorum.Approval, error) {
	return m.quorum.Approvals(ctx, milestoneID)
}

// Transactions returns the ledger log for an account.
func (m *Manager) Transactions(ctx context.Context, accountID uuid.UUID) ([]ledger.Transaction, error) {
	return m.ledger.ListByAccount(ctx, accountID)
}

// checkApprovers resolves every required approver against the contract's
// authorized list before the account exists.
func (m *Manager) checkApprovers(ctx context.Context, account *escrow.EscrowAccount) error {
	checked := make(map[string]bool)
	for _, milestone := range account.Milestones {
		for _, req := range milestone.Requires {
			if !req.Required || checked[req.ApproverID] {
				continue
			}
			checked[req.ApproverID] = true
			authorized, err := m.contracts.IsAuthorizedApprover(ctx, account.ContractRef, req.ApproverID)
			if err != nil {
				return domainerrors.Wrap(err, domainerrors.CodeInternal, "approver resolution")
			}
			if !authorized {
				return domainerrors.Newf(domainerrors.CodeValidation,
					"required approver %q is not on contract %s's authorized list",
					req.ApproverID, account.ContractRef)
			}
		}
	}
	return nil
}

// issueCertificate derives the payment certificate after a government
// deposit. Funds have already moved; an issuance failure is logged and
// surfaced on the certificate endpoint, never unwound from the funding.
func (m *Manager) issueCertificate(ctx context.Context, account *escrow.EscrowAccount) {
	risk, err := m.profiler.PaymentHistoryRisk(ctx, account.Recipient.ID)
	if err != nil {
		m.logger.ErrorContext(ctx, "certificate risk lookup failed",
			"account_id", account.ID, "error", err)
		return
	}
	cert, err := m.certificates.Issue(ctx, account, risk/100)
	if err != nil {
		m.logger.ErrorContext(ctx, "certificate issuance failed",
			"account_id", account.ID, "error", err)
		return
	}
	m.emit(ctx, audit.CertificateIssued, account.ID, map[string]string{
		"certificate_id": cert.ID.String(),
		"guarantee":      cert.GuaranteeAmount.String(),
		"leverage":       cert.LeveragePotential.String(),
	})
	m.metrics.CertificatesIssue.Inc()
}

func (m *Manager) atomically(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.db == nil {
		return fn(ctx)
	}
	return txcontext.Execute(ctx, m.db, fn)
}

func (m *Manager) emit(ctx context.Context, action audit.Action, accountID uuid.UUID, detail map[string]string) {
	m.audit.Emit(ctx, audit.Event{
		Timestamp: requestcontext.Now(ctx),
		Action:    action,
		Subject:   accountID.String(),
		Actor:     requestcontext.ActorID(ctx),
		RequestID: requestcontext.RequestID(ctx),
		Detail:    detail,
	})
}
