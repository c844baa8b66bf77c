// Package handler wires escrow endpoints to the account manager. Handlers
// hold no business logic.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"keystone/internal/certificate"
	"keystone/internal/escrow"
	"keystone/internal/ledger"
	"keystone/internal/quorum"
	domainerrors "keystone/pkg/domain-errors"
	"keystone/pkg/platform/httputil"
	"keystone/pkg/requestcontext"
)

// Service defines the account-manager operations the transport exposes.
type Service interface {
	Create(ctx context.Context, params escrow.CreateParams) (*escrow.EscrowAccount, error)
	Get(ctx context.Context, id uuid.UUID) (*escrow.EscrowAccount, error)
	Fund(ctx context.Context, id uuid.UUID, amount decimal.Decimal, reference string) (*escrow.EscrowAccount, error)
	SubmitApproval(ctx context.Context, accountID, milestoneID uuid.UUID, input quorum.SubmitInput) (*escrow.Milestone, error)
	RequestRelease(ctx context.Context, accountID, milestoneID uuid.UUID) (*escrow.EscrowAccount, error)
	Dispute(ctx context.Context, id uuid.UUID, reason string, evidence []string) (*escrow.EscrowAccount, error)
	Approvals(ctx context.Context, milestoneID uuid.UUID) ([]quorum.Approval, error)
	Transactions(ctx context.Context, accountID uuid.UUID) ([]ledger.Transaction, error)
}

// Certificates defines the certificate lookups the transport exposes.
type Certificates interface {
	GetByAccount(ctx context.Context, accountID uuid.UUID) (*certificate.PaymentCertificate, error)
}

// Handler wires escrow endpoints to the account manager.
type Handler struct {
	service      Service
	certificates Certificates
	logger       *slog.Logger
}

// New constructs an escrow handler.
func New(service Service, certificates Certificates, logger *slog.Logger) *Handler {
	return &Handler{service: service, certificates: certificates, logger: logger}
}

// Register mounts escrow endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/escrow/accounts", h.HandleCreate)
	r.Get("/escrow/accounts/{id}", h.HandleGet)
	r.Post("/escrow/accounts/{id}/fund", h.HandleFund)
	r.Post("/escrow/accounts/{id}/dispute", h.HandleDispute)
	r.Get("/escrow/accounts/{id}/transactions", h.HandleTransactions)
	r.Get("/escrow/accounts/{id}/certificate", h.HandleCertificate)
	r.Post("/escrow/accounts/{id}/milestones/{milestoneID}/approvals", h.HandleSubmitApproval)
	r.Get("/escrow/accounts/{id}/milestones/{milestoneID}/approvals", h.HandleListApprovals)
	r.Post("/escrow/accounts/{id}/milestones/{milestoneID}/release", h.HandleRelease)
}

// HandleCreate handles POST /escrow/accounts.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	body, ok := httputil.Decode[CreateRequest](w, r)
	if !ok {
		return
	}
	params, err := body.ToParams()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	account, err := h.service.Create(ctx, params)
	if err != nil {
		h.logger.ErrorContext(ctx, "account creation failed",
			"request_id", requestcontext.RequestID(ctx),
			"contract_ref", params.ContractRef,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "account created",
		"request_id", requestcontext.RequestID(ctx),
		"account_id", account.ID,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusCreated, FromAccount(account))
}

// HandleGet handles GET /escrow/accounts/{id}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	account, err := h.service.Get(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromAccount(account))
}

// HandleFund handles POST /escrow/accounts/{id}/fund.
func (h *Handler) HandleFund(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	body, ok := httputil.Decode[FundRequest](w, r)
	if !ok {
		return
	}
	amount, err := decimal.NewFromString(body.Amount)
	if err != nil {
		httputil.WriteError(w, domainerrors.Newf(domainerrors.CodeValidation, "invalid amount %q", body.Amount))
		return
	}

	account, err := h.service.Fund(ctx, id, amount, body.Reference)
	if err != nil {
		h.logger.ErrorContext(ctx, "funding failed",
			"request_id", requestcontext.RequestID(ctx),
			"account_id", id,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromAccount(account))
}

// HandleSubmitApproval handles POST .../milestones/{milestoneID}/approvals.
func (h *Handler) HandleSubmitApproval(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	milestoneID, ok := h.pathID(w, r, "milestoneID")
	if !ok {
		return
	}
	body, ok := httputil.Decode[ApprovalRequest](w, r)
	if !ok {
		return
	}

	milestone, err := h.service.SubmitApproval(ctx, accountID, milestoneID, quorum.SubmitInput{
		ApproverID: body.ApproverID,
		Type:       escrow.ApproverType(body.Type),
		Evidence:   body.Evidence,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "approval submission failed",
			"request_id", requestcontext.RequestID(ctx),
			"account_id", accountID,
			"milestone_id", milestoneID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromMilestone(milestone))
}

// HandleListApprovals handles GET .../milestones/{milestoneID}/approvals.
func (h *Handler) HandleListApprovals(w http.ResponseWriter, r *http.Request) {
	milestoneID, ok := h.pathID(w, r, "milestoneID")
	if !ok {
		return
	}
	approvals, err := h.service.Approvals(r.Context(), milestoneID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromApprovals(approvals))
}

// HandleRelease handles POST .../milestones/{milestoneID}/release.
func (h *Handler) HandleRelease(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	milestoneID, ok := h.pathID(w, r, "milestoneID")
	if !ok {
		return
	}

	account, err := h.service.RequestRelease(ctx, accountID, milestoneID)
	if err != nil {
		h.logger.ErrorContext(ctx, "release failed",
			"request_id", requestcontext.RequestID(ctx),
			"account_id", accountID,
			"milestone_id", milestoneID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromAccount(account))
}

// HandleDispute handles POST /escrow/accounts/{id}/dispute.
func (h *Handler) HandleDispute(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	body, ok := httputil.Decode[DisputeRequest](w, r)
	if !ok {
		return
	}
	account, err := h.service.Dispute(ctx, id, body.Reason, body.Evidence)
	if err != nil {
		h.logger.ErrorContext(ctx, "dispute failed",
			"request_id", requestcontext.RequestID(ctx),
			"account_id", id,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromAccount(account))
}

// HandleTransactions handles GET /escrow/accounts/{id}/transactions.
func (h *Handler) HandleTransactions(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	entries, err := h.service.Transactions(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromTransactions(entries))
}

// HandleCertificate handles GET /escrow/accounts/{id}/certificate.
func (h *Handler) HandleCertificate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	cert, err := h.certificates.GetByAccount(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromCertificate(cert))
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		httputil.WriteError(w, domainerrors.Newf(domainerrors.CodeValidation, "invalid %s", param))
		return uuid.Nil, false
	}
	return id, true
}
