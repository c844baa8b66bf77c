// Package handler wires QuickPay endpoints to the scheduler. Handlers hold
// no business logic.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"keystone/internal/quickpay"
	domainerrors "keystone/pkg/domain-errors"
	"keystone/pkg/platform/httputil"
	"keystone/pkg/requestcontext"
)

// Service defines the scheduler operations the transport exposes.
type Service interface {
	Submit(ctx context.Context, input quickpay.SubmitInput) (*quickpay.PaymentRequest, error)
	Get(ctx context.Context, id uuid.UUID) (*quickpay.PaymentRequest, error)
	Approve(ctx context.Context, id uuid.UUID) (*quickpay.PaymentRequest, error)
	Reject(ctx context.Context, id uuid.UUID, reason string) (*quickpay.PaymentRequest, error)
	Cancel(ctx context.Context, id uuid.UUID) (*quickpay.PaymentRequest, error)
}

// Handler wires QuickPay endpoints to the scheduler.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a QuickPay handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts QuickPay endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/quickpay/requests", h.HandleSubmit)
	r.Get("/quickpay/requests/{id}", h.HandleGet)
	r.Post("/quickpay/requests/{id}/approve", h.HandleApprove)
	r.Post("/quickpay/requests/{id}/reject", h.HandleReject)
	r.Post("/quickpay/requests/{id}/cancel", h.HandleCancel)
}

// HandleSubmit handles POST /quickpay/requests.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	body, ok := httputil.Decode[SubmitRequest](w, r)
	if !ok {
		return
	}
	input, err := body.ToInput()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, err := h.service.Submit(ctx, input)
	if err != nil {
		h.logger.ErrorContext(ctx, "quickpay submission failed",
			"request_id", requestcontext.RequestID(ctx),
			"business_id", input.BusinessID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "quickpay request submitted",
		"request_id", requestcontext.RequestID(ctx),
		"payment_request_id", req.ID,
		"status", req.Status,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusCreated, FromRequest(req))
}

// HandleGet handles GET /quickpay/requests/{id}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.requestID(w, r)
	if !ok {
		return
	}
	req, err := h.service.Get(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromRequest(req))
}

// HandleApprove handles POST /quickpay/requests/{id}/approve.
func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, func(ctx context.Context, id uuid.UUID) (*quickpay.PaymentRequest, error) {
		return h.service.Approve(ctx, id)
	})
}

// HandleReject handles POST /quickpay/requests/{id}/reject.
func (h *Handler) HandleReject(w http.ResponseWriter, r *http.Request) {
	body, ok := httputil.Decode[RejectRequest](w, r)
	if !ok {
		return
	}
	h.decide(w, r, func(ctx context.Context, id uuid.UUID) (*quickpay.PaymentRequest, error) {
		return h.service.Reject(ctx, id, body.Reason)
	})
}

// HandleCancel handles POST /quickpay/requests/{id}/cancel.
func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, func(ctx context.Context, id uuid.UUID) (*quickpay.PaymentRequest, error) {
		return h.service.Cancel(ctx, id)
	})
}

func (h *Handler) decide(w http.ResponseWriter, r *http.Request, op func(context.Context, uuid.UUID) (*quickpay.PaymentRequest, error)) {
	ctx := r.Context()
	id, ok := h.requestID(w, r)
	if !ok {
		return
	}
	req, err := op(ctx, id)
	if err != nil {
		h.logger.ErrorContext(ctx, "quickpay decision failed",
			"request_id", requestcontext.RequestID(ctx),
			"payment_request_id", id,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromRequest(req))
}

func (h *Handler) requestID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, domainerrors.New(domainerrors.CodeValidation, "invalid request id"))
		return uuid.Nil, false
	}
	return id, true
}
