package quickpay

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"keystone/pkg/platform/sentinel"
	txcontext "keystone/pkg/platform/tx"
)

const requestColumns = `
	id, business_id, contract_ref, invoice_number, amount,
	payer_jurisdiction, payee_jurisdiction,
	verification_score, risk_score, fee, net,
	status, requires_review, failure_reason, decided_by, transfer_id,
	submitted_at, verified_at, risk_scored_at, approved_at, disputed_at,
	failed_at, cancelled_at, escalated_at, estimated_arrival, actual_arrival
`

// PostgresStore persists payment requests in the payment_requests table.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed request store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, req *PaymentRequest) error {
	query := `
		INSERT INTO payment_requests (` + requestColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
			$14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query, s.args(req)...)
	if err != nil {
		return fmt.Errorf("insert payment request: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (*PaymentRequest, error) {
	row := s.queryRower(ctx).QueryRowContext(ctx,
		`SELECT `+requestColumns+` FROM payment_requests WHERE id = $1`, id)
	return scanRequest(row)
}

func (s *PostgresStore) Update(ctx context.Context, req *PaymentRequest) error {
	query := `
		UPDATE payment_requests
		SET verification_score = $2, risk_score = $3, fee = $4, net = $5,
			status = $6, requires_review = $7, failure_reason = $8,
			decided_by = $9, transfer_id = $10,
			verified_at = $11, risk_scored_at = $12, approved_at = $13,
			disputed_at = $14, failed_at = $15, cancelled_at = $16,
			escalated_at = $17, estimated_arrival = $18, actual_arrival = $19
		WHERE id = $1
	`
	result, err := s.execer(ctx).ExecContext(ctx, query,
		req.ID,
		req.VerificationScore, req.RiskScore, req.Fee.String(), req.Net.String(),
		string(req.Status), req.RequiresReview, req.FailureReason,
		req.DecidedBy, req.TransferID,
		req.VerifiedAt, req.RiskScoredAt, req.ApprovedAt,
		req.DisputedAt, req.FailedAt, req.CancelledAt,
		req.EscalatedAt, req.EstimatedArrival, req.ActualArrival,
	)
	if err != nil {
		return fmt.Errorf("update payment request: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ActiveByInvoice(ctx context.Context, invoiceNumber string, exclude uuid.UUID) (*PaymentRequest, error) {
	row := s.queryRower(ctx).QueryRowContext(ctx, `
		SELECT `+requestColumns+`
		FROM payment_requests
		WHERE invoice_number = $1 AND id <> $2 AND status NOT IN ('failed', 'cancelled')
		ORDER BY submitted_at
		LIMIT 1
	`, invoiceNumber, exclude)
	return scanRequest(row)
}

func (s *PostgresStore) ListOverdueReviews(ctx context.Context, cutoff time.Time) ([]*PaymentRequest, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+requestColumns+`
		FROM payment_requests
		WHERE status = 'processing' AND requires_review
			AND escalated_at IS NULL AND risk_scored_at < $1
		ORDER BY risk_scored_at
	`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("query overdue reviews: %w", err)
	}
	defer rows.Close()

	var out []*PaymentRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate overdue reviews: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) args(req *PaymentRequest) []any {
	return []any{
		req.ID, req.BusinessID, req.ContractRef, req.InvoiceNumber, req.Amount.String(),
		req.PayerJurisdiction, req.PayeeJurisdiction,
		req.VerificationScore, req.RiskScore, req.Fee.String(), req.Net.String(),
		string(req.Status), req.RequiresReview, req.FailureReason,
		req.DecidedBy, req.TransferID,
		req.SubmittedAt, req.VerifiedAt, req.RiskScoredAt, req.ApprovedAt,
		req.DisputedAt, req.FailedAt, req.CancelledAt, req.EscalatedAt,
		req.EstimatedArrival, req.ActualArrival,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*PaymentRequest, error) {
	var (
		r      PaymentRequest
		amount string
		fee    string
		net    string
		status string
	)
	err := row.Scan(
		&r.ID, &r.BusinessID, &r.ContractRef, &r.InvoiceNumber, &amount,
		&r.PayerJurisdiction, &r.PayeeJurisdiction,
		&r.VerificationScore, &r.RiskScore, &fee, &net,
		&status, &r.RequiresReview, &r.FailureReason, &r.DecidedBy, &r.TransferID,
		&r.SubmittedAt, &r.VerifiedAt, &r.RiskScoredAt, &r.ApprovedAt, &r.DisputedAt,
		&r.FailedAt, &r.CancelledAt, &r.EscalatedAt, &r.EstimatedArrival, &r.ActualArrival,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan payment request: %w", err)
	}
	for _, pair := range []struct {
		dst *decimal.Decimal
		src string
	}{
		{&r.Amount, amount}, {&r.Fee, fee}, {&r.Net, net},
	} {
		d, err := decimal.NewFromString(pair.src)
		if err != nil {
			return nil, fmt.Errorf("parse request amount %q: %w", pair.src, err)
		}
		*pair.dst = d
	}
	r.Status = Status(status)
	return &r, nil
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type dbQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) queryRower(ctx context.Context) dbQuerier {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}
