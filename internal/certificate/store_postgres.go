package certificate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"keystone/pkg/platform/sentinel"
	txcontext "keystone/pkg/platform/tx"
)

// PostgresStore persists certificates. The unique constraint on account_id
// enforces issue-once.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed certificate store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Save(ctx context.Context, cert *PaymentCertificate) error {
	query := `
		INSERT INTO payment_certificates (
			id, account_id, guarantee_amount, guarantor, issued_at, expires_at,
			conditions, loan_to_value, risk_rating, suggested_rate,
			leverage_potential, proof
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	var execer interface {
		ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	} = s.db
	if tx, ok := txcontext.From(ctx); ok {
		execer = tx
	}
	_, err := execer.ExecContext(ctx, query,
		cert.ID,
		cert.AccountID,
		cert.GuaranteeAmount.String(),
		cert.Guarantor,
		cert.IssuedAt,
		cert.ExpiresAt,
		pq.Array(cert.Conditions),
		cert.LoanToValue.String(),
		cert.RiskRating,
		cert.SuggestedRate.String(),
		cert.LeveragePotential.String(),
		cert.Proof,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert certificate: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetByAccount(ctx context.Context, accountID uuid.UUID) (*PaymentCertificate, error) {
	query := `
		SELECT id, account_id, guarantee_amount, guarantor, issued_at, expires_at,
			conditions, loan_to_value, risk_rating, suggested_rate,
			leverage_potential, proof
		FROM payment_certificates
		WHERE account_id = $1
	`
	var (
		cert      PaymentCertificate
		guarantee string
		ltv       string
		rate      string
		leverage  string
	)
	err := s.db.QueryRowContext(ctx, query, accountID).Scan(
		&cert.ID, &cert.AccountID, &guarantee, &cert.Guarantor,
		&cert.IssuedAt, &cert.ExpiresAt, pq.Array(&cert.Conditions),
		&ltv, &cert.RiskRating, &rate, &leverage, &cert.Proof,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query certificate: %w", err)
	}
	for _, pair := range []struct {
		dst *decimal.Decimal
		src string
	}{
		{&cert.GuaranteeAmount, guarantee},
		{&cert.LoanToValue, ltv},
		{&cert.SuggestedRate, rate},
		{&cert.LeveragePotential, leverage},
	} {
		d, err := decimal.NewFromString(pair.src)
		if err != nil {
			return nil, fmt.Errorf("parse certificate amount %q: %w", pair.src, err)
		}
		*pair.dst = d
	}
	return &cert, nil
}
