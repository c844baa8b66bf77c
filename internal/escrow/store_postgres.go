package escrow

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"keystone/internal/tax"
	"keystone/pkg/platform/sentinel"
	txcontext "keystone/pkg/platform/tx"
)

// PostgresStore persists account aggregates across the escrow_accounts and
// milestones tables. Parties and approval requirements are stored as JSONB:
// they are read back whole, never queried by field.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed account store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, account *EscrowAccount) error {
	query := `
		INSERT INTO escrow_accounts (
			id, contract_ref, funder, recipient, subcontractors,
			total_amount, deposited, held, released, fees,
			status, jurisdiction, on_reserve, tax_exempt_reason,
			funding_deadline, funding_reference, created_at,
			activated_at, completed_at, dispute_reason
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`
	funder, recipient, subs, err := marshalParties(account)
	if err != nil {
		return err
	}
	_, err = s.execer(ctx).ExecContext(ctx, query,
		account.ID, account.ContractRef, funder, recipient, subs,
		account.TotalAmount.String(), account.Deposited.String(),
		account.Held.String(), account.Released.String(), account.Fees.String(),
		string(account.Status), string(account.Location.Jurisdiction),
		account.Location.OnReserve, account.TaxExemptReason,
		account.FundingDeadline, account.FundingReference, account.CreatedAt,
		account.ActivatedAt, account.CompletedAt, account.DisputeReason,
	)
	if err != nil {
		return fmt.Errorf("insert escrow account: %w", err)
	}

	for _, m := range account.Milestones {
		if err := s.insertMilestone(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (*EscrowAccount, error) {
	query := `
		SELECT id, contract_ref, funder, recipient, subcontractors,
			total_amount, deposited, held, released, fees,
			status, jurisdiction, on_reserve, tax_exempt_reason,
			funding_deadline, funding_reference, created_at,
			activated_at, completed_at, dispute_reason
		FROM escrow_accounts
		WHERE id = $1
	`
	account, err := s.scanAccount(s.queryRower(ctx).QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, err
	}
	if account.Milestones, err = s.listMilestones(ctx, account.ID); err != nil {
		return nil, err
	}
	return account, nil
}

func (s *PostgresStore) Update(ctx context.Context, account *EscrowAccount) error {
	if err := account.CheckBalances(); err != nil {
		return err
	}
	query := `
		UPDATE escrow_accounts
		SET deposited = $2, held = $3, released = $4, fees = $5,
			status = $6, funding_reference = $7,
			activated_at = $8, completed_at = $9, dispute_reason = $10
		WHERE id = $1
	`
	result, err := s.execer(ctx).ExecContext(ctx, query,
		account.ID,
		account.Deposited.String(), account.Held.String(),
		account.Released.String(), account.Fees.String(),
		string(account.Status), account.FundingReference,
		account.ActivatedAt, account.CompletedAt, account.DisputeReason,
	)
	if err != nil {
		return fmt.Errorf("update escrow account: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return sentinel.ErrNotFound
	}

	for _, m := range account.Milestones {
		if _, err := s.execer(ctx).ExecContext(ctx,
			`UPDATE milestones SET status = $2 WHERE id = $1`,
			m.ID, string(m.Status),
		); err != nil {
			return fmt.Errorf("update milestone: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) ListPendingFundingBefore(ctx context.Context, cutoff time.Time) ([]*EscrowAccount, error) {
	query := `
		SELECT id FROM escrow_accounts
		WHERE status = $1 AND funding_deadline < $2
	`
	rows, err := s.db.QueryContext(ctx, query, string(StatusPendingFunding), cutoff)
	if err != nil {
		return nil, fmt.Errorf("query pending accounts: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan pending account id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending accounts: %w", err)
	}

	accounts := make([]*EscrowAccount, 0, len(ids))
	for _, id := range ids {
		account, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, nil
}

func (s *PostgresStore) insertMilestone(ctx context.Context, m *Milestone) error {
	requires, err := json.Marshal(m.Requires)
	if err != nil {
		return fmt.Errorf("marshal approval requirements: %w", err)
	}
	_, err = s.execer(ctx).ExecContext(ctx, `
		INSERT INTO milestones (id, account_id, description, percentage, amount, due_date, requires, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		m.ID, m.AccountID, m.Description,
		m.Percentage.String(), m.Amount.String(),
		m.DueDate, requires, string(m.Status),
	)
	if err != nil {
		return fmt.Errorf("insert milestone: %w", err)
	}
	return nil
}

func (s *PostgresStore) listMilestones(ctx context.Context, accountID uuid.UUID) ([]*Milestone, error) {
	rows, err := s.queryRower(ctx).QueryContext(ctx, `
		SELECT id, account_id, description, percentage, amount, due_date, requires, status
		FROM milestones
		WHERE account_id = $1
		ORDER BY created_at, id
	`, accountID)
	if err != nil {
		return nil, fmt.Errorf("query milestones: %w", err)
	}
	defer rows.Close()

	var milestones []*Milestone
	for rows.Next() {
		var (
			m          Milestone
			percentage string
			amount     string
			requires   []byte
			status     string
		)
		if err := rows.Scan(&m.ID, &m.AccountID, &m.Description, &percentage, &amount, &m.DueDate, &requires, &status); err != nil {
			return nil, fmt.Errorf("scan milestone: %w", err)
		}
		if m.Percentage, err = decimal.NewFromString(percentage); err != nil {
			return nil, fmt.Errorf("parse milestone percentage: %w", err)
		}
		if m.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("parse milestone amount: %w", err)
		}
		if err := json.Unmarshal(requires, &m.Requires); err != nil {
			return nil, fmt.Errorf("unmarshal approval requirements: %w", err)
		}
		m.Status = MilestoneStatus(status)
		milestones = append(milestones, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate milestones: %w", err)
	}
	return milestones, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *PostgresStore) scanAccount(row rowScanner) (*EscrowAccount, error) {
	var (
		a            EscrowAccount
		funder       []byte
		recipient    []byte
		subs         []byte
		total        string
		deposited    string
		held         string
		released     string
		fees         string
		status       string
		jurisdiction string
	)
	err := row.Scan(
		&a.ID, &a.ContractRef, &funder, &recipient, &subs,
		&total, &deposited, &held, &released, &fees,
		&status, &jurisdiction, &a.Location.OnReserve, &a.TaxExemptReason,
		&a.FundingDeadline, &a.FundingReference, &a.CreatedAt,
		&a.ActivatedAt, &a.CompletedAt, &a.DisputeReason,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan escrow account: %w", err)
	}

	if err := json.Unmarshal(funder, &a.Funder); err != nil {
		return nil, fmt.Errorf("unmarshal funder: %w", err)
	}
	if err := json.Unmarshal(recipient, &a.Recipient); err != nil {
		return nil, fmt.Errorf("unmarshal recipient: %w", err)
	}
	if len(subs) > 0 {
		if err := json.Unmarshal(subs, &a.Subcontractors); err != nil {
			return nil, fmt.Errorf("unmarshal subcontractors: %w", err)
		}
	}
	for _, pair := range []struct {
		dst *decimal.Decimal
		src string
	}{
		{&a.TotalAmount, total}, {&a.Deposited, deposited},
		{&a.Held, held}, {&a.Released, released}, {&a.Fees, fees},
	} {
		d, err := decimal.NewFromString(pair.src)
		if err != nil {
			return nil, fmt.Errorf("parse account amount %q: %w", pair.src, err)
		}
		*pair.dst = d
	}
	a.Status = AccountStatus(status)
	a.Location.Jurisdiction = tax.Jurisdiction(jurisdiction)
	return &a, nil
}

func marshalParties(account *EscrowAccount) (funder, recipient, subs []byte, err error) {
	if funder, err = json.Marshal(account.Funder); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal funder: %w", err)
	}
	if recipient, err = json.Marshal(account.Recipient); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal recipient: %w", err)
	}
	if subs, err = json.Marshal(account.Subcontractors); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal subcontractors: %w", err)
	}
	return funder, recipient, subs, nil
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type dbQuerier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
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
