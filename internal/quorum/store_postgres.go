package quorum

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"keystone/internal/escrow"
	txcontext "keystone/pkg/platform/tx"
)

// PostgresStore persists approvals in the approvals table. The unique index
// on (milestone_id, approver_id) plus ON CONFLICT DO NOTHING gives the
// atomic compare-and-append the engine requires without read-then-write.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed approval store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, approval Approval) (bool, error) {
	query := `
		INSERT INTO approvals (id, milestone_id, approver_id, approver_type, submitted_at, evidence)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (milestone_id, approver_id) DO NOTHING
	`
	result, err := s.execer(ctx).ExecContext(ctx, query,
		approval.ID,
		approval.MilestoneID,
		approval.ApproverID,
		string(approval.Type),
		approval.SubmittedAt,
		pq.Array(approval.Evidence),
	)
	if err != nil {
		return false, fmt.Errorf("insert approval: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("approval rows affected: %w", err)
	}
	return n > 0, nil
}

func (s *PostgresStore) List(ctx context.Context, milestoneID uuid.UUID) ([]Approval, error) {
	query := `
		SELECT id, milestone_id, approver_id, approver_type, submitted_at, evidence
		FROM approvals
		WHERE milestone_id = $1
		ORDER BY submitted_at
	`
	rows, err := s.querier(ctx).QueryContext(ctx, query, milestoneID)
	if err != nil {
		return nil, fmt.Errorf("query approvals: %w", err)
	}
	defer rows.Close()

	var approvals []Approval
	for rows.Next() {
		var (
			a   Approval
			typ string
		)
		if err := rows.Scan(&a.ID, &a.MilestoneID, &a.ApproverID, &typ, &a.SubmittedAt, pq.Array(&a.Evidence)); err != nil {
			return nil, fmt.Errorf("scan approval: %w", err)
		}
		a.Type = escrow.ApproverType(typ)
		approvals = append(approvals, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate approvals: %w", err)
	}
	return approvals, nil
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type dbQuerier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) querier(ctx context.Context) dbQuerier {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}
