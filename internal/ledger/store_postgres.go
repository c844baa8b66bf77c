package ledger

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	txcontext "keystone/pkg/platform/tx"
)

// PostgresStore persists ledger entries. It joins any transaction placed in
// context so an entry commits atomically with the balance update it
// records.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed ledger store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, entry Transaction) error {
	query := `
		INSERT INTO ledger_entries (id, account_id, milestone_id, entry_type, amount, reference, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	var milestoneID any
	if entry.MilestoneID != nil {
		milestoneID = *entry.MilestoneID
	}
	_, err := s.execer(ctx).ExecContext(ctx, query,
		entry.ID,
		entry.AccountID,
		milestoneID,
		string(entry.Type),
		entry.Amount.String(),
		entry.Reference,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]Transaction, error) {
	query := `
		SELECT id, account_id, milestone_id, entry_type, amount, reference, created_at
		FROM ledger_entries
		WHERE account_id = $1
		ORDER BY created_at
	`
	rows, err := s.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("query ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []Transaction
	for rows.Next() {
		var (
			entry       Transaction
			milestoneID *uuid.UUID
			entryType   string
			amount      string
		)
		if err := rows.Scan(&entry.ID, &entry.AccountID, &milestoneID, &entryType, &amount, &entry.Reference, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		entry.MilestoneID = milestoneID
		entry.Type = EntryType(entryType)
		if entry.Amount, err = parseAmount(amount); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger entries: %w", err)
	}
	return entries, nil
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}
