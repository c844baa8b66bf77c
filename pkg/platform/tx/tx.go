// Package tx carries a SQL transaction through context so multiple stores
// can join one atomic write. The escrow service uses it to commit a balance
// update, its ledger entries, and the audit outbox row together.
package tx

import (
	"context"
	"database/sql"
	"fmt"
)

type ctxKey struct{}

// With stores a SQL transaction in context for downstream store usage.
func With(ctx context.Context, tx *sql.Tx) context.Context {
	if tx == nil {
		return ctx
	}
	return context.WithValue(ctx, ctxKey{}, tx)
}

// From extracts a SQL transaction from context if present.
func From(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(ctxKey{}).(*sql.Tx)
	return tx, ok
}

// Execute runs fn inside a transaction placed in context, committing on nil
// error and rolling back otherwise.
func Execute(ctx context.Context, db *sql.DB, fn func(ctx context.Context) error) error {
	dbtx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(With(ctx, dbtx)); err != nil {
		_ = dbtx.Rollback()
		return err
	}
	if err := dbtx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
