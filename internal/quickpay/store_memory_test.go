package quickpay

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keystone/pkg/platform/sentinel"
)

func storeRequest(t *testing.T, store *MemoryStore, invoice string, status Status, submitted time.Time) *PaymentRequest {
	t.Helper()
	req := &PaymentRequest{
		ID:            uuid.New(),
		BusinessID:    "biz-1",
		ContractRef:   "GC-2024-001",
		InvoiceNumber: invoice,
		Amount:        decimal.NewFromInt(100),
		Status:        status,
		SubmittedAt:   submitted,
	}
	require.NoError(t, store.Create(context.Background(), req))
	return req
}

func TestMemoryStoreCreateGetUpdate(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	req := storeRequest(t, store, "INV-1", StatusPending, time.Now())

	got, err := store.Get(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, req.ID, got.ID)

	// The store hands back copies; mutating them does not write through.
	got.Status = StatusFailed
	again, err := store.Get(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, again.Status)

	got.ID = req.ID
	require.NoError(t, store.Update(ctx, got))
	updated, err := store.Get(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, updated.Status)

	_, err = store.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
	assert.ErrorIs(t, store.Update(ctx, &PaymentRequest{ID: uuid.New()}), sentinel.ErrNotFound)
}

func TestMemoryStoreActiveByInvoice(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Now()

	storeRequest(t, store, "INV-1", StatusFailed, now.Add(-2*time.Hour))
	live := storeRequest(t, store, "INV-1", StatusProcessing, now.Add(-time.Hour))
	storeRequest(t, store, "INV-2", StatusPending, now)

	got, err := store.ActiveByInvoice(ctx, "INV-1", uuid.New())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, live.ID, got.ID, "failed requests release the invoice")

	// The holder itself is excluded.
	_, err = store.ActiveByInvoice(ctx, "INV-1", live.ID)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestMemoryStoreListOverdueReviews(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Now()
	cutoff := now.Add(-72 * time.Hour)

	overdue := storeRequest(t, store, "INV-1", StatusProcessing, now.Add(-80*time.Hour))
	overdue.RequiresReview = true
	at := now.Add(-80 * time.Hour)
	overdue.RiskScoredAt = &at
	require.NoError(t, store.Update(ctx, overdue))

	fresh := storeRequest(t, store, "INV-2", StatusProcessing, now.Add(-time.Hour))
	fresh.RequiresReview = true
	freshAt := now.Add(-time.Hour)
	fresh.RiskScoredAt = &freshAt
	require.NoError(t, store.Update(ctx, fresh))

	flagged := storeRequest(t, store, "INV-3", StatusProcessing, now.Add(-90*time.Hour))
	flagged.RequiresReview = true
	flaggedAt := now.Add(-90 * time.Hour)
	flagged.RiskScoredAt = &flaggedAt
	esc := now.Add(-time.Hour)
	flagged.EscalatedAt = &esc
	require.NoError(t, store.Update(ctx, flagged))

	got, err := store.ListOverdueReviews(ctx, cutoff)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, overdue.ID, got[0].ID)
}
