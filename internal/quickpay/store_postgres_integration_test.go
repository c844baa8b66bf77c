//go:build integration

package quickpay_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"keystone/internal/quickpay"
	"keystone/pkg/platform/sentinel"
	"keystone/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *quickpay.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = quickpay.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(), "payment_requests")
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) newRequest(invoice string, status quickpay.Status, submitted time.Time) *quickpay.PaymentRequest {
	return &quickpay.PaymentRequest{
		ID:                uuid.New(),
		BusinessID:        "biz-1",
		ContractRef:       "GC-2024-001",
		InvoiceNumber:     invoice,
		Amount:            decimal.RequireFromString("5000"),
		PayerJurisdiction: "ON",
		PayeeJurisdiction: "ON",
		Fee:               decimal.Zero,
		Net:               decimal.Zero,
		Status:            status,
		SubmittedAt:       submitted,
	}
}

func (s *PostgresStoreSuite) TestRoundTrip() {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	req := s.newRequest("INV-100", quickpay.StatusProcessing, now)
	req.VerificationScore = 83.33
	req.RiskScore = 42.5
	req.Fee = decimal.RequireFromString("125")
	req.Net = decimal.RequireFromString("4875")
	req.RequiresReview = true
	verified := now.Add(time.Second)
	req.VerifiedAt = &verified
	req.RiskScoredAt = &verified
	s.Require().NoError(s.store.Create(ctx, req))

	got, err := s.store.Get(ctx, req.ID)
	s.Require().NoError(err)
	s.Equal(req.BusinessID, got.BusinessID)
	s.Equal(req.InvoiceNumber, got.InvoiceNumber)
	s.Equal("ON", got.PayerJurisdiction)
	s.True(got.Amount.Equal(req.Amount))
	s.True(got.Fee.Equal(req.Fee))
	s.True(got.Net.Equal(req.Net))
	s.InDelta(83.33, got.VerificationScore, 1e-9)
	s.InDelta(42.5, got.RiskScore, 1e-9)
	s.Equal(quickpay.StatusProcessing, got.Status)
	s.True(got.RequiresReview)
	s.Require().NotNil(got.VerifiedAt)
	s.WithinDuration(verified, *got.VerifiedAt, time.Millisecond)
	s.Nil(got.ApprovedAt)
}

func (s *PostgresStoreSuite) TestUpdate() {
	ctx := context.Background()
	now := time.Now().UTC()

	req := s.newRequest("INV-100", quickpay.StatusProcessing, now)
	s.Require().NoError(s.store.Create(ctx, req))

	approved := now.Add(time.Minute)
	req.Status = quickpay.StatusCompleted
	req.DecidedBy = "reviewer-7"
	req.TransferID = "tx-42"
	req.ApprovedAt = &approved
	s.Require().NoError(s.store.Update(ctx, req))

	got, err := s.store.Get(ctx, req.ID)
	s.Require().NoError(err)
	s.Equal(quickpay.StatusCompleted, got.Status)
	s.Equal("reviewer-7", got.DecidedBy)
	s.Equal("tx-42", got.TransferID)
	s.Require().NotNil(got.ApprovedAt)

	s.ErrorIs(s.store.Update(ctx, s.newRequest("INV-X", quickpay.StatusPending, now)), sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestActiveByInvoice() {
	ctx := context.Background()
	now := time.Now().UTC()

	s.Require().NoError(s.store.Create(ctx, s.newRequest("INV-100", quickpay.StatusFailed, now.Add(-3*time.Hour))))
	s.Require().NoError(s.store.Create(ctx, s.newRequest("INV-100", quickpay.StatusCancelled, now.Add(-2*time.Hour))))
	oldest := s.newRequest("INV-100", quickpay.StatusDisputed, now.Add(-time.Hour))
	s.Require().NoError(s.store.Create(ctx, oldest))
	s.Require().NoError(s.store.Create(ctx, s.newRequest("INV-100", quickpay.StatusProcessing, now)))

	// Terminal failures release the invoice; the oldest live holder wins.
	got, err := s.store.ActiveByInvoice(ctx, "INV-100", uuid.New())
	s.Require().NoError(err)
	s.Equal(oldest.ID, got.ID)

	_, err = s.store.ActiveByInvoice(ctx, "INV-404", uuid.New())
	s.ErrorIs(err, sentinel.ErrNotFound)

	// The submitting request never blocks itself.
	s.Require().NoError(s.postgres.TruncateTables(ctx, "payment_requests"))
	only := s.newRequest("INV-100", quickpay.StatusProcessing, now)
	s.Require().NoError(s.store.Create(ctx, only))
	_, err = s.store.ActiveByInvoice(ctx, "INV-100", only.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestListOverdueReviews() {
	ctx := context.Background()
	now := time.Now().UTC()
	cutoff := now.Add(-72 * time.Hour)

	overdue := s.newRequest("INV-1", quickpay.StatusProcessing, now.Add(-80*time.Hour))
	overdue.RequiresReview = true
	scored := now.Add(-80 * time.Hour)
	overdue.RiskScoredAt = &scored
	s.Require().NoError(s.store.Create(ctx, overdue))

	fresh := s.newRequest("INV-2", quickpay.StatusProcessing, now.Add(-time.Hour))
	fresh.RequiresReview = true
	freshScored := now.Add(-time.Hour)
	fresh.RiskScoredAt = &freshScored
	s.Require().NoError(s.store.Create(ctx, fresh))

	escalated := s.newRequest("INV-3", quickpay.StatusProcessing, now.Add(-90*time.Hour))
	escalated.RequiresReview = true
	escalatedScored := now.Add(-90 * time.Hour)
	escalated.RiskScoredAt = &escalatedScored
	flaggedAt := now.Add(-time.Hour)
	escalated.EscalatedAt = &flaggedAt
	s.Require().NoError(s.store.Create(ctx, escalated))

	got, err := s.store.ListOverdueReviews(ctx, cutoff)
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal(overdue.ID, got[0].ID)
}
