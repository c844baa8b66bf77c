//go:build integration

package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"keystone/internal/ledger"
	"keystone/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *ledger.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = ledger.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(), "ledger_entries")
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) TestAppendAndListByAccount() {
	ctx := context.Background()
	accountID := uuid.New()
	milestoneID := uuid.New()
	base := time.Now().UTC().Truncate(time.Millisecond)

	entries := []ledger.Transaction{
		{
			ID:        uuid.New(),
			AccountID: accountID,
			Type:      ledger.EntryDeposit,
			Amount:    decimal.RequireFromString("100000"),
			Reference: "wire-123",
			CreatedAt: base,
		},
		{
			ID:          uuid.New(),
			AccountID:   accountID,
			MilestoneID: &milestoneID,
			Type:        ledger.EntryRelease,
			Amount:      decimal.RequireFromString("58500"),
			CreatedAt:   base.Add(time.Second),
		},
		{
			ID:          uuid.New(),
			AccountID:   accountID,
			MilestoneID: &milestoneID,
			Type:        ledger.EntryFee,
			Amount:      decimal.RequireFromString("1500"),
			CreatedAt:   base.Add(time.Second),
		},
	}
	for _, entry := range entries {
		s.Require().NoError(s.store.Append(ctx, entry))
	}

	// Another account's movements must not bleed in.
	s.Require().NoError(s.store.Append(ctx, ledger.Transaction{
		ID:        uuid.New(),
		AccountID: uuid.New(),
		Type:      ledger.EntryDeposit,
		Amount:    decimal.RequireFromString("1"),
		CreatedAt: base,
	}))

	got, err := s.store.ListByAccount(ctx, accountID)
	s.Require().NoError(err)
	s.Require().Len(got, 3)

	s.Equal(ledger.EntryDeposit, got[0].Type)
	s.Equal("wire-123", got[0].Reference)
	s.Nil(got[0].MilestoneID)
	s.True(got[0].Amount.Equal(decimal.RequireFromString("100000")))

	s.Require().NotNil(got[1].MilestoneID)
	s.Equal(milestoneID, *got[1].MilestoneID)
	s.WithinDuration(base.Add(time.Second), got[1].CreatedAt, time.Millisecond)
}

func (s *PostgresStoreSuite) TestListEmptyAccount() {
	got, err := s.store.ListByAccount(context.Background(), uuid.New())
	s.Require().NoError(err)
	s.Empty(got)
}
