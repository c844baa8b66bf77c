//go:build integration

package certificate_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"keystone/internal/certificate"
	"keystone/pkg/platform/sentinel"
	"keystone/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *certificate.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = certificate.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(), "payment_certificates")
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) newCertificate(accountID uuid.UUID) *certificate.PaymentCertificate {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &certificate.PaymentCertificate{
		ID:                uuid.New(),
		AccountID:         accountID,
		GuaranteeAmount:   decimal.RequireFromString("100000"),
		Guarantor:         "Infrastructure Canada",
		IssuedAt:          now,
		ExpiresAt:         now.Add(365 * 24 * time.Hour),
		Conditions:        []string{"funds held in escrow", "milestone releases require quorum"},
		LoanToValue:       decimal.RequireFromString("0.8"),
		RiskRating:        "A",
		SuggestedRate:     decimal.RequireFromString("5.5"),
		LeveragePotential: decimal.RequireFromString("300000"),
		Proof:             "eyJhbGciOiJIUzI1NiJ9.test.proof",
	}
}

func (s *PostgresStoreSuite) TestSaveAndGetByAccount() {
	ctx := context.Background()
	accountID := uuid.New()
	cert := s.newCertificate(accountID)
	s.Require().NoError(s.store.Save(ctx, cert))

	got, err := s.store.GetByAccount(ctx, accountID)
	s.Require().NoError(err)
	s.Equal(cert.ID, got.ID)
	s.Equal(cert.Guarantor, got.Guarantor)
	s.Equal(cert.Conditions, got.Conditions)
	s.Equal("A", got.RiskRating)
	s.True(got.GuaranteeAmount.Equal(cert.GuaranteeAmount))
	s.True(got.LoanToValue.Equal(cert.LoanToValue))
	s.True(got.SuggestedRate.Equal(cert.SuggestedRate))
	s.True(got.LeveragePotential.Equal(cert.LeveragePotential))
	s.Equal(cert.Proof, got.Proof)
	s.WithinDuration(cert.ExpiresAt, got.ExpiresAt, time.Millisecond)
}

func (s *PostgresStoreSuite) TestIssueOncePerAccount() {
	ctx := context.Background()
	accountID := uuid.New()
	s.Require().NoError(s.store.Save(ctx, s.newCertificate(accountID)))

	// The account_id unique constraint surfaces as a conflict, not a raw
	// driver error.
	err := s.store.Save(ctx, s.newCertificate(accountID))
	s.ErrorIs(err, sentinel.ErrConflict)
}

func (s *PostgresStoreSuite) TestGetUnknownAccount() {
	_, err := s.store.GetByAccount(context.Background(), uuid.New())
	s.ErrorIs(err, sentinel.ErrNotFound)
}
