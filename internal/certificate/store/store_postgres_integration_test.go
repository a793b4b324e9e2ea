//go:build integration

package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"
	"golang.org/x/sync/errgroup"

	"attest/internal/certificate/models"
	"attest/internal/certificate/store"
	"attest/pkg/platform/sentinel"
	"attest/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *store.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.pg = containers.NewPostgresContainer(s.T())
	s.store = store.NewPostgres(s.pg.DB)
	s.Require().NoError(s.store.EnsureSchema(context.Background()))
}

func (s *PostgresStoreSuite) SetupTest() {
	_, err := s.pg.DB.Exec("TRUNCATE certificates")
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) TestCreateAndFindRoundTrip() {
	ctx := context.Background()
	certificate := newCertificate("addr1")
	certificate.Description = "with description"

	s.Require().NoError(s.store.Create(ctx, certificate))

	found, err := s.store.FindByID(ctx, certificate.ID)
	s.Require().NoError(err)
	s.Equal(certificate.ID, found.ID)
	s.Equal(certificate.HolderName, found.HolderName)
	s.Equal(certificate.Description, found.Description)
	s.Equal(models.StatusUnminted, found.Status)
	s.Empty(found.MintReference)
	s.Empty(found.ProofSignature)
}

func (s *PostgresStoreSuite) TestFindUnknownID() {
	_, err := s.store.FindByID(context.Background(), "no-such-id")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestListByRecipient() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, newCertificate("addr1")))
	s.Require().NoError(s.store.Create(ctx, newCertificate("addr1")))
	s.Require().NoError(s.store.Create(ctx, newCertificate("addr2")))

	matches, err := s.store.ListByRecipient(ctx, "addr1")
	s.Require().NoError(err)
	s.Len(matches, 2)

	empty, err := s.store.ListByRecipient(ctx, "nobody")
	s.Require().NoError(err)
	s.Empty(empty)
}

func (s *PostgresStoreSuite) TestAttachChainProofWriteOnce() {
	ctx := context.Background()
	certificate := newCertificate("addr1")
	s.Require().NoError(s.store.Create(ctx, certificate))

	partial, err := s.store.AttachChainProof(ctx, certificate.ID, models.ChainProof{MintReference: "mint123"})
	s.Require().NoError(err)
	s.Equal(models.StatusPartiallyMinted, partial.Status)

	_, err = s.store.AttachChainProof(ctx, certificate.ID, models.ChainProof{MintReference: "other"})
	s.Require().ErrorIs(err, sentinel.ErrImmutable)

	minted, err := s.store.AttachChainProof(ctx, certificate.ID, models.ChainProof{ProofSignature: "sig456"})
	s.Require().NoError(err)
	s.Equal(models.StatusMinted, minted.Status)
	s.Equal("mint123", minted.MintReference)

	_, err = s.store.AttachChainProof(ctx, "no-such-id", models.ChainProof{MintReference: "x"})
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

// TestConcurrentAttaches drives the conditional-update path: the IS NULL
// guard must let exactly one writer through.
func (s *PostgresStoreSuite) TestConcurrentAttaches() {
	ctx := context.Background()
	certificate := newCertificate("addr1")
	s.Require().NoError(s.store.Create(ctx, certificate))

	const writers = 8
	var g errgroup.Group
	succeeded := make(chan struct{}, writers)
	for i := 0; i < writers; i++ {
		g.Go(func() error {
			_, err := s.store.AttachChainProof(ctx, certificate.ID, models.ChainProof{MintReference: "mint123"})
			if err == nil {
				succeeded <- struct{}{}
			}
			return nil
		})
	}
	s.Require().NoError(g.Wait())
	close(succeeded)

	var wins int
	for range succeeded {
		wins++
	}
	s.Equal(1, wins)
}
