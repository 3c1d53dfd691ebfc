//go:build integration

package profile_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"traitsync/internal/profile"
	id "traitsync/pkg/domain"
	dErrors "traitsync/pkg/domain-errors"
	"traitsync/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *profile.PostgresStore
	tenant   id.TenantID
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	_, err := s.postgres.DB.Exec(profile.Schema)
	s.Require().NoError(err)
	s.store = profile.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.tenant = id.NewTenantID()
	err := s.postgres.TruncateTables(context.Background(), "profiles", "accounts")
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) TestWriteCreatesProfileFromRef() {
	ctx := context.Background()

	traits := profile.TraitSet{}
	traits.Set(profile.KeyID, "person-1")
	traits.SetIfEmpty("first_name", "Jane")

	created, err := s.store.WriteProfileTraits(ctx, s.tenant, profile.Ref{Email: "jane@acme.com"}, traits)
	s.Require().NoError(err)
	s.False(created.ID.IsNil())
	s.Equal("jane@acme.com", created.Email)
	s.Equal("Jane", created.FirstName)
	s.Equal("person-1", created.TraitString(profile.KeyID))

	found, err := s.store.GetProfile(ctx, s.tenant, profile.Ref{Email: "jane@acme.com"})
	s.Require().NoError(err)
	s.Equal(created.ID, found.ID)
}

func (s *PostgresStoreSuite) TestMergePolicyAcrossWrites() {
	ctx := context.Background()
	ref := profile.Ref{Email: "jane@acme.com"}
	first := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	second := first.Add(48 * time.Hour)

	traits := profile.TraitSet{}
	traits.Set(profile.KeyID, "person-1")
	traits.Set(profile.KeyFetchedAt, profile.Timestamp(first))
	traits.SetIfEmpty(profile.KeyEnrichedAt, profile.Timestamp(first))
	traits.SetIfEmpty(profile.KeySource, "enrich")
	traits.SetIfEmpty("first_name", "Jane")
	_, err := s.store.WriteProfileTraits(ctx, s.tenant, ref, traits)
	s.Require().NoError(err)

	traits = profile.TraitSet{}
	traits.Set(profile.KeyID, "person-2")
	traits.Set(profile.KeyFetchedAt, profile.Timestamp(second))
	traits.SetIfEmpty(profile.KeyEnrichedAt, profile.Timestamp(second))
	traits.SetIfEmpty(profile.KeySource, "reveal")
	traits.SetIfEmpty("first_name", "Janet")
	updated, err := s.store.WriteProfileTraits(ctx, s.tenant, ref, traits)
	s.Require().NoError(err)

	s.Equal("person-2", updated.TraitString(profile.KeyID), "namespaced attributes take the latest fetch")
	s.Equal(profile.Timestamp(second), updated.TraitString(profile.KeyFetchedAt))
	s.Equal(profile.Timestamp(first), updated.TraitString(profile.KeyEnrichedAt), "marker keeps the first success")
	s.Equal("enrich", updated.TraitString(profile.KeySource))
	s.Equal("Jane", updated.FirstName, "top-level fields are never clobbered")
}

func (s *PostgresStoreSuite) TestResolutionByAnyClaim() {
	ctx := context.Background()

	traits := profile.TraitSet{}
	traits.Set(profile.KeyID, "person-1")
	created, err := s.store.WriteProfileTraits(ctx, s.tenant,
		profile.Ref{Email: "jane@acme.com", AnonymousID: "anon-1", ExternalID: "ext-1"}, traits)
	s.Require().NoError(err)

	for _, ref := range []profile.Ref{
		{ID: created.ID},
		{ExternalID: "ext-1"},
		{Email: "jane@acme.com"},
		{AnonymousID: "anon-1"},
	} {
		found, err := s.store.GetProfile(ctx, s.tenant, ref)
		s.Require().NoError(err)
		s.Equal(created.ID, found.ID)
	}
}

func (s *PostgresStoreSuite) TestGetProfileNotFound() {
	_, err := s.store.GetProfile(context.Background(), s.tenant, profile.Ref{Email: "ghost@acme.com"})
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *PostgresStoreSuite) TestTenantIsolation() {
	ctx := context.Background()
	other := id.NewTenantID()

	traits := profile.TraitSet{}
	traits.Set(profile.KeyID, "person-1")
	_, err := s.store.WriteProfileTraits(ctx, s.tenant, profile.Ref{Email: "jane@acme.com"}, traits)
	s.Require().NoError(err)

	_, err = s.store.GetProfile(ctx, other, profile.Ref{Email: "jane@acme.com"})
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *PostgresStoreSuite) TestAccountWriteAndMerge() {
	ctx := context.Background()
	ref := profile.AccountRef{Domain: "acme.com"}

	traits := profile.TraitSet{}
	traits.Set(profile.KeyID, "company-1")
	traits.SetIfEmpty("name", "Acme")
	created, err := s.store.WriteAccountTraits(ctx, s.tenant, ref, traits)
	s.Require().NoError(err)
	s.Equal("acme.com", created.Domain)
	s.Equal("Acme", created.Name)

	traits = profile.TraitSet{}
	traits.Set(profile.KeyID, "company-2")
	traits.SetIfEmpty("name", "Acme Incorporated")
	updated, err := s.store.WriteAccountTraits(ctx, s.tenant, ref, traits)
	s.Require().NoError(err)
	s.Equal(created.ID, updated.ID)
	s.Equal("company-2", updated.TraitString(profile.KeyID))
	s.Equal("Acme", updated.Name)
}

func (s *PostgresStoreSuite) TestAggregateByDomain() {
	ctx := context.Background()

	// Two anonymous visitors revealed to acme.com, one known contact, and
	// one unrelated profile.
	for i, anon := range []string{"anon-1", "anon-2"} {
		traits := profile.TraitSet{}
		traits.Set(profile.KeyCompanyDomain, "acme.com")
		traits.SetIfEmpty(profile.KeySource, "reveal")
		_, err := s.store.WriteProfileTraits(ctx, s.tenant, profile.Ref{AnonymousID: anon}, traits)
		s.Require().NoError(err, "visitor %d", i)
	}

	known := profile.TraitSet{}
	known.SetIfEmpty("domain", "acme.com")
	_, err := s.store.WriteProfileTraits(ctx, s.tenant, profile.Ref{Email: "jane@acme.com"}, known)
	s.Require().NoError(err)

	unrelated := profile.TraitSet{}
	unrelated.SetIfEmpty("domain", "globex.com")
	_, err = s.store.WriteProfileTraits(ctx, s.tenant, profile.Ref{Email: "hank@globex.com"}, unrelated)
	s.Require().NoError(err)

	agg, err := s.store.AggregateByDomain(ctx, s.tenant, "acme.com")
	s.Require().NoError(err)
	s.Equal(3, agg.Total)
	s.Equal(2, agg.Anonymous)
	s.Equal(2, agg.BySource["reveal"])
}

func (s *PostgresStoreSuite) TestCountDiscoveredFrom() {
	ctx := context.Background()

	count, err := s.store.CountDiscoveredFrom(ctx, s.tenant, "acme.com")
	s.Require().NoError(err)
	s.Zero(count)

	for _, anon := range []string{"augur-company:c1", "augur-company:c2"} {
		traits := profile.TraitSet{}
		traits.SetIfEmpty(profile.KeyDiscoveredFromDomain, "acme.com")
		_, err := s.store.WriteProfileTraits(ctx, s.tenant, profile.Ref{AnonymousID: anon}, traits)
		s.Require().NoError(err)
	}

	count, err = s.store.CountDiscoveredFrom(ctx, s.tenant, "acme.com")
	s.Require().NoError(err)
	s.Equal(2, count)
}

func (s *PostgresStoreSuite) TestConcurrentWritesSerializeOnRow() {
	ctx := context.Background()
	ref := profile.Ref{Email: "jane@acme.com"}

	seed := profile.TraitSet{}
	seed.Set(profile.KeyID, "person-1")
	created, err := s.store.WriteProfileTraits(ctx, s.tenant, ref, seed)
	s.Require().NoError(err)

	const writers = 20
	done := make(chan error, writers)
	for i := 0; i < writers; i++ {
		go func(i int) {
			traits := profile.TraitSet{}
			traits.SetIfEmpty(profile.KeyEnrichedAt, profile.Timestamp(
				time.Date(2026, 3, 1, 0, 0, i, 0, time.UTC)))
			_, err := s.store.WriteProfileTraits(ctx, s.tenant, ref, traits)
			done <- err
		}(i)
	}
	for i := 0; i < writers; i++ {
		s.Require().NoError(<-done)
	}

	found, err := s.store.GetProfile(ctx, s.tenant, ref)
	s.Require().NoError(err)
	s.Equal(created.ID, found.ID, "racing writers must not fork the profile")
	s.NotEmpty(found.TraitString(profile.KeyEnrichedAt))
}
