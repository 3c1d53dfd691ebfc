package orchestrate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"traitsync/internal/profile"
	"traitsync/internal/provider"
	"traitsync/internal/provider/mocks"
	"traitsync/internal/settings"
	"traitsync/internal/token"
	id "traitsync/pkg/domain"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	tenant  id.TenantID
	store   *profile.InMemoryStore
	client  *mocks.MockClient
	service *Service
}

func newFixture(t *testing.T, cfg *settings.Settings) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	client := mocks.NewMockClient(ctrl)
	store := profile.NewInMemoryStore()
	tenant := id.NewTenantID()

	source := settings.NewStaticSource()
	require.NoError(t, source.Put(tenant, cfg))

	svc := New(store, source, func(string) provider.Client { return client },
		WithClock(func() time.Time { return fixedNow }),
	)
	return &fixture{tenant: tenant, store: store, client: client, service: svc}
}

func enabledAll() *settings.Settings {
	return &settings.Settings{
		APIKey:           "sk_test",
		EnrichEnabled:    true,
		EnrichSegments:   []string{"seg-1"},
		RevealEnabled:    true,
		RevealSegments:   []string{"seg-1"},
		DiscoverEnabled:  true,
		DiscoverSegments: []string{"seg-1"},
		ProspectEnabled:  true,
		ProspectSegments: []string{"seg-1"},
	}
}

func segMatch() []profile.Segment {
	return []profile.Segment{{ID: "seg-1", Name: "Qualified"}}
}

func TestHandleEventEnrichWins(t *testing.T) {
	f := newFixture(t, enabledAll())

	subject := &profile.Profile{ID: id.NewProfileID(), Email: "jane@acme.com"}
	f.store.SeedProfile(f.tenant, subject)

	f.client.EXPECT().
		Enrich(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req provider.EnrichRequest) (*provider.PersonCompany, error) {
			assert.Equal(t, "jane@acme.com", req.Email)
			return &provider.PersonCompany{
				Person: &provider.Person{ID: "person-1", Name: provider.Name{GivenName: "Jane"}},
			}, nil
		})

	outcome, err := f.service.HandleEvent(context.Background(), &profile.Event{
		Tenant:   f.tenant,
		Profile:  subject,
		Segments: segMatch(),
	})
	require.NoError(t, err)
	assert.Equal(t, "enrich", outcome.Action)
	assert.Equal(t, ResultApplied, outcome.Result)

	stored, err := f.store.GetProfile(context.Background(), f.tenant, subject.Ref())
	require.NoError(t, err)
	assert.Equal(t, "person-1", stored.TraitString(profile.KeyID))
	assert.Equal(t, profile.Timestamp(fixedNow), stored.TraitString(profile.KeyEnrichedAt))
	assert.Equal(t, "enrich", stored.TraitString(profile.KeySource))
}

func TestHandleEventRevealForAnonymousVisitor(t *testing.T) {
	f := newFixture(t, enabledAll())

	subject := &profile.Profile{ID: id.NewProfileID(), LastKnownIP: "1.2.3.4"}
	f.store.SeedProfile(f.tenant, subject)

	// Enrich must not be called: reveal runs, nothing after it is evaluated.
	f.client.EXPECT().
		Reveal(gomock.Any(), provider.RevealRequest{IP: "1.2.3.4"}).
		Return(&provider.Company{ID: "company-1", Name: "Acme", Domain: "acme.com"}, nil)

	outcome, err := f.service.HandleEvent(context.Background(), &profile.Event{
		Tenant:   f.tenant,
		Profile:  subject,
		Segments: segMatch(),
	})
	require.NoError(t, err)
	assert.Equal(t, "reveal", outcome.Action)
	assert.Equal(t, ResultApplied, outcome.Result)
	assert.Equal(t, "no email to enrich from", outcome.SkipReasons["enrich"])

	stored, err := f.store.GetProfile(context.Background(), f.tenant, subject.Ref())
	require.NoError(t, err)
	assert.Equal(t, "acme.com", stored.TraitString(profile.KeyCompanyDomain))
	assert.Equal(t, "reveal", stored.TraitString(profile.KeySource))
}

func TestHandleEventAllSkipped(t *testing.T) {
	f := newFixture(t, enabledAll())

	// No email, no IP, no domain: nothing qualifies and no provider call is
	// made (the mock would fail on any unexpected call).
	subject := &profile.Profile{ID: id.NewProfileID()}
	f.store.SeedProfile(f.tenant, subject)

	outcome, err := f.service.HandleEvent(context.Background(), &profile.Event{
		Tenant:   f.tenant,
		Profile:  subject,
		Segments: segMatch(),
	})
	require.NoError(t, err)
	assert.Empty(t, outcome.Action)
	assert.Equal(t, ResultSkipped, outcome.Result)
	assert.Len(t, outcome.SkipReasons, 4)
}

func TestHandleEventNoAPIKey(t *testing.T) {
	f := newFixture(t, &settings.Settings{})

	outcome, err := f.service.HandleEvent(context.Background(), &profile.Event{
		Tenant:   f.tenant,
		Profile:  &profile.Profile{ID: id.NewProfileID(), Email: "jane@acme.com"},
		Segments: segMatch(),
	})
	require.NoError(t, err)
	assert.Equal(t, ResultSkipped, outcome.Result)
	assert.Equal(t, "no api_key set", outcome.SkipReasons["enrich"])
}

func TestHandleEventQueuedSetsPendingMarker(t *testing.T) {
	f := newFixture(t, enabledAll())

	subject := &profile.Profile{ID: id.NewProfileID(), Email: "jane@acme.com"}
	f.store.SeedProfile(f.tenant, subject)

	f.client.EXPECT().
		Enrich(gomock.Any(), gomock.Any()).
		Return(nil, provider.NewError(provider.OutcomeQueued, "queued", nil))

	outcome, err := f.service.HandleEvent(context.Background(), &profile.Event{
		Tenant:   f.tenant,
		Profile:  subject,
		Segments: segMatch(),
	})
	require.NoError(t, err)
	assert.Equal(t, ResultPending, outcome.Result)

	stored, err := f.store.GetProfile(context.Background(), f.tenant, subject.Ref())
	require.NoError(t, err)
	assert.Equal(t, profile.Timestamp(fixedNow), stored.TraitString(profile.KeyFetchedAt))
	assert.False(t, stored.HasTrait(profile.KeyID))
	assert.False(t, stored.HasTrait(profile.KeyEnrichedAt))
}

func TestHandleEventValidationLeavesProfileUnmarked(t *testing.T) {
	f := newFixture(t, enabledAll())

	subject := &profile.Profile{ID: id.NewProfileID(), Email: "broken@"}
	f.store.SeedProfile(f.tenant, subject)

	f.client.EXPECT().
		Enrich(gomock.Any(), gomock.Any()).
		Return(nil, provider.NewError(provider.OutcomeValidation, "invalid_email", nil))

	outcome, err := f.service.HandleEvent(context.Background(), &profile.Event{
		Tenant:   f.tenant,
		Profile:  subject,
		Segments: segMatch(),
	})
	require.NoError(t, err)
	assert.Equal(t, ResultError, outcome.Result)

	stored, err := f.store.GetProfile(context.Background(), f.tenant, subject.Ref())
	require.NoError(t, err)
	assert.False(t, stored.HasTrait(profile.KeyFetchedAt), "validation failures must not start the cooldown")
}

func TestHandleEventRateLimitedWritesNothing(t *testing.T) {
	f := newFixture(t, enabledAll())

	subject := &profile.Profile{ID: id.NewProfileID(), Email: "jane@acme.com"}
	f.store.SeedProfile(f.tenant, subject)

	f.client.EXPECT().
		Enrich(gomock.Any(), gomock.Any()).
		Return(nil, provider.NewError(provider.OutcomeRateLimited, "quota", nil))

	outcome, err := f.service.HandleEvent(context.Background(), &profile.Event{
		Tenant:   f.tenant,
		Profile:  subject,
		Segments: segMatch(),
	})
	require.NoError(t, err)
	assert.Equal(t, ResultError, outcome.Result)

	stored, err := f.store.GetProfile(context.Background(), f.tenant, subject.Ref())
	require.NoError(t, err)
	assert.Empty(t, stored.Traits)
}

func TestHandleEventAccountSplitting(t *testing.T) {
	cfg := enabledAll()
	cfg.HandleRelatedAccounts = true
	f := newFixture(t, cfg)

	subject := &profile.Profile{ID: id.NewProfileID(), Email: "jane@acme.com"}
	f.store.SeedProfile(f.tenant, subject)

	f.client.EXPECT().
		Enrich(gomock.Any(), gomock.Any()).
		Return(&provider.PersonCompany{
			Person:  &provider.Person{ID: "person-1"},
			Company: &provider.Company{ID: "company-1", Name: "Acme", Domain: "acme.com"},
		}, nil)

	_, err := f.service.HandleEvent(context.Background(), &profile.Event{
		Tenant:   f.tenant,
		Profile:  subject,
		Segments: segMatch(),
	})
	require.NoError(t, err)

	stored, err := f.store.GetProfile(context.Background(), f.tenant, subject.Ref())
	require.NoError(t, err)
	assert.False(t, stored.HasTrait(profile.KeyCompanyDomain), "company keys must not stay on the profile")

	account, err := f.store.GetAccount(context.Background(), f.tenant, profile.AccountRef{Domain: "acme.com"})
	require.NoError(t, err)
	assert.Equal(t, "company-1", account.TraitString(profile.KeyID))
	assert.Equal(t, "Acme", account.Name)
	assert.Equal(t, "acme.com", account.Domain)
}

func TestCompleteLookupBypassesEligibility(t *testing.T) {
	f := newFixture(t, enabledAll())

	// A profile that already carries a provider id would never re-qualify
	// for enrichment; the webhook completion path must apply regardless.
	subject := &profile.Profile{
		ID:    id.NewProfileID(),
		Email: "jane@acme.com",
		Traits: map[string]any{
			profile.KeyFetchedAt: profile.Timestamp(fixedNow.Add(-10 * time.Minute)),
		},
	}
	f.store.SeedProfile(f.tenant, subject)

	err := f.service.CompleteLookup(context.Background(), token.Lookup{Tenant: f.tenant, Profile: subject.ID}, &provider.PersonCompany{
		Person: &provider.Person{ID: "person-1", Email: "jane@acme.com"},
	})
	require.NoError(t, err)

	stored, err := f.store.GetProfile(context.Background(), f.tenant, subject.Ref())
	require.NoError(t, err)
	assert.Equal(t, "person-1", stored.TraitString(profile.KeyID))
	assert.Equal(t, profile.Timestamp(fixedNow), stored.TraitString(profile.KeyFetchedAt))
}

func TestCompleteLookupRoutesCompanyToRelatedAccount(t *testing.T) {
	cfg := enabledAll()
	cfg.HandleRelatedAccounts = true
	f := newFixture(t, cfg)

	subject := &profile.Profile{ID: id.NewProfileID(), Email: "jane@acme.com"}
	f.store.SeedProfile(f.tenant, subject)

	// The account the dispatching event was attached to; its domain differs
	// from the company payload's, so domain addressing would miss it.
	account := &profile.Account{ID: id.NewAccountID(), Domain: "acme.example"}
	f.store.SeedAccount(f.tenant, account)

	lookup := token.Lookup{Tenant: f.tenant, Profile: subject.ID, RelatedAccount: account.ID}
	err := f.service.CompleteLookup(context.Background(), lookup, &provider.PersonCompany{
		Person:  &provider.Person{ID: "person-1", Email: "jane@acme.com"},
		Company: &provider.Company{ID: "company-1", Name: "Acme", Domain: "acme.com"},
	})
	require.NoError(t, err)

	stored, err := f.store.GetAccount(context.Background(), f.tenant, profile.AccountRef{ID: account.ID})
	require.NoError(t, err)
	assert.Equal(t, "company-1", stored.TraitString(profile.KeyID))
	assert.Equal(t, "Acme", stored.Name)
}
