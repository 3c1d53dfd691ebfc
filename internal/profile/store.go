package profile

import (
	"context"

	id "traitsync/pkg/domain"
)

// DomainAggregate is the result of the domain-level gate query: how many
// profiles share a domain, how many are anonymous (no email), and how the
// known ones were sourced.
type DomainAggregate struct {
	Total     int
	Anonymous int
	BySource  map[string]int
}

// Store is the Profile Store port. Implementations own persistence and
// consistency; the engine treats the store as externally consistent and
// coordinates no transactions across calls.
type Store interface {
	// GetProfile resolves a profile by ref. Returns a CodeNotFound error
	// when no claim matches.
	GetProfile(ctx context.Context, tenant id.TenantID, ref Ref) (*Profile, error)

	// GetAccount resolves an account by ref.
	GetAccount(ctx context.Context, tenant id.TenantID, ref AccountRef) (*Account, error)

	// WriteProfileTraits applies a trait set under each trait's merge policy,
	// creating the profile when the ref is unknown. Returns the post-write
	// profile.
	WriteProfileTraits(ctx context.Context, tenant id.TenantID, ref Ref, traits TraitSet) (*Profile, error)

	// WriteAccountTraits applies a trait set to an account, creating it when
	// the ref is unknown.
	WriteAccountTraits(ctx context.Context, tenant id.TenantID, ref AccountRef, traits TraitSet) (*Account, error)

	// AggregateByDomain counts profiles sharing a domain for the prospect
	// domain-level gate.
	AggregateByDomain(ctx context.Context, tenant id.TenantID, domain string) (*DomainAggregate, error)

	// CountDiscoveredFrom counts profiles whose discovered_from_domain marker
	// equals domain; non-zero means the domain already seeded a discovery.
	CountDiscoveredFrom(ctx context.Context, tenant id.TenantID, domain string) (int, error)
}
