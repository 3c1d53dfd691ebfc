package orchestrate

import (
	"context"
	"log/slog"
	"time"

	"traitsync/internal/eligibility"
	"traitsync/internal/profile"
	"traitsync/internal/provider"
	"traitsync/internal/reconcile"
	"traitsync/internal/settings"
)

// discoveredProfilePrefix keys the anonymous identity a discovered company
// enters the store under. Re-running discovery against the same provider
// company resolves to the same profile instead of minting a duplicate.
const discoveredProfilePrefix = "augur-company:"

func (s *Service) discover(ctx context.Context, client provider.Client, cfg *settings.Settings, ev *profile.Event) (*Outcome, error) {
	domain := eligibility.ResolveDomain(ev.Account, ev.Profile, cfg.LookupDomainAttribute)

	// A domain seeds discovery at most once, ever. The store count is the
	// source of truth, not the per-profile marker, so two profiles on the
	// same domain cannot both trigger a run.
	seeded, err := s.store.CountDiscoveredFrom(ctx, ev.Tenant, domain)
	if err != nil {
		return nil, err
	}
	if seeded > 0 {
		s.logger.Debug("domain.discover.skip",
			slog.String("domain", domain),
			slog.String("reason", "domain already used for discovery"))
		return &Outcome{Result: ResultSkipped, Reason: "domain already used for discovery"}, nil
	}

	started := time.Now()
	companies, err := client.Discover(ctx, provider.DiscoverQuery{
		SimilarTo: domain,
		Limit:     cfg.DiscoverLimit,
	})
	s.metrics.ObserveProviderLatency(reconcile.SourceDiscover, time.Since(started))
	if err != nil {
		return nil, err
	}

	// Mark the seed before writing the discoveries so a crash mid-save
	// cannot re-trigger the run.
	marker := profile.TraitSet{}
	marker.SetIfEmpty(profile.KeyDiscoveredSimilarAt, profile.Timestamp(s.now()))
	if _, err := s.store.WriteProfileTraits(ctx, ev.Tenant, ev.Profile.Ref(), marker); err != nil {
		return nil, err
	}

	for _, company := range companies {
		traits := reconcile.FromDiscovery(company, domain, s.now())
		ref := profile.Ref{AnonymousID: discoveredProfilePrefix + company.ID}
		if _, err := s.store.WriteProfileTraits(ctx, ev.Tenant, ref, traits); err != nil {
			return nil, err
		}
	}
	s.metrics.IncrementProfilesCreated(reconcile.SourceDiscover, len(companies))

	return &Outcome{Result: ResultApplied}, nil
}
