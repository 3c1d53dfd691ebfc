package orchestrate

import (
	"context"
	"log/slog"

	"traitsync/internal/profile"
	"traitsync/internal/provider"
	"traitsync/internal/reconcile"
	"traitsync/internal/token"
)

// CompleteLookup applies an asynchronously delivered enrichment result to
// the profile the correlation token named. It transitions a pending lookup
// to terminal by profile id alone; eligibility is not re-evaluated, so the
// result lands even if the cooldown window has lapsed or the profile's
// segments changed since dispatch. A related-account claim on the token
// restores the dispatching event's account context, so company traits route
// to that account rather than by domain.
func (s *Service) CompleteLookup(ctx context.Context, lookup token.Lookup, payload *provider.PersonCompany) error {
	log := s.logger.With(
		slog.String("tenant_id", lookup.Tenant.String()),
		slog.String("profile_id", lookup.Profile.String()),
	)

	cfg, err := s.settings.Get(ctx, lookup.Tenant)
	if err != nil {
		return err
	}

	ev := &profile.Event{
		Tenant:  lookup.Tenant,
		Profile: &profile.Profile{ID: lookup.Profile},
	}
	if !lookup.RelatedAccount.IsNil() {
		ev.Account = &profile.Account{ID: lookup.RelatedAccount}
	}

	traits := reconcile.FromEnrichment(payload, s.now())
	if err := s.applyToProfile(ctx, cfg, ev, traits); err != nil {
		return err
	}

	s.metrics.IncrementOutcome(reconcile.SourceEnrich, ResultApplied)
	log.Info("incoming.user.success", slog.String("action", reconcile.SourceEnrich))
	return nil
}
