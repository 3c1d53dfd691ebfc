package orchestrate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"traitsync/internal/eligibility"
	"traitsync/internal/exclusion"
	"traitsync/internal/profile"
	"traitsync/internal/provider"
	"traitsync/internal/reconcile"
	"traitsync/internal/settings"
)

const prospectedProfilePrefix = "augur-prospect:"

func (s *Service) prospect(ctx context.Context, client provider.Client, cfg *settings.Settings, ev *profile.Event) (*Outcome, error) {
	domain := eligibility.ResolveDomain(ev.Account, ev.Profile, cfg.LookupDomainAttribute)

	gate, err := s.shouldProspectDomain(ctx, cfg, ev, domain)
	if err != nil {
		return nil, err
	}
	if !gate.Should {
		s.logger.Info("outgoing.user.skip",
			slog.String("action", reconcile.SourceProspect),
			slog.String("domain", domain),
			slog.String("reason", gate.Reason))
		return &Outcome{Result: ResultSkipped, Reason: gate.Reason}, nil
	}

	contacts, err := s.fetchProspects(ctx, client, cfg, domain)
	if err != nil {
		return nil, err
	}

	if err := s.saveProspects(ctx, cfg, ev, contacts); err != nil {
		return nil, err
	}

	// Stamp the seed so the same profile never prospects its domain twice.
	marker := profile.TraitSet{}
	marker.SetIfEmpty(profile.KeyProspectedAt, profile.Timestamp(s.now()))
	if _, err := s.store.WriteProfileTraits(ctx, ev.Tenant, ev.Profile.Ref(), marker); err != nil {
		return nil, err
	}

	s.logger.Info("outgoing.user.success",
		slog.String("action", reconcile.SourceProspect),
		slog.String("domain", domain),
		slog.Int("found", len(contacts)))
	return &Outcome{Result: ResultApplied}, nil
}

// shouldProspectDomain is the domain-level gate. Prospecting spends quota on
// a whole domain, so excluded domains are rejected before any query runs,
// and the tenant can require a minimum of revealed anonymous visitors
// before the domain is considered worth it.
func (s *Service) shouldProspectDomain(ctx context.Context, cfg *settings.Settings, ev *profile.Event, domain string) (eligibility.Decision, error) {
	if exclusion.IsFreeEmailDomain(domain) || cfg.DomainExcluded(domain) {
		return eligibility.Decision{Reason: fmt.Sprintf("domain %q is excluded from prospecting", domain)}, nil
	}

	minContacts := cfg.RevealProspectMinContacts
	if minContacts <= 0 {
		return eligibility.Decision{Should: true}, nil
	}

	agg, err := s.store.AggregateByDomain(ctx, ev.Tenant, domain)
	if err != nil {
		return eligibility.Decision{}, err
	}
	if agg.BySource[reconcile.SourceReveal] < minContacts || agg.Anonymous < minContacts {
		return eligibility.Decision{Reason: "under the unique anonymous visitors threshold for prospecting"}, nil
	}
	return eligibility.Decision{Should: true}, nil
}

// fetchProspects pages through the configured title buckets strictly in
// order. Each call asks for the remaining quota only, so the loop stops
// naturally once earlier buckets fill the limit, and a title is never
// queried with a non-positive limit. Contacts dedupe by email, last write
// wins.
func (s *Service) fetchProspects(ctx context.Context, client provider.Client, cfg *settings.Settings, domain string) ([]provider.Contact, error) {
	titles := cfg.ProspectFilterTitles
	if len(titles) == 0 {
		titles = []string{""}
	}

	limit := cfg.ProspectLimit
	byEmail := make(map[string]provider.Contact, limit)
	var order []string

	for _, title := range titles {
		remaining := limit - len(byEmail)
		if remaining <= 0 {
			break
		}

		started := time.Now()
		results, err := client.Prospect(ctx, provider.ProspectQuery{
			Domain:       domain,
			Title:        title,
			Roles:        cfg.ProspectFilterRoles,
			Seniorities:  cfg.ProspectFilterSeniorities,
			Cities:       cfg.ProspectFilterCities,
			States:       cfg.ProspectFilterStates,
			Countries:    cfg.ProspectFilterCountries,
			Limit:        remaining,
			RequireEmail: true,
		})
		s.metrics.ObserveProviderLatency(reconcile.SourceProspect, time.Since(started))
		if err != nil {
			return nil, err
		}

		for _, contact := range results {
			if _, seen := byEmail[contact.Email]; !seen {
				// A provider that ignores the requested limit must not
				// push the total past the tenant's quota.
				if len(byEmail) >= limit {
					break
				}
				order = append(order, contact.Email)
			}
			byEmail[contact.Email] = contact
		}
	}

	contacts := make([]provider.Contact, 0, len(byEmail))
	for _, email := range order {
		contacts = append(contacts, byEmail[email])
	}
	return contacts, nil
}

// saveProspects writes each contact as a new profile carrying prospect
// attribution, plus the seed's company traits so the contact lands with
// company context. With account handling on, the company context goes to
// the account instead.
func (s *Service) saveProspects(ctx context.Context, cfg *settings.Settings, ev *profile.Event, contacts []provider.Contact) error {
	companyTraits := seedCompanyTraits(ev.Profile)

	for _, contact := range contacts {
		traits := reconcile.FromProspect(contact, ev.Profile.ID.String(), s.now())
		ref := profile.Ref{Email: contact.Email, AnonymousID: prospectedProfilePrefix + contact.ID}

		if !cfg.HandleRelatedAccounts {
			merged := profile.TraitSet{}
			merged.Merge(companyTraits)
			merged.Merge(traits)
			if _, err := s.store.WriteProfileTraits(ctx, ev.Tenant, ref, merged); err != nil {
				return err
			}
			continue
		}

		if _, err := s.store.WriteProfileTraits(ctx, ev.Tenant, ref, traits); err != nil {
			return err
		}
		_, account, domain := reconcile.Split(companyTraits)
		if len(account) == 0 || domain == "" {
			continue
		}
		accountRef := profile.AccountRef{Domain: domain}
		if ev.Account != nil {
			accountRef = ev.Account.Ref()
			if accountRef.Domain == "" {
				accountRef.Domain = domain
			}
		}
		if _, err := s.store.WriteAccountTraits(ctx, ev.Tenant, accountRef, account); err != nil {
			return err
		}
	}

	s.metrics.IncrementProfilesCreated(reconcile.SourceProspect, len(contacts))
	return nil
}

// seedCompanyTraits lifts the seed profile's company-group traits so they
// can ride along on the prospected contacts.
func seedCompanyTraits(p *profile.Profile) profile.TraitSet {
	ts := profile.TraitSet{}
	prefix := profile.CompanyNamespace + "/"
	for key, value := range p.Traits {
		if strings.HasPrefix(key, prefix) {
			ts.Set(key, value)
		}
	}
	return ts
}
