// Package eligibility contains the per-action decision rules. Everything in
// this package is pure: no I/O, no clocks (time is an argument), no errors.
// Each rule chain fails fast and reports the first reason it stopped, which
// the driver logs as the skip reason.
package eligibility

import (
	"time"

	"traitsync/internal/exclusion"
	"traitsync/internal/profile"
	"traitsync/internal/settings"
)

// Decision is the outcome of one action's eligibility check.
type Decision struct {
	Should bool
	Reason string
}

func skip(reason string) Decision { return Decision{Reason: reason} }

func proceed() Decision { return Decision{Should: true} }

// PendingWindow is how long a dispatched lookup suppresses re-dispatch while
// the asynchronous webhook is still outstanding.
const PendingWindow = time.Hour

// LookupPending reports whether a fetch was dispatched recently and no
// provider identifier has arrived yet. It models "we already asked, we're
// waiting on the webhook" and prevents duplicate concurrent fetches.
func LookupPending(p *profile.Profile, now time.Time) bool {
	fetched := p.TraitTime(profile.KeyFetchedAt)
	if fetched.IsZero() {
		return false
	}
	return now.Sub(fetched) < PendingWindow && !p.HasTrait(profile.KeyID)
}

// InSegments reports whether any of the profile's segments is on the
// allow-list. An empty allow-list never matches: a tenant that configured no
// audience gets no action.
func InSegments(memberships []profile.Segment, allowList []string) bool {
	if len(allowList) == 0 {
		return false
	}
	allowed := make(map[string]struct{}, len(allowList))
	for _, id := range allowList {
		allowed[id] = struct{}{}
	}
	for _, seg := range memberships {
		if _, ok := allowed[seg.ID]; ok {
			return true
		}
	}
	return false
}

// ShouldEnrich decides whether to enrich the subject profile by email.
func ShouldEnrich(cfg *settings.Settings, ev *profile.Event, now time.Time) Decision {
	if !cfg.EnrichEnabled {
		return skip("enrich is not enabled")
	}

	// Enrichment is an email lookup; a domain alone is prospect/discover
	// territory and must fall through to those actions.
	user := ev.Profile
	if user.Email == "" {
		return skip("no email to enrich from")
	}

	if !InSegments(ev.Segments, cfg.EnrichSegments) {
		return skip("profile is not in any enrich segment")
	}

	if LookupPending(user, now) {
		return skip("waiting for the enrichment webhook")
	}

	if user.HasTrait(profile.KeyID) {
		return skip("provider id already present")
	}

	if user.HasTrait(profile.KeyEnrichedAt) {
		return skip("enriched_at already present")
	}

	return proceed()
}

// ShouldReveal decides whether to reveal the company behind the profile's
// last known IP.
func ShouldReveal(cfg *settings.Settings, ev *profile.Event, _ time.Time) Decision {
	if !cfg.RevealEnabled {
		return skip("reveal is not enabled")
	}

	user := ev.Profile
	if !exclusion.ValidPublicIP(user.LastKnownIP) {
		return skip("no valid public ip to reveal")
	}

	if !InSegments(ev.Segments, cfg.RevealSegments) {
		return skip("profile is not in any reveal segment")
	}

	if ev.Account.HasTrait(profile.KeyID) {
		return skip("provider company id already present on account")
	}

	if user.HasTrait(profile.KeyRevealedAt) {
		return skip("revealed_at already present")
	}

	return proceed()
}

// ShouldDiscover decides whether to search for companies similar to the
// profile's company.
func ShouldDiscover(cfg *settings.Settings, ev *profile.Event, _ time.Time) Decision {
	if !cfg.DiscoverEnabled {
		return skip("discover is not enabled")
	}

	if len(cfg.DiscoverSegments) == 0 {
		return skip("no discover segments are allow-listed")
	}

	user := ev.Profile
	domain := ResolveDomain(ev.Account, user, cfg.LookupDomainAttribute)
	if domain == "" {
		return skip("no domain on profile or account; discovery needs a seed domain")
	}

	if user.HasTrait(profile.KeyDiscoveredSimilarAt) {
		return skip("similar companies already discovered")
	}

	// A profile created by a previous discovery never seeds another one.
	if user.HasTrait(profile.KeyDiscoveredFromDomain) {
		return skip("profile is itself a discovery; preventing loops")
	}

	if !InSegments(ev.Segments, cfg.DiscoverSegments) {
		return skip("profile is not in any discover segment")
	}

	return proceed()
}

// ShouldProspect decides whether this event may trigger domain prospecting.
// The domain-level gate (aggregate counts, exclusion list) runs later in the
// orchestrator because it needs the store; this check is the pure per-event
// part.
func ShouldProspect(cfg *settings.Settings, ev *profile.Event, _ time.Time) Decision {
	if !cfg.ProspectEnabled {
		return skip("prospect is not enabled")
	}

	user := ev.Profile
	domain := ResolveDomain(ev.Account, user, cfg.LookupDomainAttribute)
	if domain == "" {
		return skip("no domain to prospect")
	}

	// Prospecting targets anonymous visitors; a profile with an identifying
	// email is handled by enrich instead.
	if user.Email != "" {
		return skip("profile has an identifying email")
	}

	if !InSegments(prospectMemberships(ev), cfg.ProspectSegments) {
		return skip("profile is not in any prospect segment")
	}

	if user.HasTrait(profile.KeyProspectedAt) {
		return skip("prospected_at already present")
	}

	return proceed()
}

// prospectMemberships prefers the account's segment memberships, since
// prospecting is a domain-wide action, and falls back to the profile's.
func prospectMemberships(ev *profile.Event) []profile.Segment {
	if len(ev.AccountSegments) > 0 {
		return ev.AccountSegments
	}
	return ev.Segments
}
