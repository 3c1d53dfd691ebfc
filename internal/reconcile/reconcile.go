// Package reconcile turns provider payloads into trait write-sets. It is
// pure: builders map payload fields to namespaced keys under a merge policy,
// Split routes company-group keys to the account, and nothing here touches
// a store or the network.
package reconcile

import (
	"strings"
	"time"

	"traitsync/internal/profile"
	"traitsync/internal/provider"
)

// Action sources, written into the source and <source>ed_at markers.
const (
	SourceEnrich   = "enrich"
	SourceReveal   = "reveal"
	SourceDiscover = "discover"
	SourceProspect = "prospect"
)

var markerKeys = map[string]string{
	SourceEnrich:   profile.KeyEnrichedAt,
	SourceReveal:   profile.KeyRevealedAt,
	SourceDiscover: profile.KeyDiscoveredAt,
	SourceProspect: profile.KeyProspectedAt,
}

// Stamp adds the bookkeeping markers for a completed lookup. fetched_at
// always moves forward; the per-source marker and the source attribution
// keep their first value so the original acquisition channel survives later
// lookups.
func Stamp(ts profile.TraitSet, source string, now time.Time) {
	ts.Set(profile.KeyFetchedAt, profile.Timestamp(now))
	if key, ok := markerKeys[source]; ok {
		ts.SetIfEmpty(key, profile.Timestamp(now))
	}
	ts.SetIfEmpty(profile.KeySource, source)
}

// PendingMarker is the write-set for a lookup that was dispatched but has
// not produced attributes yet (queued enrichment, person not found). Only
// fetched_at moves; the eligibility rules read it as an in-flight lookup
// until the window expires.
func PendingMarker(now time.Time) profile.TraitSet {
	ts := profile.TraitSet{}
	ts.Set(profile.KeyFetchedAt, profile.Timestamp(now))
	return ts
}

// FromEnrichment builds the profile write-set for a combined person+company
// response. Company attributes ride along under the company namespace until
// Split routes them.
func FromEnrichment(pc *provider.PersonCompany, now time.Time) profile.TraitSet {
	ts := profile.TraitSet{}
	if pc == nil {
		return ts
	}
	ts.Merge(personTraits(pc.Person))
	ts.Merge(companyTraits(pc.Company, profile.CompanyNamespace))
	if pc.Company != nil {
		ts.SetIfEmpty("domain", pc.Company.Domain)
	}
	Stamp(ts, SourceEnrich, now)
	return ts
}

// FromReveal builds the profile write-set for an IP-revealed company.
func FromReveal(c *provider.Company, now time.Time) profile.TraitSet {
	ts := companyTraits(c, profile.CompanyNamespace)
	Stamp(ts, SourceReveal, now)
	return ts
}

// FromDiscovery builds the write-set for one discovered similar company.
// The discovered_from_domain marker is what keeps a discovered company from
// seeding another discovery run.
func FromDiscovery(c provider.Company, fromDomain string, now time.Time) profile.TraitSet {
	ts := companyTraits(&c, profile.CompanyNamespace)
	ts.SetIfEmpty(profile.KeyDiscoveredFromDomain, fromDomain)
	ts.SetIfEmpty(profile.KeyDiscoveredAt, profile.Timestamp(now))
	ts.SetIfEmpty(profile.KeySource, SourceDiscover)
	return ts
}

// FromProspect builds the write-set for a prospected contact. seedID is the
// profile whose domain seeded the search; it becomes the prospected_from
// attribution when present.
func FromProspect(ct provider.Contact, seedID string, now time.Time) profile.TraitSet {
	ts := contactTraits(ct)
	ts.SetIfEmpty(profile.KeyProspectedAt, profile.Timestamp(now))
	ts.SetIfEmpty(profile.KeySource, SourceProspect)
	if seedID != "" {
		ts.SetIfEmpty(profile.KeyProspectedFrom, seedID)
	}
	return ts
}

// Split partitions a write-set into the profile part and the account part.
// Company-namespace keys move to the account under the plain namespace, and
// the account picks up top-level name and domain mirrors. The returned
// domain identifies which account to write; an empty domain means no
// account write happens.
func Split(ts profile.TraitSet) (person, account profile.TraitSet, domain string) {
	person = profile.TraitSet{}
	account = profile.TraitSet{}

	companyPrefix := profile.CompanyNamespace + "/"
	for key, trait := range ts {
		rest, ok := strings.CutPrefix(key, companyPrefix)
		if !ok {
			person[key] = trait
			continue
		}
		account[profile.Namespace+"/"+rest] = trait
	}

	if v, ok := account[profile.KeyDomain]; ok {
		if s, isString := v.Value.(string); isString {
			domain = s
			account.SetIfEmpty("domain", s)
		}
	}
	if v, ok := account[profile.Namespace+"/name"]; ok {
		if s, isString := v.Value.(string); isString {
			account.SetIfEmpty("name", s)
		}
	}

	// Markers travel with both halves so either side can answer "when and
	// how did this arrive".
	for _, key := range []string{profile.KeyFetchedAt, profile.KeySource} {
		if trait, ok := person[key]; ok && len(account) > 0 {
			account[key] = trait
		}
	}

	return person, account, domain
}
