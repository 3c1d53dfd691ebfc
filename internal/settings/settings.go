// Package settings holds the typed per-tenant connector configuration. Each
// tenant configures which actions run, which segments gate them, and how
// prospecting is filtered. The struct is constructed once per tenant, passed
// by reference, and never consulted by dynamic key lookup.
package settings

import (
	dErrors "traitsync/pkg/domain-errors"
	pstrings "traitsync/pkg/platform/strings"
)

// Settings is one tenant's connector configuration.
//
// Invariants after Normalize:
//   - all segment and filter lists are deduped and trimmed
//   - ExcludedDomains is lowercased
//   - ProspectLimit and DiscoverLimit fall back to their defaults when
//     non-positive
type Settings struct {
	APIKey string `json:"api_key"`

	EnrichEnabled  bool     `json:"enrich_enabled"`
	EnrichSegments []string `json:"enrich_segments"`

	RevealEnabled  bool     `json:"reveal_enabled"`
	RevealSegments []string `json:"reveal_segments"`

	DiscoverEnabled  bool     `json:"discover_enabled"`
	DiscoverSegments []string `json:"discover_segments"`
	DiscoverLimit    int      `json:"discover_limit_count"`

	ProspectEnabled  bool     `json:"prospect_enabled"`
	ProspectSegments []string `json:"prospect_segments"`
	ProspectLimit    int      `json:"prospect_limit_count"`

	ProspectFilterTitles      []string `json:"prospect_filter_titles"`
	ProspectFilterRoles       []string `json:"prospect_filter_roles"`
	ProspectFilterSeniorities []string `json:"prospect_filter_seniorities"`
	ProspectFilterCities      []string `json:"prospect_filter_cities"`
	ProspectFilterStates      []string `json:"prospect_filter_states"`
	ProspectFilterCountries   []string `json:"prospect_filter_countries"`

	// LookupDomainAttribute names the profile or account attribute the domain
	// resolver reads first; an "account." prefix scopes it to the account.
	LookupDomainAttribute string `json:"lookup_domain_attribute"`

	// HandleRelatedAccounts routes company traits onto the related account
	// instead of the subject profile.
	HandleRelatedAccounts bool `json:"handle_related_accounts"`

	// RevealProspectMinContacts is the minimum number of anonymous revealed
	// visitors a domain needs before prospecting spends quota on it. Zero
	// disables the threshold.
	RevealProspectMinContacts int `json:"reveal_prospect_min_contacts"`

	// ExcludedDomains extends the built-in free-email exclusion list.
	ExcludedDomains []string `json:"excluded_domains"`
}

const (
	DefaultProspectLimit = 5
	DefaultDiscoverLimit = 5
)

// Normalize cleans up list fields and applies limit defaults. Call once after
// loading, before the settings reach the evaluator.
func (s *Settings) Normalize() {
	s.EnrichSegments = pstrings.DedupeAndTrim(s.EnrichSegments)
	s.RevealSegments = pstrings.DedupeAndTrim(s.RevealSegments)
	s.DiscoverSegments = pstrings.DedupeAndTrim(s.DiscoverSegments)
	s.ProspectSegments = pstrings.DedupeAndTrim(s.ProspectSegments)

	s.ProspectFilterTitles = pstrings.DedupeAndTrim(s.ProspectFilterTitles)
	s.ProspectFilterRoles = pstrings.DedupeAndTrim(s.ProspectFilterRoles)
	s.ProspectFilterSeniorities = pstrings.DedupeAndTrim(s.ProspectFilterSeniorities)
	s.ProspectFilterCities = pstrings.DedupeAndTrim(s.ProspectFilterCities)
	s.ProspectFilterStates = pstrings.DedupeAndTrim(s.ProspectFilterStates)
	s.ProspectFilterCountries = pstrings.DedupeAndTrim(s.ProspectFilterCountries)

	s.ExcludedDomains = pstrings.DedupeAndTrimLower(s.ExcludedDomains)

	if s.ProspectLimit <= 0 {
		s.ProspectLimit = DefaultProspectLimit
	}
	if s.DiscoverLimit <= 0 {
		s.DiscoverLimit = DefaultDiscoverLimit
	}
}

// Validate rejects configurations the engine cannot run with.
func (s *Settings) Validate() error {
	if s.APIKey == "" && s.anyActionEnabled() {
		return dErrors.New(dErrors.CodeInvalidInput, "api key is required when any action is enabled")
	}
	if s.RevealProspectMinContacts < 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "reveal_prospect_min_contacts must not be negative")
	}
	return nil
}

func (s *Settings) anyActionEnabled() bool {
	return s.EnrichEnabled || s.RevealEnabled || s.DiscoverEnabled || s.ProspectEnabled
}

// DomainExcluded reports whether domain is on the tenant's exclusion list.
// Comparison is case-insensitive via normalization; callers pass lowercased
// domains.
func (s *Settings) DomainExcluded(domain string) bool {
	for _, d := range s.ExcludedDomains {
		if d == domain {
			return true
		}
	}
	return false
}

// HealthStatus summarizes a settings health check for the status endpoint.
type HealthStatus struct {
	Status   string   `json:"status"` // ok, warning, or error
	Messages []string `json:"messages"`
}

// Health reports configuration problems the way the connector dashboard
// surfaces them: errors block the connector entirely, warnings mean some
// configured action can never trigger.
func (s *Settings) Health() HealthStatus {
	h := HealthStatus{Status: "ok"}

	if s.APIKey == "" {
		h.Status = "error"
		h.Messages = append(h.Messages, "No API key configured")
	}
	if !s.anyActionEnabled() {
		warn(&h)
		h.Messages = append(h.Messages, "No enrichment action is enabled")
	}
	if s.EnrichEnabled && len(s.EnrichSegments) == 0 {
		warn(&h)
		h.Messages = append(h.Messages, "Enrich is enabled but no segments are allow-listed; it will never trigger")
	}
	if s.RevealEnabled && len(s.RevealSegments) == 0 {
		warn(&h)
		h.Messages = append(h.Messages, "Reveal is enabled but no segments are allow-listed; it will never trigger")
	}
	if s.DiscoverEnabled && len(s.DiscoverSegments) == 0 {
		warn(&h)
		h.Messages = append(h.Messages, "Discover is enabled but no segments are allow-listed; it will never trigger")
	}
	if s.ProspectEnabled && len(s.ProspectSegments) == 0 {
		warn(&h)
		h.Messages = append(h.Messages, "Prospect is enabled but no segments are allow-listed; it will never trigger")
	}
	return h
}

func warn(h *HealthStatus) {
	if h.Status == "ok" {
		h.Status = "warning"
	}
}
