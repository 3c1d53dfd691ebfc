package eligibility

import (
	"strings"

	"traitsync/internal/profile"
)

// accountScope prefixes a lookup attribute that should be read off the
// related account instead of the subject profile.
const accountScope = "account."

// ResolveDomain derives the canonical company domain for an event. When the
// tenant configured a lookup attribute it wins; otherwise the fallback chain
// runs in strict order:
//
//	account.domain → account augur/domain → profile augur/employment_domain
//	→ profile augur_company/domain → profile.domain
//
// Returns "" when nothing yields a non-empty string. Pure function of its
// inputs.
func ResolveDomain(account *profile.Account, p *profile.Profile, attributePath string) string {
	if attributePath != "" {
		if key, ok := strings.CutPrefix(attributePath, accountScope); ok {
			if v := accountAttribute(account, key); v != "" {
				return v
			}
		} else if v := profileAttribute(p, attributePath); v != "" {
			return v
		}
	}

	if v := accountAttribute(account, "domain"); v != "" {
		return v
	}
	if v := accountAttribute(account, profile.KeyDomain); v != "" {
		return v
	}
	if v := profileAttribute(p, profile.KeyEmploymentDomain); v != "" {
		return v
	}
	if v := profileAttribute(p, profile.KeyCompanyDomain); v != "" {
		return v
	}
	return profileAttribute(p, "domain")
}

func accountAttribute(a *profile.Account, key string) string {
	if a == nil {
		return ""
	}
	switch key {
	case "domain":
		return a.Domain
	case "name":
		return a.Name
	default:
		return a.TraitString(key)
	}
}

func profileAttribute(p *profile.Profile, key string) string {
	if p == nil {
		return ""
	}
	switch key {
	case "domain":
		return p.Domain
	case "email":
		return p.Email
	case "name":
		return p.Name
	default:
		return p.TraitString(key)
	}
}
