package reconcile

import (
	"traitsync/internal/profile"
	"traitsync/internal/provider"
)

// The builders below are the provider-to-trait mapping tables. Namespaced
// keys overwrite; the handful of mirrored top-level fields (picture, names,
// addresses, domain) preserve existing values so provider data never stomps
// what the platform already knows. Empty and nil payload values are dropped
// by TraitSet.Set.

func personTraits(p *provider.Person) profile.TraitSet {
	ts := profile.TraitSet{}
	if p == nil {
		return ts
	}

	ns := func(key string) string { return profile.Namespace + "/" + key }

	ts.Set(ns("id"), p.ID)
	ts.Set(ns("email"), p.Email)
	ts.Set(ns("bio"), p.Bio)
	ts.Set(ns("site"), p.Site)
	ts.Set(ns("location"), p.Location)
	ts.Set(ns("time_zone"), p.TimeZone)
	ts.Set(ns("gender"), p.Gender)
	ts.Set(ns("indexed_at"), p.IndexedAt)
	if p.UTCOffset != nil {
		ts.Set(ns("utc_offset"), *p.UTCOffset)
	}
	if p.EmailProvider != nil {
		ts.Set(ns("email_provider"), *p.EmailProvider)
	}
	if p.Fuzzy != nil {
		ts.Set(ns("fuzzy"), *p.Fuzzy)
	}

	ts.Set(ns("avatar"), p.Avatar)
	ts.SetIfEmpty("picture", p.Avatar)

	ts.Set(ns("full_name"), p.Name.FullName)
	ts.Set(ns("first_name"), p.Name.GivenName)
	ts.SetIfEmpty("first_name", p.Name.GivenName)
	ts.Set(ns("last_name"), p.Name.FamilyName)
	ts.SetIfEmpty("last_name", p.Name.FamilyName)

	ts.Set(ns("employment_domain"), p.Employment.Domain)
	ts.Set(ns("employment_name"), p.Employment.Name)
	ts.Set(ns("employment_role"), p.Employment.Role)
	ts.Set(ns("employment_seniority"), p.Employment.Seniority)
	ts.Set(ns("employment_title"), p.Employment.Title)

	ts.Set(ns("geo_city"), p.Geo.City)
	ts.SetIfEmpty("address_city", p.Geo.City)
	ts.Set(ns("geo_state"), p.Geo.State)
	ts.SetIfEmpty("address_state", p.Geo.State)
	ts.Set(ns("state_code"), p.Geo.StateCode)
	ts.Set(ns("country_code"), p.Geo.CountryCode)
	if p.Geo.Lat != nil {
		ts.Set(ns("lat"), *p.Geo.Lat)
	}
	if p.Geo.Lng != nil {
		ts.Set(ns("lng"), *p.Geo.Lng)
	}

	social := func(prefix string, sp provider.SocialProfile) {
		ts.Set(ns(prefix+"_handle"), sp.Handle)
		ts.Set(ns(prefix+"_avatar"), sp.Avatar)
		ts.Set(ns(prefix+"_bio"), sp.Bio)
		ts.Set(ns(prefix+"_blog"), sp.Blog)
		ts.Set(ns(prefix+"_site"), sp.Site)
		ts.Set(ns(prefix+"_company"), sp.Company)
		ts.Set(ns(prefix+"_location"), sp.Location)
		ts.Set(ns(prefix+"_id"), sp.ID)
		if sp.Followers != nil {
			ts.Set(ns(prefix+"_followers"), *sp.Followers)
		}
		if sp.Following != nil {
			ts.Set(ns(prefix+"_following"), *sp.Following)
		}
	}
	social("github", p.GitHub)
	social("twitter", p.Twitter)
	social("linkedin", p.LinkedIn)
	social("facebook", p.Facebook)
	social("aboutme", p.AboutMe)
	social("gravatar", p.Gravatar)

	return ts
}

// companyTraits maps a company record into the given namespace. Writes
// attached to a person use the company namespace; writes going to an account
// use the plain one.
func companyTraits(c *provider.Company, namespace string) profile.TraitSet {
	ts := profile.TraitSet{}
	if c == nil {
		return ts
	}

	ns := func(key string) string { return namespace + "/" + key }

	ts.Set(ns("id"), c.ID)
	ts.Set(ns("name"), c.Name)
	ts.Set(ns("legal_name"), c.LegalName)
	ts.Set(ns("domain"), c.Domain)
	ts.Set(ns("description"), c.Description)
	ts.Set(ns("location"), c.Location)
	ts.Set(ns("time_zone"), c.TimeZone)
	ts.Set(ns("logo"), c.Logo)
	ts.Set(ns("phone"), c.Phone)
	ts.Set(ns("type"), c.Type)
	if c.UTCOffset != nil {
		ts.Set(ns("utc_offset"), *c.UTCOffset)
	}
	if c.FoundedYear != nil {
		ts.Set(ns("founded_year"), *c.FoundedYear)
	}
	if c.EmailProvider != nil {
		ts.Set(ns("email_provider"), *c.EmailProvider)
	}
	if len(c.DomainAliases) > 0 {
		ts.Set(ns("domain_aliases"), c.DomainAliases)
	}
	if len(c.Tags) > 0 {
		ts.Set(ns("tags"), c.Tags)
	}
	if len(c.Tech) > 0 {
		ts.Set(ns("tech"), c.Tech)
	}

	ts.Set(ns("category_sector"), c.Category.Sector)
	ts.Set(ns("category_industry_group"), c.Category.IndustryGroup)
	ts.Set(ns("category_industry"), c.Category.Industry)
	ts.Set(ns("category_sub_industry"), c.Category.SubIndustry)
	ts.Set(ns("category_sic_code"), c.Category.SicCode)
	ts.Set(ns("category_naics_code"), c.Category.NaicsCode)

	ts.Set(ns("geo_street_number"), c.Geo.StreetNumber)
	ts.Set(ns("geo_street_name"), c.Geo.StreetName)
	ts.Set(ns("geo_sub_premise"), c.Geo.SubPremise)
	ts.Set(ns("geo_city"), c.Geo.City)
	ts.Set(ns("geo_postal_code"), c.Geo.PostalCode)
	ts.Set(ns("geo_state"), c.Geo.State)
	ts.Set(ns("geo_state_code"), c.Geo.StateCode)
	ts.Set(ns("geo_country"), c.Geo.Country)
	ts.Set(ns("geo_country_code"), c.Geo.CountryCode)
	if c.Geo.Lat != nil {
		ts.Set(ns("geo_lat"), *c.Geo.Lat)
	}
	if c.Geo.Lng != nil {
		ts.Set(ns("geo_lng"), *c.Geo.Lng)
	}

	if c.Metrics.AlexaGlobalRank != nil {
		ts.Set(ns("metrics_alexa_global_rank"), *c.Metrics.AlexaGlobalRank)
	}
	if c.Metrics.AlexaUsRank != nil {
		ts.Set(ns("metrics_alexa_us_rank"), *c.Metrics.AlexaUsRank)
	}
	if c.Metrics.Employees != nil {
		ts.Set(ns("metrics_employees"), *c.Metrics.Employees)
	}
	ts.Set(ns("metrics_employees_range"), c.Metrics.EmployeesRange)
	if c.Metrics.AnnualRevenue != nil {
		ts.Set(ns("metrics_annual_revenue"), *c.Metrics.AnnualRevenue)
	}
	ts.Set(ns("metrics_estimated_annual_revenue"), c.Metrics.EstimatedAnnualRevenue)
	ts.Set(ns("metrics_fiscal_year_end"), c.Metrics.FiscalYearEnd)
	if c.Metrics.MarketCap != nil {
		ts.Set(ns("metrics_market_cap"), *c.Metrics.MarketCap)
	}
	if c.Metrics.Raised != nil {
		ts.Set(ns("metrics_raised"), *c.Metrics.Raised)
	}

	ts.Set(ns("site_title"), c.Site.Title)
	ts.Set(ns("site_url"), c.Site.URL)
	if len(c.Site.EmailAddresses) > 0 {
		ts.Set(ns("site_email_addresses"), c.Site.EmailAddresses)
	}
	if len(c.Site.PhoneNumbers) > 0 {
		ts.Set(ns("site_phone_numbers"), c.Site.PhoneNumbers)
	}

	social := func(prefix string, sp provider.SocialProfile) {
		ts.Set(ns(prefix+"_handle"), sp.Handle)
		ts.Set(ns(prefix+"_avatar"), sp.Avatar)
		ts.Set(ns(prefix+"_bio"), sp.Bio)
		ts.Set(ns(prefix+"_blog"), sp.Blog)
		ts.Set(ns(prefix+"_site"), sp.Site)
		ts.Set(ns(prefix+"_id"), sp.ID)
		ts.Set(ns(prefix+"_location"), sp.Location)
		if sp.Followers != nil {
			ts.Set(ns(prefix+"_followers"), *sp.Followers)
		}
		if sp.Following != nil {
			ts.Set(ns(prefix+"_following"), *sp.Following)
		}
	}
	social("linkedin", c.LinkedIn)
	social("twitter", c.Twitter)
	social("facebook", c.Facebook)
	social("crunchbase", c.Crunchbase)
	social("angellist", c.AngelList)

	return ts
}

func contactTraits(ct provider.Contact) profile.TraitSet {
	ts := profile.TraitSet{}
	ns := func(key string) string { return profile.Namespace + "/" + key }

	ts.Set(profile.KeyProspectID, ct.ID)
	ts.Set(ns("email"), ct.Email)
	ts.SetIfEmpty("email", ct.Email)
	ts.Set(ns("full_name"), ct.Name.FullName)
	ts.Set(ns("first_name"), ct.Name.GivenName)
	ts.SetIfEmpty("first_name", ct.Name.GivenName)
	ts.Set(ns("last_name"), ct.Name.FamilyName)
	ts.SetIfEmpty("last_name", ct.Name.FamilyName)
	ts.Set(ns("phone"), ct.Phone)
	ts.Set(ns("employment_title"), ct.Title)
	ts.Set(ns("employment_role"), ct.Role)
	ts.Set(ns("employment_seniority"), ct.Seniority)
	if ct.Verified != nil {
		ts.Set(ns("verified"), *ct.Verified)
	}
	return ts
}
