// Package provider defines the enrichment provider port: the payload shapes
// the Augur API returns, the query/request types the engine sends, and the
// classified outcomes of a call. The HTTP client here is deliberately thin;
// request construction details beyond what the engine needs are not modeled.
package provider

// Name is a person's name as the provider returns it.
type Name struct {
	GivenName  string `json:"givenName"`
	FamilyName string `json:"familyName"`
	FullName   string `json:"fullName"`
}

// Employment describes where a person works.
type Employment struct {
	Domain    string `json:"domain"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	Seniority string `json:"seniority"`
	Title     string `json:"title"`
}

// PersonGeo is a person's location.
type PersonGeo struct {
	City        string   `json:"city"`
	State       string   `json:"state"`
	StateCode   string   `json:"stateCode"`
	CountryCode string   `json:"countryCode"`
	Lat         *float64 `json:"lat"`
	Lng         *float64 `json:"lng"`
}

// SocialProfile is a handle on a social or developer network.
type SocialProfile struct {
	Handle    string `json:"handle"`
	Avatar    string `json:"avatar"`
	Bio       string `json:"bio"`
	Blog      string `json:"blog"`
	Site      string `json:"site"`
	Company   string `json:"company"`
	Location  string `json:"location"`
	ID        string `json:"id"`
	Followers *int   `json:"followers"`
	Following *int   `json:"following"`
}

// Person is the provider's person record.
type Person struct {
	ID            string     `json:"id"`
	Name          Name       `json:"name"`
	Email         string     `json:"email"`
	EmailProvider *bool      `json:"emailProvider"`
	Avatar        string     `json:"avatar"`
	Bio           string     `json:"bio"`
	Site          string     `json:"site"`
	Location      string     `json:"location"`
	TimeZone      string     `json:"timeZone"`
	UTCOffset     *int       `json:"utcOffset"`
	Gender        string     `json:"gender"`
	IndexedAt     string     `json:"indexedAt"`
	Fuzzy         *bool      `json:"fuzzy"`
	Employment    Employment `json:"employment"`
	Geo           PersonGeo  `json:"geo"`

	GitHub   SocialProfile `json:"github"`
	Twitter  SocialProfile `json:"twitter"`
	LinkedIn SocialProfile `json:"linkedin"`
	Facebook SocialProfile `json:"facebook"`
	AboutMe  SocialProfile `json:"aboutme"`
	Gravatar SocialProfile `json:"gravatar"`

	// Company rides along on combined enrichment responses.
	Company *Company `json:"company,omitempty"`
}

// Category classifies a company's industry.
type Category struct {
	Sector        string `json:"sector"`
	IndustryGroup string `json:"industryGroup"`
	Industry      string `json:"industry"`
	SubIndustry   string `json:"subIndustry"`
	SicCode       string `json:"sicCode"`
	NaicsCode     string `json:"naicsCode"`
}

// CompanyGeo is a company's headquarters location.
type CompanyGeo struct {
	StreetNumber string   `json:"streetNumber"`
	StreetName   string   `json:"streetName"`
	SubPremise   string   `json:"subPremise"`
	City         string   `json:"city"`
	PostalCode   string   `json:"postalCode"`
	State        string   `json:"state"`
	StateCode    string   `json:"stateCode"`
	Country      string   `json:"country"`
	CountryCode  string   `json:"countryCode"`
	Lat          *float64 `json:"lat"`
	Lng          *float64 `json:"lng"`
}

// Metrics are a company's size and funding figures.
type Metrics struct {
	AlexaGlobalRank        *int   `json:"alexaGlobalRank"`
	AlexaUsRank            *int   `json:"alexaUsRank"`
	Employees              *int   `json:"employees"`
	EmployeesRange         string `json:"employeesRange"`
	AnnualRevenue          *int64 `json:"annualRevenue"`
	EstimatedAnnualRevenue string `json:"estimatedAnnualRevenue"`
	FiscalYearEnd          string `json:"fiscalYearEnd"`
	MarketCap              *int64 `json:"marketCap"`
	Raised                 *int64 `json:"raised"`
}

// CompanySite holds data scraped from the company website.
type CompanySite struct {
	Title          string   `json:"title"`
	URL            string   `json:"url"`
	EmailAddresses []string `json:"emailAddresses"`
	PhoneNumbers   []string `json:"phoneNumbers"`
}

// Company is the provider's company record.
type Company struct {
	ID            string      `json:"id"`
	Name          string      `json:"name"`
	LegalName     string      `json:"legalName"`
	Domain        string      `json:"domain"`
	DomainAliases []string    `json:"domainAliases"`
	Description   string      `json:"description"`
	Location      string      `json:"location"`
	TimeZone      string      `json:"timeZone"`
	UTCOffset     *int        `json:"utcOffset"`
	Logo          string      `json:"logo"`
	Phone         string      `json:"phone"`
	FoundedYear   *int        `json:"foundedYear"`
	Type          string      `json:"type"`
	EmailProvider *bool       `json:"emailProvider"`
	Category      Category    `json:"category"`
	Geo           CompanyGeo  `json:"geo"`
	Metrics       Metrics     `json:"metrics"`
	Site          CompanySite `json:"site"`
	Tags          []string    `json:"tags"`
	Tech          []string    `json:"tech"`

	LinkedIn   SocialProfile `json:"linkedin"`
	Twitter    SocialProfile `json:"twitter"`
	Facebook   SocialProfile `json:"facebook"`
	Crunchbase SocialProfile `json:"crunchbase"`
	AngelList  SocialProfile `json:"angellist"`
}

// Contact is one prospected person at a company.
type Contact struct {
	ID        string `json:"id"`
	Name      Name   `json:"name"`
	Email     string `json:"email"`
	Title     string `json:"title"`
	Role      string `json:"role"`
	Seniority string `json:"seniority"`
	Phone     string `json:"phone"`
	Verified  *bool  `json:"verified"`
}

// PersonCompany is the combined enrichment response.
type PersonCompany struct {
	Person  *Person  `json:"person"`
	Company *Company `json:"company"`
}
