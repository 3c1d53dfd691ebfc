package profile

import "time"

// Namespace prefixes every trait this connector writes. Person-scoped
// enrichment lands under "augur/", company data attached to a person under
// "augur_company/". Anything without a slash is a top-level platform field
// owned by the end user.
const (
	Namespace        = "augur"
	CompanyNamespace = "augur_company"
)

// Well-known trait keys. The marker timestamps drive eligibility: a profile
// carrying one of these is never re-fetched by the same action.
const (
	KeyID                   = Namespace + "/id"
	KeyProspectID           = Namespace + "/prospect_id"
	KeyFetchedAt            = Namespace + "/fetched_at"
	KeyEnrichedAt           = Namespace + "/enriched_at"
	KeyRevealedAt           = Namespace + "/revealed_at"
	KeyDiscoveredAt         = Namespace + "/discovered_at"
	KeyDiscoveredSimilarAt  = Namespace + "/discovered_similar_companies_at"
	KeyProspectedAt         = Namespace + "/prospected_at"
	KeyProspectedFrom       = Namespace + "/prospected_from"
	KeyDiscoveredFromDomain = Namespace + "/discovered_from_domain"
	KeySource               = Namespace + "/source"
	KeyEmploymentDomain     = Namespace + "/employment_domain"
	KeyDomain               = Namespace + "/domain"
	KeyCompanyDomain        = CompanyNamespace + "/domain"
)

// MergePolicy decides what a trait write does when the destination already
// holds a value.
type MergePolicy int

const (
	// Overwrite replaces whatever is there. Used for provider-namespaced
	// attributes, which always reflect the latest fetch.
	Overwrite MergePolicy = iota
	// PreserveExisting only writes when the destination is empty. Used for
	// top-level fields (never clobber user-supplied data) and for the
	// first-success marker timestamps.
	PreserveExisting
)

func (p MergePolicy) String() string {
	if p == PreserveExisting {
		return "preserve_existing"
	}
	return "overwrite"
}

// Trait is a single proposed attribute write.
type Trait struct {
	Value  any
	Policy MergePolicy
}

// TraitSet is the write-set an action produces for one entity. Keys with a
// slash are namespaced provider attributes; keys without one are top-level
// platform fields.
type TraitSet map[string]Trait

// Set adds an overwrite trait, dropping nil and empty-string values so the
// provider's sparse payloads do not blank out existing data.
func (ts TraitSet) Set(key string, value any) {
	if isEmpty(value) {
		return
	}
	ts[key] = Trait{Value: value, Policy: Overwrite}
}

// SetIfEmpty adds a preserve-existing trait.
func (ts TraitSet) SetIfEmpty(key string, value any) {
	if isEmpty(value) {
		return
	}
	ts[key] = Trait{Value: value, Policy: PreserveExisting}
}

// Merge copies all traits from other into ts. Existing keys are replaced;
// TraitSets are assembled once per action so later writers win.
func (ts TraitSet) Merge(other TraitSet) {
	for k, v := range other {
		ts[k] = v
	}
}

func isEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case time.Time:
		return v.IsZero()
	default:
		return false
	}
}

// Timestamp formats marker times the way the platform stores them.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// ParseTimestamp reads a marker value back into a time. It accepts both the
// string form the connector writes and a raw time.Time (memory store round
// trips values untouched). The zero time signals "not set".
func ParseTimestamp(value any) time.Time {
	switch v := value.(type) {
	case time.Time:
		return v
	case string:
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return time.Time{}
		}
		return parsed
	default:
		return time.Time{}
	}
}
