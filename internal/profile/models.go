// Package profile defines the engine's view of the customer-data platform:
// user and account profiles, their trait bags, the change events that arrive
// for them, and the store port used to read state and propose trait writes.
//
// The engine never owns profile lifecycle. It reads current state and hands
// back TraitSets; persistence, transactions, and identity resolution belong
// to the platform.
package profile

import (
	"time"

	id "traitsync/pkg/domain"
)

// Profile is a user record. Identity fields mirror the platform's identity
// claims; everything else lives in the Traits bag keyed the way the platform
// keys it (namespaced "augur/..." entries plus flat top-level fields).
type Profile struct {
	ID          id.ProfileID
	ExternalID  string
	AnonymousID string
	Email       string

	Domain      string
	Name        string
	FirstName   string
	LastName    string
	LastKnownIP string
	LastSeenAt  *time.Time

	Traits map[string]any
}

// Trait returns the raw value for key, or nil when unset.
func (p *Profile) Trait(key string) any {
	if p == nil || p.Traits == nil {
		return nil
	}
	return p.Traits[key]
}

// TraitString returns the string form of a trait, or "" when unset or not a
// string.
func (p *Profile) TraitString(key string) string {
	s, _ := p.Trait(key).(string)
	return s
}

// TraitTime parses a marker trait as a timestamp; zero when unset.
func (p *Profile) TraitTime(key string) time.Time {
	return ParseTimestamp(p.Trait(key))
}

// HasTrait reports whether key holds a non-empty value.
func (p *Profile) HasTrait(key string) bool {
	return !isEmpty(p.Trait(key))
}

// Ref identifies the profile for store lookups and log scoping.
func (p *Profile) Ref() Ref {
	if p == nil {
		return Ref{}
	}
	return Ref{ID: p.ID, ExternalID: p.ExternalID, Email: p.Email, AnonymousID: p.AnonymousID}
}

// Account is a company record related to one or more profiles.
type Account struct {
	ID         id.AccountID
	ExternalID string
	Domain     string
	Name       string

	Traits map[string]any
}

// Trait returns the raw value for key, or nil when unset.
func (a *Account) Trait(key string) any {
	if a == nil || a.Traits == nil {
		return nil
	}
	return a.Traits[key]
}

// TraitString returns the string form of a trait, or "" when unset.
func (a *Account) TraitString(key string) string {
	s, _ := a.Trait(key).(string)
	return s
}

// HasTrait reports whether key holds a non-empty value.
func (a *Account) HasTrait(key string) bool {
	return !isEmpty(a.Trait(key))
}

// Ref identifies the account for store lookups.
func (a *Account) Ref() AccountRef {
	if a == nil {
		return AccountRef{}
	}
	return AccountRef{ID: a.ID, ExternalID: a.ExternalID, Domain: a.Domain}
}

// Segment is a platform audience a profile belongs to.
type Segment struct {
	ID   string
	Name string
}

// Event is one profile-change notification, optionally paired with the
// related account context.
type Event struct {
	Tenant          id.TenantID
	Profile         *Profile
	Account         *Account
	Segments        []Segment
	AccountSegments []Segment
}

// Ref is the identity claim set used to address a profile in the store.
// Resolution order is ID, then ExternalID, then Email, then AnonymousID;
// writes against an unshared ref create the profile (prospected contacts and
// discovered companies enter the system this way).
type Ref struct {
	ID          id.ProfileID
	ExternalID  string
	Email       string
	AnonymousID string
}

// Empty reports whether the ref carries no identity claim at all. Writing
// traits against an empty ref is always an error.
func (r Ref) Empty() bool {
	return r.ID.IsNil() && r.ExternalID == "" && r.Email == "" && r.AnonymousID == ""
}

// AccountRef addresses an account; domain is the platform's natural account
// key, matching how the provider hands companies back.
type AccountRef struct {
	ID         id.AccountID
	ExternalID string
	Domain     string
}

// Empty reports whether the ref carries no identity claim.
func (r AccountRef) Empty() bool {
	return r.ID.IsNil() && r.ExternalID == "" && r.Domain == ""
}

// ApplyTrait applies one proposed write to the profile, honoring the merge
// policy against current state. It returns true when the write changed the
// profile. Known top-level fields update the struct; everything else lands
// in the trait bag.
func (p *Profile) ApplyTrait(key string, tr Trait) bool {
	get, set := p.topLevel(key)
	if get != nil {
		if tr.Policy == PreserveExisting && get() != "" {
			return false
		}
		s, ok := tr.Value.(string)
		if !ok || s == get() {
			return false
		}
		set(s)
		return true
	}

	if p.Traits == nil {
		p.Traits = make(map[string]any)
	}
	if tr.Policy == PreserveExisting && !isEmpty(p.Traits[key]) {
		return false
	}
	p.Traits[key] = tr.Value
	return true
}

func (p *Profile) topLevel(key string) (func() string, func(string)) {
	switch key {
	case "email":
		return func() string { return p.Email }, func(v string) { p.Email = v }
	case "domain":
		return func() string { return p.Domain }, func(v string) { p.Domain = v }
	case "name":
		return func() string { return p.Name }, func(v string) { p.Name = v }
	case "first_name":
		return func() string { return p.FirstName }, func(v string) { p.FirstName = v }
	case "last_name":
		return func() string { return p.LastName }, func(v string) { p.LastName = v }
	default:
		return nil, nil
	}
}

// ApplyTrait applies one proposed write to the account under the same policy
// rules as Profile.ApplyTrait.
func (a *Account) ApplyTrait(key string, tr Trait) bool {
	switch key {
	case "domain":
		if tr.Policy == PreserveExisting && a.Domain != "" {
			return false
		}
		if s, ok := tr.Value.(string); ok && s != a.Domain {
			a.Domain = s
			return true
		}
		return false
	case "name":
		if tr.Policy == PreserveExisting && a.Name != "" {
			return false
		}
		if s, ok := tr.Value.(string); ok && s != a.Name {
			a.Name = s
			return true
		}
		return false
	}

	if a.Traits == nil {
		a.Traits = make(map[string]any)
	}
	if tr.Policy == PreserveExisting && !isEmpty(a.Traits[key]) {
		return false
	}
	a.Traits[key] = tr.Value
	return true
}
