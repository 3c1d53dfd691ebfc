package profile

import (
	"context"
	"sync"

	id "traitsync/pkg/domain"
	dErrors "traitsync/pkg/domain-errors"
)

// InMemoryStore backs tests and local development. Claim resolution follows
// the platform's order: id, external id, email, anonymous id.
type InMemoryStore struct {
	mu       sync.RWMutex
	profiles map[id.TenantID][]*Profile
	accounts map[id.TenantID][]*Account
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		profiles: make(map[id.TenantID][]*Profile),
		accounts: make(map[id.TenantID][]*Account),
	}
}

// SeedProfile inserts a profile directly; test setup helper.
func (s *InMemoryStore) SeedProfile(tenant id.TenantID, p *Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID.IsNil() {
		p.ID = id.NewProfileID()
	}
	s.profiles[tenant] = append(s.profiles[tenant], p)
}

// SeedAccount inserts an account directly; test setup helper.
func (s *InMemoryStore) SeedAccount(tenant id.TenantID, a *Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID.IsNil() {
		a.ID = id.NewAccountID()
	}
	s.accounts[tenant] = append(s.accounts[tenant], a)
}

func (s *InMemoryStore) GetProfile(_ context.Context, tenant id.TenantID, ref Ref) (*Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p := s.findProfile(tenant, ref); p != nil {
		return cloneProfile(p), nil
	}
	return nil, dErrors.New(dErrors.CodeNotFound, "profile not found")
}

func (s *InMemoryStore) GetAccount(_ context.Context, tenant id.TenantID, ref AccountRef) (*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if a := s.findAccount(tenant, ref); a != nil {
		return cloneAccount(a), nil
	}
	return nil, dErrors.New(dErrors.CodeNotFound, "account not found")
}

func (s *InMemoryStore) WriteProfileTraits(_ context.Context, tenant id.TenantID, ref Ref, traits TraitSet) (*Profile, error) {
	if ref.Empty() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "missing identifier for profile")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.findProfile(tenant, ref)
	if p == nil {
		p = &Profile{
			ID:          ref.ID,
			ExternalID:  ref.ExternalID,
			Email:       ref.Email,
			AnonymousID: ref.AnonymousID,
			Traits:      make(map[string]any),
		}
		if p.ID.IsNil() {
			p.ID = id.NewProfileID()
		}
		s.profiles[tenant] = append(s.profiles[tenant], p)
	}
	for key, tr := range traits {
		p.ApplyTrait(key, tr)
	}
	return cloneProfile(p), nil
}

func (s *InMemoryStore) WriteAccountTraits(_ context.Context, tenant id.TenantID, ref AccountRef, traits TraitSet) (*Account, error) {
	if ref.Empty() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "missing identifier for account")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.findAccount(tenant, ref)
	if a == nil {
		a = &Account{
			ID:         ref.ID,
			ExternalID: ref.ExternalID,
			Domain:     ref.Domain,
			Traits:     make(map[string]any),
		}
		if a.ID.IsNil() {
			a.ID = id.NewAccountID()
		}
		s.accounts[tenant] = append(s.accounts[tenant], a)
	}
	for key, tr := range traits {
		a.ApplyTrait(key, tr)
	}
	return cloneAccount(a), nil
}

func (s *InMemoryStore) AggregateByDomain(_ context.Context, tenant id.TenantID, domain string) (*DomainAggregate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	agg := &DomainAggregate{BySource: make(map[string]int)}
	for _, p := range s.profiles[tenant] {
		if !profileMatchesDomain(p, domain) {
			continue
		}
		agg.Total++
		if p.Email == "" {
			agg.Anonymous++
		}
		if src := p.TraitString(KeySource); src != "" {
			agg.BySource[src]++
		}
	}
	return agg, nil
}

func (s *InMemoryStore) CountDiscoveredFrom(_ context.Context, tenant id.TenantID, domain string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, p := range s.profiles[tenant] {
		if p.TraitString(KeyDiscoveredFromDomain) == domain {
			count++
		}
	}
	return count, nil
}

func profileMatchesDomain(p *Profile, domain string) bool {
	return p.Domain == domain ||
		p.TraitString(KeyCompanyDomain) == domain ||
		p.TraitString(KeyDomain) == domain
}

func (s *InMemoryStore) findProfile(tenant id.TenantID, ref Ref) *Profile {
	for _, p := range s.profiles[tenant] {
		if !ref.ID.IsNil() && p.ID == ref.ID {
			return p
		}
		if ref.ExternalID != "" && p.ExternalID == ref.ExternalID {
			return p
		}
		if ref.Email != "" && p.Email == ref.Email {
			return p
		}
		if ref.AnonymousID != "" && p.AnonymousID == ref.AnonymousID {
			return p
		}
	}
	return nil
}

func (s *InMemoryStore) findAccount(tenant id.TenantID, ref AccountRef) *Account {
	for _, a := range s.accounts[tenant] {
		if !ref.ID.IsNil() && a.ID == ref.ID {
			return a
		}
		if ref.ExternalID != "" && a.ExternalID == ref.ExternalID {
			return a
		}
		if ref.Domain != "" && a.Domain == ref.Domain {
			return a
		}
	}
	return nil
}

func cloneProfile(p *Profile) *Profile {
	cp := *p
	cp.Traits = make(map[string]any, len(p.Traits))
	for k, v := range p.Traits {
		cp.Traits[k] = v
	}
	return &cp
}

func cloneAccount(a *Account) *Account {
	ca := *a
	ca.Traits = make(map[string]any, len(a.Traits))
	for k, v := range a.Traits {
		ca.Traits[k] = v
	}
	return &ca
}
