package settings

import (
	"context"
	"sync"

	id "traitsync/pkg/domain"
	dErrors "traitsync/pkg/domain-errors"
)

// Source resolves a tenant's connector settings. The platform owns the
// authoritative copy; implementations fetch and normalize it.
type Source interface {
	Get(ctx context.Context, tenant id.TenantID) (*Settings, error)
}

// StaticSource serves settings from memory. Used in tests and for
// single-tenant deployments configured at boot.
type StaticSource struct {
	mu      sync.RWMutex
	tenants map[id.TenantID]*Settings
}

func NewStaticSource() *StaticSource {
	return &StaticSource{tenants: make(map[id.TenantID]*Settings)}
}

// Put normalizes, validates, and stores a tenant's settings.
func (s *StaticSource) Put(tenant id.TenantID, cfg *Settings) error {
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tenants[tenant] = cfg
	return nil
}

func (s *StaticSource) Get(_ context.Context, tenant id.TenantID) (*Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.tenants[tenant]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "no settings for tenant")
	}
	copied := *cfg
	return &copied, nil
}
