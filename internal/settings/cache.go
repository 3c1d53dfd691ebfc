package settings

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	platformredis "traitsync/internal/platform/redis"
	id "traitsync/pkg/domain"
)

// CachedSource fronts a Source with a short-lived Redis cache. Settings are
// read on every event, so even a small TTL takes the platform's settings API
// off the hot path. Cache failures degrade to the underlying source.
type CachedSource struct {
	source Source
	redis  *platformredis.Client
	ttl    time.Duration
	logger *slog.Logger
}

const defaultTTL = time.Minute

// NewCachedSource wraps source. A nil redis client disables caching, which
// keeps the call sites unconditional.
func NewCachedSource(source Source, redis *platformredis.Client, logger *slog.Logger) *CachedSource {
	return &CachedSource{source: source, redis: redis, ttl: defaultTTL, logger: logger}
}

func (c *CachedSource) Get(ctx context.Context, tenant id.TenantID) (*Settings, error) {
	if c.redis == nil {
		return c.source.Get(ctx, tenant)
	}

	key := cacheKey(tenant)
	raw, err := c.redis.Get(ctx, key).Bytes()
	if err == nil {
		var cfg Settings
		if err := json.Unmarshal(raw, &cfg); err == nil {
			return &cfg, nil
		}
		// Unreadable entry; fall through and refresh.
	} else if err != goredis.Nil {
		c.logger.WarnContext(ctx, "settings cache read failed", "tenant", tenant, "error", err)
	}

	cfg, err := c.source.Get(ctx, tenant)
	if err != nil {
		return nil, err
	}

	if encoded, err := json.Marshal(cfg); err == nil {
		if err := c.redis.Set(ctx, key, encoded, c.ttl).Err(); err != nil {
			c.logger.WarnContext(ctx, "settings cache write failed", "tenant", tenant, "error", err)
		}
	}
	return cfg, nil
}

// Invalidate drops the cached entry; called when the platform notifies us of
// a settings change.
func (c *CachedSource) Invalidate(ctx context.Context, tenant id.TenantID) error {
	if c.redis == nil {
		return nil
	}
	return c.redis.Del(ctx, cacheKey(tenant)).Err()
}

func cacheKey(tenant id.TenantID) string {
	return "traitsync:settings:" + tenant.String()
}
