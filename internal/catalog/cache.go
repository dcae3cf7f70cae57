package catalog

import (
	"context"
	"time"

	"orm-platform/pkg/utils"

	"github.com/redis/go-redis/v9"
)

// CachedRepo is a redis read-through cache in front of another Repository.
//
// Caching is best-effort: any cache failure falls through to the backing
// repository. Template data is slow-moving catalog content, so a short TTL
// is enough to absorb repeated prefill lookups during form editing.

type CachedRepo struct {
	Next Repository
	RDB  *redis.Client
	TTL  time.Duration
}

const (
	cacheKeyPrefix = "catalog:template:"
	cacheKeyList   = "catalog:templates"
)

func (r *CachedRepo) ttl() time.Duration {
	if r.TTL > 0 {
		return r.TTL
	}
	return 5 * time.Minute
}

func (r *CachedRepo) Find(ctx context.Context, id string) (Template, bool, error) {
	if r.RDB != nil && id != "" {
		var t Template
		if ok, err := utils.CacheGetJSON(ctx, r.RDB, cacheKeyPrefix+id, &t); err == nil && ok {
			return t, true, nil
		}
	}

	t, ok, err := r.Next.Find(ctx, id)
	if err != nil || !ok {
		return t, ok, err
	}
	if r.RDB != nil {
		_ = utils.CacheSetJSON(ctx, r.RDB, cacheKeyPrefix+id, t, r.ttl())
	}
	return t, true, nil
}

func (r *CachedRepo) List(ctx context.Context) ([]Template, error) {
	if r.RDB != nil {
		var cached []Template
		if ok, err := utils.CacheGetJSON(ctx, r.RDB, cacheKeyList, &cached); err == nil && ok {
			return cached, nil
		}
	}

	out, err := r.Next.List(ctx)
	if err != nil {
		return nil, err
	}
	if r.RDB != nil {
		_ = utils.CacheSetJSON(ctx, r.RDB, cacheKeyList, out, r.ttl())
	}
	return out, nil
}
