package doctors

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// CachedLister wraps the repository with a short-lived Redis cache for the
// per-clinic doctor list used by the agenda and manual appointment screens.
type CachedLister struct {
	repo  *Repository
	redis *redis.Client
	ttl   time.Duration
}

// NewCachedLister creates a doctor list cache. ttl <= 0 defaults to one minute.
func NewCachedLister(repo *Repository, redisClient *redis.Client, ttl time.Duration) *CachedLister {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &CachedLister{repo: repo, redis: redisClient, ttl: ttl}
}

func (c *CachedLister) key(clinicID string) string {
	return fmt.Sprintf("doctors:list:%s", clinicID)
}

// ListByClinic returns the cached doctor list, falling through to the
// database on a miss. Cache failures degrade to direct reads.
func (c *CachedLister) ListByClinic(ctx context.Context, clinicID string) ([]Doctor, error) {
	if c.redis != nil {
		data, err := c.redis.Get(ctx, c.key(clinicID)).Bytes()
		if err == nil {
			var cached []Doctor
			if err := json.Unmarshal(data, &cached); err == nil {
				return cached, nil
			}
		}
	}

	list, err := c.repo.ListByClinic(ctx, clinicID)
	if err != nil {
		return nil, err
	}

	if c.redis != nil {
		if data, err := json.Marshal(list); err == nil {
			_ = c.redis.Set(ctx, c.key(clinicID), data, c.ttl).Err()
		}
	}
	return list, nil
}

// Invalidate drops the cached list for a clinic.
func (c *CachedLister) Invalidate(ctx context.Context, clinicID string) {
	if c.redis == nil {
		return
	}
	_ = c.redis.Del(ctx, c.key(clinicID)).Err()
}
