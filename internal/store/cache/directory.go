// internal/store/cache/directory.go
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"blood-alert-workers/internal/common/logger"
	"blood-alert-workers/internal/common/metrics"
	"blood-alert-workers/internal/models"
)

const keyPrefix = "donors:eligible:"

// DefaultTTL applies when no positive TTL is configured. Entries hold contact numbers and must always expire.
const DefaultTTL = 30 * time.Second

// Source is the directory being cached.
type Source interface {
	QueryEligibleDonors(ctx context.Context, bloodGroup string) ([]models.Donor, error)
}

// CachedDirectory is a read-through Redis cache keyed by blood group. Redis problems degrade to the
// source; source failures are never cached. A donor who opts out or becomes unavailable can still be
// alerted until the entry expires, so the TTL bounds staleness.
type CachedDirectory struct {
	source Source
	client redis.Cmdable
	ttl    time.Duration
	logger logger.Logger
}

func NewCachedDirectory(source Source, client redis.Cmdable, ttl time.Duration, log logger.Logger) *CachedDirectory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &CachedDirectory{
		source: source,
		client: client,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"component": "directory-cache"}),
	}
}

func Key(bloodGroup string) string {
	return keyPrefix + bloodGroup
}

func (c *CachedDirectory) QueryEligibleDonors(ctx context.Context, bloodGroup string) ([]models.Donor, error) {
	key := Key(bloodGroup)

	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var donors []models.Donor
		if jsonErr := json.Unmarshal(raw, &donors); jsonErr == nil {
			metrics.DirectoryCacheLookups.WithLabelValues("hit").Inc()
			return donors, nil
		}
		c.logger.Warn("discarding corrupt cache entry", map[string]interface{}{"key": key})
		metrics.DirectoryCacheLookups.WithLabelValues("error").Inc()
	case errors.Is(err, redis.Nil):
		metrics.DirectoryCacheLookups.WithLabelValues("miss").Inc()
	default:
		c.logger.Warn("cache read failed, using source", map[string]interface{}{"key": key, "error": err})
		metrics.DirectoryCacheLookups.WithLabelValues("error").Inc()
	}

	donors, err := c.source.QueryEligibleDonors(ctx, bloodGroup)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(donors)
	if err != nil {
		return donors, nil
	}
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		c.logger.Warn("cache write failed", map[string]interface{}{"key": key, "error": err})
	}
	return donors, nil
}
