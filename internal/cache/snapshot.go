// Package cache keeps a bounded, TTL-evicted copy of recent area
// snapshots in Redis so the read surface can answer without touching
// the store.  The cache sits strictly above the store's correctness
// contract: a miss or a stale entry only costs a store read, never a
// wrong allocation, because all mutations go through the versioned
// conditional update.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/eventhall/seat-reservation/internal/model"
)

// SnapshotCache is a read-through cache of AreaStatus snapshots.  A
// nil Redis client disables it entirely; every method degrades to a
// no-op or a miss so callers need no nil checks of their own.
type SnapshotCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
	logger *logrus.Logger
}

// New builds a SnapshotCache.  rdb may be nil (cache disabled); a
// non-positive ttl falls back to 30 seconds.
func New(rdb *redis.Client, ttl time.Duration, logger *logrus.Logger) *SnapshotCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &SnapshotCache{rdb: rdb, ttl: ttl, prefix: "area_status", logger: logger}
}

// Enabled reports whether a Redis backend is attached.
func (c *SnapshotCache) Enabled() bool { return c.rdb != nil }

func (c *SnapshotCache) key(eventID, areaID string) string {
	return c.prefix + ":" + model.AreaKey(eventID, areaID)
}

// Get returns the cached snapshot for the area, or a miss.  Decode
// failures are treated as misses and the entry is dropped.
func (c *SnapshotCache) Get(ctx context.Context, eventID, areaID string) (*model.AreaStatus, bool) {
	if c.rdb == nil {
		return nil, false
	}
	raw, err := c.rdb.Get(ctx, c.key(eventID, areaID)).Bytes()
	if err != nil {
		return nil, false
	}
	var status model.AreaStatus
	if err := json.Unmarshal(raw, &status); err != nil {
		c.logger.WithError(err).Warn("dropping undecodable cached snapshot")
		c.Invalidate(ctx, eventID, areaID)
		return nil, false
	}
	return &status, true
}

// Put stores the snapshot under the area key with the configured TTL.
// It implements the coordinator's snapshot sink, so every accepted
// mutation refreshes the cache.  Failures are logged and swallowed;
// the cache is never allowed to fail a request.
func (c *SnapshotCache) Put(ctx context.Context, status *model.AreaStatus) {
	if c.rdb == nil || status == nil {
		return
	}
	raw, err := json.Marshal(status)
	if err != nil {
		c.logger.WithError(err).Warn("failed to encode snapshot for cache")
		return
	}
	key := c.key(status.EventID, status.AreaID)
	if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("failed to cache snapshot")
	}
}

// Invalidate removes the cached entry for the area.
func (c *SnapshotCache) Invalidate(ctx context.Context, eventID, areaID string) {
	if c.rdb == nil {
		return
	}
	if err := c.rdb.Del(ctx, c.key(eventID, areaID)).Err(); err != nil {
		c.logger.WithError(err).Warn("failed to invalidate cached snapshot")
	}
}
