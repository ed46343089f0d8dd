package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/hashim1213/soluly-business-suite-sub004/session"
)

const snapshotKeyPrefix = "session:snapshot:"

// SnapshotCache keeps resolved snapshots in Redis so repeated requests
// with the same token skip the store round trips. Only authenticated
// snapshots are cached; error and unauthenticated outcomes are cheap
// to recompute and must not stick.
type SnapshotCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewSnapshotCache creates a cache backed by the given Redis client.
// A zero or negative ttl falls back to five minutes.
func NewSnapshotCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *SnapshotCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SnapshotCache{client: client, ttl: ttl, logger: logger}
}

// Get returns the cached snapshot for the token, if any. Cache
// failures are treated as misses; the caller re-resolves.
func (c *SnapshotCache) Get(ctx context.Context, token string) (*session.Snapshot, bool) {
	data, err := c.client.Get(ctx, snapshotKey(token)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("snapshot cache read failed", zap.Error(err))
		}
		return nil, false
	}

	var snap session.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		c.logger.Warn("snapshot cache entry corrupt, dropping", zap.Error(err))
		c.client.Del(ctx, snapshotKey(token))
		return nil, false
	}
	if !snap.Authenticated() {
		return nil, false
	}
	return &snap, true
}

// Put stores the snapshot under the token's key. Non-authenticated
// snapshots are ignored.
func (c *SnapshotCache) Put(ctx context.Context, token string, snap *session.Snapshot) {
	if snap == nil || !snap.Authenticated() {
		return
	}
	data, err := json.Marshal(snap)
	if err != nil {
		c.logger.Warn("snapshot cache encode failed", zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, snapshotKey(token), data, c.ttl).Err(); err != nil {
		c.logger.Warn("snapshot cache write failed", zap.Error(err))
	}
}

// Delete removes the cached snapshot for the token.
func (c *SnapshotCache) Delete(ctx context.Context, token string) {
	if err := c.client.Del(ctx, snapshotKey(token)).Err(); err != nil {
		c.logger.Warn("snapshot cache delete failed", zap.Error(err))
	}
}

// snapshotKey hashes the token so raw credentials never appear as
// Redis keys.
func snapshotKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return snapshotKeyPrefix + hex.EncodeToString(sum[:])
}
