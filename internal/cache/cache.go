package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"nooveria/internal/logger"
	"nooveria/internal/metrics"
)

const keyPrefix = "wallet:"

// WalletCache holds per-user wallet summaries. Every method is best-effort:
// backend faults are logged and reported as a miss, never returned.
type WalletCache struct {
	rdb redis.UniversalClient
	ttl time.Duration
}

func New(rdb redis.UniversalClient, ttl time.Duration) *WalletCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &WalletCache{rdb: rdb, ttl: ttl}
}

func key(userID string) string {
	return keyPrefix + userID
}

// Get decodes the cached summary into dst and reports whether there was one.
func (c *WalletCache) Get(ctx context.Context, userID string, dst interface{}) bool {
	data, err := c.rdb.Get(ctx, key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.RecordCacheEvent("get", "miss")
		return false
	}
	if err != nil {
		metrics.RecordCacheEvent("get", "error")
		logger.Warn("wallet cache get failed", "user_id", userID, "error", err)
		return false
	}

	if err := json.Unmarshal(data, dst); err != nil {
		metrics.RecordCacheEvent("get", "error")
		logger.Warn("wallet cache entry unreadable", "user_id", userID, "error", err)
		return false
	}

	metrics.RecordCacheEvent("get", "hit")
	return true
}

func (c *WalletCache) Set(ctx context.Context, userID string, summary interface{}) {
	data, err := json.Marshal(summary)
	if err != nil {
		metrics.RecordCacheEvent("set", "error")
		logger.Warn("wallet cache encode failed", "user_id", userID, "error", err)
		return
	}

	if err := c.rdb.Set(ctx, key(userID), data, c.ttl).Err(); err != nil {
		metrics.RecordCacheEvent("set", "error")
		logger.Warn("wallet cache set failed", "user_id", userID, "error", err)
		return
	}
	metrics.RecordCacheEvent("set", "ok")
}

func (c *WalletCache) Invalidate(ctx context.Context, userID string) {
	if err := c.rdb.Del(ctx, key(userID)).Err(); err != nil {
		metrics.RecordCacheEvent("invalidate", "error")
		logger.Warn("wallet cache invalidate failed", "user_id", userID, "error", err)
		return
	}
	metrics.RecordCacheEvent("invalidate", "ok")
}
