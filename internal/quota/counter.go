package quota

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"nooveria/internal/metrics"
)

const keyPrefix = "daily_usage:"

// reserveScript adds ARGV[1] to the counter only when the result stays within
// the limit in ARGV[2]. The window TTL is set when the key has none.
var reserveScript = redis.NewScript(`
local used = tonumber(redis.call('GET', KEYS[1]) or '0')
local amount = tonumber(ARGV[1])
if used + amount > tonumber(ARGV[2]) then
  return {0, used}
end
local total = redis.call('INCRBY', KEYS[1], amount)
if redis.call('TTL', KEYS[1]) < 0 then
  redis.call('EXPIRE', KEYS[1], ARGV[3])
end
return {1, total}
`)

// releaseScript gives back a reservation without touching the window TTL.
var releaseScript = redis.NewScript(`
local left = tonumber(redis.call('GET', KEYS[1]) or '0') - tonumber(ARGV[1])
if left <= 0 then
  redis.call('DEL', KEYS[1])
  return 0
end
redis.call('SET', KEYS[1], left, 'KEEPTTL')
return left
`)

var ErrInvalidAmount = errors.New("quota amount must be positive")

// Counter tracks communal tokens used per user within a rolling window that
// starts at the first use and lasts Window.
type Counter struct {
	rdb    redis.UniversalClient
	window time.Duration
}

func NewCounter(rdb redis.UniversalClient, window time.Duration) *Counter {
	if window <= 0 {
		window = 24 * time.Hour
	}
	return &Counter{rdb: rdb, window: window}
}

func key(userID string) string {
	return keyPrefix + userID
}

// Get returns the usage in the current window, 0 when no window is open.
func (c *Counter) Get(ctx context.Context, userID string) (int64, error) {
	used, err := c.rdb.Get(ctx, key(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		metrics.RecordQuotaEvent("get", "error")
		return 0, err
	}
	return used, nil
}

// Increment adds amount and opens the window if this is its first use.
func (c *Counter) Increment(ctx context.Context, userID string, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	k := key(userID)
	total, err := c.rdb.IncrBy(ctx, k, amount).Result()
	if err != nil {
		metrics.RecordQuotaEvent("increment", "error")
		return 0, err
	}
	if err := c.rdb.ExpireNX(ctx, k, c.window).Err(); err != nil {
		metrics.RecordQuotaEvent("increment", "error")
		return total, fmt.Errorf("set quota window: %w", err)
	}

	metrics.RecordQuotaEvent("increment", "ok")
	return total, nil
}

// Reserve atomically checks the limit and takes amount from it. It reports
// false, with the current usage, when the reservation would exceed limit.
func (c *Counter) Reserve(ctx context.Context, userID string, amount, limit int64) (bool, int64, error) {
	if amount <= 0 {
		return false, 0, ErrInvalidAmount
	}

	res, err := reserveScript.Run(ctx, c.rdb, []string{key(userID)},
		amount, limit, int64(c.window/time.Second)).Int64Slice()
	if err != nil {
		metrics.RecordQuotaEvent("reserve", "error")
		return false, 0, err
	}
	if len(res) != 2 {
		metrics.RecordQuotaEvent("reserve", "error")
		return false, 0, fmt.Errorf("unexpected reserve reply: %v", res)
	}

	if res[0] != 1 {
		metrics.RecordQuotaEvent("reserve", "denied")
		return false, res[1], nil
	}
	metrics.RecordQuotaEvent("reserve", "granted")
	return true, res[1], nil
}

// Release returns a reservation that was not spent.
func (c *Counter) Release(ctx context.Context, userID string, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	err := releaseScript.Run(ctx, c.rdb, []string{key(userID)}, amount).Err()
	if err != nil {
		metrics.RecordQuotaEvent("release", "error")
		return err
	}
	metrics.RecordQuotaEvent("release", "ok")
	return nil
}
