package velocity

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisWindow keeps one sorted set per business, scored by submission time
// in milliseconds, so counting a trailing window is a single ZCOUNT. Keys
// expire a little past the retention so idle businesses cost nothing.
type RedisWindow struct {
	client    redis.Cmdable
	retention time.Duration
}

// NewRedisWindow builds a Redis-backed window.
func NewRedisWindow(client redis.Cmdable, retention time.Duration) *RedisWindow {
	return &RedisWindow{client: client, retention: retention}
}

func (w *RedisWindow) Record(ctx context.Context, businessID, requestID string, at time.Time) error {
	key := w.key(businessID)
	pipe := w.client.TxPipeline()
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(at.UnixMilli()),
		Member: requestID,
	})
	// Trim members that fell out of the window instead of letting the set
	// grow for busy businesses.
	cutoff := at.Add(-w.retention).UnixMilli()
	pipe.ZRemRangeByScore(ctx, key, "-inf", strconv.FormatInt(cutoff, 10))
	pipe.Expire(ctx, key, w.retention+24*time.Hour)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record velocity event: %w", err)
	}
	return nil
}

func (w *RedisWindow) Count(ctx context.Context, businessID string, since time.Time) (int, error) {
	n, err := w.client.ZCount(ctx, w.key(businessID),
		strconv.FormatInt(since.UnixMilli(), 10), "+inf").Result()
	if err != nil {
		return 0, fmt.Errorf("count velocity events: %w", err)
	}
	return int(n), nil
}

func (w *RedisWindow) key(businessID string) string {
	return "keystone:velocity:" + businessID
}
