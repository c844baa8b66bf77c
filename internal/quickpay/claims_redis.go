package quickpay

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisClaims implements DisbursementClaims with SET NX so claims are
// coherent across replicas. Claims expire on their own; an instance that
// dies mid-disbursement does not wedge the request forever, and the
// provider-side idempotency key still prevents a double transfer.
type RedisClaims struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewRedisClaims builds a Redis-backed claim set with the given expiry.
func NewRedisClaims(client redis.Cmdable, ttl time.Duration) *RedisClaims {
	return &RedisClaims{client: client, ttl: ttl}
}

func (c *RedisClaims) Claim(ctx context.Context, key string) (bool, error) {
	taken, err := c.client.SetNX(ctx, c.key(key), "1", c.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim disbursement: %w", err)
	}
	return taken, nil
}

func (c *RedisClaims) Release(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.key(key)).Err(); err != nil {
		return fmt.Errorf("release disbursement claim: %w", err)
	}
	return nil
}

func (c *RedisClaims) key(key string) string {
	return "keystone:disburse:" + key
}
