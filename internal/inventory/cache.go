package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const valuationCacheKey = "inventory:valuation"

// ValuationCache keeps the aggregated stock valuation in Redis so dashboard
// reads do not hit the records table on every request. A nil cache or client
// degrades to pass-through.
type ValuationCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewValuationCache instantiates the cache helper.
func NewValuationCache(client *redis.Client, ttl time.Duration) *ValuationCache {
	return &ValuationCache{client: client, ttl: ttl}
}

// Fetch loads the cached valuation or populates it using the loader.
func (c *ValuationCache) Fetch(ctx context.Context, loader func(context.Context) (Valuation, error)) (Valuation, error) {
	if loader == nil {
		return Valuation{}, errors.New("inventory: valuation loader required")
	}
	if c == nil || c.client == nil {
		return loader(ctx)
	}
	payload, err := c.client.Get(ctx, valuationCacheKey).Bytes()
	if err == nil {
		var v Valuation
		if err := json.Unmarshal(payload, &v); err == nil {
			return v, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		return Valuation{}, err
	}
	v, err := loader(ctx)
	if err != nil {
		return Valuation{}, err
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return Valuation{}, err
	}
	if err := c.client.Set(ctx, valuationCacheKey, raw, c.ttl).Err(); err != nil {
		return Valuation{}, err
	}
	return v, nil
}

// Invalidate drops the cached valuation after a ledger mutation.
func (c *ValuationCache) Invalidate(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Del(ctx, valuationCacheKey).Err()
}
