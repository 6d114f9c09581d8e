package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// RateCache implements ports.RateCache using Redis. Prices are stored as
// decimal strings so no float precision is lost in transit.
type RateCache struct {
	client *goredis.Client
	prefix string
}

// NewRateCache creates a new Redis-backed exchange rate cache.
func NewRateCache(client *goredis.Client) *RateCache {
	return &RateCache{
		client: client,
		prefix: "rate:",
	}
}

// Get retrieves a cached USD price by symbol.
// Returns found=false if the key does not exist or has expired.
func (c *RateCache) Get(ctx context.Context, symbol string) (decimal.Decimal, bool, error) {
	val, err := c.client.Get(ctx, c.prefix+symbol).Result()
	if err != nil {
		if err == goredis.Nil {
			return decimal.Zero, false, nil
		}
		return decimal.Zero, false, fmt.Errorf("redis rate get: %w", err)
	}

	price, err := decimal.NewFromString(val)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("redis rate parse %q: %w", val, err)
	}
	return price, true, nil
}

// Set stores a USD price with TTL.
func (c *RateCache) Set(ctx context.Context, symbol string, price decimal.Decimal, ttl time.Duration) error {
	err := c.client.Set(ctx, c.prefix+symbol, price.String(), ttl).Err()
	if err != nil {
		return fmt.Errorf("redis rate set: %w", err)
	}
	return nil
}
