package pricetier

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Loader fetches one merchant's settings from the persistence layer.
type Loader interface {
	MerchantPricing(ctx context.Context, merchantID int64) (*Settings, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(ctx context.Context, merchantID int64) (*Settings, error)

// MerchantPricing calls the wrapped function.
func (fn LoaderFunc) MerchantPricing(ctx context.Context, merchantID int64) (*Settings, error) {
	return fn(ctx, merchantID)
}

// Cache memoizes settings per merchant for a process lifetime. Reads are
// concurrent; a racing first miss recomputes and overwrites with the same
// value, which is harmless.
type Cache struct {
	loader  Loader
	mu      sync.RWMutex
	entries map[int64]*Settings
}

// NewCache wraps the loader with a read-through memoization table.
func NewCache(loader Loader) *Cache {
	return &Cache{loader: loader, entries: make(map[int64]*Settings)}
}

// Get returns the merchant's settings, loading them on first access.
func (c *Cache) Get(ctx context.Context, merchantID int64) (*Settings, error) {
	if c == nil || c.loader == nil {
		return nil, nil
	}
	c.mu.RLock()
	cached, ok := c.entries[merchantID]
	c.mu.RUnlock()
	if ok {
		return cached, nil
	}
	loaded, err := c.loader.MerchantPricing(ctx, merchantID)
	if err != nil {
		return nil, fmt.Errorf("load merchant pricing %d: %w", merchantID, err)
	}
	c.mu.Lock()
	c.entries[merchantID] = loaded
	c.mu.Unlock()
	return loaded, nil
}

// Warm pre-populates the table for the given merchants.
func (c *Cache) Warm(ctx context.Context, merchantIDs []int64) error {
	for _, id := range merchantIDs {
		if _, err := c.Get(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// RedisLoader layers a shared Redis JSON cache over another loader so
// multiple processes avoid refetching settings from the database.
type RedisLoader struct {
	Client *redis.Client
	Next   Loader
	Prefix string
	TTL    time.Duration
}

// MerchantPricing reads through Redis, falling back to the next loader and
// writing the result back with the configured TTL.
func (l RedisLoader) MerchantPricing(ctx context.Context, merchantID int64) (*Settings, error) {
	key := fmt.Sprintf("%spricing:merchant:%d", l.Prefix, merchantID)
	if l.Client != nil {
		data, err := l.Client.Get(ctx, key).Bytes()
		if err == nil {
			var settings Settings
			if err := json.Unmarshal(data, &settings); err == nil {
				return &settings, nil
			}
		} else if err != redis.Nil {
			return nil, err
		}
	}
	if l.Next == nil {
		return nil, nil
	}
	settings, err := l.Next.MerchantPricing(ctx, merchantID)
	if err != nil {
		return nil, err
	}
	if l.Client != nil && settings != nil {
		if data, err := json.Marshal(settings); err == nil {
			_ = l.Client.Set(ctx, key, data, l.TTL).Err()
		}
	}
	return settings, nil
}
