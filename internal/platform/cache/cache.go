// Copyright (c) 2026 Helpline. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package cache provides the in-process L1 cache backed by dgraph-io/ristretto.
//
// Values are stored as encoded bytes so callers never share mutable state
// with the cache. Sets are flushed before returning, which makes a value
// readable by the next Get on the same process.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// Cache wraps a ristretto cache as an in-process L1 cache.
type Cache struct {
	store *ristretto.Cache[string, []byte]
}

// New creates a ristretto-backed cache.
//
// # Parameters
//   - numCounters: number of keys tracked for admission (~10x expected items).
//   - maxCostBytes: maximum total size of cached values in bytes.
func New(numCounters, maxCostBytes int64) (*Cache, error) {
	store, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: numCounters,
		MaxCost:     maxCostBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("cache: failed to create ristretto cache: %w", err)
	}
	return &Cache{store: store}, nil
}

// Get retrieves a value from the cache.
func (c *Cache) Get(_ context.Context, key string) ([]byte, bool) {
	return c.store.Get(key)
}

// Set stores a value in the cache with the given TTL.
func (c *Cache) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	c.store.SetWithTTL(key, value, int64(len(value)), ttl)
	c.store.Wait()
}

// Delete removes a value from the cache.
func (c *Cache) Delete(_ context.Context, keys ...string) {
	for _, key := range keys {
		c.store.Del(key)
	}
}

// Close shuts down the cache and releases resources.
func (c *Cache) Close() {
	c.store.Close()
}
