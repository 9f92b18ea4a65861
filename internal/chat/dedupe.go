// Copyright (c) 2026 Helpline. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/helpline/internal/platform/constants"
)

// Deduper remembers which message a client message id produced.
type Deduper interface {
	// Claim binds key to messageID unless key is already bound, in which
	// case the existing message id is returned with claimed=false.
	Claim(context context.Context, key, messageID string) (existing string, claimed bool, err error)
	// Release drops a claim whose append failed.
	Release(context context.Context, key string) error
}

// # Redis Deduper

// RedisDeduper implements [Deduper] with SET NX and a 24h TTL.
type RedisDeduper struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisDeduper creates a Redis-backed [Deduper].
func NewRedisDeduper(client *redis.Client) *RedisDeduper {
	return &RedisDeduper{client: client, ttl: constants.DedupeTTL}
}

/*
Claim performs SET NX on the de-duplication key.

Returns:
  - string: The message id already bound to key, when claimed is false
  - bool: Whether this call won the key
  - error: Connectivity errors
*/
func (deduper *RedisDeduper) Claim(context context.Context, key, messageID string) (string, bool, error) {
	redisKey := constants.RedisPrefixDedupe + key

	claimed, err := deduper.client.SetNX(context, redisKey, messageID, deduper.ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("redis_dedupe_claim_failed: %w", err)
	}
	if claimed {
		return messageID, true, nil
	}

	existing, err := deduper.client.Get(context, redisKey).Result()
	if errors.Is(err, redis.Nil) {
		// Expired between the two calls; claim again.
		return deduper.Claim(context, key, messageID)
	}
	if err != nil {
		return "", false, fmt.Errorf("redis_dedupe_get_failed: %w", err)
	}
	return existing, false, nil
}

// Release deletes the de-duplication key.
func (deduper *RedisDeduper) Release(context context.Context, key string) error {
	if err := deduper.client.Del(context, constants.RedisPrefixDedupe+key).Err(); err != nil {
		return fmt.Errorf("redis_dedupe_release_failed: %w", err)
	}
	return nil
}

// # In-Memory Deduper

// InMemoryDeduper implements [Deduper] with a mutex-guarded map and no expiry.
type InMemoryDeduper struct {
	mu     sync.Mutex
	claims map[string]string
}

// NewInMemoryDeduper constructs an empty [InMemoryDeduper].
func NewInMemoryDeduper() *InMemoryDeduper {
	return &InMemoryDeduper{claims: make(map[string]string)}
}

// Claim binds key to messageID on first use.
func (deduper *InMemoryDeduper) Claim(_ context.Context, key, messageID string) (string, bool, error) {
	deduper.mu.Lock()
	defer deduper.mu.Unlock()

	if existing, ok := deduper.claims[key]; ok {
		return existing, false, nil
	}
	deduper.claims[key] = messageID
	return messageID, true, nil
}

// Release forgets key.
func (deduper *InMemoryDeduper) Release(_ context.Context, key string) error {
	deduper.mu.Lock()
	defer deduper.mu.Unlock()

	delete(deduper.claims, key)
	return nil
}
