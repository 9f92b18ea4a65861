// Copyright (c) 2026 Helpline. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package block

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/helpline/internal/platform/constants"
)

// AnswerCache memoizes IsBlocked answers, positive and negative.
type AnswerCache interface {
	// Get returns the cached answer and whether one was present.
	Get(context context.Context, tenantID, phoneNumber string) (blocked bool, found bool, err error)
	// Put stores state unless the cache already holds a state of the same
	// or a higher version.
	Put(context context.Context, tenantID, phoneNumber string, state State) error
	Forget(context context.Context, tenantID, phoneNumber string) error
}

// putScript is a compare-and-set on the version prefix of "<version>:<0|1>".
var putScript = redis.NewScript(`
local current = redis.call('GET', KEYS[1])
if current then
	local version = tonumber(string.match(current, '^(%d+):'))
	if version and version >= tonumber(ARGV[1]) then
		return 0
	end
end
redis.call('SET', KEYS[1], ARGV[1] .. ':' .. ARGV[2], 'PX', ARGV[3])
return 1
`)

// RedisAnswerCache implements [AnswerCache] with one key per pair.
type RedisAnswerCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisAnswerCache creates a Redis-backed answer cache using the default TTL.
func NewRedisAnswerCache(client *redis.Client) *RedisAnswerCache {
	return &RedisAnswerCache{client: client, ttl: constants.BlockAnswerTTL}
}

func answerKey(tenantID, phoneNumber string) string {
	return constants.RedisPrefixBlocked + tenantID + ":" + phoneNumber
}

/*
Get reads the cached answer of a pair.

Returns:
  - bool: The cached answer
  - bool: Whether the key existed
  - error: Connectivity errors
*/
func (cache *RedisAnswerCache) Get(context context.Context, tenantID, phoneNumber string) (bool, bool, error) {
	value, err := cache.client.Get(context, answerKey(tenantID, phoneNumber)).Result()
	if errors.Is(err, redis.Nil) {
		return false, false, nil
	}
	if err != nil {
		return false, false, fmt.Errorf("redis_block_answer_get_failed: %w", err)
	}

	_, answer, ok := strings.Cut(value, ":")
	if !ok {
		// Unversioned value; treat as a miss so the store answers.
		return false, false, nil
	}
	return answer == "1", true, nil
}

// Put writes state through with the configured TTL. An older state than the
// one already cached is dropped.
func (cache *RedisAnswerCache) Put(context context.Context, tenantID, phoneNumber string, state State) error {
	answer := "0"
	if state.Blocked {
		answer = "1"
	}

	err := putScript.Run(context, cache.client,
		[]string{answerKey(tenantID, phoneNumber)},
		strconv.FormatInt(state.Version, 10), answer, cache.ttl.Milliseconds(),
	).Err()
	if err != nil {
		return fmt.Errorf("redis_block_answer_put_failed: %w", err)
	}
	return nil
}

// Forget drops the cached answer of a pair.
func (cache *RedisAnswerCache) Forget(context context.Context, tenantID, phoneNumber string) error {
	if err := cache.client.Del(context, answerKey(tenantID, phoneNumber)).Err(); err != nil {
		return fmt.Errorf("redis_block_answer_delete_failed: %w", err)
	}
	return nil
}
