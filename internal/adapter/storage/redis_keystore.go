package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// setIfAbsentScript is the atomic check-and-set. Returning the existing
// value in the same round trip is what lets two racing callers agree on
// exactly one winner.
var setIfAbsentScript = redis.NewScript(`
local existing = redis.call('GET', KEYS[1])
if existing then
	return {0, existing}
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[2])
return {1, ''}
`)

// RedisKeyStore implements port.KeyValueStore over a shared Redis, so the
// dedupe window holds across server instances. Keys self-expire; there is
// no cleanup job.
type RedisKeyStore struct {
	client *redis.Client
}

func NewRedisKeyStore(client *redis.Client) *RedisKeyStore {
	return &RedisKeyStore{client: client}
}

func (r *RedisKeyStore) SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, string, error) {
	result, err := setIfAbsentScript.Run(ctx, r.client, []string{key}, value, ttl.Milliseconds()).Slice()
	if err != nil {
		return false, "", fmt.Errorf("set-if-absent: %w", err)
	}
	if len(result) != 2 {
		return false, "", fmt.Errorf("set-if-absent: unexpected reply %v", result)
	}

	stored, _ := result[0].(int64)
	existing, _ := result[1].(string)
	return stored == 1, existing, nil
}

func (r *RedisKeyStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *RedisKeyStore) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}
