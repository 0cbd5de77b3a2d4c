// ABOUTME: Redis-backed implementation of the KV interface
// ABOUTME: Uses a Lua script for the atomic take-and-delete operation

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// takeHashScript reads a hash and deletes its key in a single script
// invocation. Redis executes scripts atomically, which is what gives
// magic-link tokens their single-use guarantee.
var takeHashScript = redis.NewScript(`
local fields = redis.call('HGETALL', KEYS[1])
if #fields > 0 then
	redis.call('DEL', KEYS[1])
end
return fields
`)

// RedisKV implements KV against a Redis server.
type RedisKV struct {
	client  *redis.Client
	timeout time.Duration
}

// RedisOptions configures a RedisKV connection.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	// Timeout bounds every store operation, layered onto caller contexts.
	Timeout time.Duration
}

// NewRedisKV creates a RedisKV and verifies connectivity with a ping.
func NewRedisKV(ctx context.Context, opts RedisOptions) (*RedisKV, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	kv := &RedisKV{client: client, timeout: opts.Timeout}

	pingCtx, cancel := kv.opContext(ctx)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", opts.Addr, err)
	}

	return kv, nil
}

// opContext bounds an operation with the configured timeout.
func (r *RedisKV) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}

// SetHash stores fields under key with the given TTL.
func (r *RedisKV) SetHash(ctx context.Context, key string, fields map[string]string, ttl time.Duration) error {
	ctx, cancel := r.opContext(ctx)
	defer cancel()

	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("storing hash %s: %w", key, err)
	}
	return nil
}

// GetHash returns the fields stored under key; empty map when absent.
func (r *RedisKV) GetHash(ctx context.Context, key string) (map[string]string, error) {
	ctx, cancel := r.opContext(ctx)
	defer cancel()

	fields, err := r.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("reading hash %s: %w", key, err)
	}
	return fields, nil
}

// TakeHash atomically reads and deletes the hash stored under key.
func (r *RedisKV) TakeHash(ctx context.Context, key string) (map[string]string, error) {
	ctx, cancel := r.opContext(ctx)
	defer cancel()

	raw, err := takeHashScript.Run(ctx, r.client, []string{key}).Result()
	if err != nil {
		return nil, fmt.Errorf("taking hash %s: %w", key, err)
	}

	// HGETALL returns a flat [field, value, ...] array through EVAL.
	pairs, ok := raw.([]interface{})
	if !ok {
		return nil, fmt.Errorf("taking hash %s: unexpected reply type %T", key, raw)
	}

	fields := make(map[string]string, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		k, kok := pairs[i].(string)
		v, vok := pairs[i+1].(string)
		if !kok || !vok {
			return nil, fmt.Errorf("taking hash %s: unexpected reply element types", key)
		}
		fields[k] = v
	}
	return fields, nil
}

// Delete removes key, reporting whether it existed.
func (r *RedisKV) Delete(ctx context.Context, key string) (bool, error) {
	ctx, cancel := r.opContext(ctx)
	defer cancel()

	n, err := r.client.Del(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("deleting %s: %w", key, err)
	}
	return n > 0, nil
}

// Expire resets the TTL on key, reporting whether the key existed.
func (r *RedisKV) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ctx, cancel := r.opContext(ctx)
	defer cancel()

	ok, err := r.client.Expire(ctx, key, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("refreshing expiry on %s: %w", key, err)
	}
	return ok, nil
}

// Close closes the underlying Redis client.
func (r *RedisKV) Close() error {
	return r.client.Close()
}
