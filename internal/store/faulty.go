// ABOUTME: Failing KV implementation for exercising degraded-mode behavior
// ABOUTME: Every operation returns the configured error

package store

import (
	"context"
	"time"
)

// FaultyKV is a KV whose every operation fails with Err. It exists so
// callers can test their store-unavailable handling without a real backend.
type FaultyKV struct {
	Err error
}

func (f *FaultyKV) SetHash(ctx context.Context, key string, fields map[string]string, ttl time.Duration) error {
	return f.Err
}

func (f *FaultyKV) GetHash(ctx context.Context, key string) (map[string]string, error) {
	return nil, f.Err
}

func (f *FaultyKV) TakeHash(ctx context.Context, key string) (map[string]string, error) {
	return nil, f.Err
}

func (f *FaultyKV) Delete(ctx context.Context, key string) (bool, error) {
	return false, f.Err
}

func (f *FaultyKV) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return false, f.Err
}

func (f *FaultyKV) Close() error {
	return nil
}
