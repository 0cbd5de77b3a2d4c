// Package store provides the key-value storage layer for orizon-gateway.
//
// Auth state (magic-link tokens and sessions) is held as flat string hashes
// with per-key TTLs behind the KV interface. The production implementation
// is RedisKV; MemoryKV backs tests and local development, and FaultyKV
// simulates an unavailable backend.
//
// The one operation with a real correctness requirement is TakeHash: it must
// read and delete a record atomically so that a magic-link token can never
// verify twice, even under concurrent requests. RedisKV implements it with a
// Lua script (scripts execute atomically server-side); MemoryKV holds its
// mutex across the read and delete.
package store
