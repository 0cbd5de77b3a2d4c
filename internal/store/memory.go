// ABOUTME: In-memory implementation of the KV interface
// ABOUTME: Mutex-guarded with lazy TTL expiry, used for tests and local development

package store

import (
	"context"
	"maps"
	"sync"
	"time"
)

type memoryEntry struct {
	fields    map[string]string
	expiresAt time.Time
}

// MemoryKV is a process-local KV implementation. It honors TTLs by
// discarding expired entries on access.
type MemoryKV struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

// NewMemoryKV creates an empty in-memory store.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{entries: make(map[string]memoryEntry)}
}

// live returns the entry for key if it exists and has not expired.
// Callers must hold the mutex.
func (m *MemoryKV) live(key string) (memoryEntry, bool) {
	entry, ok := m.entries[key]
	if !ok {
		return memoryEntry{}, false
	}
	if time.Now().After(entry.expiresAt) {
		delete(m.entries, key)
		return memoryEntry{}, false
	}
	return entry, true
}

// SetHash stores fields under key with the given TTL.
func (m *MemoryKV) SetHash(ctx context.Context, key string, fields map[string]string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[key] = memoryEntry{
		fields:    maps.Clone(fields),
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

// GetHash returns the fields stored under key; empty map when absent.
func (m *MemoryKV) GetHash(ctx context.Context, key string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.live(key)
	if !ok {
		return map[string]string{}, nil
	}
	return maps.Clone(entry.fields), nil
}

// TakeHash atomically reads and deletes the hash stored under key.
func (m *MemoryKV) TakeHash(ctx context.Context, key string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.live(key)
	if !ok {
		return map[string]string{}, nil
	}
	delete(m.entries, key)
	return entry.fields, nil
}

// Delete removes key, reporting whether it existed.
func (m *MemoryKV) Delete(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.live(key)
	if ok {
		delete(m.entries, key)
	}
	return ok, nil
}

// Expire resets the TTL on key, reporting whether the key existed.
func (m *MemoryKV) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.live(key)
	if !ok {
		return false, nil
	}
	entry.expiresAt = time.Now().Add(ttl)
	m.entries[key] = entry
	return true, nil
}

// Close is a no-op for the in-memory store.
func (m *MemoryKV) Close() error {
	return nil
}
