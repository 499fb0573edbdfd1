package cache

import (
	"context"
	"sync"
	"time"
)

// memoryEntry holds a cached value and its deadline.
type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

func (e *memoryEntry) expired(now time.Time) bool {
	return now.After(e.expiresAt)
}

// MemoryBackend is a thread-safe in-memory Backend. Expired entries are
// invisible to Get and are removed by Evict.
type MemoryBackend struct {
	mu      sync.RWMutex
	entries map[string]*memoryEntry
	now     func() time.Time
}

// NewMemoryBackend creates an empty MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		entries: make(map[string]*memoryEntry),
		now:     time.Now,
	}
}

// SetEX stores a copy of value until ttl elapses.
func (m *MemoryBackend) SetEX(_ context.Context, key string, value []byte, ttl time.Duration) error {
	cp := make([]byte, len(value))
	copy(cp, value)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = &memoryEntry{value: cp, expiresAt: m.now().Add(ttl)}
	return nil
}

// Get returns a copy of the stored value, or ErrMiss.
func (m *MemoryBackend) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[key]
	if !ok || e.expired(m.now()) {
		return nil, ErrMiss
	}
	cp := make([]byte, len(e.value))
	copy(cp, e.value)
	return cp, nil
}

// Del removes key.
func (m *MemoryBackend) Del(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

// Ping always succeeds.
func (m *MemoryBackend) Ping(context.Context) error { return nil }

// Close drops all entries.
func (m *MemoryBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]*memoryEntry)
	return nil
}

// Evict removes all expired entries and returns how many were removed.
func (m *MemoryBackend) Evict() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	n := 0
	for k, e := range m.entries {
		if e.expired(now) {
			delete(m.entries, k)
			n++
		}
	}
	return n
}

// Len returns the number of stored entries (including expired).
func (m *MemoryBackend) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// StartEviction runs Evict every interval until ctx is done.
func (m *MemoryBackend) StartEviction(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.Evict()
		case <-ctx.Done():
			return
		}
	}
}
