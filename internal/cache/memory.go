package cache

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultMemoryEntries bounds the in-process store when no size is configured
const DefaultMemoryEntries = 10000

type memoryItem struct {
	value     []byte
	expiresAt time.Time
}

// MemoryStore is a bounded in-process LRU with per-entry expiry. Expired
// entries are swept on writes at most once per sweep interval, so keys that
// are never read again do not accumulate.
type MemoryStore struct {
	items  *lru.Cache[string, memoryItem]
	prefix string
	now    func() time.Time

	mu            sync.Mutex
	sweepInterval time.Duration
	nextSweep     time.Time
}

// NewMemoryStore creates an empty in-memory store holding at most size entries
func NewMemoryStore(prefix string, size int) *MemoryStore {
	if size <= 0 {
		size = DefaultMemoryEntries
	}
	// lru.New only fails for a non-positive size
	items, _ := lru.New[string, memoryItem](size)
	return &MemoryStore{
		items:         items,
		prefix:        prefix,
		now:           time.Now,
		sweepInterval: time.Minute,
	}
}

// WithClock replaces the time source; used by tests to step past TTLs
func (m *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	m.now = now
	return m
}

// Get retrieves a value from cache
func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	key = m.prefix + key

	item, ok := m.items.Get(key)
	if !ok {
		return nil, ErrMiss
	}
	if !m.now().Before(item.expiresAt) {
		m.items.Remove(key)
		return nil, ErrMiss
	}

	out := make([]byte, len(item.value))
	copy(out, item.value)
	return out, nil
}

// Set stores a copy of value until now+ttl
func (m *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	buf := make([]byte, len(value))
	copy(buf, value)

	now := m.now()
	m.sweep(now)
	m.items.Add(m.prefix+key, memoryItem{value: buf, expiresAt: now.Add(ttl)})
	return nil
}

// Delete removes keys from cache
func (m *MemoryStore) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		m.items.Remove(m.prefix + k)
	}
	return nil
}

// Len returns the number of stored entries
func (m *MemoryStore) Len() int {
	return m.items.Len()
}

// sweep drops every expired entry once the sweep interval has passed
func (m *MemoryStore) sweep(now time.Time) {
	m.mu.Lock()
	if now.Before(m.nextSweep) {
		m.mu.Unlock()
		return
	}
	m.nextSweep = now.Add(m.sweepInterval)
	m.mu.Unlock()

	for _, key := range m.items.Keys() {
		if item, ok := m.items.Peek(key); ok && !now.Before(item.expiresAt) {
			m.items.Remove(key)
		}
	}
}
