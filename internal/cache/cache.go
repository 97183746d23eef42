package cache

import (
	"strings"
	"sync"
	"time"
)

type entry struct {
	value     any
	expiresAt time.Time
}

// Store is a TTL key/value cache shared by the balance, token-list, and
// price lookups. Expiry is evaluated lazily at read time; there is no
// background sweeper. Entries are kept after expiry so GetStale can serve
// a last-known value when a provider is down. Safe for concurrent use;
// writes are idempotent upserts, so concurrent writers racing on one key
// simply leave whichever wrote last.
type Store struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// New creates an empty Store.
func New() *Store {
	return &Store{entries: make(map[string]entry)}
}

// Key builds a namespaced cache key (e.g. "price:ethereum:usd") so balance,
// price, and token-list entries cannot collide.
func Key(parts ...string) string {
	return strings.Join(parts, ":")
}

// Set stores value under key with the given ttl, superseding any previous
// entry.
func (s *Store) Set(key string, value any, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = entry{value: value, expiresAt: time.Now().Add(ttl)}
}

// Len returns the number of stored entries, expired ones included.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Get returns the live value for key, or false if absent or expired.
func Get[T any](s *Store, key string) (T, bool) {
	return lookup[T](s, key, false)
}

// GetStale returns the last written value for key even past its TTL.
// Callers use this to degrade to stale data instead of failing outright.
func GetStale[T any](s *Store, key string) (T, bool) {
	return lookup[T](s, key, true)
}

func lookup[T any](s *Store, key string, allowStale bool) (T, bool) {
	var zero T

	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		return zero, false
	}
	if !allowStale && time.Now().After(e.expiresAt) {
		return zero, false
	}

	v, ok := e.value.(T)
	if !ok {
		return zero, false
	}
	return v, true
}
