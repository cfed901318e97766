// Package cache provides an in-memory ports.CacheStore backed by an
// expirable LRU.
package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/ahrav/ragconsole/internal/ports"
)

// Defaults used when the caller passes zero values.
const (
	DefaultSize = 64
	DefaultTTL  = 30 * time.Second
)

// LRUStore is a bounded, TTL-evicting cache.
//
// The underlying expirable LRU has a single TTL for all entries, so a
// per-call expiration longer than the store TTL is capped; a shorter one
// is honored by recording the deadline alongside the value.
type LRUStore struct {
	lru *expirable.LRU[string, entry]
	ttl time.Duration
	now func() time.Time
}

type entry struct {
	value    any
	deadline time.Time
}

var _ ports.CacheStore = (*LRUStore)(nil)

// NewLRUStore creates a store holding at most size entries for at most ttl.
func NewLRUStore(size int, ttl time.Duration) *LRUStore {
	if size <= 0 {
		size = DefaultSize
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &LRUStore{
		lru: expirable.NewLRU[string, entry](size, nil, ttl),
		ttl: ttl,
		now: time.Now,
	}
}

// Get returns the cached value for key.
func (s *LRUStore) Get(_ context.Context, key string) (any, bool, error) {
	e, ok := s.lru.Get(key)
	if !ok {
		return nil, false, nil
	}
	if !s.now().Before(e.deadline) {
		s.lru.Remove(key)
		return nil, false, nil
	}
	return e.value, true, nil
}

// Set stores value under key. A zero expiration uses the store TTL.
func (s *LRUStore) Set(_ context.Context, key string, value any, expiration time.Duration) error {
	if expiration <= 0 || expiration > s.ttl {
		expiration = s.ttl
	}
	s.lru.Add(key, entry{value: value, deadline: s.now().Add(expiration)})
	return nil
}

// Delete removes key. Missing keys are not an error.
func (s *LRUStore) Delete(_ context.Context, key string) error {
	s.lru.Remove(key)
	return nil
}

// Clear removes every entry.
func (s *LRUStore) Clear(context.Context) error {
	s.lru.Purge()
	return nil
}

// Len returns the number of live entries.
func (s *LRUStore) Len() int { return s.lru.Len() }
