// Package token implements the stateful JWT subsystem: issuing, validating
// and revoking tokens, backed by a key-value store with per-key TTLs.
package token

import (
	"context"
	"sync"
	"time"
)

// Store is the key/value contract behind the token service. Keys expire
// naturally after their TTL. Besides plain entries the store keeps one set
// per user (the live refresh-token index) because revoke-all needs to
// enumerate a user's tokens without relying on prefix scans.
//
// Implementations must be safe for concurrent use and provide
// read-your-writes ordering for keys under a single user prefix.
type Store interface {
	Put(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, bool, error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, keys ...string) error

	AddToSet(ctx context.Context, key, member string, ttl time.Duration) error
	SetMembers(ctx context.Context, key string) ([]string, error)
	RemoveFromSet(ctx context.Context, key string, members ...string) error
}

// MemoryStore is an in-process Store with deadline-based expiry. Expired
// entries are dropped lazily on read and write. It backs the test suite and
// serves as a fallback when Redis is not configured.
type MemoryStore struct {
	mu     sync.Mutex
	values map[string]memoryEntry
	sets   map[string]memorySet
	now    func() time.Time
}

type memoryEntry struct {
	value     string
	expiresAt time.Time // zero means no expiry
}

type memorySet struct {
	members   map[string]struct{}
	expiresAt time.Time
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		values: map[string]memoryEntry{},
		sets:   map[string]memorySet{},
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// NewMemoryStoreWithClock returns a store using a custom clock, letting
// tests advance time instead of sleeping.
func NewMemoryStoreWithClock(now func() time.Time) *MemoryStore {
	s := NewMemoryStore()
	s.now = now
	return s
}

func (s *MemoryStore) expired(deadline time.Time) bool {
	return !deadline.IsZero() && !s.now().Before(deadline)
}

func (s *MemoryStore) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var deadline time.Time
	if ttl > 0 {
		deadline = s.now().Add(ttl)
	}
	s.values[key] = memoryEntry{value: value, expiresAt: deadline}
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.values[key]
	if !ok {
		return "", false, nil
	}
	if s.expired(e.expiresAt) {
		delete(s.values, key)
		return "", false, nil
	}
	return e.value, true, nil
}

func (s *MemoryStore) Exists(ctx context.Context, key string) (bool, error) {
	_, ok, err := s.Get(ctx, key)
	return ok, err
}

func (s *MemoryStore) Delete(ctx context.Context, keys ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.values, k)
		delete(s.sets, k)
	}
	return nil
}

func (s *MemoryStore) AddToSet(ctx context.Context, key, member string, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.sets[key]
	if !ok || s.expired(set.expiresAt) {
		set = memorySet{members: map[string]struct{}{}}
	}
	set.members[member] = struct{}{}
	if ttl > 0 {
		set.expiresAt = s.now().Add(ttl)
	}
	s.sets[key] = set
	return nil
}

func (s *MemoryStore) SetMembers(ctx context.Context, key string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.sets[key]
	if !ok {
		return nil, nil
	}
	if s.expired(set.expiresAt) {
		delete(s.sets, key)
		return nil, nil
	}
	out := make([]string, 0, len(set.members))
	for m := range set.members {
		out = append(out, m)
	}
	return out, nil
}

func (s *MemoryStore) RemoveFromSet(ctx context.Context, key string, members ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.sets[key]
	if !ok {
		return nil
	}
	for _, m := range members {
		delete(set.members, m)
	}
	if len(set.members) == 0 {
		delete(s.sets, key)
	}
	return nil
}
