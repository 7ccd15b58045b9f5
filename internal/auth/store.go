package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/bradfitz/gomemcache/memcache"

	"tally/internal/cache"
)

// SessionStore persists sessions by id.
type SessionStore interface {
	Get(ctx context.Context, id string) (*Session, error)
	Put(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
}

// MemoryStore keeps sessions in a size-bounded LRU. Entries expire with their session.
type MemoryStore struct {
	lru *cache.LRUCache[Session]
	now func() time.Time
}

func NewMemoryStore(maxSessions int, ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		lru: cache.NewLRUCache[Session](maxSessions, ttl),
		now: time.Now,
	}
}

// Cleaner exposes the underlying cache for periodic cleanup.
func (m *MemoryStore) Cleaner() cache.Cleaner { return m.lru }

func (m *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	s, ok := m.lru.Get(id)
	if !ok || s.Expired(m.now()) {
		return nil, ErrSessionNotFound
	}
	return &s, nil
}

func (m *MemoryStore) Put(_ context.Context, s *Session) error {
	ttl := s.ExpiresAt.Sub(m.now())
	if ttl <= 0 {
		return fmt.Errorf("session %s already expired", s.ID)
	}
	m.lru.SetWithTTL(s.ID, *s, ttl)
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.lru.Delete(id)
	return nil
}

const memcacheKeyPrefix = "tally:session:"

// memcached reads expirations above 30 days as absolute unix times
const memcacheMaxRelative = 30 * 24 * time.Hour

func memcacheExpiration(expiresAt time.Time, ttl time.Duration) int32 {
	if ttl > memcacheMaxRelative {
		return int32(expiresAt.Unix())
	}
	// 0 would mean no expiry
	return int32(max(1, math.Ceil(ttl.Seconds())))
}

// MemcacheStore keeps sessions in memcached as JSON so several server
// processes can share them.
type MemcacheStore struct {
	client *memcache.Client
	now    func() time.Time
}

func NewMemcacheStore(servers ...string) *MemcacheStore {
	client := memcache.New(servers...)
	client.Timeout = 500 * time.Millisecond
	return &MemcacheStore{client: client, now: time.Now}
}

// Ping checks that every server is reachable.
func (m *MemcacheStore) Ping() error {
	return m.client.Ping()
}

func (m *MemcacheStore) Get(_ context.Context, id string) (*Session, error) {
	item, err := m.client.Get(memcacheKeyPrefix + id)
	if errors.Is(err, memcache.ErrCacheMiss) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("memcache get session: %w", err)
	}
	var s Session
	if err := json.Unmarshal(item.Value, &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if s.Expired(m.now()) {
		return nil, ErrSessionNotFound
	}
	return &s, nil
}

func (m *MemcacheStore) Put(_ context.Context, s *Session) error {
	ttl := s.ExpiresAt.Sub(m.now())
	if ttl <= 0 {
		return fmt.Errorf("session %s already expired", s.ID)
	}
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	err = m.client.Set(&memcache.Item{
		Key:        memcacheKeyPrefix + s.ID,
		Value:      data,
		Expiration: memcacheExpiration(s.ExpiresAt, ttl),
	})
	if err != nil {
		return fmt.Errorf("memcache set session: %w", err)
	}
	return nil
}

func (m *MemcacheStore) Delete(_ context.Context, id string) error {
	err := m.client.Delete(memcacheKeyPrefix + id)
	if err != nil && !errors.Is(err, memcache.ErrCacheMiss) {
		return fmt.Errorf("memcache delete session: %w", err)
	}
	return nil
}
