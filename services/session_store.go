package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ultraintel/counselor-api/model"
	"github.com/ultraintel/counselor-api/utils/cache"
)

// ErrSessionNotFound is returned for unknown or expired session IDs
var ErrSessionNotFound = errors.New("session not found")

// SessionStore holds live interview state. Implementations must treat
// IDs as opaque and return ErrSessionNotFound for missing or expired
// sessions.
type SessionStore interface {
	Get(ctx context.Context, id string) (*model.InterviewSession, error)
	Put(ctx context.Context, session *model.InterviewSession) error
	Delete(ctx context.Context, id string) error
	Stale(ctx context.Context, cutoff time.Time) ([]*model.InterviewSession, error)
}

// MemorySessionStore keeps sessions in process memory. Fine for a single
// instance; fronted deployments should use the Redis store instead.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*model.InterviewSession
}

// NewMemorySessionStore creates an empty in-memory store
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]*model.InterviewSession),
	}
}

func (m *MemorySessionStore) Get(ctx context.Context, id string) (*model.InterviewSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	copied := *session
	return &copied, nil
}

func (m *MemorySessionStore) Put(ctx context.Context, session *model.InterviewSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := *session
	m.sessions[session.ID] = &copied
	return nil
}

func (m *MemorySessionStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, id)
	return nil
}

func (m *MemorySessionStore) Stale(ctx context.Context, cutoff time.Time) ([]*model.InterviewSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var stale []*model.InterviewSession
	for _, session := range m.sessions {
		if session.LastActivityAt.Before(cutoff) {
			copied := *session
			stale = append(stale, &copied)
		}
	}
	return stale, nil
}

const sessionKeyPrefix = "interview:session:"

// RedisSessionStore keeps sessions in Redis so multiple API instances
// can serve the same interview. Redis TTL handles expiry, so Stale only
// matters for snapshot cleanup and returns nothing here.
type RedisSessionStore struct {
	cache *cache.RedisCache
	ttl   time.Duration
}

// NewRedisSessionStore creates a Redis-backed store with the given
// session TTL
func NewRedisSessionStore(c *cache.RedisCache, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{cache: c, ttl: ttl}
}

func (r *RedisSessionStore) Get(ctx context.Context, id string) (*model.InterviewSession, error) {
	var session model.InterviewSession
	err := r.cache.GetJSON(ctx, sessionKeyPrefix+id, &session)
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return &session, nil
}

func (r *RedisSessionStore) Put(ctx context.Context, session *model.InterviewSession) error {
	if err := r.cache.SetJSON(ctx, sessionKeyPrefix+session.ID, session, r.ttl); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

func (r *RedisSessionStore) Delete(ctx context.Context, id string) error {
	return r.cache.Delete(ctx, sessionKeyPrefix+id)
}

func (r *RedisSessionStore) Stale(ctx context.Context, cutoff time.Time) ([]*model.InterviewSession, error) {
	keys, err := r.cache.Keys(ctx, sessionKeyPrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("failed to scan sessions: %w", err)
	}

	var stale []*model.InterviewSession
	for _, key := range keys {
		var session model.InterviewSession
		if err := r.cache.GetJSON(ctx, key, &session); err != nil {
			continue
		}
		if session.LastActivityAt.Before(cutoff) {
			stale = append(stale, &session)
		}
	}
	return stale, nil
}
