package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"alfredoptarigan/ai-interviewer/internal/interview"
)

const (
	sessionKeyPrefix = "interview:session:"
	activeSessionKey = "interview:sessions:active"
)

// SessionRepository persists interview sessions. Save is called after every
// transition; ListActive feeds the deadline sweeper.
type SessionRepository interface {
	Save(ctx context.Context, s *interview.Session) error
	Get(ctx context.Context, id string) (*interview.Session, error)
	Delete(ctx context.Context, id string) error
	ListActive(ctx context.Context) ([]string, error)
}

// active sessions need server-side attention (timers or scoring)
func isActive(s *interview.Session) bool {
	return s.Stage == interview.StageInProgress || s.Stage == interview.StageScoring
}

type redisSessionRepository struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisSessionRepository(rdb *redis.Client, ttl time.Duration) SessionRepository {
	return &redisSessionRepository{rdb: rdb, ttl: ttl}
}

func (r *redisSessionRepository) Save(ctx context.Context, s *interview.Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, sessionKeyPrefix+s.ID, data, r.ttl)
		if isActive(s) {
			pipe.SAdd(ctx, activeSessionKey, s.ID)
		} else {
			pipe.SRem(ctx, activeSessionKey, s.ID)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save session %s: %w", s.ID, err)
	}
	return nil
}

func (r *redisSessionRepository) Get(ctx context.Context, id string) (*interview.Session, error) {
	data, err := r.rdb.Get(ctx, sessionKeyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			// expired sessions may linger in the active set
			r.rdb.SRem(ctx, activeSessionKey, id)
			return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load session %s: %w", id, err)
	}

	var s interview.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode session %s: %w", id, err)
	}
	return &s, nil
}

func (r *redisSessionRepository) Delete(ctx context.Context, id string) error {
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, sessionKeyPrefix+id)
		pipe.SRem(ctx, activeSessionKey, id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}
	return nil
}

func (r *redisSessionRepository) ListActive(ctx context.Context) ([]string, error) {
	ids, err := r.rdb.SMembers(ctx, activeSessionKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list active sessions: %w", err)
	}
	sort.Strings(ids)
	return ids, nil
}

// memorySessionRepository is used when no Redis address is configured.
// Sessions are stored encoded so callers never share state.
type memorySessionRepository struct {
	mu       sync.RWMutex
	sessions map[string][]byte
	active   map[string]struct{}
}

func NewMemorySessionRepository() SessionRepository {
	return &memorySessionRepository{
		sessions: make(map[string][]byte),
		active:   make(map[string]struct{}),
	}
}

func (m *memorySessionRepository) Save(_ context.Context, s *interview.Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = data
	if isActive(s) {
		m.active[s.ID] = struct{}{}
	} else {
		delete(m.active, s.ID)
	}
	return nil
}

func (m *memorySessionRepository) Get(_ context.Context, id string) (*interview.Session, error) {
	m.mu.RLock()
	data, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}

	var s interview.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode session %s: %w", id, err)
	}
	return &s, nil
}

func (m *memorySessionRepository) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	delete(m.active, id)
	return nil
}

func (m *memorySessionRepository) ListActive(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.active))
	for id := range m.active {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
