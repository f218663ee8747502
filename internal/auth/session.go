package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

type Session struct {
	AccessToken string    `json:"access_token"`
	AccountID   string    `json:"account_id"`
	Email       string    `json:"email"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func (s *Session) Valid(now time.Time) bool {
	return s != nil && s.AccessToken != "" && now.Before(s.ExpiresAt)
}

// SessionStore persists the current session. Load returns nil, nil when
// there is none.
type SessionStore interface {
	Load(ctx context.Context) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Clear(ctx context.Context) error
}

type MemorySessionStore struct {
	mu sync.Mutex
	s  *Session
}

func NewMemorySessionStore() *MemorySessionStore { return &MemorySessionStore{} }

func (m *MemorySessionStore) Load(context.Context) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.s == nil {
		return nil, nil
	}
	cp := *m.s
	return &cp, nil
}

func (m *MemorySessionStore) Save(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.s = &cp
	return nil
}

func (m *MemorySessionStore) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.s = nil
	return nil
}

// RedisSessionStore keeps the session across restarts. The key expires
// together with the session.
type RedisSessionStore struct {
	client *redis.Client
	key    string
	now    func() time.Time
}

func NewRedisSessionStore(client *redis.Client, key string) *RedisSessionStore {
	if key == "" {
		key = "restaurant-system:session"
	}
	return &RedisSessionStore{client: client, key: key, now: time.Now}
}

func (r *RedisSessionStore) Load(ctx context.Context) (*Session, error) {
	b, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	var s Session
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &s, nil
}

func (r *RedisSessionStore) Save(ctx context.Context, s *Session) error {
	b, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	ttl := s.ExpiresAt.Sub(r.now())
	if ttl <= 0 {
		return nil
	}
	if err := r.client.Set(ctx, r.key, b, ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (r *RedisSessionStore) Clear(ctx context.Context) error {
	return r.client.Del(ctx, r.key).Err()
}
