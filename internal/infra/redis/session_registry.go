package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"ai-quiz-service/internal/domain"
	"ai-quiz-service/internal/session"
	"github.com/redis/go-redis/v9"
)

// SessionRegistry is a Redis-aware implementation of app.SessionRegistry.
// Controllers live in a local map since they own goroutine-bound state; Redis holds a
// liveness key per session (quiz:session:{id}) carrying the latest snapshot, so other
// instances can see which sessions are running.
type SessionRegistry struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[string]*session.Controller
}

func NewSessionRegistry(client *redis.Client, ttl time.Duration) *SessionRegistry {
	return &SessionRegistry{
		client:   client,
		ttl:      ttl,
		sessions: make(map[string]*session.Controller),
	}
}

func (s *SessionRegistry) Register(ctx context.Context, c *session.Controller) error {
	if c == nil || c.ID() == "" {
		return fmt.Errorf("%w: session id is required", domain.ErrInvalidInput)
	}
	s.mu.Lock()
	s.sessions[c.ID()] = c
	s.mu.Unlock()
	return s.Touch(ctx, c)
}

// Touch refreshes the liveness key with the controller's current snapshot.
func (s *SessionRegistry) Touch(ctx context.Context, c *session.Controller) error {
	raw, err := json.Marshal(c.Snapshot())
	if err != nil {
		return fmt.Errorf("marshal session %s: %w", c.ID(), err)
	}
	if err := s.client.Set(ctx, s.key(c.ID()), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("mark session %s live: %w", c.ID(), err)
	}
	return nil
}

func (s *SessionRegistry) Get(_ context.Context, id string) (*session.Controller, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.sessions[id]
	return c, ok
}

// Snapshot reads the last published snapshot, including sessions owned by other instances.
func (s *SessionRegistry) Snapshot(ctx context.Context, id string) (session.Snapshot, error) {
	raw, err := s.client.Get(ctx, s.key(id)).Bytes()
	if err == redis.Nil {
		return session.Snapshot{}, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}
	if err != nil {
		return session.Snapshot{}, fmt.Errorf("get session %s: %w", id, err)
	}
	var snap session.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return session.Snapshot{}, fmt.Errorf("unmarshal session %s: %w", id, err)
	}
	return snap, nil
}

func (s *SessionRegistry) Remove(ctx context.Context, id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	// best-effort liveness cleanup
	_ = s.client.Del(ctx, s.key(id)).Err()
}

func (s *SessionRegistry) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *SessionRegistry) key(id string) string {
	return "quiz:session:" + id
}
