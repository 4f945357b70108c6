package memory

import (
	"context"
	"fmt"
	"sync"

	"ai-quiz-service/internal/domain"
	"ai-quiz-service/internal/session"
)

// SessionRegistry is an in-memory implementation of app.SessionRegistry.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*session.Controller
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[string]*session.Controller),
	}
}

func (r *SessionRegistry) Register(_ context.Context, c *session.Controller) error {
	if c == nil || c.ID() == "" {
		return fmt.Errorf("%w: session id is required", domain.ErrInvalidInput)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[c.ID()] = c
	return nil
}

func (r *SessionRegistry) Get(_ context.Context, id string) (*session.Controller, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.sessions[id]
	return c, ok
}

func (r *SessionRegistry) Remove(_ context.Context, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

func (r *SessionRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
