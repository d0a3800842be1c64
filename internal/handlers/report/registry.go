package report

import (
	"sync"

	"github.com/iamwavecut/modbot/internal/infra"
	"github.com/iamwavecut/modbot/internal/observability"
)

// Registry owns the in-progress report sessions keyed by reporter ID.
// Sessions live until they complete or are cancelled; there is no expiry.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	locks    infra.KeyedMutex
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Lock serializes all work on one reporter's session. Callers must hold it around Get, Start and Evict.
func (r *Registry) Lock(userID string) func() {
	return r.locks.Lock(userID)
}

func (r *Registry) Get(userID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[userID]
	return s, ok
}

// Start replaces any session the reporter had with a fresh one.
func (r *Registry) Start(userID, userName string) *Session {
	s := NewSession(userID, userName)
	r.mu.Lock()
	r.sessions[userID] = s
	n := len(r.sessions)
	r.mu.Unlock()
	observability.SetActiveSessions(n)
	return s
}

func (r *Registry) Evict(userID string) {
	r.mu.Lock()
	delete(r.sessions, userID)
	n := len(r.sessions)
	r.mu.Unlock()
	observability.SetActiveSessions(n)
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
