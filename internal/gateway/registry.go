package gateway

import (
	"sync"
	"time"
)

// Session is a conversational identity at the gateway, bound to one agent.
type Session struct {
	AgentID       string
	LastMessageAt time.Time
}

// Registry maps session keys to the agents that own them. System sessions
// are registered at startup or agent sync; task-scoped sessions lazily on
// first send. Safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Register binds a session key to an agent, replacing any existing binding.
func (r *Registry) Register(key, agentID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[key] = &Session{AgentID: agentID}
}

// Lookup returns the session for a key, if registered.
func (r *Registry) Lookup(key string) (Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[key]
	if !ok {
		return Session{}, false
	}
	return *s, true
}

// Touch records message activity on a session. Unknown keys are ignored.
func (r *Registry) Touch(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[key]; ok {
		s.LastMessageAt = time.Now()
	}
}

// RemoveAgent drops every session bound to the given agent, returning how
// many were removed. Called when an agent is deleted during sync.
func (r *Registry) RemoveAgent(agentID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for key, s := range r.sessions {
		if s.AgentID == agentID {
			delete(r.sessions, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
