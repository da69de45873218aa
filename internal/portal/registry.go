package portal

import (
	"sync"
	"time"

	"customer-portal-backend/internal/logger"
	"customer-portal-backend/internal/metrics"
	"customer-portal-backend/internal/models"
)

type sessionKey struct {
	projectID  string
	customerID string
}

// Registry hands out one Session per project and customer so that all
// requests and listeners of that pair share the same preloaded sets.
type Registry struct {
	deps Deps
	now  func() time.Time

	mu       sync.Mutex
	sessions map[sessionKey]*Session
}

func NewRegistry(deps Deps) *Registry {
	return &Registry{
		deps:     deps,
		now:      time.Now,
		sessions: make(map[sessionKey]*Session),
	}
}

func (r *Registry) Acquire(project *models.Project, customerID string) *Session {
	key := sessionKey{projectID: project.ID, customerID: customerID}

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[key]; ok {
		s.setProject(project)
		return s
	}
	s := NewSession(project, customerID, r.deps)
	s.now = r.now
	s.lastUsed = r.now()
	r.sessions[key] = s
	metrics.ActiveSessions.Set(float64(len(r.sessions)))
	return s
}

// Sweep drops sessions without open views that were idle longer than
// maxIdle. A later Acquire starts over with a fresh preload.
func (r *Registry) Sweep(maxIdle time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	now := r.now()
	for key, s := range r.sessions {
		lastUsed, idle := s.idleSince()
		if idle && now.Sub(lastUsed) > maxIdle {
			delete(r.sessions, key)
			removed++
		}
	}
	metrics.ActiveSessions.Set(float64(len(r.sessions)))
	if removed > 0 {
		logger.Log.Info("idle sessions swept",
			"component", "session_registry",
			"removed", removed,
			"remaining", len(r.sessions))
	}
	return removed
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
