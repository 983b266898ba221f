package session

import (
	"sort"
	"sync"

	"github.com/pscheid92/syncpulse/internal/adapter/metrics"
	"github.com/pscheid92/syncpulse/internal/domain"
)

// Registry is the set of sessions currently kept online.
type Registry struct {
	metrics *metrics.RegistryMetrics

	mu       sync.Mutex
	sessions map[string]domain.Session
}

// NewRegistry creates an empty registry. m may be nil.
func NewRegistry(m *metrics.RegistryMetrics) *Registry {
	return &Registry{
		metrics:  m,
		sessions: make(map[string]domain.Session),
	}
}

// Add registers a session. Adding a session twice keeps one entry.
func (r *Registry) Add(s domain.Session) {
	if s == nil {
		return
	}
	r.mu.Lock()
	r.sessions[s.ID()] = s
	r.observe()
	r.mu.Unlock()
}

// Remove unregisters a session. Removing an unknown session is a no-op.
func (r *Registry) Remove(s domain.Session) {
	if s == nil {
		return
	}
	r.mu.Lock()
	delete(r.sessions, s.ID())
	r.observe()
	r.mu.Unlock()
}

func (r *Registry) Clear() {
	r.mu.Lock()
	clear(r.sessions)
	r.observe()
	r.mu.Unlock()
}

func (r *Registry) Contains(s domain.Session) bool {
	if s == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sessions[s.ID()]
	return ok
}

// Snapshot returns a copy of the registered sessions ordered by ID.
func (r *Registry) Snapshot() []domain.Session {
	r.mu.Lock()
	out := make([]domain.Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// observe must be called with mu held.
func (r *Registry) observe() {
	if r.metrics != nil {
		r.metrics.Sessions.Set(float64(len(r.sessions)))
	}
}
