// Package standalone provides in-process sessions and collaborators for
// running the coordinator without a real sync backend. Every collaborator
// keeps just enough state to be observed through the status API.
package standalone

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/pscheid92/syncpulse/internal/domain"
)

// Session is an in-memory domain.Session.
type Session struct {
	id    string
	clock clockwork.Clock

	mu               sync.Mutex
	alive            bool
	online           bool
	pollInterval     time.Duration
	pollTimeout      time.Duration
	media            map[string]time.Time
	leftRooms        int
	profileRefreshes int
}

var _ domain.Session = (*Session)(nil)

func NewSession(id string, clock clockwork.Clock) *Session {
	return &Session{
		id:     id,
		clock:  clock,
		alive:  true,
		online: true,
		media:  make(map[string]time.Time),
	}
}

func (s *Session) ID() string { return s.id }

func (s *Session) IsAlive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.alive
}

// Close marks the session as logged out. Closed sessions are skipped on suspend.
func (s *Session) Close() {
	s.mu.Lock()
	s.alive = false
	s.mu.Unlock()
}

func (s *Session) SetOnline(online bool) {
	s.mu.Lock()
	s.online = online
	s.mu.Unlock()
	slog.Debug("Session presence changed", "session_id", s.id, "online", online)
}

func (s *Session) SetPollInterval(interval time.Duration) {
	s.mu.Lock()
	s.pollInterval = interval
	s.mu.Unlock()
}

func (s *Session) SetPollTimeout(timeout time.Duration) {
	s.mu.Lock()
	s.pollTimeout = timeout
	s.mu.Unlock()
}

// CacheMedia records a media file as last accessed now.
func (s *Session) CacheMedia(name string) {
	s.mu.Lock()
	s.media[name] = s.clock.Now()
	s.mu.Unlock()
}

func (s *Session) PruneMediaOlderThan(threshold time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pruned := 0
	for name, accessed := range s.media {
		if accessed.Before(threshold) {
			delete(s.media, name)
			pruned++
		}
	}
	if pruned > 0 {
		slog.Info("Pruned media cache", "session_id", s.id, "files", pruned, "threshold", threshold)
	}
	return nil
}

// LeaveRoom records left-room data waiting to be released.
func (s *Session) LeaveRoom() {
	s.mu.Lock()
	s.leftRooms++
	s.mu.Unlock()
}

func (s *Session) HasUnreleasedLeftRoomData() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.leftRooms > 0
}

func (s *Session) ReleaseLeftRoomData() error {
	s.mu.Lock()
	released := s.leftRooms
	s.leftRooms = 0
	s.mu.Unlock()
	slog.Debug("Released left room data", "session_id", s.id, "rooms", released)
	return nil
}

func (s *Session) RefreshOwnProfile(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.profileRefreshes++
	s.mu.Unlock()
	return nil
}

// SessionStatus is a point-in-time view of a Session.
type SessionStatus struct {
	ID               string        `json:"id"`
	Alive            bool          `json:"alive"`
	Online           bool          `json:"online"`
	PollInterval     time.Duration `json:"poll_interval"`
	PollTimeout      time.Duration `json:"poll_timeout"`
	CachedMedia      int           `json:"cached_media"`
	LeftRooms        int           `json:"left_rooms"`
	ProfileRefreshes int           `json:"profile_refreshes"`
}

func (s *Session) Status() SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SessionStatus{
		ID:               s.id,
		Alive:            s.alive,
		Online:           s.online,
		PollInterval:     s.pollInterval,
		PollTimeout:      s.pollTimeout,
		CachedMedia:      len(s.media),
		LeftRooms:        s.leftRooms,
		ProfileRefreshes: s.profileRefreshes,
	}
}

// Provider is the domain.SessionProvider over a fixed set of sessions.
type Provider struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

var _ domain.SessionProvider = (*Provider)(nil)

func NewProvider(sessions ...*Session) *Provider {
	p := &Provider{sessions: make(map[string]*Session, len(sessions))}
	for _, s := range sessions {
		p.sessions[s.ID()] = s
	}
	return p
}

func (p *Provider) Add(s *Session) {
	p.mu.Lock()
	p.sessions[s.ID()] = s
	p.mu.Unlock()
}

func (p *Provider) Get(id string) (*Session, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.sessions[id]
	return s, ok
}

// AllKnownSessions returns the sessions ordered by ID.
func (p *Provider) AllKnownSessions() []domain.Session {
	p.mu.RLock()
	defer p.mu.RUnlock()

	ids := make([]string, 0, len(p.sessions))
	for id := range p.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]domain.Session, 0, len(ids))
	for _, id := range ids {
		out = append(out, p.sessions[id])
	}
	return out
}

func (p *Provider) Statuses() []SessionStatus {
	sessions := p.AllKnownSessions()
	out := make([]SessionStatus, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s.(*Session).Status())
	}
	return out
}
