package standalone

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/pscheid92/syncpulse/internal/domain"
)

// Calls is a domain.CallManager whose active-call flag is set externally.
type Calls struct {
	active atomic.Bool
	ended  atomic.Int64
}

func (c *Calls) SetActive(active bool) { c.active.Store(active) }

func (c *Calls) HasActiveCall() bool { return c.active.Load() }

func (c *Calls) CheckEndedCalls(ctx context.Context) {
	c.ended.Add(1)
	slog.DebugContext(ctx, "Checked for calls ended in background")
}

// Telemetry buffers screen views until flushed.
type Telemetry struct {
	mu      sync.Mutex
	pending []domain.ScreenID
	flushed int
}

func (t *Telemetry) TrackScreen(_ context.Context, screen domain.Screen) {
	t.mu.Lock()
	t.pending = append(t.pending, screen.ID)
	t.mu.Unlock()
}

func (t *Telemetry) Flush(ctx context.Context) error {
	t.mu.Lock()
	n := len(t.pending)
	t.pending = nil
	t.flushed += n
	t.mu.Unlock()

	if n > 0 {
		slog.DebugContext(ctx, "Telemetry flushed", "events", n)
	}
	return nil
}

func (t *Telemetry) DispatchDecryptionFailures(ctx context.Context) error {
	slog.DebugContext(ctx, "No pending decryption failures")
	return nil
}

func (t *Telemetry) counts() (pending, flushed int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending), t.flushed
}

// Contacts holds a snapshot flag standing in for the device address book.
type Contacts struct {
	mu        sync.Mutex
	snapshot  bool
	refreshes int
}

func (c *Contacts) ClearSnapshot() {
	c.mu.Lock()
	c.snapshot = false
	c.mu.Unlock()
}

func (c *Contacts) RefreshSnapshot(_ context.Context) error {
	c.mu.Lock()
	c.snapshot = true
	c.refreshes++
	c.mu.Unlock()
	return nil
}

// Push logs registration checks.
type Push struct {
	checks  atomic.Int64
	resumes atomic.Int64
}

func (p *Push) CheckRegistration(ctx context.Context) error {
	p.checks.Add(1)
	slog.DebugContext(ctx, "Push registration checked")
	return nil
}

func (p *Push) OnAppResumed(ctx context.Context) {
	p.resumes.Add(1)
}

type Gestures struct {
	running atomic.Bool
}

func (g *Gestures) Start() { g.running.Store(true) }
func (g *Gestures) Stop() { g.running.Store(false) }

// Presence remembers the last advertised presence.
type Presence struct {
	mu    sync.Mutex
	state string
}

func (p *Presence) AdvertiseOnline(ctx context.Context) { p.set(ctx, "online") }
func (p *Presence) AdvertiseUnavailable(ctx context.Context) { p.set(ctx, "unavailable") }

func (p *Presence) set(ctx context.Context, state string) {
	p.mu.Lock()
	p.state = state
	p.mu.Unlock()
	slog.DebugContext(ctx, "Presence advertised", "presence", state)
}

func (p *Presence) current() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

type Stream struct {
	paused atomic.Bool
}

func (s *Stream) Pause(ctx context.Context) {
	s.paused.Store(true)
	slog.DebugContext(ctx, "Event stream paused")
}

func (s *Stream) Resume(ctx context.Context) {
	s.paused.Store(false)
	slog.DebugContext(ctx, "Event stream resumed")
}

// Services bundles the in-process collaborators.
type Services struct {
	Sessions  *Provider
	Calls     *Calls
	Telemetry *Telemetry
	Contacts  *Contacts
	Push      *Push
	Gestures  *Gestures
	Presence  *Presence
	Stream    *Stream
}

func NewServices(sessions *Provider) *Services {
	return &Services{
		Sessions:  sessions,
		Calls:     &Calls{},
		Telemetry: &Telemetry{},
		Contacts:  &Contacts{},
		Push:      &Push{},
		Gestures:  &Gestures{},
		Presence:  &Presence{},
		Stream:    &Stream{},
	}
}

// Collaborators wires the services into the coordinator's dependency bundle.
func (s *Services) Collaborators(policy domain.SyncPolicy) domain.Collaborators {
	return domain.Collaborators{
		Sessions:  s.Sessions,
		Calls:     s.Calls,
		Telemetry: s.Telemetry,
		Contacts:  s.Contacts,
		Push:      s.Push,
		Gestures:  s.Gestures,
		Presence:  s.Presence,
		Stream:    s.Stream,
		Policy:    policy,
	}
}

// Status is the observable state of every collaborator.
type Status struct {
	Sessions         []SessionStatus `json:"sessions"`
	ActiveCall       bool            `json:"active_call"`
	EndedCallChecks  int64           `json:"ended_call_checks"`
	PendingTelemetry int             `json:"pending_telemetry"`
	FlushedTelemetry int             `json:"flushed_telemetry"`
	ContactSnapshot  bool            `json:"contact_snapshot"`
	PushChecks       int64           `json:"push_checks"`
	GesturesRunning  bool            `json:"gestures_running"`
	Presence         string          `json:"presence"`
	StreamPaused     bool            `json:"stream_paused"`
}

func (s *Services) Status() Status {
	pending, flushed := s.Telemetry.counts()
	s.Contacts.mu.Lock()
	snapshot := s.Contacts.snapshot
	s.Contacts.mu.Unlock()

	return Status{
		Sessions:         s.Sessions.Statuses(),
		ActiveCall:       s.Calls.HasActiveCall(),
		EndedCallChecks:  s.Calls.ended.Load(),
		PendingTelemetry: pending,
		FlushedTelemetry: flushed,
		ContactSnapshot:  snapshot,
		PushChecks:       s.Push.checks.Load(),
		GesturesRunning:  s.Gestures.running.Load(),
		Presence:         s.Presence.current(),
		StreamPaused:     s.Stream.paused.Load(),
	}
}
