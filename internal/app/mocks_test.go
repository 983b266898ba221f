package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/pscheid92/syncpulse/internal/domain"
)

type mockSession struct {
	id string

	mu             sync.Mutex
	alive          bool
	online         bool
	pollInterval   time.Duration
	pollTimeout    time.Duration
	prunes         []time.Time
	leftRooms      bool
	releases       int
	refreshes      int
	pruneErr       error
	panicOnRelease bool
}

func newMockSession(id string) *mockSession {
	return &mockSession{id: id, alive: true, online: true}
}

func (s *mockSession) ID() string { return s.id }

func (s *mockSession) IsAlive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.alive
}

func (s *mockSession) SetOnline(online bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.online = online
}

func (s *mockSession) SetPollInterval(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pollInterval = d
}

func (s *mockSession) SetPollTimeout(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pollTimeout = d
}

func (s *mockSession) PruneMediaOlderThan(threshold time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prunes = append(s.prunes, threshold)
	return s.pruneErr
}

func (s *mockSession) HasUnreleasedLeftRoomData() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.leftRooms
}

func (s *mockSession) ReleaseLeftRoomData() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.panicOnRelease {
		panic("left room cache corrupted")
	}
	s.releases++
	s.leftRooms = false
	return nil
}

func (s *mockSession) RefreshOwnProfile(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshes++
	return nil
}

func (s *mockSession) isOnline() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.online
}

func (s *mockSession) getPollInterval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pollInterval
}

func (s *mockSession) pruneCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.prunes)
}

func (s *mockSession) releaseCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.releases
}

type mockProvider struct {
	sessions []domain.Session
}

func (p *mockProvider) AllKnownSessions() []domain.Session { return p.sessions }

type mockCalls struct {
	mu      sync.Mutex
	active  bool
	checks  int
	panicky bool
}

func (m *mockCalls) HasActiveCall() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.panicky {
		panic("call state unavailable")
	}
	return m.active
}

func (m *mockCalls) CheckEndedCalls(context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checks++
}

func (m *mockCalls) setActive(active bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = active
}

type mockTelemetry struct {
	mu         sync.Mutex
	flushes    int
	dispatches int
	tracked    []domain.ScreenID
	flushErr   error
}

func (m *mockTelemetry) Flush(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flushes++
	return m.flushErr
}

func (m *mockTelemetry) DispatchDecryptionFailures(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dispatches++
	return nil
}

func (m *mockTelemetry) TrackScreen(_ context.Context, screen domain.Screen) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tracked = append(m.tracked, screen.ID)
}

func (m *mockTelemetry) flushCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.flushes
}

type mockPresence struct {
	mu          sync.Mutex
	online      int
	unavailable int
}

func (m *mockPresence) AdvertiseOnline(context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.online++
}

func (m *mockPresence) AdvertiseUnavailable(context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unavailable++
}

func (m *mockPresence) counts() (online, unavailable int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online, m.unavailable
}

type mockGestures struct {
	mu      sync.Mutex
	running bool
}

func (m *mockGestures) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running = true
}

func (m *mockGestures) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running = false
}

func (m *mockGestures) isRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

type mockStream struct {
	mu      sync.Mutex
	pauses  int
	resumes int
}

func (m *mockStream) Pause(context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pauses++
}

func (m *mockStream) Resume(context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resumes++
}

type mockContacts struct {
	mu        sync.Mutex
	clears    int
	refreshes int
}

func (m *mockContacts) ClearSnapshot() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clears++
}

func (m *mockContacts) RefreshSnapshot(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshes++
	return errors.New("directory unreachable")
}

type mockPush struct {
	mu      sync.Mutex
	checks  int
	resumed int
}

func (m *mockPush) CheckRegistration(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checks++
	return nil
}

func (m *mockPush) OnAppResumed(context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resumed++
}

// mockGuard records locale guard calls.
type mockGuard struct {
	mu       sync.Mutex
	current  domain.LocaleState
	checks   []domain.ScreenID
	restarts []domain.ScreenID
	inits    int
}

func (g *mockGuard) Init(context.Context) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.inits++
}

func (g *mockGuard) Current(context.Context) domain.LocaleState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.current
}

func (g *mockGuard) Check(_ context.Context, screen *domain.Screen) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if screen == nil {
		g.checks = append(g.checks, "")
	} else {
		g.checks = append(g.checks, screen.ID)
	}
	return false
}

func (g *mockGuard) RestartScreen(_ context.Context, screen *domain.Screen) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.restarts = append(g.restarts, screen.ID)
}

func (g *mockGuard) setCurrent(state domain.LocaleState) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.current = state
}

func (g *mockGuard) getChecks() []domain.ScreenID {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]domain.ScreenID(nil), g.checks...)
}

func (g *mockGuard) getRestarts() []domain.ScreenID {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]domain.ScreenID(nil), g.restarts...)
}

type mockCrashes struct {
	mu    sync.Mutex
	marks int
}

func (m *mockCrashes) MarkCrashed(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.marks++
	return nil
}

func (m *mockCrashes) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.marks
}
