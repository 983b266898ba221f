package standalone

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pscheid92/syncpulse/internal/adapter/memory"
	"github.com/pscheid92/syncpulse/internal/adapter/metrics"
	"github.com/pscheid92/syncpulse/internal/app"
	"github.com/pscheid92/syncpulse/internal/domain"
	"github.com/pscheid92/syncpulse/internal/locale"
	"github.com/pscheid92/syncpulse/internal/session"
)

type envStub struct{ state domain.LocaleState }

func (e *envStub) Current() domain.LocaleState { return e.state }

func (e *envStub) Apply(state domain.LocaleState) error {
	e.state = state
	return nil
}

type hostStub struct{}

func (hostStub) Restart(domain.ScreenID) error { return nil }

func TestSession_PruneMediaOlderThan(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := NewSession("@alice:example.org", clock)

	s.CacheMedia("old.jpg")
	clock.Advance(48 * time.Hour)
	s.CacheMedia("new.jpg")

	require.NoError(t, s.PruneMediaOlderThan(clock.Now().Add(-24*time.Hour)))

	assert.Equal(t, 1, s.Status().CachedMedia)
}

func TestSession_LeftRoomData(t *testing.T) {
	s := NewSession("@alice:example.org", clockwork.NewFakeClock())
	assert.False(t, s.HasUnreleasedLeftRoomData())

	s.LeaveRoom()
	s.LeaveRoom()
	assert.True(t, s.HasUnreleasedLeftRoomData())

	require.NoError(t, s.ReleaseLeftRoomData())
	assert.False(t, s.HasUnreleasedLeftRoomData())
}

func TestSession_RefreshOwnProfileHonoursContext(t *testing.T) {
	s := NewSession("@alice:example.org", clockwork.NewFakeClock())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, s.RefreshOwnProfile(ctx), context.Canceled)
	assert.NoError(t, s.RefreshOwnProfile(context.Background()))
	assert.Equal(t, 1, s.Status().ProfileRefreshes)
}

func TestProvider_SortsByID(t *testing.T) {
	clock := clockwork.NewFakeClock()
	p := NewProvider(NewSession("@carol:example.org", clock), NewSession("@alice:example.org", clock))
	p.Add(NewSession("@bob:example.org", clock))

	var ids []string
	for _, s := range p.AllKnownSessions() {
		ids = append(ids, s.ID())
	}

	assert.Equal(t, []string{"@alice:example.org", "@bob:example.org", "@carol:example.org"}, ids)
	_, ok := p.Get("@bob:example.org")
	assert.True(t, ok)
}

func TestTelemetry_FlushDrainsPending(t *testing.T) {
	tel := &Telemetry{}
	ctx := context.Background()
	tel.TrackScreen(ctx, domain.Screen{ID: "a"})
	tel.TrackScreen(ctx, domain.Screen{ID: "b"})

	require.NoError(t, tel.Flush(ctx))
	require.NoError(t, tel.Flush(ctx))

	pending, flushed := tel.counts()
	assert.Zero(t, pending)
	assert.Equal(t, 2, flushed)
}

func TestServices_DriveSuspendAndResume(t *testing.T) {
	clock := clockwork.NewFakeClock()
	alice := NewSession("@alice:example.org", clock)
	bob := NewSession("@bob:example.org", clock)
	bob.LeaveRoom()
	services := NewServices(NewProvider(alice, bob))

	reg := prometheus.NewRegistry()
	m := metrics.NewLifecycleMetrics(reg)
	env := &envStub{state: domain.LocaleState{Language: "en", Country: "US", FontScale: 1, Theme: "light"}}
	store := locale.NewStore(memory.NewPreferenceStore(), env, env.state)
	guard := locale.NewGuard(store, env, hostStub{}, m)
	policy := app.StaticSyncPolicy{SyncAllowed: true, PollInterval: time.Minute, PollTimeout: 30 * time.Second}

	tracker := app.New(app.Config{TransitionDelay: 4 * time.Second}, session.NewRegistry(metrics.NewRegistryMetrics(reg)), guard, services.Collaborators(policy), clock, m)
	t.Cleanup(tracker.Shutdown)
	ctx := context.Background()
	tracker.Init(ctx)

	screen := domain.Screen{ID: "home-1", Kind: "home"}
	tracker.OnScreenCreated(ctx, screen)
	tracker.OnScreenResumed(ctx, screen)

	status := services.Status()
	assert.Equal(t, "online", status.Presence)
	assert.True(t, status.GesturesRunning)
	assert.True(t, status.ContactSnapshot)
	assert.Equal(t, int64(1), status.PushChecks)

	tracker.OnScreenPaused(ctx, screen)
	clock.Advance(4 * time.Second)
	require.Eventually(t, func() bool { return tracker.State().Suspended }, time.Second, 5*time.Millisecond)

	status = services.Status()
	assert.Equal(t, "unavailable", status.Presence)
	assert.False(t, status.GesturesRunning)
	assert.False(t, status.StreamPaused)
	assert.Zero(t, status.PendingTelemetry)
	for _, s := range status.Sessions {
		assert.False(t, s.Online, s.ID)
		assert.Equal(t, time.Minute, s.PollInterval, s.ID)
		assert.Zero(t, s.LeftRooms, s.ID)
	}

	tracker.OnScreenResumed(ctx, screen)

	status = services.Status()
	assert.Equal(t, "online", status.Presence)
	assert.Equal(t, int64(2), status.PushChecks)
	for _, s := range status.Sessions {
		assert.True(t, s.Online, s.ID)
	}
}
