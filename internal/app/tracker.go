package app

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/pscheid92/syncpulse/internal/adapter/metrics"
	"github.com/pscheid92/syncpulse/internal/domain"
	"github.com/pscheid92/syncpulse/internal/platform/correlation"
	"github.com/pscheid92/syncpulse/internal/session"
)

const defaultTransitionDelay = 4 * time.Second

// LocaleGuard keeps screens consistent with the persisted locale.
type LocaleGuard interface {
	Init(ctx context.Context)
	Current(ctx context.Context) domain.LocaleState
	Check(ctx context.Context, screen *domain.Screen) bool
	RestartScreen(ctx context.Context, screen *domain.Screen)
}

type Config struct {
	// TransitionDelay is how long no screen may be active before the app
	// counts as backgrounded.
	TransitionDelay time.Duration
	Coordinator     CoordinatorConfig

	// Crashes records panics on the transition timer goroutine. Optional.
	Crashes CrashRecorder
}

// TrackerState is a point-in-time view of the tracker.
type TrackerState struct {
	ActiveScreen   *domain.Screen    `json:"active_screen"`
	Background     bool              `json:"background"`
	Suspended      bool              `json:"suspended"`
	Timer          string            `json:"timer"`
	Sessions       int               `json:"sessions"`
	CreatedScreens []domain.ScreenID `json:"created_screens"`
}

// Tracker turns screen lifecycle events into foreground/background
// transitions.
//
// Events must be delivered from one goroutine at a time (see Dispatcher).
// The transition timer fires on its own goroutine; both paths serialize on mu.
type Tracker struct {
	guard       LocaleGuard
	calls       domain.CallManager
	crashes     CrashRecorder
	registry    *session.Registry
	coordinator *Coordinator
	metrics     *metrics.LifecycleMetrics

	mu         sync.Mutex
	active     *domain.Screen
	background bool
	timer      *TransitionTimer
	snapshots  map[domain.ScreenID]domain.LocaleState
	created    map[domain.ScreenID]domain.Screen
}

// New wires a tracker with its coordinator and transition timer.
func New(cfg Config, registry *session.Registry, guard LocaleGuard, collab domain.Collaborators, clock clockwork.Clock, m *metrics.LifecycleMetrics) *Tracker {
	if cfg.TransitionDelay == 0 {
		cfg.TransitionDelay = defaultTransitionDelay
	}

	t := &Tracker{
		guard:       guard,
		calls:       collab.Calls,
		crashes:     cfg.Crashes,
		registry:    registry,
		coordinator: NewCoordinator(registry, collab, clock, cfg.Coordinator, m),
		metrics:     m,
		background:  true,
		snapshots:   make(map[domain.ScreenID]domain.LocaleState),
		created:     make(map[domain.ScreenID]domain.Screen),
	}
	t.timer = NewTransitionTimer(&t.mu, clock, cfg.TransitionDelay, t.onTransitionTimeout)
	return t
}

// Init applies the persisted locale onto the environment.
func (t *Tracker) Init(ctx context.Context) {
	t.guard.Init(ctx)
}

// Shutdown cancels a pending transition and refuses further arming.
func (t *Tracker) Shutdown() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.timer.Stop()
}

func (t *Tracker) OnScreenCreated(ctx context.Context, screen domain.Screen) {
	t.mu.Lock()
	t.created[screen.ID] = screen
	t.mu.Unlock()

	slog.DebugContext(ctx, "Screen created", "screen_id", screen.ID, "kind", screen.Kind)
	t.coordinator.TrackScreen(ctx, screen)
}

func (t *Tracker) OnScreenResumed(ctx context.Context, screen domain.Screen) {
	t.mu.Lock()
	t.active = &screen
	t.metrics.Foreground.Set(1)
	if t.timer.Cancel() {
		t.metrics.TimerCancels.Inc()
	}

	if t.background {
		slog.InfoContext(ctx, "App returned to foreground", "screen_id", screen.ID)
		t.background = false
		t.coordinator.Resume(ctx)
	} else {
		t.coordinator.RestoreOnline(ctx)
	}

	snapshot, hadSnapshot := t.snapshots[screen.ID]
	delete(t.snapshots, screen.ID)
	t.mu.Unlock()

	slog.DebugContext(ctx, "Screen resumed", "screen_id", screen.ID)

	if hadSnapshot {
		if current := t.guard.Current(ctx); current != snapshot {
			slog.InfoContext(ctx, "Locale changed while screen was paused",
				"screen_id", screen.ID, "was", snapshot.String(), "now", current.String())
			// Check forces the persisted tuple onto a drifted environment and
			// restarts the screen itself.
			if !t.guard.Check(ctx, &screen) {
				t.guard.RestartScreen(ctx, &screen)
			}
			return
		}
	}
	t.guard.Check(ctx, &screen)
}

func (t *Tracker) OnScreenPaused(ctx context.Context, screen domain.Screen) {
	current := t.guard.Current(ctx)

	t.mu.Lock()
	t.snapshots[screen.ID] = current
	if t.active != nil && t.active.ID == screen.ID {
		t.active = nil
		t.metrics.Foreground.Set(0)
	}
	if t.active == nil && !t.background && t.timer.State() == TimerIdle {
		if err := t.timer.Arm(); err != nil {
			slog.ErrorContext(ctx, "Failed to schedule background transition", "error", err)
			t.metrics.TimerFailures.Inc()
		} else {
			slog.DebugContext(ctx, "Background transition armed", "delay", t.timer.Delay())
			t.metrics.TimerArms.Inc()
		}
	}
	t.mu.Unlock()

	slog.DebugContext(ctx, "Screen paused", "screen_id", screen.ID)
	t.coordinator.FlushTelemetry(ctx)
}

func (t *Tracker) OnScreenDestroyed(ctx context.Context, screen domain.Screen) {
	t.mu.Lock()
	delete(t.snapshots, screen.ID)
	delete(t.created, screen.ID)
	alive := t.createdIDs()
	t.mu.Unlock()

	slog.DebugContext(ctx, "Screen destroyed", "screen_id", screen.ID)
	if len(alive) > 1 {
		slog.InfoContext(ctx, "Multiple screens still alive", "count", len(alive), "screens", alive)
	}
}

// OnEnvironmentChanged checks the active screen against the persisted locale
// after the environment reported a configuration change.
func (t *Tracker) OnEnvironmentChanged(ctx context.Context) {
	t.mu.Lock()
	var active *domain.Screen
	if t.active != nil {
		screen := *t.active
		active = &screen
	}
	t.mu.Unlock()

	t.guard.Check(ctx, active)
}

// OnLocaleUpdated restarts the active screen so it renders with a locale
// tuple that was just persisted and applied.
func (t *Tracker) OnLocaleUpdated(ctx context.Context) {
	t.mu.Lock()
	var active *domain.Screen
	if t.active != nil {
		screen := *t.active
		active = &screen
	}
	t.mu.Unlock()

	if active == nil {
		slog.DebugContext(ctx, "Locale updated with no active screen")
		return
	}
	t.guard.RestartScreen(ctx, active)
}

// IsInBackground reports whether the app is currently backgrounded.
func (t *Tracker) IsInBackground() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active == nil && t.background
}

func (t *Tracker) State() TrackerState {
	t.mu.Lock()
	defer t.mu.Unlock()

	state := TrackerState{
		Background:     t.background,
		Suspended:      t.coordinator.Suspended(),
		Timer:          t.timer.State().String(),
		Sessions:       t.registry.Len(),
		CreatedScreens: t.createdIDs(),
	}
	if t.active != nil {
		screen := *t.active
		state.ActiveScreen = &screen
	}
	return state
}

func (t *Tracker) createdIDs() []domain.ScreenID {
	ids := make([]domain.ScreenID, 0, len(t.created))
	for id := range t.created {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// onTransitionTimeout runs on the timer goroutine with mu held.
func (t *Tracker) onTransitionTimeout() {
	ctx := correlation.WithID(context.Background(), correlation.NewID())
	t.metrics.TimerFires.Inc()

	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "Background transition panicked", "panic", r)
			recordCrash(ctx, t.crashes)
		}
	}()

	if t.active != nil {
		slog.WarnContext(ctx, "Background transition fired with an active screen", "screen_id", t.active.ID)
		return
	}

	t.background = true
	if t.calls != nil && t.calls.HasActiveCall() {
		slog.InfoContext(ctx, "App not suspended due to call in progress")
		t.metrics.SuspendVetoes.Inc()
		return
	}

	slog.InfoContext(ctx, "App moved to background", "delay", t.timer.Delay())
	t.coordinator.Suspend(ctx)
}
