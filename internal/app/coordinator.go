package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/pscheid92/syncpulse/internal/adapter/metrics"
	"github.com/pscheid92/syncpulse/internal/domain"
	"github.com/pscheid92/syncpulse/internal/session"
)

const (
	defaultPruneInterval  = 24 * time.Hour
	defaultMediaRetention = 7 * 24 * time.Hour
)

// CoordinatorConfig holds the media pruning settings.
type CoordinatorConfig struct {
	// PruneInterval is the minimum time between two media prune passes.
	PruneInterval time.Duration
	// MediaRetention is the age beyond which cached media is pruned.
	MediaRetention time.Duration
}

// Coordinator runs the suspend and resume side effects across sessions and
// collaborators. It is not safe for concurrent use; Tracker calls it with
// its mutex held.
type Coordinator struct {
	registry *session.Registry
	collab   domain.Collaborators
	clock    clockwork.Clock
	cfg      CoordinatorConfig
	metrics  *metrics.LifecycleMetrics

	suspended bool
	lastPrune time.Time
}

func NewCoordinator(registry *session.Registry, collab domain.Collaborators, clock clockwork.Clock, cfg CoordinatorConfig, m *metrics.LifecycleMetrics) *Coordinator {
	if cfg.PruneInterval <= 0 {
		cfg.PruneInterval = defaultPruneInterval
	}
	if cfg.MediaRetention <= 0 {
		cfg.MediaRetention = defaultMediaRetention
	}
	return &Coordinator{
		registry: registry,
		collab:   collab,
		clock:    clock,
		cfg:      cfg,
		metrics:  m,
	}
}

// Suspended reports whether Suspend ran without a Resume since.
func (c *Coordinator) Suspended() bool {
	return c.suspended
}

// Suspend takes every registered session offline and releases background
// resources. A second Suspend without a Resume in between does nothing.
func (c *Coordinator) Suspend(ctx context.Context) {
	if c.suspended {
		slog.DebugContext(ctx, "Already suspended, skipping")
		c.metrics.SuspendsSkipped.Inc()
		return
	}
	c.suspended = true
	c.metrics.Suspends.Inc()

	policy := c.backgroundPolicy()
	if policy.PauseEventStream && c.collab.Stream != nil {
		c.call(ctx, "pause_event_stream", func() error {
			c.collab.Stream.Pause(ctx)
			return nil
		})
	}

	pollInterval := time.Duration(0)
	if policy.SyncAllowed {
		pollInterval = policy.PollInterval
	}

	now := c.clock.Now()
	prune := c.lastPrune.IsZero() || now.Sub(c.lastPrune) >= c.cfg.PruneInterval
	if prune {
		c.lastPrune = now
		c.metrics.MediaPrunes.Inc()
	}
	threshold := now.Add(-c.cfg.MediaRetention)

	sessions := c.registry.Snapshot()
	slog.InfoContext(ctx, "Suspending sessions", "sessions", len(sessions), "prune_media", prune)

	for _, s := range sessions {
		if !s.IsAlive() {
			continue
		}
		c.step(ctx, s, "go_offline", func() error {
			s.SetOnline(false)
			s.SetPollInterval(pollInterval)
			s.SetPollTimeout(policy.PollTimeout)
			return nil
		})
		if prune {
			c.step(ctx, s, "prune_media", func() error {
				return s.PruneMediaOlderThan(threshold)
			})
		}
		c.step(ctx, s, "release_left_rooms", func() error {
			if !s.HasUnreleasedLeftRoomData() {
				return nil
			}
			return s.ReleaseLeftRoomData()
		})
	}

	c.registry.Clear()

	if c.collab.Telemetry != nil {
		c.call(ctx, "dispatch_decryption_failures", func() error {
			return c.collab.Telemetry.DispatchDecryptionFailures(ctx)
		})
		c.call(ctx, "flush_telemetry", func() error {
			return c.collab.Telemetry.Flush(ctx)
		})
	}
	if c.collab.Presence != nil {
		c.call(ctx, "advertise_unavailable", func() error {
			c.collab.Presence.AdvertiseUnavailable(ctx)
			return nil
		})
	}
	if c.collab.Gestures != nil {
		c.call(ctx, "stop_gestures", func() error {
			c.collab.Gestures.Stop()
			return nil
		})
	}
}

// Resume brings every known session back online and refreshes the state that
// went stale while suspended.
func (c *Coordinator) Resume(ctx context.Context) {
	c.suspended = false
	c.metrics.Resumes.Inc()

	var sessions []domain.Session
	if c.collab.Sessions != nil {
		sessions = c.collab.Sessions.AllKnownSessions()
	}
	slog.InfoContext(ctx, "Resuming sessions", "sessions", len(sessions))

	for _, s := range sessions {
		if s == nil {
			continue
		}
		c.step(ctx, s, "refresh_profile", func() error {
			return s.RefreshOwnProfile(ctx)
		})
		c.step(ctx, s, "go_online", func() error {
			s.SetOnline(true)
			s.SetPollInterval(0)
			s.SetPollTimeout(0)
			return nil
		})
		c.registry.Add(s)
	}

	if c.collab.Stream != nil {
		c.call(ctx, "resume_event_stream", func() error {
			c.collab.Stream.Resume(ctx)
			return nil
		})
	}
	if c.collab.Contacts != nil {
		c.call(ctx, "refresh_contacts", func() error {
			c.collab.Contacts.ClearSnapshot()
			return c.collab.Contacts.RefreshSnapshot(ctx)
		})
	}
	if c.collab.Calls != nil {
		c.call(ctx, "check_ended_calls", func() error {
			c.collab.Calls.CheckEndedCalls(ctx)
			return nil
		})
	}
	if c.collab.Push != nil {
		c.call(ctx, "check_push_registration", func() error {
			return c.collab.Push.CheckRegistration(ctx)
		})
		c.call(ctx, "push_app_resumed", func() error {
			c.collab.Push.OnAppResumed(ctx)
			return nil
		})
	}

	c.RestoreOnline(ctx)
}

// RestoreOnline advertises online presence and restarts gesture detection.
func (c *Coordinator) RestoreOnline(ctx context.Context) {
	if c.collab.Presence != nil {
		c.call(ctx, "advertise_online", func() error {
			c.collab.Presence.AdvertiseOnline(ctx)
			return nil
		})
	}
	if c.collab.Gestures != nil {
		c.call(ctx, "start_gestures", func() error {
			c.collab.Gestures.Start()
			return nil
		})
	}
}

// FlushTelemetry dispatches pending decryption failures and analytics.
func (c *Coordinator) FlushTelemetry(ctx context.Context) {
	if c.collab.Telemetry == nil {
		return
	}
	c.call(ctx, "dispatch_decryption_failures", func() error {
		return c.collab.Telemetry.DispatchDecryptionFailures(ctx)
	})
	c.call(ctx, "flush_telemetry", func() error {
		return c.collab.Telemetry.Flush(ctx)
	})
}

// TrackScreen reports a screen view to analytics.
func (c *Coordinator) TrackScreen(ctx context.Context, screen domain.Screen) {
	if c.collab.Telemetry == nil {
		return
	}
	c.call(ctx, "track_screen", func() error {
		c.collab.Telemetry.TrackScreen(ctx, screen)
		return nil
	})
}

func (c *Coordinator) backgroundPolicy() domain.BackgroundPolicy {
	if c.collab.Policy == nil {
		return domain.BackgroundPolicy{}
	}
	return c.collab.Policy.Background()
}

func (c *Coordinator) step(ctx context.Context, s domain.Session, name string, fn func() error) {
	if err := guarded(fn); err != nil {
		slog.WarnContext(ctx, "Session step failed", "session_id", s.ID(), "step", name, "error", err)
		c.metrics.StepFailures.WithLabelValues(name).Inc()
	}
}

func (c *Coordinator) call(ctx context.Context, name string, fn func() error) {
	if err := guarded(fn); err != nil {
		slog.WarnContext(ctx, "Collaborator call failed", "step", name, "error", err)
		c.metrics.StepFailures.WithLabelValues(name).Inc()
	}
}

// guarded runs fn and turns a panic into an error.
func guarded(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}
