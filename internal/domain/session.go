package domain

import (
	"context"
	"time"
)

// Session is one authenticated connection performing background sync with a
// remote service. Implementations must be safe for use from multiple goroutines.
type Session interface {
	ID() string
	IsAlive() bool

	// Sync behaviour

	SetOnline(online bool)
	SetPollInterval(interval time.Duration)
	SetPollTimeout(timeout time.Duration)

	// Cache maintenance

	PruneMediaOlderThan(threshold time.Time) error
	HasUnreleasedLeftRoomData() bool
	ReleaseLeftRoomData() error

	RefreshOwnProfile(ctx context.Context) error
}

// SessionProvider lists every session known to the application, whether or
// not it is currently registered for foreground sync.
type SessionProvider interface {
	AllKnownSessions() []Session
}

// BackgroundPolicy holds the sync settings applied to sessions on suspend.
type BackgroundPolicy struct {
	SyncAllowed  bool
	PollInterval time.Duration
	PollTimeout  time.Duration

	// PauseEventStream is true when the event stream must be paused while
	// backgrounded (push delivery in use, or background sync disallowed).
	PauseEventStream bool
}

// SyncPolicy provides the background sync settings.
type SyncPolicy interface {
	Background() BackgroundPolicy
}
