package domain

import "context"

// CallManager exposes the call state of the application.
type CallManager interface {
	HasActiveCall() bool
	// CheckEndedCalls cleans up calls that ended while backgrounded.
	CheckEndedCalls(ctx context.Context)
}

// TelemetrySink buffers analytics and decryption-failure reports.
// Flush and DispatchDecryptionFailures must be no-ops when nothing is pending.
type TelemetrySink interface {
	Flush(ctx context.Context) error
	DispatchDecryptionFailures(ctx context.Context) error
	TrackScreen(ctx context.Context, screen Screen)
}

type ContactDirectory interface {
	ClearSnapshot()
	RefreshSnapshot(ctx context.Context) error
}

type PushRegistrar interface {
	CheckRegistration(ctx context.Context) error
	OnAppResumed(ctx context.Context)
}

// GestureDetector detects the bug-report gesture.
type GestureDetector interface {
	Start()
	Stop()
}

// PresencePublisher advertises the user's presence on every session.
type PresencePublisher interface {
	AdvertiseOnline(ctx context.Context)
	AdvertiseUnavailable(ctx context.Context)
}

// EventStream is the background service running the session sync loops.
type EventStream interface {
	Pause(ctx context.Context)
	Resume(ctx context.Context)
}

// Collaborators bundles every external dependency of the suspend/resume
// sequences. Nil fields are treated as no-ops.
type Collaborators struct {
	Sessions  SessionProvider
	Calls     CallManager
	Telemetry TelemetrySink
	Contacts  ContactDirectory
	Push      PushRegistrar
	Gestures  GestureDetector
	Presence  PresencePublisher
	Stream    EventStream
	Policy    SyncPolicy
}
