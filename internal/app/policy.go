package app

import (
	"time"

	"github.com/pscheid92/syncpulse/internal/domain"
)

// StaticSyncPolicy is a SyncPolicy fixed at startup.
type StaticSyncPolicy struct {
	SyncAllowed  bool
	PollInterval time.Duration
	PollTimeout  time.Duration
	PushEnabled  bool
}

func (p StaticSyncPolicy) Background() domain.BackgroundPolicy {
	return domain.BackgroundPolicy{
		SyncAllowed:      p.SyncAllowed,
		PollInterval:     p.PollInterval,
		PollTimeout:      p.PollTimeout,
		PauseEventStream: !p.SyncAllowed || p.PushEnabled,
	}
}
