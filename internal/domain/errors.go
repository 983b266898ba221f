package domain

import "errors"

var (
	ErrTimerStopped       = errors.New("transition timer stopped")
	ErrInvalidDelay       = errors.New("transition delay must be positive")
	ErrPreferenceNotFound = errors.New("preference not found")
	ErrDispatcherStopped  = errors.New("event dispatcher stopped")
	ErrShellNotConnected  = errors.New("ui shell not connected")
	ErrInvalidLocale      = errors.New("invalid locale")
)
