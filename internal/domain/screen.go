package domain

// ScreenID identifies one screen instance. Two instances of the same screen
// kind have different IDs.
type ScreenID string

// Screen describes one foregroundable UI surface.
type Screen struct {
	ID   ScreenID `json:"id"`
	Kind string   `json:"kind"`

	// ExemptFromLocaleRestart marks screens holding sensitive in-flight state
	// (media capture, call view, embedded widget). They are never restarted
	// to pick up a locale change.
	ExemptFromLocaleRestart bool `json:"exempt_from_locale_restart"`
}

// ScreenHost is implemented by the UI layer hosting the screens.
type ScreenHost interface {
	// Restart destroys and recreates the given screen in place.
	Restart(id ScreenID) error
}
