// Package locale keeps the environment locale consistent with the persisted
// application locale.
//
// Store reads and writes the persisted tuple (language, font scale, theme)
// and the crash flag. Guard compares it with the live environment and asks
// the screen host to restart screens that render with a stale locale. The
// persisted value always wins.
package locale
