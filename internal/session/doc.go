// Package session tracks the sync sessions that must be kept online.
//
// Registry is a mutex-guarded set keyed by session ID. Membership means the session
// is polling with foreground settings. No I/O, no blocking beyond the mutex.
package session
