// Package domain defines the core domain types and interfaces.
//
// This package contains concept-oriented files (errors.go, screen.go, session.go, locale.go, etc.)
// with shared types and the contracts of the external collaborators. No implementation code - just contracts.
// Prevents circular imports by keeping interfaces on the consumer side.
package domain
