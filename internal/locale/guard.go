package locale

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pscheid92/syncpulse/internal/adapter/metrics"
	"github.com/pscheid92/syncpulse/internal/domain"
)

const (
	outcomeRequested = "requested"
	outcomeExempt    = "exempt"
	outcomeFailed    = "failed"
)

// Guard restarts screens whose environment locale drifted from the
// persisted one.
type Guard struct {
	store   *Store
	env     domain.Environment
	host    domain.ScreenHost
	metrics *metrics.LifecycleMetrics
}

func NewGuard(store *Store, env domain.Environment, host domain.ScreenHost, m *metrics.LifecycleMetrics) *Guard {
	return &Guard{
		store:   store,
		env:     env,
		host:    host,
		metrics: m,
	}
}

// Init applies the persisted tuple onto the environment.
func (g *Guard) Init(ctx context.Context) {
	persisted := g.store.Load(ctx)
	if g.env.Current() == persisted {
		return
	}
	if err := g.env.Apply(persisted); err != nil {
		slog.WarnContext(ctx, "Failed to apply persisted locale", "locale", persisted.String(), "error", err)
		return
	}
	slog.InfoContext(ctx, "Applied persisted locale", "locale", persisted.String())
}

// Current returns the persisted tuple.
func (g *Guard) Current(ctx context.Context) domain.LocaleState {
	return g.store.Load(ctx)
}

// Check compares the environment with the persisted tuple. On mismatch the
// persisted tuple is forced onto the environment and the screen restarted.
// It reports whether a mismatch was found.
func (g *Guard) Check(ctx context.Context, screen *domain.Screen) bool {
	persisted := g.store.Load(ctx)
	current := g.env.Current()
	if current == persisted {
		return false
	}

	slog.InfoContext(ctx, "Environment locale differs from application locale",
		"environment", current.String(), "application", persisted.String())
	if err := g.env.Apply(persisted); err != nil {
		slog.WarnContext(ctx, "Failed to apply application locale", "locale", persisted.String(), "error", err)
		return true
	}
	g.RestartScreen(ctx, screen)
	return true
}

// RestartScreen asks the host to restart the screen. Nil and exempt screens
// are left alone.
func (g *Guard) RestartScreen(ctx context.Context, screen *domain.Screen) {
	if screen == nil {
		return
	}
	if screen.ExemptFromLocaleRestart {
		slog.DebugContext(ctx, "Screen exempt from locale restart", "screen_id", screen.ID, "kind", screen.Kind)
		g.metrics.LocaleRestarts.WithLabelValues(outcomeExempt).Inc()
		return
	}

	if err := g.host.Restart(screen.ID); err != nil {
		slog.WarnContext(ctx, "Screen restart failed", "screen_id", screen.ID, "error", err)
		g.metrics.LocaleRestarts.WithLabelValues(outcomeFailed).Inc()
		return
	}
	slog.InfoContext(ctx, "Screen restart requested", "screen_id", screen.ID)
	g.metrics.LocaleRestarts.WithLabelValues(outcomeRequested).Inc()
}

// UpdateLocale persists a new language and applies it to the environment.
// Font scale and theme are kept.
func (g *Guard) UpdateLocale(ctx context.Context, lang domain.LocaleState) error {
	if lang.Language == "" {
		return fmt.Errorf("%w: empty language", domain.ErrInvalidLocale)
	}
	return g.update(ctx, func(s domain.LocaleState) domain.LocaleState {
		return s.WithLanguage(lang)
	})
}

func (g *Guard) UpdateTheme(ctx context.Context, theme string) error {
	if theme == "" {
		return fmt.Errorf("%w: empty theme", domain.ErrInvalidLocale)
	}
	return g.update(ctx, func(s domain.LocaleState) domain.LocaleState {
		s.Theme = theme
		return s
	})
}

func (g *Guard) UpdateFontScale(ctx context.Context, scale float64) error {
	if scale <= 0 {
		return fmt.Errorf("%w: font scale %v", domain.ErrInvalidLocale, scale)
	}
	return g.update(ctx, func(s domain.LocaleState) domain.LocaleState {
		s.FontScale = scale
		return s
	})
}

func (g *Guard) update(ctx context.Context, change func(domain.LocaleState) domain.LocaleState) error {
	next := change(g.store.Load(ctx))

	// A failed save leaves the store serving next from memory.
	if err := g.store.Save(ctx, next); err != nil {
		slog.WarnContext(ctx, "Locale update not persisted", "locale", next.String(), "error", err)
	}
	if err := g.env.Apply(next); err != nil {
		return fmt.Errorf("apply locale %s: %w", next.String(), err)
	}
	slog.InfoContext(ctx, "Application locale updated", "locale", next.String())
	return nil
}
