package locale

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/pscheid92/syncpulse/internal/domain"
)

const (
	KeyLanguage  = "application_locale_language"
	KeyCountry   = "application_locale_country"
	KeyVariant   = "application_locale_variant"
	KeyFontScale = "application_font_scale"
	KeyTheme     = "application_theme"
	KeyCrashed   = "app_crashed"
)

// Store is the persisted locale tuple on top of a PreferenceStore.
//
// The first persistence failure switches the store to an in-memory tuple for
// the rest of the process. Loaded state is cached until Invalidate or Save.
type Store struct {
	prefs    domain.PreferenceStore
	env      domain.Environment
	fallback domain.LocaleState

	mu       sync.Mutex
	cached   *domain.LocaleState
	degraded bool
	memory   domain.LocaleState
	crashed  bool
}

// NewStore creates a store. fallback is the tuple used once persistence fails.
func NewStore(prefs domain.PreferenceStore, env domain.Environment, fallback domain.LocaleState) *Store {
	return &Store{
		prefs:    prefs,
		env:      env,
		fallback: fallback,
	}
}

// Load returns the persisted tuple. Absent keys take the environment's value,
// which is then saved so later loads are stable.
func (s *Store) Load(ctx context.Context) domain.LocaleState {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.degraded {
		return s.memory
	}
	if s.cached != nil {
		return *s.cached
	}

	state, missing, err := s.read(ctx)
	if err != nil {
		s.degrade(ctx, s.fallback, err)
		return s.memory
	}

	if len(missing) > 0 {
		slog.InfoContext(ctx, "Persisting environment locale for absent preferences", "keys", missing, "locale", state.String())
		if err := s.write(ctx, state); err != nil {
			s.degrade(ctx, state, err)
			return s.memory
		}
	}

	s.cached = &state
	return state
}

func (s *Store) read(ctx context.Context) (domain.LocaleState, []string, error) {
	env := s.env.Current()
	state := env
	var missing []string

	lang, err := s.prefs.Get(ctx, KeyLanguage)
	switch {
	case errors.Is(err, domain.ErrPreferenceNotFound):
		missing = append(missing, KeyLanguage)
	case err != nil:
		return domain.LocaleState{}, nil, fmt.Errorf("read %s: %w", KeyLanguage, err)
	default:
		state.Language = lang
		state.Country, err = s.optional(ctx, KeyCountry)
		if err != nil {
			return domain.LocaleState{}, nil, err
		}
		state.Variant, err = s.optional(ctx, KeyVariant)
		if err != nil {
			return domain.LocaleState{}, nil, err
		}
	}

	scale, err := s.prefs.Get(ctx, KeyFontScale)
	switch {
	case errors.Is(err, domain.ErrPreferenceNotFound):
		missing = append(missing, KeyFontScale)
	case err != nil:
		return domain.LocaleState{}, nil, fmt.Errorf("read %s: %w", KeyFontScale, err)
	default:
		parsed, perr := strconv.ParseFloat(scale, 64)
		if perr != nil || parsed <= 0 {
			slog.WarnContext(ctx, "Ignoring malformed font scale preference", "value", scale)
			missing = append(missing, KeyFontScale)
		} else {
			state.FontScale = parsed
		}
	}

	theme, err := s.prefs.Get(ctx, KeyTheme)
	switch {
	case errors.Is(err, domain.ErrPreferenceNotFound):
		missing = append(missing, KeyTheme)
	case err != nil:
		return domain.LocaleState{}, nil, fmt.Errorf("read %s: %w", KeyTheme, err)
	default:
		state.Theme = theme
	}

	if state.FontScale <= 0 {
		state.FontScale = domain.DefaultFontScale
	}
	if state.Theme == "" {
		state.Theme = domain.DefaultTheme
	}
	return state, missing, nil
}

func (s *Store) optional(ctx context.Context, key string) (string, error) {
	v, err := s.prefs.Get(ctx, key)
	if errors.Is(err, domain.ErrPreferenceNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", key, err)
	}
	return v, nil
}

// Save persists the tuple. On failure the tuple is kept in memory and the
// store stays degraded.
func (s *Store) Save(ctx context.Context, state domain.LocaleState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.degraded {
		s.memory = state
		return nil
	}
	if err := s.write(ctx, state); err != nil {
		s.degrade(ctx, state, err)
		return fmt.Errorf("save locale: %w", err)
	}
	s.cached = &state
	return nil
}

func (s *Store) write(ctx context.Context, state domain.LocaleState) error {
	if err := s.prefs.Set(ctx, KeyLanguage, state.Language); err != nil {
		return err
	}
	for key, value := range map[string]string{KeyCountry: state.Country, KeyVariant: state.Variant} {
		var err error
		if value == "" {
			err = s.prefs.Delete(ctx, key)
		} else {
			err = s.prefs.Set(ctx, key, value)
		}
		if err != nil {
			return err
		}
	}
	if err := s.prefs.Set(ctx, KeyFontScale, strconv.FormatFloat(state.FontScale, 'f', -1, 64)); err != nil {
		return err
	}
	return s.prefs.Set(ctx, KeyTheme, state.Theme)
}

func (s *Store) degrade(ctx context.Context, state domain.LocaleState, err error) {
	slog.ErrorContext(ctx, "Locale persistence failed, using in-memory locale", "locale", state.String(), "error", err)
	s.degraded = true
	s.memory = state
	s.cached = nil
}

// Invalidate drops the cached tuple so the next Load reads persistence again.
func (s *Store) Invalidate() {
	s.mu.Lock()
	s.cached = nil
	s.mu.Unlock()
}

// Degraded reports whether persistence failed and the store runs from memory.
func (s *Store) Degraded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.degraded
}

// DidCrash reports whether the previous run left the crash flag set.
func (s *Store) DidCrash(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.degraded {
		return s.crashed
	}
	v, err := s.prefs.Get(ctx, KeyCrashed)
	if err != nil {
		if !errors.Is(err, domain.ErrPreferenceNotFound) {
			slog.WarnContext(ctx, "Failed to read crash flag", "error", err)
		}
		return false
	}
	crashed, _ := strconv.ParseBool(v)
	return crashed
}

func (s *Store) MarkCrashed(ctx context.Context) error {
	return s.setCrashed(ctx, true)
}

// ClearCrash acknowledges a reported crash.
func (s *Store) ClearCrash(ctx context.Context) error {
	return s.setCrashed(ctx, false)
}

func (s *Store) setCrashed(ctx context.Context, crashed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.crashed = crashed
	if s.degraded {
		return nil
	}

	var err error
	if crashed {
		err = s.prefs.Set(ctx, KeyCrashed, "true")
	} else {
		err = s.prefs.Delete(ctx, KeyCrashed)
	}
	if err != nil {
		return fmt.Errorf("update crash flag: %w", err)
	}
	return nil
}
