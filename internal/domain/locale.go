package domain

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/language"
)

const (
	DefaultFontScale = 1.0
	DefaultTheme     = "light"
)

// LocaleState is the locale/font-scale/theme tuple the application runs with.
type LocaleState struct {
	Language  string  `json:"language"`
	Country   string  `json:"country"`
	Variant   string  `json:"variant,omitempty"`
	FontScale float64 `json:"font_scale"`
	Theme     string  `json:"theme"`
}

// ParseLocale builds a LocaleState from a BCP 47 tag such as "fr-FR".
// Font scale and theme are set to their defaults.
func ParseLocale(tag string) (LocaleState, error) {
	t, err := language.Parse(tag)
	if err != nil {
		return LocaleState{}, fmt.Errorf("%w: %q: %v", ErrInvalidLocale, tag, err)
	}

	base, _ := t.Base()
	state := LocaleState{
		Language:  base.String(),
		FontScale: DefaultFontScale,
		Theme:     DefaultTheme,
	}
	if region, conf := t.Region(); conf == language.Exact {
		state.Country = region.String()
	}
	variants := t.Variants()
	if len(variants) > 0 {
		parts := make([]string, len(variants))
		for i, v := range variants {
			parts[i] = v.String()
		}
		state.Variant = strings.Join(parts, "-")
	}
	return state, nil
}

// Tag returns the BCP 47 tag of the language part of the tuple.
func (s LocaleState) Tag() string {
	parts := []string{s.Language}
	if s.Country != "" {
		parts = append(parts, s.Country)
	}
	if s.Variant != "" {
		parts = append(parts, s.Variant)
	}
	return strings.Join(parts, "-")
}

// WithLanguage returns a copy with the language part replaced by other's.
func (s LocaleState) WithLanguage(other LocaleState) LocaleState {
	s.Language = other.Language
	s.Country = other.Country
	s.Variant = other.Variant
	return s
}

// String renders the tuple as "<tag>_<font scale>_<theme>".
func (s LocaleState) String() string {
	return s.Tag() + "_" + strconv.FormatFloat(s.FontScale, 'f', -1, 64) + "_" + s.Theme
}

// Environment is the transient locale the process currently renders with.
// It may drift from the persisted state (system settings, rotation).
type Environment interface {
	Current() LocaleState
	Apply(state LocaleState) error
}

// PreferenceStore is the persisted key-value state. Get returns
// ErrPreferenceNotFound for absent keys.
type PreferenceStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}
