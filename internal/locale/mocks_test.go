package locale

import (
	"context"
	"sync"

	"github.com/pscheid92/syncpulse/internal/domain"
)

type mockPrefs struct {
	mu     sync.Mutex
	values map[string]string
	gets   int
	getErr error
	setErr error
}

func newMockPrefs(values map[string]string) *mockPrefs {
	if values == nil {
		values = make(map[string]string)
	}
	return &mockPrefs{values: values}
}

func (m *mockPrefs) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	if m.getErr != nil {
		return "", m.getErr
	}
	v, ok := m.values[key]
	if !ok {
		return "", domain.ErrPreferenceNotFound
	}
	return v, nil
}

func (m *mockPrefs) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.values[key] = value
	return nil
}

func (m *mockPrefs) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	delete(m.values, key)
	return nil
}

func (m *mockPrefs) value(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok
}

func (m *mockPrefs) getCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gets
}

type mockEnv struct {
	mu       sync.Mutex
	state    domain.LocaleState
	applied  []domain.LocaleState
	applyErr error
}

func (m *mockEnv) Current() domain.LocaleState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *mockEnv) Apply(state domain.LocaleState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.applyErr != nil {
		return m.applyErr
	}
	m.state = state
	m.applied = append(m.applied, state)
	return nil
}

func (m *mockEnv) appliedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.applied)
}

type mockHost struct {
	mu         sync.Mutex
	restarted  []domain.ScreenID
	restartErr error
}

func (m *mockHost) Restart(id domain.ScreenID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.restartErr != nil {
		return m.restartErr
	}
	m.restarted = append(m.restarted, id)
	return nil
}

func (m *mockHost) restarts() []domain.ScreenID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.ScreenID(nil), m.restarted...)
}

var (
	enUS = domain.LocaleState{Language: "en", Country: "US", FontScale: 1.0, Theme: "light"}
	frFR = domain.LocaleState{Language: "fr", Country: "FR", FontScale: 1.0, Theme: "light"}
)
