package httpserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/pscheid92/syncpulse/internal/adapter/standalone"
	"github.com/pscheid92/syncpulse/internal/app"
	"github.com/pscheid92/syncpulse/internal/domain"
	"github.com/pscheid92/syncpulse/internal/platform/config"
)

// --- Mock implementations ---

type mockDispatcher struct {
	mu     sync.Mutex
	events []app.Event
	err    error
}

func (m *mockDispatcher) Dispatch(_ context.Context, ev app.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, ev)
	return nil
}

func (m *mockDispatcher) dispatched() []app.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]app.Event(nil), m.events...)
}

type mockTracker struct {
	state app.TrackerState
}

func (m *mockTracker) State() app.TrackerState { return m.state }

type mockLocale struct {
	mu        sync.Mutex
	state     domain.LocaleState
	updateErr error
}

func (m *mockLocale) Current(context.Context) domain.LocaleState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *mockLocale) UpdateLocale(_ context.Context, lang domain.LocaleState) error {
	return m.update(func(s *domain.LocaleState) { *s = s.WithLanguage(lang) })
}

func (m *mockLocale) UpdateTheme(_ context.Context, theme string) error {
	return m.update(func(s *domain.LocaleState) { s.Theme = theme })
}

func (m *mockLocale) UpdateFontScale(_ context.Context, scale float64) error {
	return m.update(func(s *domain.LocaleState) { s.FontScale = scale })
}

func (m *mockLocale) update(change func(*domain.LocaleState)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	change(&m.state)
	return nil
}

type mockCrash struct {
	crashed  bool
	degraded bool
	clearErr error
	cleared  int
}

func (m *mockCrash) DidCrash(context.Context) bool { return m.crashed }

func (m *mockCrash) ClearCrash(context.Context) error {
	if m.clearErr != nil {
		return m.clearErr
	}
	m.crashed = false
	m.cleared++
	return nil
}

func (m *mockCrash) Degraded() bool { return m.degraded }

type mockCollaborators struct {
	status standalone.Status
}

func (m *mockCollaborators) Status() standalone.Status { return m.status }

type mockCalls struct {
	active bool
}

func (m *mockCalls) SetActive(active bool) { m.active = active }

type mockShell struct {
	connected bool
	served    int
}

func (m *mockShell) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	m.served++
	w.WriteHeader(http.StatusSwitchingProtocols)
}

func (m *mockShell) Connected() bool { return m.connected }

type mockNotifier struct {
	reasons []string
	err     error
}

func (m *mockNotifier) NotifyEnvironmentChanged(_ context.Context, reason string) error {
	if m.err != nil {
		return m.err
	}
	m.reasons = append(m.reasons, reason)
	return nil
}

// --- Test server ---

var enUS = domain.LocaleState{Language: "en", Country: "US", FontScale: 1, Theme: "light"}

type testDeps struct {
	dispatcher *mockDispatcher
	tracker    *mockTracker
	locale     *mockLocale
	crash      *mockCrash
	calls      *mockCalls
	shell      *mockShell
}

func newTestServer(t *testing.T, opts ...func(*Server)) (*Server, *testDeps) {
	t.Helper()

	deps := &testDeps{
		dispatcher: &mockDispatcher{},
		tracker:    &mockTracker{state: app.TrackerState{Background: true, Timer: app.TimerIdle.String()}},
		locale:     &mockLocale{state: enUS},
		crash:      &mockCrash{},
		calls:      &mockCalls{},
		shell:      &mockShell{},
	}

	cfg := &config.Config{
		AppEnv:         "test",
		Port:           "0",
		EventRateLimit: 1000,
		EventRateBurst: 1000,
	}

	srv := NewServer(cfg, Dependencies{
		Tracker:    deps.tracker,
		Dispatcher: deps.dispatcher,
		Locale:     deps.locale,
		Crash:      deps.crash,
		Calls:      deps.calls,
		Shell:      deps.shell,
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("# metrics"))
		}),
	})

	for _, opt := range opts {
		opt(srv)
	}

	return srv, deps
}

func withHealthChecks(checks ...HealthCheck) func(*Server) {
	return func(s *Server) {
		s.healthChecks = checks
	}
}

func withNotifier(n EnvironmentNotifier) func(*Server) {
	return func(s *Server) {
		s.notifier = n
	}
}

func withCollaborators(c collaboratorStatus) func(*Server) {
	return func(s *Server) {
		s.collaborators = c
	}
}

// callHandler wraps a handler with error middleware, matching production behavior
func callHandler(handler echo.HandlerFunc, c echo.Context) error {
	return ErrorHandlingMiddleware()(handler)(c)
}

// do sends a request through the full middleware chain.
func do(srv *Server, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}
