package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pscheid92/syncpulse/internal/adapter/standalone"
	"github.com/pscheid92/syncpulse/internal/app"
	"github.com/pscheid92/syncpulse/internal/domain"
	apperrors "github.com/pscheid92/syncpulse/internal/platform/errors"
)

func TestHandleScreenEvent_Dispatches(t *testing.T) {
	srv, deps := newTestServer(t)

	rec := do(srv, http.MethodPost, "/api/screens/home-1/screen_resumed", `{"kind":"home"}`)

	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.JSONEq(t, `{"status":"accepted","event":"screen_resumed","screen_id":"home-1"}`, rec.Body.String())
	events := deps.dispatcher.dispatched()
	require.Len(t, events, 1)
	assert.Equal(t, app.EventScreenResumed, events[0].Type)
	assert.Equal(t, domain.Screen{ID: "home-1", Kind: "home"}, events[0].Screen)
}

func TestHandleScreenEvent_WithoutBody(t *testing.T) {
	srv, deps := newTestServer(t)

	rec := do(srv, http.MethodPost, "/api/screens/home-1/screen_paused", "")

	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, deps.dispatcher.dispatched(), 1)
	assert.Equal(t, domain.ScreenID("home-1"), deps.dispatcher.dispatched()[0].Screen.ID)
}

func TestHandleScreenEvent_ExemptScreen(t *testing.T) {
	srv, deps := newTestServer(t)

	rec := do(srv, http.MethodPost, "/api/screens/call-1/screen_created", `{"kind":"call","exempt_from_locale_restart":true}`)

	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.True(t, deps.dispatcher.dispatched()[0].Screen.ExemptFromLocaleRestart)
}

func TestHandleScreenEvent_UnknownEvent(t *testing.T) {
	srv, deps := newTestServer(t)

	for _, event := range []string{"screen_exploded", "environment_changed"} {
		rec := do(srv, http.MethodPost, "/api/screens/home-1/"+event, "")

		assert.Equal(t, http.StatusBadRequest, rec.Code, event)
		var resp apperrors.ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, event, resp.Context["event"])
	}
	assert.Empty(t, deps.dispatcher.dispatched())
}

func TestHandleScreenEvent_MalformedBody(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := do(srv, http.MethodPost, "/api/screens/home-1/screen_resumed", `{"kind":`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleScreenEvent_DispatcherStopped(t *testing.T) {
	srv, deps := newTestServer(t)
	deps.dispatcher.err = domain.ErrDispatcherStopped

	rec := do(srv, http.MethodPost, "/api/screens/home-1/screen_resumed", "")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHandleEnvironmentChanged_LocalDispatch(t *testing.T) {
	srv, deps := newTestServer(t)

	rec := do(srv, http.MethodPost, "/api/environment/changed", `{"reason":"rotation"}`)

	require.Equal(t, http.StatusAccepted, rec.Code)
	events := deps.dispatcher.dispatched()
	require.Len(t, events, 1)
	assert.Equal(t, app.EventEnvironmentChanged, events[0].Type)
}

func TestHandleEnvironmentChanged_Notifier(t *testing.T) {
	notifier := &mockNotifier{}
	srv, deps := newTestServer(t, withNotifier(notifier))

	rec := do(srv, http.MethodPost, "/api/environment/changed", "")

	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, []string{"api"}, notifier.reasons)
	assert.Empty(t, deps.dispatcher.dispatched(), "notifier replaces the local dispatch")
}

func TestHandleEnvironmentChanged_NotifierFails(t *testing.T) {
	srv, _ := newTestServer(t, withNotifier(&mockNotifier{err: errors.New("redis: connection refused")}))

	rec := do(srv, http.MethodPost, "/api/environment/changed", "")

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestHandleGetLocale(t *testing.T) {
	srv, deps := newTestServer(t)
	deps.crash.degraded = true

	rec := do(srv, http.MethodGet, "/api/locale", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"language":"en","country":"US","font_scale":1,"theme":"light","tag":"en-US","degraded":true}`, rec.Body.String())
}

func TestHandleUpdateLocale(t *testing.T) {
	srv, deps := newTestServer(t)

	rec := do(srv, http.MethodPut, "/api/locale", `{"locale":"fr-FR","theme":"dark","font_scale":1.15}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.LocaleState{Language: "fr", Country: "FR", FontScale: 1.15, Theme: "dark"}, deps.locale.Current(context.Background()))
	assert.Contains(t, rec.Body.String(), `"tag":"fr-FR"`)

	// The active screen restarts, then the change is announced so every
	// instance re-checks its screens.
	events := deps.dispatcher.dispatched()
	require.Len(t, events, 2)
	assert.Equal(t, app.EventLocaleUpdated, events[0].Type)
	assert.Equal(t, app.EventEnvironmentChanged, events[1].Type)
}

func TestHandleUpdateLocale_ThemeOnly(t *testing.T) {
	notifier := &mockNotifier{}
	srv, deps := newTestServer(t, withNotifier(notifier))

	rec := do(srv, http.MethodPut, "/api/locale", `{"theme":"dark"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "dark", deps.locale.state.Theme)
	assert.Equal(t, "en", deps.locale.state.Language)
	assert.Equal(t, []string{"locale_updated"}, notifier.reasons)
	events := deps.dispatcher.dispatched()
	require.Len(t, events, 1)
	assert.Equal(t, app.EventLocaleUpdated, events[0].Type)
}

func TestHandleUpdateLocale_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty request", `{}`},
		{"invalid tag", `{"locale":"not a tag!"}`},
		{"malformed json", `{"locale":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, deps := newTestServer(t)

			rec := do(srv, http.MethodPut, "/api/locale", tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, enUS, deps.locale.state)
		})
	}
}

func TestHandleUpdateLocale_GuardRejects(t *testing.T) {
	srv, deps := newTestServer(t)
	deps.locale.updateErr = fmt.Errorf("%w: font scale -1", domain.ErrInvalidLocale)

	rec := do(srv, http.MethodPut, "/api/locale", `{"font_scale":-1}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, deps.dispatcher.dispatched())
}

func TestHandleUpdateLocale_ApplyFailure(t *testing.T) {
	srv, deps := newTestServer(t)
	deps.locale.updateErr = fmt.Errorf("apply locale: %w", domain.ErrShellNotConnected)

	rec := do(srv, http.MethodPut, "/api/locale", `{"theme":"dark"}`)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHandleCrash(t *testing.T) {
	srv, deps := newTestServer(t)
	deps.crash.crashed = true

	rec := do(srv, http.MethodGet, "/api/crash", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"crashed":true}`, rec.Body.String())

	rec = do(srv, http.MethodDelete, "/api/crash", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 1, deps.crash.cleared)

	rec = do(srv, http.MethodGet, "/api/crash", "")
	assert.JSONEq(t, `{"crashed":false}`, rec.Body.String())
}

func TestHandleClearCrash_Failure(t *testing.T) {
	srv, deps := newTestServer(t)
	deps.crash.clearErr = errors.New("redis: connection refused")

	rec := do(srv, http.MethodDelete, "/api/crash", "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHandleSetActiveCall(t *testing.T) {
	srv, deps := newTestServer(t)

	rec := do(srv, http.MethodPut, "/api/calls/active", `{"active":true}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, deps.calls.active)
}

func TestHandleSetActiveCall_NoCallManager(t *testing.T) {
	srv, _ := newTestServer(t, func(s *Server) { s.calls = nil })

	rec := do(srv, http.MethodPut, "/api/calls/active", `{"active":true}`)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleStatus(t *testing.T) {
	collab := &mockCollaborators{status: standalone.Status{Presence: "online", GesturesRunning: true}}
	srv, deps := newTestServer(t, withCollaborators(collab))
	deps.shell.connected = true
	deps.tracker.state = app.TrackerState{ActiveScreen: &domain.Screen{ID: "home-1", Kind: "home"}, Timer: "idle", Sessions: 2}

	rec := do(srv, http.MethodGet, "/api/status", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var resp statusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Tracker.ActiveScreen)
	assert.Equal(t, domain.ScreenID("home-1"), resp.Tracker.ActiveScreen.ID)
	assert.Equal(t, 2, resp.Tracker.Sessions)
	assert.True(t, resp.ShellConnected)
	assert.Equal(t, "en-US", resp.Locale.Tag)
	require.NotNil(t, resp.Collaborators)
	assert.Equal(t, "online", resp.Collaborators.Presence)
}

func TestRoutes_MetricsAndShell(t *testing.T) {
	srv, deps := newTestServer(t)

	rec := do(srv, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "# metrics", rec.Body.String())

	rec = do(srv, http.MethodGet, "/ws/shell", "")
	assert.Equal(t, http.StatusSwitchingProtocols, rec.Code)
	assert.Equal(t, 1, deps.shell.served)
}

func TestRoutes_CorrelationHeader(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := do(srv, http.MethodGet, "/api/locale", "")

	assert.Len(t, rec.Header().Get(correlationHeader), 12)
}

func TestRoutes_APIRateLimited(t *testing.T) {
	srv, _ := newTestServer(t)
	srv.config.EventRateLimit = 1
	srv.config.EventRateBurst = 1
	limited := NewServer(srv.config, Dependencies{
		Tracker:    srv.tracker,
		Dispatcher: srv.dispatcher,
		Locale:     srv.locale,
		Crash:      srv.crash,
	})

	assert.Equal(t, http.StatusOK, do(limited, http.MethodGet, "/api/locale", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, do(limited, http.MethodGet, "/api/locale", "").Code)
}
