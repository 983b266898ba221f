package httpserver

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/pscheid92/syncpulse/internal/adapter/standalone"
	"github.com/pscheid92/syncpulse/internal/app"
	"github.com/pscheid92/syncpulse/internal/domain"
	apperrors "github.com/pscheid92/syncpulse/internal/platform/errors"
)

type screenEventRequest struct {
	Kind   string `json:"kind"`
	Exempt bool   `json:"exempt_from_locale_restart"`
}

type environmentChangedRequest struct {
	Reason string `json:"reason"`
}

type updateLocaleRequest struct {
	Locale    *string  `json:"locale"`
	Theme     *string  `json:"theme"`
	FontScale *float64 `json:"font_scale"`
}

type setActiveCallRequest struct {
	Active bool `json:"active"`
}

type localeResponse struct {
	domain.LocaleState
	Tag      string `json:"tag"`
	Degraded bool   `json:"degraded"`
}

type statusResponse struct {
	Tracker        app.TrackerState   `json:"tracker"`
	Locale         localeResponse     `json:"locale"`
	Crashed        bool               `json:"crashed"`
	ShellConnected bool               `json:"shell_connected"`
	Collaborators  *standalone.Status `json:"collaborators,omitempty"`
}

func (s *Server) handleScreenEvent(c echo.Context) error {
	ctx := c.Request().Context()

	event := c.Param("event")
	typ, err := app.ParseEventType(event)
	if err != nil || typ == app.EventEnvironmentChanged {
		return apperrors.ValidationError("unknown screen event").WithContext("event", event)
	}

	var req screenEventRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	screen := domain.Screen{
		ID:                      domain.ScreenID(c.Param("id")),
		Kind:                    req.Kind,
		ExemptFromLocaleRestart: req.Exempt,
	}
	if err := s.dispatcher.Dispatch(ctx, app.Event{Type: typ, Screen: screen}); err != nil {
		return fmt.Errorf("dispatch %s: %w", typ, err)
	}

	return c.JSON(http.StatusAccepted, map[string]string{
		"status":    "accepted",
		"event":     string(typ),
		"screen_id": string(screen.ID),
	})
}

func (s *Server) handleEnvironmentChanged(c echo.Context) error {
	var req environmentChangedRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	if req.Reason == "" {
		req.Reason = "api"
	}

	if err := s.announceEnvironmentChange(c, req.Reason); err != nil {
		return err
	}
	return c.JSON(http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (s *Server) announceEnvironmentChange(c echo.Context, reason string) error {
	ctx := c.Request().Context()
	if s.notifier != nil {
		if err := s.notifier.NotifyEnvironmentChanged(ctx, reason); err != nil {
			return apperrors.ExternalError("failed to announce environment change", err)
		}
		return nil
	}
	if err := s.dispatcher.Dispatch(ctx, app.Event{Type: app.EventEnvironmentChanged}); err != nil {
		return fmt.Errorf("dispatch %s: %w", app.EventEnvironmentChanged, err)
	}
	return nil
}

func (s *Server) handleGetLocale(c echo.Context) error {
	return c.JSON(http.StatusOK, s.currentLocale(c))
}

func (s *Server) handleUpdateLocale(c echo.Context) error {
	ctx := c.Request().Context()

	var req updateLocaleRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	if req.Locale == nil && req.Theme == nil && req.FontScale == nil {
		return apperrors.ValidationError("one of locale, theme or font_scale is required")
	}

	if req.Locale != nil {
		lang, err := domain.ParseLocale(*req.Locale)
		if err != nil {
			return err
		}
		if err := s.locale.UpdateLocale(ctx, lang); err != nil {
			return err
		}
	}
	if req.Theme != nil {
		if err := s.locale.UpdateTheme(ctx, *req.Theme); err != nil {
			return err
		}
	}
	if req.FontScale != nil {
		if err := s.locale.UpdateFontScale(ctx, *req.FontScale); err != nil {
			return err
		}
	}

	// The active screen restarts here; other instances reload the persisted
	// tuple on the announcement.
	if err := s.dispatcher.Dispatch(ctx, app.Event{Type: app.EventLocaleUpdated}); err != nil {
		slog.WarnContext(ctx, "Locale updated but active screen not restarted", "error", err)
	}
	if err := s.announceEnvironmentChange(c, "locale_updated"); err != nil {
		slog.WarnContext(ctx, "Locale updated but change not announced", "error", err)
	}
	return c.JSON(http.StatusOK, s.currentLocale(c))
}

func (s *Server) currentLocale(c echo.Context) localeResponse {
	state := s.locale.Current(c.Request().Context())
	return localeResponse{
		LocaleState: state,
		Tag:         state.Tag(),
		Degraded:    s.crash.Degraded(),
	}
}

func (s *Server) handleGetCrash(c echo.Context) error {
	crashed := s.crash.DidCrash(c.Request().Context())
	return c.JSON(http.StatusOK, map[string]bool{"crashed": crashed})
}

func (s *Server) handleClearCrash(c echo.Context) error {
	if err := s.crash.ClearCrash(c.Request().Context()); err != nil {
		return apperrors.InternalError("failed to clear crash flag", err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleSetActiveCall(c echo.Context) error {
	if s.calls == nil {
		return apperrors.NotFoundError("call manager not available")
	}

	var req setActiveCallRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	s.calls.SetActive(req.Active)
	slog.InfoContext(c.Request().Context(), "Active call flag changed", "active", req.Active)

	return c.JSON(http.StatusOK, map[string]bool{"active": req.Active})
}

func (s *Server) handleStatus(c echo.Context) error {
	resp := statusResponse{
		Tracker: s.tracker.State(),
		Locale:  s.currentLocale(c),
		Crashed: s.crash.DidCrash(c.Request().Context()),
	}
	if s.shell != nil {
		resp.ShellConnected = s.shell.Connected()
	}
	if s.collaborators != nil {
		status := s.collaborators.Status()
		resp.Collaborators = &status
	}
	return c.JSON(http.StatusOK, resp)
}
