// Package httpserver exposes the lifecycle coordinator over HTTP: screen
// event ingress, locale management, status, health checks, metrics and the
// UI shell WebSocket endpoint.
package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/pscheid92/syncpulse/internal/adapter/metrics"
	"github.com/pscheid92/syncpulse/internal/adapter/standalone"
	"github.com/pscheid92/syncpulse/internal/app"
	"github.com/pscheid92/syncpulse/internal/domain"
	"github.com/pscheid92/syncpulse/internal/platform/config"
)

type eventDispatcher interface {
	Dispatch(ctx context.Context, ev app.Event) error
}

type trackerService interface {
	State() app.TrackerState
}

type localeService interface {
	Current(ctx context.Context) domain.LocaleState
	UpdateLocale(ctx context.Context, lang domain.LocaleState) error
	UpdateTheme(ctx context.Context, theme string) error
	UpdateFontScale(ctx context.Context, scale float64) error
}

type crashFlag interface {
	DidCrash(ctx context.Context) bool
	ClearCrash(ctx context.Context) error
	Degraded() bool
}

type collaboratorStatus interface {
	Status() standalone.Status
}

type callSwitch interface {
	SetActive(active bool)
}

type shellEndpoint interface {
	http.Handler
	Connected() bool
}

// EnvironmentNotifier announces an environment change to every instance.
// When nil, the change is dispatched to the local tracker only.
type EnvironmentNotifier interface {
	NotifyEnvironmentChanged(ctx context.Context, reason string) error
}

// Dependencies are the services the HTTP layer drives.
type Dependencies struct {
	Tracker       trackerService
	Dispatcher    eventDispatcher
	Locale        localeService
	Crash         crashFlag
	Collaborators collaboratorStatus
	Calls         callSwitch
	Shell         shellEndpoint
	Notifier      EnvironmentNotifier
	Metrics       http.Handler
	Ingress       *metrics.IngressMetrics
	HealthChecks  []HealthCheck
}

type Server struct {
	echo   *echo.Echo
	config *config.Config

	tracker       trackerService
	dispatcher    eventDispatcher
	locale        localeService
	crash         crashFlag
	collaborators collaboratorStatus
	calls         callSwitch
	shell         shellEndpoint
	notifier      EnvironmentNotifier

	metricsHandler http.Handler
	ingress        *metrics.IngressMetrics
	healthChecks   []HealthCheck
	startTime      time.Time
}

func NewServer(cfg *config.Config, deps Dependencies) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	srv := &Server{
		echo:           e,
		config:         cfg,
		tracker:        deps.Tracker,
		dispatcher:     deps.Dispatcher,
		locale:         deps.Locale,
		crash:          deps.Crash,
		collaborators:  deps.Collaborators,
		calls:          deps.Calls,
		shell:          deps.Shell,
		notifier:       deps.Notifier,
		metricsHandler: deps.Metrics,
		ingress:        deps.Ingress,
		healthChecks:   deps.HealthChecks,
		startTime:      time.Now(),
	}

	srv.registerRoutes()

	return srv
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	if err := s.echo.Start(":" + s.config.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

// ServeHTTP lets tests drive the full middleware chain.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}
