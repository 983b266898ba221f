package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/pscheid92/syncpulse/internal/platform/version"
)

const (
	startupCheckTimeout   = 2 * time.Second
	readinessCheckTimeout = 5 * time.Second
)

// HealthCheck is a named health check function.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

func (s *Server) registerHealthRoutes() {
	s.echo.GET("/health/startup", s.handleStartup)
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/version", s.handleVersion)
}

type readinessResponse struct {
	Status         string `json:"status"`
	Background     bool   `json:"background"`
	Suspended      bool   `json:"suspended"`
	Timer          string `json:"timer"`
	Sessions       int    `json:"sessions"`
	ShellConnected bool   `json:"shell_connected"`
}

// handleStartup only runs the dependency checks; the tracker has no startup
// phase beyond Init.
func (s *Server) handleStartup(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), startupCheckTimeout)
	defer cancel()

	if failed := s.runHealthChecks(ctx); failed != nil {
		return writeUnhealthy(c, failed)
	}
	if err := c.JSON(http.StatusOK, map[string]string{"status": "started"}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleLiveness(c echo.Context) error {
	uptime := time.Since(s.startTime).Seconds()

	response := map[string]any{
		"status": "ok",
		"uptime": uptime,
	}
	if err := c.JSON(http.StatusOK, response); err != nil {
		return fmt.Errorf("failed to write liveness response: %w", err)
	}

	return nil
}

// handleReadiness runs the dependency checks and reports where the lifecycle
// currently stands, so a health check can tell a suspended instance from a stuck one.
func (s *Server) handleReadiness(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), readinessCheckTimeout)
	defer cancel()

	if failed := s.runHealthChecks(ctx); failed != nil {
		return writeUnhealthy(c, failed)
	}

	state := s.tracker.State()
	response := readinessResponse{
		Status:     "ready",
		Background: state.Background,
		Suspended:  state.Suspended,
		Timer:      state.Timer,
		Sessions:   state.Sessions,
	}
	if s.shell != nil {
		response.ShellConnected = s.shell.Connected()
	}
	if err := c.JSON(http.StatusOK, response); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

type failedCheck struct {
	name string
	err  error
}

// runHealthChecks returns the first failing check, or nil.
func (s *Server) runHealthChecks(ctx context.Context) *failedCheck {
	for _, hc := range s.healthChecks {
		if err := hc.Check(ctx); err != nil {
			slog.WarnContext(ctx, "Health check failed", "check", hc.Name, "error", err)
			return &failedCheck{name: hc.Name, err: err}
		}
	}
	return nil
}

func writeUnhealthy(c echo.Context, failed *failedCheck) error {
	response := map[string]any{
		"status":       "unhealthy",
		"failed_check": failed.name,
		"error":        failed.err.Error(),
	}
	if err := c.JSON(http.StatusServiceUnavailable, response); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleVersion(c echo.Context) error {
	if err := c.JSON(http.StatusOK, version.Get()); err != nil {
		return fmt.Errorf("failed to write version response: %w", err)
	}
	return nil
}
