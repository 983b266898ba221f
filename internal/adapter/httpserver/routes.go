package httpserver

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

func (s *Server) registerRoutes() {
	s.echo.Use(correlationMiddleware)
	s.echo.Use(s.setupRequestLoggerMiddleware())
	s.echo.Use(middleware.Recover())
	if s.ingress != nil {
		s.echo.Use(s.ingress.Middleware())
	}
	s.echo.Use(ErrorHandlingMiddleware())

	s.registerHealthRoutes()
	s.registerAPIRoutes()

	if s.metricsHandler != nil {
		s.echo.GET("/metrics", echo.WrapHandler(s.metricsHandler))
	}
	if s.shell != nil {
		s.echo.GET("/ws/shell", echo.WrapHandler(s.shell))
	}
}

func (s *Server) registerAPIRoutes() {
	api := s.echo.Group("/api", newRateLimiter(float64(s.config.EventRateLimit), s.config.EventRateBurst))

	api.POST("/screens/:id/:event", s.handleScreenEvent)
	api.POST("/environment/changed", s.handleEnvironmentChanged)
	api.GET("/locale", s.handleGetLocale)
	api.PUT("/locale", s.handleUpdateLocale)
	api.GET("/crash", s.handleGetCrash)
	api.DELETE("/crash", s.handleClearCrash)
	api.PUT("/calls/active", s.handleSetActiveCall)
	api.GET("/status", s.handleStatus)
}

func (s *Server) setupRequestLoggerMiddleware() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
			}
			if v.Error != nil {
				attrs = append(attrs, "error", v.Error)
			}
			slog.InfoContext(c.Request().Context(), "Request", attrs...)
			return nil
		},
	})
}
