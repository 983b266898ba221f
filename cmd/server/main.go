package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/pscheid92/syncpulse/internal/adapter/httpserver"
	"github.com/pscheid92/syncpulse/internal/adapter/memory"
	"github.com/pscheid92/syncpulse/internal/adapter/metrics"
	"github.com/pscheid92/syncpulse/internal/adapter/redis"
	"github.com/pscheid92/syncpulse/internal/adapter/standalone"
	"github.com/pscheid92/syncpulse/internal/adapter/websocket"
	"github.com/pscheid92/syncpulse/internal/app"
	"github.com/pscheid92/syncpulse/internal/domain"
	"github.com/pscheid92/syncpulse/internal/locale"
	"github.com/pscheid92/syncpulse/internal/platform/config"
	"github.com/pscheid92/syncpulse/internal/platform/logging"
	"github.com/pscheid92/syncpulse/internal/platform/version"
	"github.com/pscheid92/syncpulse/internal/session"
)

const (
	shutdownTimeout     = 10 * time.Second
	breakerRecoveryWait = 30 * time.Second
)

// dispatchFunc adapts a function to the dispatcher interface so the shell
// link can be built before the dispatcher it feeds.
type dispatchFunc func(ctx context.Context, ev app.Event) error

func (f dispatchFunc) Dispatch(ctx context.Context, ev app.Event) error { return f(ctx, ev) }

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupPreferences(ctx context.Context, cfg *config.Config, reg prometheus.Registerer) (domain.PreferenceStore, *goredis.Client) {
	if cfg.RedisURL == "" {
		slog.Info("REDIS_URL not set, preferences kept in memory")
		return memory.NewPreferenceStore(), nil
	}

	hook := redis.NewCircuitBreakerHook(metrics.NewRedisMetrics(reg), breakerRecoveryWait)
	client, err := redis.NewClient(ctx, cfg.RedisURL, hook)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	return redis.NewPreferenceStore(client), client
}

func setupSessions(cfg *config.Config, clock clockwork.Clock) *standalone.Services {
	sessions := make([]*standalone.Session, 0, len(cfg.Sessions))
	for _, id := range cfg.Sessions {
		sessions = append(sessions, standalone.NewSession(id, clock))
	}
	return standalone.NewServices(standalone.NewProvider(sessions...))
}

func healthChecks(rdb *goredis.Client, dispatcher *app.Dispatcher) []httpserver.HealthCheck {
	checks := []httpserver.HealthCheck{
		{Name: "dispatcher", Check: dispatcher.Drain},
	}
	if rdb != nil {
		checks = append(checks, httpserver.HealthCheck{
			Name:  "redis",
			Check: func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		})
	}
	return checks
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	// Initialize structured logging
	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port, "version", version.Version)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := metrics.NewRegistry()
	lifecycleMetrics := metrics.NewLifecycleMetrics(reg)
	ingressMetrics := metrics.NewIngressMetrics(reg)

	prefs, rdb := setupPreferences(ctx, cfg, reg)
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
	}

	var dispatcher *app.Dispatcher
	shell := websocket.NewShellLink(
		dispatchFunc(func(ctx context.Context, ev app.Event) error { return dispatcher.Dispatch(ctx, ev) }),
		cfg.Fallback(),
		websocket.NewCheckOrigin(cfg.AppURL, cfg.IsDevelopment()),
		ingressMetrics,
	)

	store := locale.NewStore(prefs, shell, cfg.Fallback())
	if store.DidCrash(ctx) {
		slog.Warn("Previous run ended in a crash; acknowledge with DELETE /api/crash")
	}
	// Panics on the dispatcher and timer goroutines are recovered and recorded
	// there; this covers startup and shutdown on the main goroutine.
	defer func() {
		if r := recover(); r != nil {
			_ = store.MarkCrashed(context.Background())
			panic(r)
		}
	}()

	guard := locale.NewGuard(store, shell, shell, lifecycleMetrics)
	services := setupSessions(cfg, clock)
	policy := app.StaticSyncPolicy{
		SyncAllowed:  cfg.BackgroundSyncAllowed,
		PollInterval: cfg.BackgroundPollInterval,
		PollTimeout:  cfg.BackgroundPollTimeout,
		PushEnabled:  cfg.PushEnabled,
	}

	tracker := app.New(
		app.Config{
			TransitionDelay: cfg.BackgroundTransitionDelay,
			Coordinator: app.CoordinatorConfig{
				PruneInterval:  cfg.MediaPruneInterval,
				MediaRetention: cfg.MediaRetention,
			},
			Crashes: store,
		},
		session.NewRegistry(metrics.NewRegistryMetrics(reg)),
		guard,
		services.Collaborators(policy),
		clock,
		lifecycleMetrics,
	)
	tracker.Init(ctx)

	dispatcher = app.NewDispatcher(tracker, 0, store)

	var notifier httpserver.EnvironmentNotifier
	var subscriber *redis.EnvironmentSubscriber
	if rdb != nil {
		notifier = redis.NewEnvironmentPublisher(rdb)
		subscriber = redis.NewEnvironmentSubscriber(rdb, dispatcher, store)
	}

	srv := httpserver.NewServer(cfg, httpserver.Dependencies{
		Tracker:       tracker,
		Dispatcher:    dispatcher,
		Locale:        guard,
		Crash:         store,
		Collaborators: services,
		Calls:         services.Calls,
		Shell:         shell,
		Notifier:      notifier,
		Metrics:       metrics.Handler(reg),
		Ingress:       ingressMetrics,
		HealthChecks:  healthChecks(rdb, dispatcher),
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if subscriber != nil {
		g.Go(func() error {
			subscriber.Start(gctx)
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		shell.Close()
		dispatcher.Stop()
		tracker.Shutdown()
		return nil
	})

	if err := g.Wait(); err != nil {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}
	slog.Info("Shutdown complete")
}
