package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	goredis "github.com/redis/go-redis/v9"

	"github.com/pscheid92/syncpulse/internal/adapter/metrics"
)

// CircuitBreakerHook fails Redis commands fast while Redis is unavailable.
// HGET results are cached so preference reads keep working while the
// breaker is open; writes fail and the locale store falls back to memory.
type CircuitBreakerHook struct {
	cb      circuitbreaker.CircuitBreaker[any]
	metrics *metrics.RedisMetrics

	mu    sync.RWMutex
	reads map[string]string
}

var _ goredis.Hook = (*CircuitBreakerHook)(nil)

// NewCircuitBreakerHook opens after a 60% failure rate over at least 5
// requests in 10s, retries after delay and closes on one success.
func NewCircuitBreakerHook(m *metrics.RedisMetrics, delay time.Duration) *CircuitBreakerHook {
	h := &CircuitBreakerHook{
		metrics: m,
		reads:   make(map[string]string),
	}
	h.cb = circuitbreaker.NewBuilder[any]().
		WithFailureRateThreshold(0.6, 5, 10*time.Second).
		WithDelay(delay).
		WithSuccessThreshold(1).
		OnStateChanged(func(e circuitbreaker.StateChangedEvent) {
			slog.Warn("Circuit breaker state changed",
				"component", "redis",
				"from", e.OldState.String(),
				"to", e.NewState.String(),
			)
			h.metrics.CircuitBreakerStateChanges.WithLabelValues(e.NewState.String()).Inc()
			h.metrics.CircuitBreakerState.Set(stateToFloat(e.NewState))
		}).
		Build()
	return h
}

func stateToFloat(state circuitbreaker.State) float64 {
	switch state {
	case circuitbreaker.ClosedState:
		return 0
	case circuitbreaker.HalfOpenState:
		return 1
	case circuitbreaker.OpenState:
		return 2
	default:
		return -1
	}
}

// State returns the current breaker state.
func (h *CircuitBreakerHook) State() circuitbreaker.State {
	return h.cb.State()
}

func (h *CircuitBreakerHook) DialHook(next goredis.DialHook) goredis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		if !h.cb.TryAcquirePermit() {
			return nil, fmt.Errorf("circuit breaker dial failed: %w", circuitbreaker.ErrOpen)
		}
		conn, err := next(ctx, network, addr)
		if err != nil {
			h.cb.RecordError(err)
			return nil, fmt.Errorf("circuit breaker dial failed: %w", err)
		}
		h.cb.RecordSuccess()
		return conn, nil
	}
}

func (h *CircuitBreakerHook) ProcessHook(next goredis.ProcessHook) goredis.ProcessHook {
	return func(ctx context.Context, cmd goredis.Cmder) error {
		if !h.cb.TryAcquirePermit() {
			return h.fallback(cmd)
		}

		err := next(ctx, cmd)
		if err != nil && !errors.Is(err, goredis.Nil) {
			h.cb.RecordError(err)
			h.metrics.OperationErrors.WithLabelValues(cmd.Name()).Inc()
			return fmt.Errorf("circuit breaker process failed: %w", err)
		}
		h.cb.RecordSuccess()
		h.remember(cmd)
		return err
	}
}

func (h *CircuitBreakerHook) ProcessPipelineHook(next goredis.ProcessPipelineHook) goredis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []goredis.Cmder) error {
		if !h.cb.TryAcquirePermit() {
			return fmt.Errorf("redis circuit breaker open: %w", circuitbreaker.ErrOpen)
		}

		err := next(ctx, cmds)
		if err != nil {
			h.cb.RecordError(err)
			return fmt.Errorf("circuit breaker pipeline failed: %w", err)
		}
		h.cb.RecordSuccess()
		return nil
	}
}

// fallback serves cached HGET results while the breaker is open.
func (h *CircuitBreakerHook) fallback(cmd goredis.Cmder) error {
	if c, ok := cmd.(*goredis.StringCmd); ok && cmd.Name() == "hget" {
		h.mu.RLock()
		value, found := h.reads[readKey(cmd.Args())]
		h.mu.RUnlock()
		if found {
			slog.Debug("Circuit breaker open, serving from cache", "args", cmd.Args())
			c.SetVal(value)
			return nil
		}
	}
	return fmt.Errorf("redis circuit breaker open: %w", circuitbreaker.ErrOpen)
}

func (h *CircuitBreakerHook) remember(cmd goredis.Cmder) {
	args := cmd.Args()
	switch cmd.Name() {
	case "hget":
		c, ok := cmd.(*goredis.StringCmd)
		if !ok || c.Err() != nil {
			return
		}
		h.mu.Lock()
		h.reads[readKey(args)] = c.Val()
		h.mu.Unlock()
	case "hset", "hdel":
		// The next HGET repopulates the field.
		if len(args) < 3 {
			return
		}
		h.mu.Lock()
		delete(h.reads, readKey(args))
		h.mu.Unlock()
	}
}

// readKey is "<hash>/<field>" from HGET/HSET/HDEL args.
func readKey(args []any) string {
	if len(args) < 3 {
		return ""
	}
	return fmt.Sprintf("%v/%v", args[1], args[2])
}
