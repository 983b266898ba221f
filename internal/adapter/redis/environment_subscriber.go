package redis

import (
	"context"
	"fmt"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"

	"github.com/pscheid92/syncpulse/internal/app"
	"github.com/pscheid92/syncpulse/internal/platform/correlation"
)

const environmentChannel = "environment:changed"

type eventDispatcher interface {
	Dispatch(ctx context.Context, ev app.Event) error
}

// cacheInvalidator drops cached preferences written by another process.
type cacheInvalidator interface {
	Invalidate()
}

// EnvironmentSubscriber turns messages on the environment:changed channel
// into environment change events.
type EnvironmentSubscriber struct {
	rdb        *goredis.Client
	dispatcher eventDispatcher
	cache      cacheInvalidator
}

func NewEnvironmentSubscriber(rdb *goredis.Client, dispatcher eventDispatcher, cache cacheInvalidator) *EnvironmentSubscriber {
	return &EnvironmentSubscriber{rdb: rdb, dispatcher: dispatcher, cache: cache}
}

// Start blocks until ctx is cancelled or the subscription closes.
func (s *EnvironmentSubscriber) Start(ctx context.Context) {
	pubsub := s.rdb.Subscribe(ctx, environmentChannel)
	defer func() { _ = pubsub.Close() }()

	ch := pubsub.Channel()
	for {
		select {
		case msg := <-ch:
			if msg == nil {
				return
			}
			s.handle(ctx, msg.Payload)
		case <-ctx.Done():
			return
		}
	}
}

func (s *EnvironmentSubscriber) handle(ctx context.Context, payload string) {
	ctx, id := correlation.Ensure(ctx)
	if s.cache != nil {
		s.cache.Invalidate()
	}
	ev := app.Event{Type: app.EventEnvironmentChanged, CorrelationID: id}
	if err := s.dispatcher.Dispatch(ctx, ev); err != nil {
		slog.WarnContext(ctx, "Failed to dispatch environment change", "reason", payload, "error", err)
		return
	}
	slog.DebugContext(ctx, "Environment change received via pub/sub", "reason", payload)
}

// PublishEnvironmentChanged notifies every subscriber that the environment
// or the persisted preferences changed.
func PublishEnvironmentChanged(ctx context.Context, rdb *goredis.Client, reason string) error {
	if err := rdb.Publish(ctx, environmentChannel, reason).Err(); err != nil {
		return fmt.Errorf("failed to publish environment change: %w", err)
	}
	return nil
}

// EnvironmentPublisher announces environment changes on the shared channel.
type EnvironmentPublisher struct {
	rdb *goredis.Client
}

func NewEnvironmentPublisher(rdb *goredis.Client) *EnvironmentPublisher {
	return &EnvironmentPublisher{rdb: rdb}
}

func (p *EnvironmentPublisher) NotifyEnvironmentChanged(ctx context.Context, reason string) error {
	return PublishEnvironmentChanged(ctx, p.rdb, reason)
}
