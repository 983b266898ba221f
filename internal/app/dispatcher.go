package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/pscheid92/syncpulse/internal/domain"
	"github.com/pscheid92/syncpulse/internal/platform/correlation"
)

const defaultQueueSize = 256

type EventType string

const (
	EventScreenCreated      EventType = "screen_created"
	EventScreenResumed      EventType = "screen_resumed"
	EventScreenPaused       EventType = "screen_paused"
	EventScreenDestroyed    EventType = "screen_destroyed"
	EventEnvironmentChanged EventType = "environment_changed"

	// EventLocaleUpdated is raised in-process after the persisted locale was
	// changed. ParseEventType does not accept it.
	EventLocaleUpdated EventType = "locale_updated"
)

// ParseEventType validates an event type received from outside.
func ParseEventType(s string) (EventType, error) {
	switch t := EventType(s); t {
	case EventScreenCreated, EventScreenResumed, EventScreenPaused, EventScreenDestroyed, EventEnvironmentChanged:
		return t, nil
	default:
		return "", fmt.Errorf("unknown event type %q", s)
	}
}

// Event is one lifecycle notification. Screen is unused for
// EventEnvironmentChanged and EventLocaleUpdated.
type Event struct {
	Type          EventType
	Screen        domain.Screen
	CorrelationID string
}

// EventSink receives lifecycle events one at a time.
type EventSink interface {
	OnScreenCreated(ctx context.Context, screen domain.Screen)
	OnScreenResumed(ctx context.Context, screen domain.Screen)
	OnScreenPaused(ctx context.Context, screen domain.Screen)
	OnScreenDestroyed(ctx context.Context, screen domain.Screen)
	OnEnvironmentChanged(ctx context.Context)
	OnLocaleUpdated(ctx context.Context)
}

// CrashRecorder persists that the process hit an unexpected panic, so the
// next start can report it.
type CrashRecorder interface {
	MarkCrashed(ctx context.Context) error
}

func recordCrash(ctx context.Context, crashes CrashRecorder) {
	if crashes == nil {
		return
	}
	if err := crashes.MarkCrashed(ctx); err != nil {
		slog.ErrorContext(ctx, "Failed to record crash", "error", err)
	}
}

type dispatcherCmd interface{ isDispatcherCmd() }

type baseDispatcherCmd struct{}

func (baseDispatcherCmd) isDispatcherCmd() {}

type eventCmd struct {
	baseDispatcherCmd
	event Event
}

type barrierCmd struct {
	baseDispatcherCmd
	reached chan struct{}
}

// Dispatcher is the serialized event dispatch context. Producers on any
// goroutine enqueue events; one goroutine delivers them to the sink in order.
type Dispatcher struct {
	sink    EventSink
	crashes CrashRecorder
	cmdCh   chan dispatcherCmd
	quit    chan struct{}
	done    chan struct{}

	stopOnce sync.Once
}

// NewDispatcher starts the dispatch goroutine. A handler panic is logged,
// recorded on crashes (may be nil) and does not stop delivery.
func NewDispatcher(sink EventSink, queueSize int, crashes CrashRecorder) *Dispatcher {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	d := &Dispatcher{
		sink:    sink,
		crashes: crashes,
		cmdCh:   make(chan dispatcherCmd, queueSize),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go d.run()
	return d
}

// Dispatch enqueues an event. It blocks while the queue is full.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) error {
	if ev.CorrelationID == "" {
		if id, ok := correlation.ID(ctx); ok {
			ev.CorrelationID = id
		}
	}
	return d.send(ctx, eventCmd{event: ev})
}

// Drain blocks until every event enqueued before the call was delivered.
func (d *Dispatcher) Drain(ctx context.Context) error {
	reached := make(chan struct{})
	if err := d.send(ctx, barrierCmd{reached: reached}); err != nil {
		return err
	}
	select {
	case <-reached:
		return nil
	case <-d.done:
		return domain.ErrDispatcherStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) send(ctx context.Context, cmd dispatcherCmd) error {
	select {
	case <-d.quit:
		return domain.ErrDispatcherStopped
	default:
	}

	select {
	case d.cmdCh <- cmd:
		return nil
	case <-d.quit:
		return domain.ErrDispatcherStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop delivers the queued events, then stops the dispatch goroutine.
// Events dispatched after Stop return ErrDispatcherStopped.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() { close(d.quit) })
	<-d.done
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for {
		select {
		case cmd := <-d.cmdCh:
			d.handle(cmd)
		case <-d.quit:
			for {
				select {
				case cmd := <-d.cmdCh:
					d.handle(cmd)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) handle(cmd dispatcherCmd) {
	switch c := cmd.(type) {
	case eventCmd:
		d.deliver(c.event)
	case barrierCmd:
		close(c.reached)
	}
}

func (d *Dispatcher) deliver(ev Event) {
	id := ev.CorrelationID
	if id == "" {
		id = correlation.NewID()
	}
	ctx := correlation.WithID(context.Background(), id)

	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "Lifecycle event handler panicked", "event", ev.Type, "screen_id", ev.Screen.ID, "panic", r)
			recordCrash(ctx, d.crashes)
		}
	}()

	switch ev.Type {
	case EventScreenCreated:
		d.sink.OnScreenCreated(ctx, ev.Screen)
	case EventScreenResumed:
		d.sink.OnScreenResumed(ctx, ev.Screen)
	case EventScreenPaused:
		d.sink.OnScreenPaused(ctx, ev.Screen)
	case EventScreenDestroyed:
		d.sink.OnScreenDestroyed(ctx, ev.Screen)
	case EventEnvironmentChanged:
		d.sink.OnEnvironmentChanged(ctx)
	case EventLocaleUpdated:
		d.sink.OnLocaleUpdated(ctx)
	default:
		slog.WarnContext(ctx, "Dropping unknown lifecycle event", "event", ev.Type)
	}
}
