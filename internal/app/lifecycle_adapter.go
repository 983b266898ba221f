package app

import (
	"context"
	"log/slog"

	"golang.org/x/mobile/event/lifecycle"

	"github.com/pscheid92/syncpulse/internal/domain"
)

type eventDispatcher interface {
	Dispatch(ctx context.Context, ev Event) error
}

// ScreenSender receives golang.org/x/mobile lifecycle events for one
// window-backed screen and forwards them as screen events.
//
// Crossing into StageAlive creates the screen and crossing into StageFocused
// resumes it. The reverse crossings pause and destroy it.
type ScreenSender struct {
	dispatcher eventDispatcher
	screen     domain.Screen
}

func NewScreenSender(dispatcher eventDispatcher, screen domain.Screen) *ScreenSender {
	return &ScreenSender{dispatcher: dispatcher, screen: screen}
}

// Send implements the shiny lifecycler Sender contract. Non-lifecycle
// events are ignored.
func (s *ScreenSender) Send(event any) {
	s.SendContext(context.Background(), event)
}

// SendContext is Send with the caller's context, so the resulting events
// keep its correlation ID.
func (s *ScreenSender) SendContext(ctx context.Context, event any) {
	e, ok := event.(lifecycle.Event)
	if !ok {
		return
	}
	for _, t := range TranslateLifecycle(e) {
		if err := s.dispatcher.Dispatch(ctx, Event{Type: t, Screen: s.screen}); err != nil {
			slog.WarnContext(ctx, "Dropping lifecycle event", "event", t, "screen_id", s.screen.ID, "error", err)
		}
	}
}

// ParseStage maps a stage name ("dead", "alive", "visible", "focused") to
// its lifecycle.Stage.
func ParseStage(name string) (lifecycle.Stage, bool) {
	switch name {
	case "dead":
		return lifecycle.StageDead, true
	case "alive":
		return lifecycle.StageAlive, true
	case "visible":
		return lifecycle.StageVisible, true
	case "focused":
		return lifecycle.StageFocused, true
	default:
		return 0, false
	}
}

// TranslateLifecycle maps a stage transition to screen events, in order.
func TranslateLifecycle(e lifecycle.Event) []EventType {
	var events []EventType
	if e.Crosses(lifecycle.StageAlive) == lifecycle.CrossOn {
		events = append(events, EventScreenCreated)
	}
	if e.Crosses(lifecycle.StageFocused) == lifecycle.CrossOn {
		events = append(events, EventScreenResumed)
	}
	if e.Crosses(lifecycle.StageFocused) == lifecycle.CrossOff {
		events = append(events, EventScreenPaused)
	}
	if e.Crosses(lifecycle.StageAlive) == lifecycle.CrossOff {
		events = append(events, EventScreenDestroyed)
	}
	return events
}
