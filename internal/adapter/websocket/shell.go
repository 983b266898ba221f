// Package websocket links the process to the UI shell hosting the screens.
// The shell reports lifecycle and environment changes and receives restart
// and apply-locale commands over a single WebSocket connection.
package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/mobile/event/lifecycle"

	"github.com/pscheid92/syncpulse/internal/adapter/metrics"
	"github.com/pscheid92/syncpulse/internal/app"
	"github.com/pscheid92/syncpulse/internal/domain"
	"github.com/pscheid92/syncpulse/internal/platform/correlation"
)

const (
	writeWait      = 5 * time.Second
	maxMessageSize = 64 * 1024
)

// Inbound message types. A lifecycle message carries a window stage
// transition and may expand into several screen events.
const (
	msgScreen      = "screen"
	msgLifecycle   = "lifecycle"
	msgEnvironment = "environment"
)

// Outbound message types.
const (
	msgRestartScreen = "restart_screen"
	msgApplyLocale   = "apply_locale"
)

type inboundMessage struct {
	Type   string              `json:"type"`
	Event  string              `json:"event,omitempty"`
	From   string              `json:"from,omitempty"`
	To     string              `json:"to,omitempty"`
	Screen domain.Screen       `json:"screen"`
	Locale *domain.LocaleState `json:"locale,omitempty"`
}

type outboundMessage struct {
	Type     string              `json:"type"`
	ScreenID domain.ScreenID     `json:"screen_id,omitempty"`
	Locale   *domain.LocaleState `json:"locale,omitempty"`
}

type eventDispatcher interface {
	Dispatch(ctx context.Context, ev app.Event) error
}

type shellConn struct {
	id string
	ws *websocket.Conn

	writeMu sync.Mutex
}

// ShellLink is the ScreenHost and Environment backed by the connected UI
// shell. A new connection replaces the previous one. Without a shell the
// environment is only recorded and restarts fail with ErrShellNotConnected.
type ShellLink struct {
	dispatcher eventDispatcher
	metrics    *metrics.IngressMetrics
	upgrader   websocket.Upgrader

	mu   sync.Mutex
	conn *shellConn
	env  domain.LocaleState
}

var (
	_ domain.ScreenHost  = (*ShellLink)(nil)
	_ domain.Environment = (*ShellLink)(nil)
	_ http.Handler       = (*ShellLink)(nil)
)

func NewShellLink(dispatcher eventDispatcher, initial domain.LocaleState, checkOrigin func(*http.Request) bool, m *metrics.IngressMetrics) *ShellLink {
	return &ShellLink{
		dispatcher: dispatcher,
		metrics:    m,
		env:        initial,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
	}
}

func (l *ShellLink) Current() domain.LocaleState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.env
}

// Apply records state as the current environment and forwards it to the
// shell when one is connected.
func (l *ShellLink) Apply(state domain.LocaleState) error {
	l.mu.Lock()
	l.env = state
	connected := l.conn != nil
	l.mu.Unlock()

	if !connected {
		slog.Debug("No shell connected, locale recorded only", "locale", state.String())
		return nil
	}
	return l.send(outboundMessage{Type: msgApplyLocale, Locale: &state})
}

func (l *ShellLink) Restart(id domain.ScreenID) error {
	return l.send(outboundMessage{Type: msgRestartScreen, ScreenID: id})
}

func (l *ShellLink) Connected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.conn != nil
}

// Close disconnects the current shell, if any.
func (l *ShellLink) Close() {
	l.mu.Lock()
	c := l.conn
	l.conn = nil
	l.mu.Unlock()

	if c != nil {
		_ = c.ws.Close()
	}
}

// ServeHTTP upgrades the request and reads shell messages until the
// connection closes or is replaced.
func (l *ShellLink) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := l.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("Shell upgrade failed", "remote_addr", r.RemoteAddr, "error", err)
		return
	}
	ws.SetReadLimit(maxMessageSize)

	c := &shellConn{id: uuid.NewString(), ws: ws}
	l.attach(c)
	defer l.detach(c)

	for {
		kind, data, err := ws.ReadMessage()
		if err != nil {
			slog.Debug("Shell read loop ended", "connection_id", c.id, "error", err)
			return
		}
		if kind != websocket.TextMessage {
			continue
		}
		l.handle(c, data)
	}
}

func (l *ShellLink) attach(c *shellConn) {
	l.mu.Lock()
	previous := l.conn
	l.conn = c
	l.mu.Unlock()

	if previous != nil {
		slog.Info("Shell connection replaced", "previous", previous.id, "connection_id", c.id)
		_ = previous.ws.Close()
	} else if l.metrics != nil {
		l.metrics.ShellConnections.Inc()
	}
	slog.Info("Shell connected", "connection_id", c.id)
}

func (l *ShellLink) detach(c *shellConn) {
	l.mu.Lock()
	current := l.conn == c
	if current {
		l.conn = nil
	}
	l.mu.Unlock()

	_ = c.ws.Close()
	if current {
		if l.metrics != nil {
			l.metrics.ShellConnections.Dec()
		}
		slog.Info("Shell disconnected", "connection_id", c.id)
	}
}

func (l *ShellLink) handle(c *shellConn, data []byte) {
	var msg inboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		slog.Warn("Malformed shell message", "connection_id", c.id, "error", err)
		l.count("inbound", "malformed")
		return
	}

	ctx := correlation.WithID(context.Background(), correlation.NewID())
	switch msg.Type {
	case msgScreen:
		l.count("inbound", msgScreen)
		typ, err := app.ParseEventType(msg.Event)
		if err != nil || typ == app.EventEnvironmentChanged {
			slog.WarnContext(ctx, "Unknown screen event from shell", "event", msg.Event)
			return
		}
		if msg.Screen.ID == "" {
			slog.WarnContext(ctx, "Screen event without screen id", "event", msg.Event)
			return
		}
		l.dispatch(ctx, app.Event{Type: typ, Screen: msg.Screen})

	case msgLifecycle:
		l.count("inbound", msgLifecycle)
		from, okFrom := app.ParseStage(msg.From)
		to, okTo := app.ParseStage(msg.To)
		if !okFrom || !okTo || msg.Screen.ID == "" {
			slog.WarnContext(ctx, "Invalid lifecycle transition from shell",
				"screen_id", msg.Screen.ID, "from", msg.From, "to", msg.To)
			return
		}
		app.NewScreenSender(l.dispatcher, msg.Screen).SendContext(ctx, lifecycle.Event{From: from, To: to})

	case msgEnvironment:
		l.count("inbound", msgEnvironment)
		if msg.Locale != nil {
			l.mu.Lock()
			l.env = *msg.Locale
			l.mu.Unlock()
		}
		l.dispatch(ctx, app.Event{Type: app.EventEnvironmentChanged})

	default:
		l.count("inbound", "unknown")
		slog.WarnContext(ctx, "Unknown shell message type", "type", msg.Type)
	}
}

func (l *ShellLink) dispatch(ctx context.Context, ev app.Event) {
	if err := l.dispatcher.Dispatch(ctx, ev); err != nil {
		slog.WarnContext(ctx, "Failed to dispatch shell event", "event", ev.Type, "error", err)
	}
}

func (l *ShellLink) send(msg outboundMessage) error {
	l.mu.Lock()
	c := l.conn
	l.mu.Unlock()
	if c == nil {
		return domain.ErrShellNotConnected
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode shell message: %w", err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("failed to send %s to shell: %w", msg.Type, err)
	}
	l.count("outbound", msg.Type)
	return nil
}

func (l *ShellLink) count(direction, typ string) {
	if l.metrics != nil {
		l.metrics.ShellMessages.WithLabelValues(direction, typ).Inc()
	}
}
