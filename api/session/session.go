// Package session runs one live websocket connection: authentication, registry
// membership, heartbeats, inbound actions and outbound event delivery.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/linesmerrill/change-order-api/api/metrics"
	"github.com/linesmerrill/change-order-api/api/registry"
	"github.com/linesmerrill/change-order-api/databases"
	"github.com/linesmerrill/change-order-api/models"
)

// ErrNotActive is returned when an action reaches a session that is not Active
var ErrNotActive = errors.New("session not active")

const maxMessageSize = 16 * 1024

// Conn is the part of *websocket.Conn a session uses
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetReadLimit(limit int64)
	SetPongHandler(h func(appData string) error)
	Close() error
}

// Verifier turns a credential into a verified identity
type Verifier interface {
	Verify(ctx context.Context, credential string) (models.Identity, error)
}

// Notifier fans an event out to an order's subscribers
type Notifier interface {
	Notify(ctx context.Context, changeOrderID string, event models.Event) error
}

// Settings tune the per-connection transport
type Settings struct {
	HeartbeatInterval time.Duration
	WriteTimeout      time.Duration
	SendBuffer        int
}

// DefaultSettings returns the settings used when none are configured
func DefaultSettings() Settings {
	return Settings{
		HeartbeatInterval: 30 * time.Second,
		WriteTimeout:      10 * time.Second,
		SendBuffer:        32,
	}
}

// Hub holds what every session shares
type Hub struct {
	Verifier Verifier
	Registry *registry.Registry
	DB       databases.ChangeOrderDatabase
	Notifier Notifier
	Settings Settings
	Now      func() time.Time

	validate *validator.Validate
	once     sync.Once
}

func (h *Hub) init() {
	h.once.Do(func() {
		h.validate = validator.New()
		if h.Now == nil {
			h.Now = func() time.Time { return time.Now().UTC() }
		}
		def := DefaultSettings()
		if h.Settings.HeartbeatInterval <= 0 {
			h.Settings.HeartbeatInterval = def.HeartbeatInterval
		}
		if h.Settings.WriteTimeout <= 0 {
			h.Settings.WriteTimeout = def.WriteTimeout
		}
		if h.Settings.SendBuffer <= 0 {
			h.Settings.SendBuffer = def.SendBuffer
		}
	})
}

// Serve runs conn until it disconnects or ctx ends. It returns models.ErrAuthRejected
// when the credential does not verify.
func (h *Hub) Serve(ctx context.Context, conn Conn, credential string) error {
	s := h.NewSession(conn)
	return s.Run(ctx, credential)
}

// Session is one live connection
type Session struct {
	id   string
	conn Conn
	hub  *Hub

	mu       sync.Mutex
	state    State
	identity models.Identity

	send    chan models.Event
	inbound chan []byte

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// NewSession wraps conn in a session in the Connecting state
func (h *Hub) NewSession(conn Conn) *Session {
	h.init()
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		id:      uuid.New().String(),
		conn:    conn,
		hub:     h,
		state:   Connecting,
		send:    make(chan models.Event, h.Settings.SendBuffer),
		inbound: make(chan []byte, h.Settings.SendBuffer),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// ID identifies this connection, not the participant
func (s *Session) ID() string { return s.id }

// State returns the current lifecycle state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Identity returns the verified identity; it is zero before authentication
func (s *Session) Identity() models.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

func (s *Session) fire(t Trigger) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	to, ok := Next(s.state, t)
	if ok {
		s.state = to
	}
	return ok
}

// Run authenticates, activates and then drives the session until the connection
// drops or ctx is cancelled. The session is Closed when Run returns.
func (s *Session) Run(ctx context.Context, credential string) error {
	stop := context.AfterFunc(ctx, s.Close)
	defer stop()
	defer s.Close()

	if err := s.Authenticate(ctx, credential); err != nil {
		return err
	}
	if err := s.Activate(); err != nil {
		return err
	}

	go s.readPump()
	for {
		select {
		case <-s.ctx.Done():
			return nil
		case raw := <-s.inbound:
			if err := s.Handle(s.ctx, raw); err != nil {
				s.logActionError(err)
			}
		}
	}
}

// Authenticate moves Connecting to Authenticated, or closes the connection when
// the credential is rejected
func (s *Session) Authenticate(ctx context.Context, credential string) error {
	identity, err := s.hub.Verifier.Verify(ctx, credential)
	if err != nil {
		zap.S().Infow("websocket authentication rejected", "sessionId", s.id, "error", err)
		s.fire(AuthFailed)
		deadline := time.Now().Add(s.hub.Settings.WriteTimeout)
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "unauthorized"), deadline)
		s.Close()
		if errors.Is(err, models.ErrAuthRejected) {
			return err
		}
		return fmt.Errorf("%w: %v", models.ErrAuthRejected, err)
	}

	s.mu.Lock()
	s.identity = identity
	s.mu.Unlock()
	if !s.fire(AuthSucceeded) {
		return ErrNotActive
	}
	return nil
}

// Activate registers the session under its identity and starts the heartbeat
// and writer. A session already registered for the identity is closed.
func (s *Session) Activate() error {
	// the state change and the registration happen under one lock so a
	// concurrent Close either sees Active and unregisters, or prevents registering
	s.mu.Lock()
	to, ok := Next(s.state, Registered)
	if !ok {
		s.mu.Unlock()
		return ErrNotActive
	}
	s.state = to
	identity := s.identity
	previous, replaced := s.hub.Registry.Register(identity.Username, s)
	s.mu.Unlock()

	metrics.SessionsActive.Set(float64(s.hub.Registry.Len()))
	if replaced {
		if old, ok := previous.(*Session); ok {
			zap.S().Infow("closing superseded session",
				"identity", identity.Username,
				"sessionId", old.id)
			go old.Close()
		}
	}

	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(2 * s.hub.Settings.HeartbeatInterval))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(2 * s.hub.Settings.HeartbeatInterval))
	})

	go s.heartbeat()
	go s.writePump()

	zap.S().Infow("websocket session active",
		"identity", identity.Username,
		"role", identity.Role,
		"sessionId", s.id)
	return nil
}

// Deliver queues event for the writer without blocking. It reports false when
// the session is closed or its outbound buffer is full.
func (s *Session) Deliver(event models.Event) bool {
	select {
	case <-s.ctx.Done():
		return false
	default:
	}
	select {
	case s.send <- event:
		return true
	default:
		zap.S().Warnw("outbound buffer full, dropping event",
			"sessionId", s.id,
			"type", event.Type,
			"changeOrderId", event.ChangeOrderID)
		return false
	}
}

// Handle decodes and applies one inbound message. Malformed messages are
// discarded and reported as models.ErrMalformedInput without touching state.
func (s *Session) Handle(ctx context.Context, raw []byte) error {
	if s.State() != Active {
		return ErrNotActive
	}

	var action models.Action
	if err := json.Unmarshal(raw, &action); err != nil {
		metrics.InboundDiscardedTotal.Inc()
		return fmt.Errorf("%w: %v", models.ErrMalformedInput, err)
	}
	if err := s.hub.validate.Struct(action); err != nil {
		metrics.InboundDiscardedTotal.Inc()
		return fmt.Errorf("%w: %v", models.ErrMalformedInput, err)
	}

	username := s.Identity().Username
	switch action.Action {
	case models.ActionSubscribe:
		return s.hub.DB.AddSubscriber(ctx, action.ChangeOrderID, username)
	case models.ActionUnsubscribe:
		return s.hub.DB.RemoveSubscriber(ctx, action.ChangeOrderID, username)
	case models.ActionChat:
		msg := models.ChatMessage{
			Author:    username,
			Text:      action.Message,
			Timestamp: s.hub.Now(),
		}
		if err := s.hub.DB.AppendChat(ctx, action.ChangeOrderID, msg); err != nil {
			return err
		}
		if s.hub.Notifier == nil {
			return nil
		}
		return s.hub.Notifier.Notify(ctx, action.ChangeOrderID, models.NewChatEvent(action.ChangeOrderID, msg))
	}
	metrics.InboundDiscardedTotal.Inc()
	return models.ErrMalformedInput
}

// Close moves the session to Closed, unregisters it if it is still the
// registered session for its identity and closes the connection. Safe to call
// more than once and from any goroutine.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		wasActive := s.state == Active
		if s.state != Closed {
			s.state = Closed
		}
		identity := s.identity
		s.mu.Unlock()

		s.cancel()
		if wasActive {
			s.hub.Registry.UnregisterIf(identity.Username, s)
			metrics.SessionsActive.Set(float64(s.hub.Registry.Len()))
			zap.S().Infow("websocket session closed",
				"identity", identity.Username,
				"sessionId", s.id)
		}
		_ = s.conn.Close()
	})
}

func (s *Session) readPump() {
	defer s.Close()
	for {
		messageType, message, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				zap.S().Debugw("websocket read error", "sessionId", s.id, "error", err)
			}
			return
		}
		if messageType != websocket.TextMessage {
			metrics.InboundDiscardedTotal.Inc()
			continue
		}
		select {
		case <-s.ctx.Done():
			return
		case s.inbound <- message:
		}
	}
}

func (s *Session) writePump() {
	for {
		select {
		case <-s.ctx.Done():
			return
		case event := <-s.send:
			b, err := json.Marshal(event)
			if err != nil {
				zap.S().Errorw("failed to marshal event", "sessionId", s.id, "error", err)
				continue
			}
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.hub.Settings.WriteTimeout))
			if err := s.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				zap.S().Infow("websocket write failed", "sessionId", s.id, "error", err)
				s.Close()
				return
			}
		}
	}
}

// heartbeat pings on its own goroutine through WriteControl so a busy writer
// never delays it
func (s *Session) heartbeat() {
	ticker := time.NewTicker(s.hub.Settings.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			deadline := time.Now().Add(s.hub.Settings.WriteTimeout)
			if err := s.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				zap.S().Infow("websocket heartbeat failed", "sessionId", s.id, "error", err)
				s.Close()
				return
			}
		}
	}
}

func (s *Session) logActionError(err error) {
	identity := s.Identity()
	switch {
	case errors.Is(err, models.ErrMalformedInput):
		zap.S().Debugw("discarded malformed message",
			"identity", identity.Username, "sessionId", s.id, "error", err)
	case errors.Is(err, context.Canceled):
	default:
		zap.S().Warnw("websocket action failed",
			"identity", identity.Username, "sessionId", s.id, "error", err)
	}
}
