package socket

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	sio "github.com/zishang520/socket.io/clients/socket/v3"
	"github.com/zishang520/socket.io/v3/pkg/types"

	"github.com/mealdash/appcore/pkg/logger"
)

// Events delivered over the realtime channel.
const (
	EventJoinOrder       = "join_order"
	EventSendMessage     = "send_message"
	EventMessageReceived = "message_received"
)

// inboundEvents are the server-originated events the manager dispatches to
// subscribers.
var inboundEvents = []string{EventMessageReceived}

// ErrNotConnected is returned when an emit is attempted without a session.
var ErrNotConnected = errors.New("socket: not connected")

// ErrTokenExpired is returned by Connect when the stored token's exp claim
// is already in the past. Callers rotate via SetToken and retry.
var ErrTokenExpired = errors.New("socket: auth token expired")

// Handler receives the payload of one inbound event.
type Handler func(data map[string]any)

// Session wraps one live socket.io connection. Exactly one may exist per
// Manager; creating a new one tears down the old first.
type Session struct {
	mu            sync.Mutex
	sock          *sio.Socket
	connected     bool
	everConnected bool
}

// Connected reports whether the underlying transport is currently connected.
func (s *Session) Connected() bool {
	s.mu.Lock()
	sock := s.sock
	connected := s.connected
	s.mu.Unlock()

	if connected {
		return true
	}
	if sock != nil && sock.Connected() {
		s.mu.Lock()
		s.connected = true
		s.mu.Unlock()
		return true
	}
	return false
}

func (s *Session) emit(event string, data map[string]any) error {
	s.mu.Lock()
	sock := s.sock
	s.mu.Unlock()
	if sock == nil {
		return ErrNotConnected
	}
	sock.Emit(event, data)
	return nil
}

func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sock != nil {
		s.sock.Disconnect()
		s.sock = nil
	}
	s.connected = false
}

// Manager owns the process-wide socket.io session: connect, token rotation,
// and teardown. It is stateless about retries; reconnect/backoff after a
// transport drop is left to the socket.io client itself.
type Manager struct {
	mu         sync.Mutex
	endpoint   string
	token      string
	session    *Session
	generation uint64

	subs    map[string]map[uint64]Handler
	nextSub uint64

	reconnectFns map[uint64]func()
	nextRec      uint64

	// dialFn is a test seam; production use dials socket.io.
	dialFn func(endpoint, token string) (*Session, error)
}

// NewManager creates a manager with no connection. Call Init before Connect.
func NewManager() *Manager {
	m := &Manager{
		subs:         make(map[string]map[uint64]Handler),
		reconnectFns: make(map[uint64]func()),
	}
	m.dialFn = m.dialSocketIO
	return m
}

// Init stores the endpoint and token without connecting.
func (m *Manager) Init(endpoint, token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.endpoint = endpoint
	m.token = token
}

// Connect ensures a live session exists and returns it. If the current
// session is still connected it is returned unchanged; otherwise a new one is
// dialed with the current token, tearing down any stale session first.
func (m *Manager) Connect() (*Session, error) {
	m.mu.Lock()
	if m.session != nil && m.session.Connected() {
		sess := m.session
		m.mu.Unlock()
		return sess, nil
	}
	old := m.session
	m.session = nil
	endpoint := m.endpoint
	token := m.token
	dial := m.dialFn
	m.generation++
	gen := m.generation
	m.mu.Unlock()

	if old != nil {
		old.close()
	}
	if endpoint == "" {
		return nil, errors.New("socket: not initialized")
	}
	if token != "" && tokenExpired(token) {
		return nil, ErrTokenExpired
	}

	sess, err := dial(endpoint, token)
	if err != nil {
		return nil, fmt.Errorf("socket: connect failed: %w", err)
	}

	m.mu.Lock()
	if gen != m.generation {
		// A SetToken or Disconnect superseded this attempt while we were
		// dialing; the newer intent wins.
		m.mu.Unlock()
		sess.close()
		return nil, errors.New("socket: connect superseded")
	}
	m.session = sess
	m.mu.Unlock()
	return sess, nil
}

// EnsureConnected connects if needed, discarding the session handle.
func (m *Manager) EnsureConnected() error {
	_, err := m.Connect()
	return err
}

// SetToken updates the stored token. A connected session is left alone so an
// active conversation is not disrupted; it picks the token up on its next
// reconnect. A disconnected (or absent) session is reconnected immediately
// with the new token. A second SetToken while that reconnect is pending
// supersedes it rather than stacking.
func (m *Manager) SetToken(token string) {
	m.mu.Lock()
	m.token = token
	live := m.session != nil && m.session.Connected()
	m.generation++
	gen := m.generation
	m.mu.Unlock()

	if live {
		return
	}
	go m.reconnect(gen)
}

// Disconnect tears down the session and clears the handle. Safe to call when
// already disconnected. Pending reconnects are cancelled.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	sess := m.session
	m.session = nil
	m.generation++
	m.mu.Unlock()

	if sess != nil {
		sess.close()
	}
}

// Connected reports whether a live session exists.
func (m *Manager) Connected() bool {
	m.mu.Lock()
	sess := m.session
	m.mu.Unlock()
	return sess != nil && sess.Connected()
}

// Emit sends an event over the current session.
func (m *Manager) Emit(event string, data map[string]any) error {
	m.mu.Lock()
	sess := m.session
	m.mu.Unlock()
	if sess == nil {
		return ErrNotConnected
	}
	logger.Tracef("socket: emit %s", event)
	return sess.emit(event, data)
}

// Subscribe registers a handler for an inbound event and returns its
// unsubscribe func. Handlers run on the socket callback goroutine so delivery
// order is preserved per connection.
func (m *Manager) Subscribe(event string, h Handler) (cancel func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.subs[event] == nil {
		m.subs[event] = make(map[uint64]Handler)
	}
	m.nextSub++
	id := m.nextSub
	m.subs[event][id] = h
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs[event], id)
	}
}

// OnReconnect registers a callback invoked after a forced reconnect replaced
// the session. Reconnecting invalidates all channel memberships, so channels
// use this to re-join. Returns the unregister func.
func (m *Manager) OnReconnect(fn func()) (cancel func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextRec++
	id := m.nextRec
	m.reconnectFns[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.reconnectFns, id)
	}
}

func (m *Manager) reconnect(gen uint64) {
	m.mu.Lock()
	if gen != m.generation {
		m.mu.Unlock()
		return
	}
	old := m.session
	m.session = nil
	endpoint := m.endpoint
	token := m.token
	dial := m.dialFn
	m.mu.Unlock()

	if old != nil {
		old.close()
	}
	if endpoint == "" {
		return
	}
	if token != "" && tokenExpired(token) {
		logger.Warnf("socket: reconnect skipped: %v", ErrTokenExpired)
		return
	}

	sess, err := dial(endpoint, token)
	if err != nil {
		logger.Warnf("socket: reconnect failed: %v", err)
		return
	}

	m.mu.Lock()
	if gen != m.generation {
		m.mu.Unlock()
		sess.close()
		return
	}
	m.session = sess
	m.mu.Unlock()

	m.notifyReconnect()
}

// onTransportConnect handles a connect event from the socket.io client. The
// first one completes the dial; any later one means the transport dropped and
// recovered on its own, which invalidates server-side room membership just
// like a forced reconnect does, so subscribers are notified to re-join.
func (m *Manager) onTransportConnect(sess *Session) {
	sess.mu.Lock()
	rejoined := sess.everConnected
	sess.everConnected = true
	sess.connected = true
	sess.mu.Unlock()

	if !rejoined {
		return
	}

	m.mu.Lock()
	current := m.session == sess
	m.mu.Unlock()
	if !current {
		return
	}

	logger.Infof("socket: transport reconnected")
	m.notifyReconnect()
}

func (m *Manager) notifyReconnect() {
	m.mu.Lock()
	fns := make([]func(), 0, len(m.reconnectFns))
	for _, fn := range m.reconnectFns {
		fns = append(fns, fn)
	}
	m.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (m *Manager) dispatch(event string, data map[string]any) {
	m.mu.Lock()
	handlers := make([]Handler, 0, len(m.subs[event]))
	for _, h := range m.subs[event] {
		handlers = append(handlers, h)
	}
	m.mu.Unlock()
	for _, h := range handlers {
		h(data)
	}
}

// dialSocketIO opens a socket.io connection authenticated with the token and
// wires lifecycle plus inbound event dispatch.
func (m *Manager) dialSocketIO(endpoint, token string) (*Session, error) {
	opts := sio.DefaultOptions()
	opts.SetTransports(types.NewSet(sio.Polling, sio.WebSocket))
	opts.SetAuth(map[string]interface{}{
		"token": token,
	})

	sock, err := sio.Connect(endpoint, opts)
	if err != nil {
		return nil, err
	}

	sess := &Session{sock: sock}

	sock.On(types.EventName("connect"), func(args ...any) {
		logger.Infof("socket: connected, id=%s", sock.Id())
		m.onTransportConnect(sess)
	})

	sock.On(types.EventName("disconnect"), func(args ...any) {
		sess.mu.Lock()
		sess.connected = false
		sess.mu.Unlock()

		reason := ""
		if len(args) > 0 {
			if r, ok := args[0].(string); ok {
				reason = r
			}
		}
		logger.Infof("socket: disconnected: %s", reason)
	})

	sock.On(types.EventName("connect_error"), func(args ...any) {
		// The transport retries with its own backoff; nothing to do here
		// beyond surfacing a transient indicator.
		if len(args) > 0 {
			logger.Warnf("socket: connection error: %v", args[0])
		}
	})

	for _, event := range inboundEvents {
		ev := event // capture for closure
		sock.On(types.EventName(ev), func(args ...any) {
			var data map[string]any
			if len(args) > 0 {
				if payload, ok := args[0].(map[string]any); ok {
					data = payload
				}
			}
			logger.Tracef("socket: received %s", ev)
			m.dispatch(ev, data)
		})
	}

	return sess, nil
}

// tokenExpired inspects the token's exp claim without verifying the
// signature; verification is the server's job.
func tokenExpired(token string) bool {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Before(time.Now())
}
