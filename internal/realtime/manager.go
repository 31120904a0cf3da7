package realtime

import (
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Event is the wire envelope for every realtime message, both
// directions.
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Handler receives events of one subscribed type.
type Handler func(Event)

// Options configures the manager's transport.
type Options struct {
	URL              string
	HandshakeTimeout time.Duration
	// Reconnect backoff bounds. Retries are unbounded while a token is
	// held; availability wins over backpressure on this channel.
	ReconnectMin time.Duration
	ReconnectMax time.Duration
}

// Manager owns the process-wide realtime transport: at most one open
// connection per bearer token. Every consumer acquires it independently
// on mount; re-acquiring with the same token is idempotent, acquiring
// with a different token tears the old transport down first. Consumers
// never see raw transport events, only the level-triggered connected
// state plus typed events.
type Manager struct {
	opts   Options
	logger *zap.Logger

	mu        sync.Mutex
	token     string
	refs      int
	conn      *connection
	connected bool
	handlers  map[string]map[int]Handler
	stateSubs map[int]func(bool)
	nextID    int
}

func NewManager(opts Options, logger *zap.Logger) *Manager {
	if opts.HandshakeTimeout == 0 {
		opts.HandshakeTimeout = 10 * time.Second
	}
	if opts.ReconnectMin == 0 {
		opts.ReconnectMin = 500 * time.Millisecond
	}
	if opts.ReconnectMax == 0 {
		opts.ReconnectMax = 30 * time.Second
	}
	return &Manager{
		opts:      opts,
		logger:    logger,
		handlers:  make(map[string]map[int]Handler),
		stateSubs: make(map[int]func(bool)),
	}
}

// Handle is one consumer's claim on the shared transport. Release is
// safe to call more than once.
type Handle struct {
	m    *Manager
	once sync.Once
}

// Acquire registers a consumer for the given token. The transport is
// opened lazily on the first acquire and shared by every later one; a
// token change closes the previous transport before opening the new
// one.
func (m *Manager) Acquire(token string) *Handle {
	m.mu.Lock()
	if m.conn != nil && m.token != token {
		m.closeConnLocked()
	}
	m.token = token
	if m.conn == nil && token != "" {
		m.conn = m.startConnection(token)
	}
	m.refs++
	m.mu.Unlock()

	return &Handle{m: m}
}

// Release drops one consumer. When the last consumer releases, the
// transport closes and the keyed state clears.
func (h *Handle) Release() {
	h.once.Do(func() {
		m := h.m
		m.mu.Lock()
		m.refs--
		if m.refs <= 0 {
			m.refs = 0
			m.token = ""
			m.closeConnLocked()
		}
		m.mu.Unlock()
	})
}

// Connected reports the level-triggered transport state.
func (m *Manager) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// Subscribe registers fn for one event type and returns its remover.
func (m *Manager) Subscribe(eventType string, fn Handler) func() {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	if m.handlers[eventType] == nil {
		m.handlers[eventType] = make(map[int]Handler)
	}
	m.handlers[eventType][id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.handlers[eventType], id)
		m.mu.Unlock()
	}
}

// OnConnectionChange registers fn for connect/disconnect transitions
// and invokes it once with the current state so late subscribers can
// catch up (for example to re-send a thread subscription).
func (m *Manager) OnConnectionChange(fn func(bool)) func() {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.stateSubs[id] = fn
	current := m.connected
	m.mu.Unlock()

	fn(current)

	return func() {
		m.mu.Lock()
		delete(m.stateSubs, id)
		m.mu.Unlock()
	}
}

// Publish queues a client-to-server event, fire and forget. Events are
// dropped while disconnected; callers that need delivery must pair the
// publish with a REST call.
func (m *Manager) Publish(eventType string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		m.logger.Error("Failed to marshal event payload", zap.String("type", eventType), zap.Error(err))
		return
	}
	frame, err := json.Marshal(Event{Type: eventType, Payload: data})
	if err != nil {
		m.logger.Error("Failed to marshal event", zap.String("type", eventType), zap.Error(err))
		return
	}

	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	if conn == nil {
		return
	}
	select {
	case conn.send <- frame:
	default:
		m.logger.Debug("Dropping event, send buffer full", zap.String("type", eventType))
	}
}

// closeConnLocked stops the current connection. The disconnect
// transition is delivered by the connection's own run loop as it winds
// down, keyed to it still being current.
func (m *Manager) closeConnLocked() {
	if m.conn == nil {
		return
	}
	m.conn.close()
	m.conn = nil
	if m.connected {
		m.connected = false
		subs := m.snapshotStateSubsLocked()
		go func() {
			for _, fn := range subs {
				fn(false)
			}
		}()
	}
}

// setConnected records a state transition reported by conn, ignoring
// stale connections that lost a token race.
func (m *Manager) setConnected(conn *connection, connected bool) {
	m.mu.Lock()
	if m.conn != conn || m.connected == connected {
		m.mu.Unlock()
		return
	}
	m.connected = connected
	subs := m.snapshotStateSubsLocked()
	m.mu.Unlock()

	for _, fn := range subs {
		fn(connected)
	}
}

func (m *Manager) snapshotStateSubsLocked() []func(bool) {
	subs := make([]func(bool), 0, len(m.stateSubs))
	for _, fn := range m.stateSubs {
		subs = append(subs, fn)
	}
	return subs
}

// dispatch fans one inbound event out to its subscribers.
func (m *Manager) dispatch(conn *connection, ev Event) {
	m.mu.Lock()
	if m.conn != conn {
		m.mu.Unlock()
		return
	}
	handlers := make([]Handler, 0, len(m.handlers[ev.Type]))
	for _, fn := range m.handlers[ev.Type] {
		handlers = append(handlers, fn)
	}
	m.mu.Unlock()

	for _, fn := range handlers {
		fn(ev)
	}
}
