package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shwemart/storefront-client/internal/domain"
	"github.com/shwemart/storefront-client/internal/realtime"
	"github.com/shwemart/storefront-client/internal/syncx"
)

var (
	ErrNoThread       = errors.New("no thread is open")
	ErrUnknownMessage = errors.New("message is not in the current thread")
)

// API is the slice of the REST client the engine needs.
type API interface {
	ThreadMessages(ctx context.Context, orderID string, limit int) ([]domain.Message, error)
	SendMessage(ctx context.Context, orderID, clientID, body string) (*domain.Message, error)
	MarkThreadRead(ctx context.Context, orderID, messageID string) (*domain.ReadCursor, error)
}

// Realtime is the slice of the connection manager the engine needs.
type Realtime interface {
	Subscribe(eventType string, fn realtime.Handler) func()
	OnConnectionChange(fn func(bool)) func()
	Publish(eventType string, payload interface{})
}

// Engine keeps one order thread's message log and per-participant read
// cursors converged across REST history fetches and realtime pushes.
// Messages are deduplicated by id and held in ascending created-at
// order no matter which source delivered them first.
type Engine struct {
	api          API
	rt           Realtime
	logger       *zap.Logger
	selfID       string
	historyLimit int

	mu       sync.Mutex
	orderID  string
	messages []domain.Message
	seen     map[string]struct{}
	cursors  map[string]domain.ReadCursor
	guard    syncx.Guard

	changes chan struct{}
	unsubs  []func()
}

func NewEngine(api API, rt Realtime, selfID string, historyLimit int, logger *zap.Logger) *Engine {
	if historyLimit <= 0 {
		historyLimit = 50
	}
	return &Engine{
		api:          api,
		rt:           rt,
		logger:       logger,
		selfID:       selfID,
		historyLimit: historyLimit,
		seen:         make(map[string]struct{}),
		cursors:      make(map[string]domain.ReadCursor),
		changes:      make(chan struct{}, 1),
	}
}

// Start wires the engine to the realtime channel. The thread
// subscription is re-sent on every reconnect.
func (e *Engine) Start() {
	e.unsubs = append(e.unsubs,
		e.rt.Subscribe(realtime.EventChatMessage, e.handleMessage),
		e.rt.Subscribe(realtime.EventChatRead, e.handleRead),
		e.rt.OnConnectionChange(func(connected bool) {
			if !connected {
				return
			}
			e.mu.Lock()
			orderID := e.orderID
			e.mu.Unlock()
			if orderID != "" {
				e.rt.Publish(realtime.EventChatSubscribe, subscribePayload{OrderID: orderID})
			}
		}),
	)
}

// Close detaches the engine from the realtime channel.
func (e *Engine) Close() {
	for _, unsub := range e.unsubs {
		unsub()
	}
	e.unsubs = nil
}

// Changes signals after every state mutation; reads are coalesced.
func (e *Engine) Changes() <-chan struct{} {
	return e.changes
}

type subscribePayload struct {
	OrderID string `json:"order_id"`
}

type sendPayload struct {
	OrderID  string `json:"order_id"`
	ClientID string `json:"client_id"`
	Body     string `json:"body"`
}

type readPayload struct {
	OrderID           string    `json:"order_id"`
	UserID            string    `json:"user_id"`
	LastReadMessageID string    `json:"last_read_message_id"`
	LastReadAt        time.Time `json:"last_read_at"`
}

// Open switches the engine to orderID: subscribes the realtime channel
// to it and loads the most recent page of history. A slower Open that
// has been superseded by a newer one discards its response instead of
// clobbering the current thread.
func (e *Engine) Open(ctx context.Context, orderID string) error {
	e.mu.Lock()
	if e.orderID != orderID {
		e.messages = nil
		e.seen = make(map[string]struct{})
		e.cursors = make(map[string]domain.ReadCursor)
	}
	e.orderID = orderID
	tok := e.guard.Begin()
	e.mu.Unlock()

	e.rt.Publish(realtime.EventChatSubscribe, subscribePayload{OrderID: orderID})

	// Newest first from the server, reversed into chronological order.
	history, err := e.api.ThreadMessages(ctx, orderID, e.historyLimit)

	e.mu.Lock()
	if !e.guard.Still(tok) {
		e.mu.Unlock()
		return nil
	}
	if err != nil {
		e.mu.Unlock()
		return fmt.Errorf("load thread history: %w", err)
	}
	inserted := false
	for i := len(history) - 1; i >= 0; i-- {
		if e.insertLocked(history[i]) {
			inserted = true
		}
	}
	e.mu.Unlock()

	if inserted {
		e.notify()
	}
	return nil
}

// Send dispatches body optimistically over the realtime channel and
// issues the authoritative REST send. The local echo reconciles with
// the REST response and any realtime echo by id. A failed REST send
// marks the echo failed; it is never silently retracted.
func (e *Engine) Send(ctx context.Context, body string) (*domain.Message, error) {
	e.mu.Lock()
	orderID := e.orderID
	e.mu.Unlock()
	if orderID == "" {
		return nil, ErrNoThread
	}

	clientID := uuid.New().String()
	echo := domain.Message{
		ID:        clientID,
		ThreadID:  orderID,
		SenderID:  e.selfID,
		Body:      body,
		CreatedAt: time.Now(),
		Pending:   true,
	}
	e.mu.Lock()
	e.insertLocked(echo)
	e.mu.Unlock()
	e.notify()

	e.rt.Publish(realtime.EventChatMessage, sendPayload{
		OrderID:  orderID,
		ClientID: clientID,
		Body:     body,
	})

	msg, err := e.api.SendMessage(ctx, orderID, clientID, body)

	e.mu.Lock()
	if err != nil {
		e.markFailedLocked(clientID)
		e.mu.Unlock()
		e.notify()
		return nil, fmt.Errorf("send message: %w", err)
	}
	e.removeLocked(clientID)
	if e.orderID == orderID {
		e.insertLocked(*msg)
	}
	e.mu.Unlock()
	e.notify()
	return msg, nil
}

// MarkRead advances the caller's own read cursor to messageID. A cursor
// that already covers the message makes this a no-op.
func (e *Engine) MarkRead(ctx context.Context, messageID string) error {
	e.mu.Lock()
	orderID := e.orderID
	msg, found := e.findLocked(messageID)
	covered := found && e.cursors[e.selfID].Covers(msg.CreatedAt)
	e.mu.Unlock()

	if orderID == "" {
		return ErrNoThread
	}
	if !found {
		return ErrUnknownMessage
	}
	if covered {
		return nil
	}

	cursor, err := e.api.MarkThreadRead(ctx, orderID, messageID)
	if err != nil {
		return fmt.Errorf("mark read: %w", err)
	}

	e.mu.Lock()
	if e.orderID == orderID {
		e.applyCursorLocked(e.selfID, *cursor)
	}
	e.mu.Unlock()
	e.notify()
	return nil
}

// Messages returns the current thread's messages in chronological order.
func (e *Engine) Messages() []domain.Message {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]domain.Message, len(e.messages))
	copy(out, e.messages)
	return out
}

// Cursor returns a participant's read cursor, if known.
func (e *Engine) Cursor(userID string) (domain.ReadCursor, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	cursor, ok := e.cursors[userID]
	return cursor, ok
}

func (e *Engine) handleMessage(ev realtime.Event) {
	var msg domain.Message
	if err := json.Unmarshal(ev.Payload, &msg); err != nil {
		e.logger.Warn("Dropping malformed chat message event", zap.Error(err))
		return
	}

	e.mu.Lock()
	if msg.ThreadID != e.orderID {
		e.mu.Unlock()
		return
	}
	inserted := e.insertLocked(msg)
	e.mu.Unlock()

	if inserted {
		e.notify()
	}
}

func (e *Engine) handleRead(ev realtime.Event) {
	var payload readPayload
	if err := json.Unmarshal(ev.Payload, &payload); err != nil {
		e.logger.Warn("Dropping malformed chat read event", zap.Error(err))
		return
	}

	e.mu.Lock()
	if payload.OrderID != e.orderID {
		e.mu.Unlock()
		return
	}
	applied := e.applyCursorLocked(payload.UserID, domain.ReadCursor{
		LastReadMessageID: payload.LastReadMessageID,
		LastReadAt:        payload.LastReadAt,
	})
	e.mu.Unlock()

	if applied {
		e.notify()
	}
}

// insertLocked adds msg in chronological position unless its id is
// already present.
func (e *Engine) insertLocked(msg domain.Message) bool {
	if _, ok := e.seen[msg.ID]; ok {
		return false
	}
	e.seen[msg.ID] = struct{}{}

	i := len(e.messages)
	for i > 0 && e.messages[i-1].CreatedAt.After(msg.CreatedAt) {
		i--
	}
	e.messages = append(e.messages, domain.Message{})
	copy(e.messages[i+1:], e.messages[i:])
	e.messages[i] = msg
	return true
}

func (e *Engine) removeLocked(id string) {
	if _, ok := e.seen[id]; !ok {
		return
	}
	delete(e.seen, id)
	for i := range e.messages {
		if e.messages[i].ID == id {
			e.messages = append(e.messages[:i], e.messages[i+1:]...)
			return
		}
	}
}

func (e *Engine) markFailedLocked(id string) {
	for i := range e.messages {
		if e.messages[i].ID == id {
			e.messages[i].Pending = false
			e.messages[i].Failed = true
			return
		}
	}
}

func (e *Engine) findLocked(id string) (domain.Message, bool) {
	for i := range e.messages {
		if e.messages[i].ID == id {
			return e.messages[i], true
		}
	}
	return domain.Message{}, false
}

// applyCursorLocked is last-write-wins on LastReadAt, monotonic: an
// older cursor never rewinds a newer one.
func (e *Engine) applyCursorLocked(userID string, cursor domain.ReadCursor) bool {
	current, ok := e.cursors[userID]
	if ok && !cursor.LastReadAt.After(current.LastReadAt) {
		return false
	}
	e.cursors[userID] = cursor
	return true
}

func (e *Engine) notify() {
	select {
	case e.changes <- struct{}{}:
	default:
	}
}
