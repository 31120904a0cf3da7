package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/shwemart/storefront-client/internal/api"
	"github.com/shwemart/storefront-client/internal/domain"
	"github.com/shwemart/storefront-client/internal/realtime"
)

// API is the slice of the REST client the engine needs.
type API interface {
	Notifications(ctx context.Context, cursor string, limit int) (*api.NotificationPage, error)
	MarkNotificationRead(ctx context.Context, id string) (time.Time, error)
	MarkAllNotificationsRead(ctx context.Context) (time.Time, error)
}

// Realtime is the slice of the connection manager the engine needs.
type Realtime interface {
	Subscribe(eventType string, fn realtime.Handler) func()
}

// Engine keeps the unread inbox converged across REST pagination and
// realtime pushes. New items prepend and deduplicate by id; read marks
// are monotonic, so a stale event can never flip a read item back to
// unread.
type Engine struct {
	api      API
	rt       Realtime
	logger   *zap.Logger
	pageSize int

	mu         sync.Mutex
	items      []domain.NotificationItem
	seen       map[string]struct{}
	nextCursor string
	loaded     bool

	changes chan struct{}
	unsubs  []func()
}

func NewEngine(a API, rt Realtime, pageSize int, logger *zap.Logger) *Engine {
	if pageSize <= 0 {
		pageSize = 20
	}
	return &Engine{
		api:      a,
		rt:       rt,
		logger:   logger,
		pageSize: pageSize,
		seen:     make(map[string]struct{}),
		changes:  make(chan struct{}, 1),
	}
}

// Start wires the engine to the realtime channel.
func (e *Engine) Start() {
	e.unsubs = append(e.unsubs,
		e.rt.Subscribe(realtime.EventNotificationNew, e.handleNew),
		e.rt.Subscribe(realtime.EventNotificationRead, e.handleRead),
		e.rt.Subscribe(realtime.EventNotificationReadAll, e.handleReadAll),
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

// Load fetches the first inbox page. A fetch failure leaves whatever
// is already loaded intact.
func (e *Engine) Load(ctx context.Context) error {
	page, err := e.api.Notifications(ctx, "", e.pageSize)
	if err != nil {
		return fmt.Errorf("load notifications: %w", err)
	}

	e.mu.Lock()
	changed := false
	for _, item := range page.Items {
		if e.appendLocked(item) {
			changed = true
		}
	}
	e.nextCursor = page.NextCursor
	e.loaded = true
	e.mu.Unlock()

	if changed {
		e.notify()
	}
	return nil
}

// LoadMore fetches the next page behind the opaque cursor. Returns
// false once the inbox is exhausted.
func (e *Engine) LoadMore(ctx context.Context) (bool, error) {
	e.mu.Lock()
	cursor := e.nextCursor
	loaded := e.loaded
	e.mu.Unlock()

	if !loaded {
		return false, e.Load(ctx)
	}
	if cursor == "" {
		return false, nil
	}

	page, err := e.api.Notifications(ctx, cursor, e.pageSize)
	if err != nil {
		return false, fmt.Errorf("load more notifications: %w", err)
	}

	e.mu.Lock()
	changed := false
	for _, item := range page.Items {
		if e.appendLocked(item) {
			changed = true
		}
	}
	e.nextCursor = page.NextCursor
	more := page.NextCursor != ""
	e.mu.Unlock()

	if changed {
		e.notify()
	}
	return more, nil
}

// MarkRead marks one item read. Already-read items are a local no-op.
func (e *Engine) MarkRead(ctx context.Context, id string) error {
	e.mu.Lock()
	for i := range e.items {
		if e.items[i].ID == id && e.items[i].Read() {
			e.mu.Unlock()
			return nil
		}
	}
	e.mu.Unlock()

	readAt, err := e.api.MarkNotificationRead(ctx, id)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}

	e.mu.Lock()
	changed := e.markReadLocked(id, readAt)
	e.mu.Unlock()
	if changed {
		e.notify()
	}
	return nil
}

// MarkAllRead stamps every unread item with the server's single batch
// timestamp. Items already read keep their original timestamp.
func (e *Engine) MarkAllRead(ctx context.Context) error {
	readAt, err := e.api.MarkAllNotificationsRead(ctx)
	if err != nil {
		return fmt.Errorf("mark all notifications read: %w", err)
	}

	e.mu.Lock()
	changed := e.markAllReadLocked(readAt)
	e.mu.Unlock()
	if changed {
		e.notify()
	}
	return nil
}

// Items returns the inbox, newest first.
func (e *Engine) Items() []domain.NotificationItem {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]domain.NotificationItem, len(e.items))
	copy(out, e.items)
	return out
}

// UnreadCount counts loaded items without a read mark.
func (e *Engine) UnreadCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	count := 0
	for i := range e.items {
		if !e.items[i].Read() {
			count++
		}
	}
	return count
}

func (e *Engine) handleNew(ev realtime.Event) {
	var item domain.NotificationItem
	if err := json.Unmarshal(ev.Payload, &item); err != nil {
		e.logger.Warn("Dropping malformed notification event", zap.Error(err))
		return
	}

	e.mu.Lock()
	changed := e.prependLocked(item)
	e.mu.Unlock()
	if changed {
		e.notify()
	}
}

type readEventPayload struct {
	ID     string    `json:"id"`
	ReadAt time.Time `json:"read_at"`
}

func (e *Engine) handleRead(ev realtime.Event) {
	var payload readEventPayload
	if err := json.Unmarshal(ev.Payload, &payload); err != nil {
		e.logger.Warn("Dropping malformed notification read event", zap.Error(err))
		return
	}

	e.mu.Lock()
	changed := e.markReadLocked(payload.ID, payload.ReadAt)
	e.mu.Unlock()
	if changed {
		e.notify()
	}
}

type readAllEventPayload struct {
	ReadAt time.Time `json:"read_at"`
}

func (e *Engine) handleReadAll(ev realtime.Event) {
	var payload readAllEventPayload
	if err := json.Unmarshal(ev.Payload, &payload); err != nil {
		e.logger.Warn("Dropping malformed notification read-all event", zap.Error(err))
		return
	}

	e.mu.Lock()
	changed := e.markAllReadLocked(payload.ReadAt)
	e.mu.Unlock()
	if changed {
		e.notify()
	}
}

func (e *Engine) prependLocked(item domain.NotificationItem) bool {
	if _, ok := e.seen[item.ID]; ok {
		return false
	}
	e.seen[item.ID] = struct{}{}
	e.items = append([]domain.NotificationItem{item}, e.items...)
	return true
}

func (e *Engine) appendLocked(item domain.NotificationItem) bool {
	if _, ok := e.seen[item.ID]; ok {
		return false
	}
	e.seen[item.ID] = struct{}{}
	e.items = append(e.items, item)
	return true
}

// markReadLocked sets ReadAt once; it is never cleared or rewound.
func (e *Engine) markReadLocked(id string, readAt time.Time) bool {
	for i := range e.items {
		if e.items[i].ID != id {
			continue
		}
		if e.items[i].ReadAt != nil {
			return false
		}
		at := readAt
		e.items[i].ReadAt = &at
		return true
	}
	return false
}

func (e *Engine) markAllReadLocked(readAt time.Time) bool {
	changed := false
	for i := range e.items {
		if e.items[i].ReadAt != nil {
			continue
		}
		at := readAt
		e.items[i].ReadAt = &at
		changed = true
	}
	return changed
}

func (e *Engine) notify() {
	select {
	case e.changes <- struct{}{}:
	default:
	}
}
