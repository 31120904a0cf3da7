package badge

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/shwemart/storefront-client/internal/domain"
	"github.com/shwemart/storefront-client/internal/realtime"
)

type fakeCountsAPI struct {
	mu sync.Mutex

	cart    *domain.Cart
	cartErr error

	wishlist    int
	wishlistErr error

	notifications    int
	notificationsErr error

	chat    int
	chatErr error

	calls int
}

func (f *fakeCountsAPI) Cart(ctx context.Context) (*domain.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.cart, f.cartErr
}

func (f *fakeCountsAPI) WishlistCount(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.wishlist, f.wishlistErr
}

func (f *fakeCountsAPI) UnreadNotificationCount(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.notifications, f.notificationsErr
}

func (f *fakeCountsAPI) UnreadChatCount(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.chat, f.chatErr
}

type fakeTriggerBus struct {
	mu       sync.Mutex
	handlers map[string][]realtime.Handler
}

func newFakeTriggerBus() *fakeTriggerBus {
	return &fakeTriggerBus{handlers: make(map[string][]realtime.Handler)}
}

func (f *fakeTriggerBus) Subscribe(eventType string, fn realtime.Handler) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[eventType] = append(f.handlers[eventType], fn)
	return func() {}
}

func (f *fakeTriggerBus) emit(eventType string) {
	f.mu.Lock()
	handlers := append([]realtime.Handler(nil), f.handlers[eventType]...)
	f.mu.Unlock()
	for _, fn := range handlers {
		fn(realtime.Event{Type: eventType})
	}
}

func testCart() *domain.Cart {
	return &domain.Cart{
		ID:       "c_1",
		VendorID: "v_1",
		Currency: domain.CurrencyMMK,
		Items: []domain.CartLine{
			{ID: "l_1", Quantity: 2},
			{ID: "l_2", Quantity: 3},
		},
	}
}

func TestRefreshSnapshotsAllCounters(t *testing.T) {
	api := &fakeCountsAPI{cart: testCart(), wishlist: 4, notifications: 7, chat: 1}
	agg := NewAggregator(api, newFakeTriggerBus(), zaptest.NewLogger(t))

	counts := agg.Refresh(context.Background())
	assert.Equal(t, Counts{
		Wishlist:            4,
		CartItems:           5,
		UnreadNotifications: 7,
		UnreadChat:          1,
	}, counts)
	assert.Equal(t, counts, agg.Counts())
}

func TestFailedFetchResetsThatCounterToZero(t *testing.T) {
	api := &fakeCountsAPI{cart: testCart(), wishlist: 4, notifications: 7, chat: 1}
	agg := NewAggregator(api, newFakeTriggerBus(), zaptest.NewLogger(t))
	agg.Refresh(context.Background())

	// One transient failure must zero only its own counter, not keep
	// the stale value.
	api.mu.Lock()
	api.notificationsErr = errors.New("temporarily unavailable")
	api.mu.Unlock()

	counts := agg.Refresh(context.Background())
	assert.Zero(t, counts.UnreadNotifications)
	assert.Equal(t, 4, counts.Wishlist)
	assert.Equal(t, 5, counts.CartItems)
	assert.Equal(t, 1, counts.UnreadChat)
}

func TestRealtimeEventsTriggerRefresh(t *testing.T) {
	api := &fakeCountsAPI{cart: testCart()}
	bus := newFakeTriggerBus()
	agg := NewAggregator(api, bus, zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	agg.Start(ctx)

	bus.emit(realtime.EventNotificationNew)
	require.Eventually(t, func() bool {
		api.mu.Lock()
		defer api.mu.Unlock()
		return api.calls >= 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestExplicitNotifyTriggersRefresh(t *testing.T) {
	api := &fakeCountsAPI{cart: testCart()}
	agg := NewAggregator(api, newFakeTriggerBus(), zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	agg.Start(ctx)

	agg.Notify()
	require.Eventually(t, func() bool {
		api.mu.Lock()
		defer api.mu.Unlock()
		return api.calls >= 1
	}, 2*time.Second, 10*time.Millisecond)
}
