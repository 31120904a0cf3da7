package badge

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/shwemart/storefront-client/internal/domain"
	"github.com/shwemart/storefront-client/internal/realtime"
)

// Counts are the header badge numbers.
type Counts struct {
	Wishlist            int
	CartItems           int
	UnreadNotifications int
	UnreadChat          int
}

// API is the slice of the REST client the aggregator needs.
type API interface {
	Cart(ctx context.Context) (*domain.Cart, error)
	WishlistCount(ctx context.Context) (int, error)
	UnreadNotificationCount(ctx context.Context) (int, error)
	UnreadChatCount(ctx context.Context) (int, error)
}

// Realtime is the slice of the connection manager the aggregator needs.
type Realtime interface {
	Subscribe(eventType string, fn realtime.Handler) func()
}

// Aggregator recomputes the badge counters from scratch on every
// trigger: navigation, a realtime event on any counted resource, or an
// explicit refresh signal after a mutation with no realtime channel.
// Nothing is cached across triggers, and a failed fetch resets its
// counter to zero rather than keeping a stale value.
type Aggregator struct {
	api    API
	rt     Realtime
	logger *zap.Logger

	mu     sync.Mutex
	counts Counts

	refresh chan struct{}
	changes chan struct{}
	unsubs  []func()
}

func NewAggregator(a API, rt Realtime, logger *zap.Logger) *Aggregator {
	return &Aggregator{
		api:     a,
		rt:      rt,
		logger:  logger,
		refresh: make(chan struct{}, 1),
		changes: make(chan struct{}, 1),
	}
}

// Start subscribes the realtime triggers and runs the refresh loop
// until ctx is done.
func (a *Aggregator) Start(ctx context.Context) {
	for _, eventType := range []string{
		realtime.EventChatMessage,
		realtime.EventChatRead,
		realtime.EventNotificationNew,
		realtime.EventNotificationRead,
		realtime.EventNotificationReadAll,
		realtime.EventCartUpdated,
		realtime.EventWishlistUpdated,
	} {
		a.unsubs = append(a.unsubs, a.rt.Subscribe(eventType, func(realtime.Event) {
			a.Notify()
		}))
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				for _, unsub := range a.unsubs {
					unsub()
				}
				a.unsubs = nil
				return
			case <-a.refresh:
				a.Refresh(ctx)
			}
		}
	}()
}

// Notify requests a refresh; bursts are coalesced.
func (a *Aggregator) Notify() {
	select {
	case a.refresh <- struct{}{}:
	default:
	}
}

// Changes signals after every recomputation.
func (a *Aggregator) Changes() <-chan struct{} {
	return a.changes
}

// Counts returns the most recently computed numbers.
func (a *Aggregator) Counts() Counts {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.counts
}

// Refresh fetches all four counters concurrently and replaces the
// stored counts with a fresh snapshot. Each failed fetch comes back as
// zero: a flicker to zero beats a permanently wrong badge.
func (a *Aggregator) Refresh(ctx context.Context) Counts {
	var counts Counts
	var wg sync.WaitGroup
	wg.Add(4)

	go func() {
		defer wg.Done()
		n, err := a.api.WishlistCount(ctx)
		if err != nil {
			a.logger.Warn("Wishlist count fetch failed", zap.Error(err))
			return
		}
		counts.Wishlist = n
	}()
	go func() {
		defer wg.Done()
		cart, err := a.api.Cart(ctx)
		if err != nil {
			a.logger.Warn("Cart fetch failed", zap.Error(err))
			return
		}
		counts.CartItems = cart.Quantity()
	}()
	go func() {
		defer wg.Done()
		n, err := a.api.UnreadNotificationCount(ctx)
		if err != nil {
			a.logger.Warn("Unread notification count fetch failed", zap.Error(err))
			return
		}
		counts.UnreadNotifications = n
	}()
	go func() {
		defer wg.Done()
		n, err := a.api.UnreadChatCount(ctx)
		if err != nil {
			a.logger.Warn("Unread chat count fetch failed", zap.Error(err))
			return
		}
		counts.UnreadChat = n
	}()

	wg.Wait()

	a.mu.Lock()
	a.counts = counts
	a.mu.Unlock()

	select {
	case a.changes <- struct{}{}:
	default:
	}
	return counts
}
