package cart

import (
	"sync"

	"github.com/shwemart/storefront-client/internal/domain"
)

// Store is the local cart snapshot. It mirrors the server-side cart for
// cheap reads; the checkout orchestrator clears it once order creation
// has consumed the server-side cart.
type Store struct {
	mu   sync.RWMutex
	cart *domain.Cart
}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) Get() *domain.Cart {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cart
}

func (s *Store) Set(cart *domain.Cart) {
	s.mu.Lock()
	s.cart = cart
	s.mu.Unlock()
}

func (s *Store) Clear() {
	s.Set(nil)
}
