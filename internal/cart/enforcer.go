package cart

import (
	"context"

	"go.uber.org/zap"

	"github.com/shwemart/storefront-client/internal/api"
	"github.com/shwemart/storefront-client/internal/domain"
)

// ConflictMessage is the one message shown for a cross-vendor add, no
// matter which surface attempted it.
const ConflictMessage = "Your cart can only hold items from one shop. Check out or clear your cart first."

// Route is a navigation target the UI layer resolves.
type Route string

const RouteCart Route = "/cart"

type Status string

const (
	StatusAdded          Status = "added"
	StatusVendorConflict Status = "vendor_conflict"
	StatusFailed         Status = "failed"
)

// Outcome is the uniform result of an add-to-cart attempt. Navigate is
// set when the user should be moved somewhere instead of retrying.
type Outcome struct {
	Status   Status
	Message  string
	Navigate Route
	Cart     *domain.Cart
}

// API is the slice of the REST client the enforcer needs.
type API interface {
	AddCartItem(ctx context.Context, variantID string, quantity int) (*domain.Cart, error)
}

// Enforcer is the single add-to-cart policy shared by every UI surface
// (home catalog, product detail, wishlist, product list). The server's
// single-vendor conflict is always answered the same way: fixed
// message, attempted add discarded, user sent to the cart view. Never
// retried.
type Enforcer struct {
	api       API
	store     *Store
	logger    *zap.Logger
	onChanged func()
}

// NewEnforcer builds the policy. onChanged, if non-nil, runs after any
// successful mutation so count badges can refresh.
func NewEnforcer(a API, store *Store, onChanged func(), logger *zap.Logger) *Enforcer {
	return &Enforcer{api: a, store: store, logger: logger, onChanged: onChanged}
}

// AddToCart attempts the add and maps the result onto the shared
// policy. Expected failures come back inside the Outcome, never as an
// error the caller could handle divergently.
func (e *Enforcer) AddToCart(ctx context.Context, variantID string, quantity int) Outcome {
	updated, err := e.api.AddCartItem(ctx, variantID, quantity)
	if err != nil {
		if api.IsConflict(err) {
			e.logger.Info("Cross-vendor add rejected",
				zap.String("variant_id", variantID))
			return Outcome{
				Status:   StatusVendorConflict,
				Message:  ConflictMessage,
				Navigate: RouteCart,
			}
		}
		e.logger.Warn("Add to cart failed", zap.String("variant_id", variantID), zap.Error(err))
		return Outcome{
			Status:  StatusFailed,
			Message: "Could not add the item to your cart. Please try again.",
		}
	}

	e.store.Set(updated)
	if e.onChanged != nil {
		e.onChanged()
	}
	return Outcome{Status: StatusAdded, Cart: updated}
}
