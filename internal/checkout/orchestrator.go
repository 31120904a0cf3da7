package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/shwemart/storefront-client/internal/api"
	"github.com/shwemart/storefront-client/internal/cart"
	"github.com/shwemart/storefront-client/internal/domain"
	"github.com/shwemart/storefront-client/internal/syncx"
)

// State of the checkout session.
type State string

const (
	StateLoading                   State = "loading"
	StateReady                     State = "ready"
	StateSubmitting                State = "submitting"
	StateSucceeded                 State = "succeeded"
	StateOrderCreatedPaymentFailed State = "order_created_payment_failed"
	StateFailedBeforeOrder         State = "failed_before_order"
)

// Reason is a specific, actionable precondition failure. Submit never
// reports a generic error for a locally detectable problem.
type Reason string

const (
	ReasonEmptyCart           Reason = "cart_empty"
	ReasonNoAddress           Reason = "address_not_selected"
	ReasonNoPickupLocation    Reason = "pickup_location_not_selected"
	ReasonNoShippingRate      Reason = "shipping_rate_not_resolved"
	ReasonShippingUnavailable Reason = "shipping_unavailable"
)

// PreconditionError is returned by Submit before any network call.
type PreconditionError struct {
	Reason Reason
}

func (e *PreconditionError) Error() string {
	return "checkout precondition failed: " + string(e.Reason)
}

var ErrNotReady = errors.New("checkout is not ready to submit")

// API is the slice of the REST client the orchestrator needs.
type API interface {
	Cart(ctx context.Context) (*domain.Cart, error)
	Addresses(ctx context.Context) ([]domain.Address, error)
	PickupLocations(ctx context.Context, vendorID string) ([]domain.PickupLocation, error)
	ShippingRate(ctx context.Context, vendorID, country string) (*domain.ShippingRate, error)
	CreateOrder(ctx context.Context, req api.CreateOrderRequest) (*domain.Order, error)
	InitiateStripePayment(ctx context.Context, orderID string) (*api.PaymentIntent, error)
	InitiateWavePayment(ctx context.Context, orderID string) (*api.PaymentIntent, error)
	InitiateKBZPayPayment(ctx context.Context, orderID string) (*api.PaymentIntent, error)
}

// Result is the outcome of one Submit attempt. OrderID is set from the
// moment order creation succeeds and survives every later failure; the
// server-side order exists whether or not payment went through.
type Result struct {
	State       State
	OrderID     string
	RedirectURL string
	Reason      Reason
}

// Orchestrator drives one checkout view's session from load to payment
// dispatch, including the reconciliation path when payment fails after
// the order already exists. It is rebuilt on every checkout entry;
// nothing here persists.
type Orchestrator struct {
	client    API
	cartStore *cart.Store
	logger    *zap.Logger

	// onRedirect, when set, receives the processor's hosted-page URL
	// before local cart state is cleared, so navigation wins the race.
	onRedirect func(url string)

	mu              sync.Mutex
	state           State
	cart            *domain.Cart
	addresses       []domain.Address
	pickupLocations []domain.PickupLocation
	fulfillment     domain.Fulfillment
	addressID       string
	pickupID        string
	rate            *domain.ShippingRate
	provider        domain.MMKProvider
	orderID         string
	rateGuard       syncx.Guard
}

func NewOrchestrator(client API, cartStore *cart.Store, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		client:      client,
		cartStore:   cartStore,
		logger:      logger,
		state:       StateLoading,
		fulfillment: domain.FulfillmentShipping,
		provider:    domain.ProviderWave,
	}
}

// SetRedirectHandler installs the navigation handoff used when an
// international payment returns a hosted-page URL.
func (o *Orchestrator) SetRedirectHandler(fn func(url string)) {
	o.onRedirect = fn
}

// State returns the current machine state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// OrderID returns the created order's id, if order creation has
// succeeded on any Submit attempt.
func (o *Orchestrator) OrderID() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.orderID
}

// Load concurrently fetches the cart, the saved addresses, and (when
// the cart has a vendor) that vendor's pickup locations, then applies
// the defaults: first address selected, fulfillment shipping. On
// success the machine is READY; on failure it stays LOADING for retry.
func (o *Orchestrator) Load(ctx context.Context) error {
	var (
		wg        sync.WaitGroup
		cartVal   *domain.Cart
		addresses []domain.Address
		cartErr   error
		addrErr   error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		cartVal, cartErr = o.client.Cart(ctx)
	}()
	go func() {
		defer wg.Done()
		addresses, addrErr = o.client.Addresses(ctx)
	}()
	wg.Wait()

	if cartErr != nil {
		return fmt.Errorf("load cart: %w", cartErr)
	}
	if addrErr != nil {
		return fmt.Errorf("load addresses: %w", addrErr)
	}

	var locations []domain.PickupLocation
	if cartVal.VendorID != "" {
		var err error
		locations, err = o.client.PickupLocations(ctx, cartVal.VendorID)
		if err != nil {
			return fmt.Errorf("load pickup locations: %w", err)
		}
	}

	o.mu.Lock()
	o.cart = cartVal
	o.addresses = addresses
	o.pickupLocations = locations
	o.fulfillment = domain.FulfillmentShipping
	if len(addresses) > 0 {
		o.addressID = addresses[0].ID
	}
	o.state = StateReady
	o.mu.Unlock()

	o.cartStore.Set(cartVal)

	// The default fulfillment needs a resolved rate before submit.
	if cartVal.VendorID != "" && len(addresses) > 0 {
		o.resolveRate(ctx)
	}
	return nil
}

// SetFulfillment switches delivery mode and recomputes what submit
// requires: shipping needs a fresh rate for the selected address,
// pickup drops the rate entirely.
func (o *Orchestrator) SetFulfillment(ctx context.Context, f domain.Fulfillment) {
	o.mu.Lock()
	o.fulfillment = f
	if f == domain.FulfillmentPickup {
		o.rate = nil
		o.rateGuard.Begin()
	}
	o.mu.Unlock()

	if f == domain.FulfillmentShipping {
		o.resolveRate(ctx)
	}
}

// SelectAddress picks a saved address and refreshes the shipping quote
// for its country.
func (o *Orchestrator) SelectAddress(ctx context.Context, addressID string) {
	o.mu.Lock()
	o.addressID = addressID
	o.rate = nil
	fulfillment := o.fulfillment
	o.mu.Unlock()

	if fulfillment == domain.FulfillmentShipping {
		o.resolveRate(ctx)
	}
}

// SelectPickupLocation picks one of the vendor's pickup points.
func (o *Orchestrator) SelectPickupLocation(locationID string) {
	o.mu.Lock()
	o.pickupID = locationID
	o.mu.Unlock()
}

// SetProvider records the regional processor preference. It is chosen
// before submit and never re-asked after order creation.
func (o *Orchestrator) SetProvider(p domain.MMKProvider) {
	o.mu.Lock()
	o.provider = p
	o.mu.Unlock()
}

// Rate returns the current shipping quote, if resolved.
func (o *Orchestrator) Rate() *domain.ShippingRate {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.rate
}

// Addresses returns the loaded address list.
func (o *Orchestrator) Addresses() []domain.Address {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.addresses
}

// PickupLocations returns the vendor's loaded pickup points.
func (o *Orchestrator) PickupLocations() []domain.PickupLocation {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.pickupLocations
}

// resolveRate looks up the vendor+country quote. A superseding
// selection invalidates the in-flight lookup's result.
func (o *Orchestrator) resolveRate(ctx context.Context) {
	o.mu.Lock()
	if o.cart == nil || o.cart.VendorID == "" {
		o.mu.Unlock()
		return
	}
	vendorID := o.cart.VendorID
	country := ""
	for _, addr := range o.addresses {
		if addr.ID == o.addressID {
			country = addr.Country
			break
		}
	}
	tok := o.rateGuard.Begin()
	o.mu.Unlock()

	if country == "" {
		return
	}

	rate, err := o.client.ShippingRate(ctx, vendorID, country)
	if err != nil {
		o.logger.Warn("Shipping rate lookup failed",
			zap.String("vendor_id", vendorID),
			zap.String("country", country),
			zap.Error(err))
		return
	}

	o.mu.Lock()
	if o.rateGuard.Still(tok) {
		o.rate = rate
	}
	o.mu.Unlock()
}

// Submit runs the ordered precondition checks, creates the order, and
// dispatches payment routed by the order's currency. Once the order
// exists its id is retained through every later failure.
func (o *Orchestrator) Submit(ctx context.Context) (*Result, error) {
	o.mu.Lock()
	if o.state != StateReady && o.state != StateFailedBeforeOrder {
		o.mu.Unlock()
		return nil, ErrNotReady
	}

	// Preconditions in fixed order; the first failure wins and nothing
	// has gone over the network yet.
	if reason, ok := o.checkPreconditionsLocked(); !ok {
		o.state = StateFailedBeforeOrder
		o.mu.Unlock()
		return &Result{State: StateFailedBeforeOrder, Reason: reason}, &PreconditionError{Reason: reason}
	}

	o.state = StateSubmitting
	req := api.CreateOrderRequest{
		CartID:      o.cart.ID,
		Fulfillment: o.fulfillment,
	}
	if o.fulfillment == domain.FulfillmentShipping {
		req.AddressID = o.addressID
	} else {
		req.PickupLocationID = o.pickupID
	}
	provider := o.provider
	o.mu.Unlock()

	order, err := o.client.CreateOrder(ctx, req)
	if err != nil {
		o.mu.Lock()
		o.state = StateFailedBeforeOrder
		o.mu.Unlock()
		return &Result{State: StateFailedBeforeOrder}, fmt.Errorf("create order: %w", err)
	}

	// The order is now durable server-side; its id must survive
	// whatever the payment step does.
	o.mu.Lock()
	o.orderID = order.ID
	o.mu.Unlock()

	intent, err := o.dispatchPayment(ctx, order, provider)
	if err != nil {
		// Reconciliation: the server-side cart was consumed by order
		// creation, so the local copy is cleared either way, and the
		// order id is surfaced for a payment retry from order history.
		o.mu.Lock()
		o.state = StateOrderCreatedPaymentFailed
		o.mu.Unlock()
		o.cartStore.Clear()
		o.logger.Warn("Payment initiation failed after order creation",
			zap.String("order_id", order.ID),
			zap.Error(err))
		return &Result{State: StateOrderCreatedPaymentFailed, OrderID: order.ID},
			fmt.Errorf("initiate payment for order %s: %w", order.ID, err)
	}

	result := &Result{State: StateSucceeded, OrderID: order.ID}
	if intent != nil && intent.RedirectURL != "" {
		result.RedirectURL = intent.RedirectURL
		// Hand navigation off before touching local cart state; the
		// cart is only safe to clear once initiation is confirmed.
		if o.onRedirect != nil {
			o.onRedirect(intent.RedirectURL)
		}
	}

	o.mu.Lock()
	o.state = StateSucceeded
	o.mu.Unlock()
	o.cartStore.Clear()
	return result, nil
}

func (o *Orchestrator) checkPreconditionsLocked() (Reason, bool) {
	if o.cart.Empty() {
		return ReasonEmptyCart, false
	}
	switch o.fulfillment {
	case domain.FulfillmentShipping:
		if o.addressID == "" {
			return ReasonNoAddress, false
		}
		if o.rate == nil {
			return ReasonNoShippingRate, false
		}
		if !o.rate.Available {
			return ReasonShippingUnavailable, false
		}
	case domain.FulfillmentPickup:
		if o.pickupID == "" {
			return ReasonNoPickupLocation, false
		}
	}
	return "", true
}

// dispatchPayment routes by the created order's currency: kyat orders
// go to the pre-selected regional processor, everything else to the
// international one.
func (o *Orchestrator) dispatchPayment(ctx context.Context, order *domain.Order, provider domain.MMKProvider) (*api.PaymentIntent, error) {
	if order.Currency == domain.CurrencyMMK {
		switch provider {
		case domain.ProviderKBZPay:
			return o.client.InitiateKBZPayPayment(ctx, order.ID)
		default:
			return o.client.InitiateWavePayment(ctx, order.ID)
		}
	}
	return o.client.InitiateStripePayment(ctx, order.ID)
}
