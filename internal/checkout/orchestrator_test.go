package checkout

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/shwemart/storefront-client/internal/api"
	"github.com/shwemart/storefront-client/internal/cart"
	"github.com/shwemart/storefront-client/internal/domain"
)

type fakeCheckoutAPI struct {
	mu sync.Mutex

	cart      *domain.Cart
	addresses []domain.Address
	locations []domain.PickupLocation
	rate      *domain.ShippingRate
	rateErr   error

	order     *domain.Order
	orderErr  error
	orderReqs []api.CreateOrderRequest

	stripeIntent *api.PaymentIntent
	stripeErr    error
	stripeCalls  int
	waveCalls    int
	kbzCalls     int
	paymentErr   error
}

func (f *fakeCheckoutAPI) Cart(ctx context.Context) (*domain.Cart, error) {
	return f.cart, nil
}

func (f *fakeCheckoutAPI) Addresses(ctx context.Context) ([]domain.Address, error) {
	return f.addresses, nil
}

func (f *fakeCheckoutAPI) PickupLocations(ctx context.Context, vendorID string) ([]domain.PickupLocation, error) {
	return f.locations, nil
}

func (f *fakeCheckoutAPI) ShippingRate(ctx context.Context, vendorID, country string) (*domain.ShippingRate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rate, f.rateErr
}

func (f *fakeCheckoutAPI) CreateOrder(ctx context.Context, req api.CreateOrderRequest) (*domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orderReqs = append(f.orderReqs, req)
	return f.order, f.orderErr
}

func (f *fakeCheckoutAPI) InitiateStripePayment(ctx context.Context, orderID string) (*api.PaymentIntent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stripeCalls++
	if f.stripeErr != nil {
		return nil, f.stripeErr
	}
	return f.stripeIntent, f.paymentErr
}

func (f *fakeCheckoutAPI) InitiateWavePayment(ctx context.Context, orderID string) (*api.PaymentIntent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.waveCalls++
	if f.paymentErr != nil {
		return nil, f.paymentErr
	}
	return &api.PaymentIntent{Reference: "wave_ref"}, nil
}

func (f *fakeCheckoutAPI) InitiateKBZPayPayment(ctx context.Context, orderID string) (*api.PaymentIntent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.kbzCalls++
	if f.paymentErr != nil {
		return nil, f.paymentErr
	}
	return &api.PaymentIntent{Reference: "kbz_ref"}, nil
}

func (f *fakeCheckoutAPI) orderCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.orderReqs)
}

func loadedCart() *domain.Cart {
	return &domain.Cart{
		ID:       "c_1",
		VendorID: "v_1",
		Currency: domain.CurrencyMMK,
		Items: []domain.CartLine{
			{ID: "l_1", VariantID: "var_1", Quantity: 2, UnitPrice: decimal.NewFromInt(5000)},
		},
	}
}

func availableRate() *domain.ShippingRate {
	return &domain.ShippingRate{Available: true, FlatRate: decimal.NewFromInt(3000), Currency: domain.CurrencyMMK}
}

func newLoadedOrchestrator(t *testing.T, fake *fakeCheckoutAPI) (*Orchestrator, *cart.Store) {
	t.Helper()
	store := cart.NewStore()
	o := NewOrchestrator(fake, store, zaptest.NewLogger(t))
	require.NoError(t, o.Load(context.Background()))
	require.Equal(t, StateReady, o.State())
	return o, store
}

func defaultFake() *fakeCheckoutAPI {
	return &fakeCheckoutAPI{
		cart: loadedCart(),
		addresses: []domain.Address{
			{ID: "a_1", Country: "MM"},
			{ID: "a_2", Country: "TH"},
		},
		locations: []domain.PickupLocation{{ID: "p_1", VendorID: "v_1"}},
		rate:      availableRate(),
		order:     &domain.Order{ID: "o_1", Currency: domain.CurrencyMMK},
	}
}

func TestLoadDefaultsFirstAddressAndShipping(t *testing.T) {
	fake := defaultFake()
	o, store := newLoadedOrchestrator(t, fake)

	assert.NotNil(t, o.Rate(), "the default shipping fulfillment resolves a rate")
	assert.Equal(t, fake.cart, store.Get())
	assert.Len(t, o.Addresses(), 2)
	assert.Len(t, o.PickupLocations(), 1)
}

func TestEmptyCartWinsOverOtherPreconditions(t *testing.T) {
	fake := defaultFake()
	fake.cart = &domain.Cart{ID: "c_1", Currency: domain.CurrencyMMK}
	fake.addresses = nil // fulfillment selection is also invalid
	store := cart.NewStore()
	o := NewOrchestrator(fake, store, zaptest.NewLogger(t))
	require.NoError(t, o.Load(context.Background()))

	result, err := o.Submit(context.Background())
	var pre *PreconditionError
	require.ErrorAs(t, err, &pre)
	assert.Equal(t, ReasonEmptyCart, pre.Reason)
	assert.Equal(t, ReasonEmptyCart, result.Reason)
	assert.Zero(t, fake.orderCalls(), "no network call before preconditions pass")
}

func TestShippingUnavailableRejectsBeforeOrderCreation(t *testing.T) {
	// Scenario: fulfillment is shipping and the resolved rate says the
	// vendor does not ship to the selected country.
	fake := defaultFake()
	fake.rate = &domain.ShippingRate{Available: false}
	o, _ := newLoadedOrchestrator(t, fake)

	result, err := o.Submit(context.Background())
	var pre *PreconditionError
	require.ErrorAs(t, err, &pre)
	assert.Equal(t, ReasonShippingUnavailable, pre.Reason)
	assert.Equal(t, StateFailedBeforeOrder, result.State)
	assert.Zero(t, fake.orderCalls(), "order creation must not be attempted")
}

func TestPickupRequiresSelectedLocation(t *testing.T) {
	fake := defaultFake()
	o, _ := newLoadedOrchestrator(t, fake)
	o.SetFulfillment(context.Background(), domain.FulfillmentPickup)

	_, err := o.Submit(context.Background())
	var pre *PreconditionError
	require.ErrorAs(t, err, &pre)
	assert.Equal(t, ReasonNoPickupLocation, pre.Reason)

	o.SelectPickupLocation("p_1")
	result, err := o.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateSucceeded, result.State)
	require.Equal(t, 1, fake.orderCalls())
	assert.Equal(t, "p_1", fake.orderReqs[0].PickupLocationID)
	assert.Empty(t, fake.orderReqs[0].AddressID)
}

func TestMMKOrderRoutesToPreselectedProvider(t *testing.T) {
	fake := defaultFake()
	o, store := newLoadedOrchestrator(t, fake)
	o.SetProvider(domain.ProviderKBZPay)

	result, err := o.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateSucceeded, result.State)
	assert.Equal(t, "o_1", result.OrderID)
	assert.Equal(t, 1, fake.kbzCalls)
	assert.Zero(t, fake.waveCalls)
	assert.Zero(t, fake.stripeCalls)
	assert.Nil(t, store.Get(), "local cart clears after confirmed initiation")
}

func TestUSDOrderRedirectsBeforeCartClear(t *testing.T) {
	fake := defaultFake()
	fake.order = &domain.Order{ID: "o_1", Currency: domain.CurrencyUSD}
	fake.stripeIntent = &api.PaymentIntent{RedirectURL: "https://pay.example/o_1"}
	o, store := newLoadedOrchestrator(t, fake)

	var cartAtRedirect *domain.Cart
	o.SetRedirectHandler(func(url string) {
		cartAtRedirect = store.Get()
	})

	result, err := o.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, fake.stripeCalls)
	assert.Equal(t, "https://pay.example/o_1", result.RedirectURL)
	assert.NotNil(t, cartAtRedirect, "navigation handoff happens before the local cart clears")
	assert.Nil(t, store.Get())
}

func TestPaymentFailureAfterOrderKeepsOrderID(t *testing.T) {
	// Scenario: order creation returns o_1, then payment initiation
	// fails. The order id must survive into the terminal state and the
	// local cart still clears, because order creation consumed it.
	fake := defaultFake()
	fake.paymentErr = errors.New("wallet unreachable")
	o, store := newLoadedOrchestrator(t, fake)

	result, err := o.Submit(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateOrderCreatedPaymentFailed, result.State)
	assert.Equal(t, "o_1", result.OrderID)
	assert.Equal(t, "o_1", o.OrderID())
	assert.Equal(t, StateOrderCreatedPaymentFailed, o.State())
	assert.Nil(t, store.Get(), "the consumed cart is cleared on reconciliation")
	assert.Contains(t, err.Error(), "o_1", "the error surfaces the order id for a retry")
}

func TestOrderCreationFailureLeavesCartIntact(t *testing.T) {
	fake := defaultFake()
	fake.orderErr = errors.New("server rejected")
	o, store := newLoadedOrchestrator(t, fake)

	result, err := o.Submit(context.Background())
	require.Error(t, err)
	var pre *PreconditionError
	assert.False(t, errors.As(err, &pre), "a network failure is not a precondition failure")
	assert.Equal(t, StateFailedBeforeOrder, result.State)
	assert.Empty(t, result.OrderID)
	assert.NotNil(t, store.Get(), "cart is untouched for retry")

	// The machine allows a retry after a pre-order failure.
	fake.orderErr = nil
	retry, err := o.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateSucceeded, retry.State)
}

func TestAddressSwitchSupersedesInFlightRateLookup(t *testing.T) {
	fake := defaultFake()
	o, _ := newLoadedOrchestrator(t, fake)

	// Selecting a new address resets the rate and resolves a fresh one.
	fake.mu.Lock()
	fake.rate = &domain.ShippingRate{Available: false}
	fake.mu.Unlock()
	o.SelectAddress(context.Background(), "a_2")

	rate := o.Rate()
	require.NotNil(t, rate)
	assert.False(t, rate.Available)
}
