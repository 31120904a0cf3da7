package api

import (
	"context"
	"fmt"

	"github.com/shwemart/storefront-client/internal/domain"
)

// Addresses lists the caller's saved shipping addresses.
func (c *Client) Addresses(ctx context.Context) ([]domain.Address, error) {
	var addresses []domain.Address
	if err := c.get(ctx, "/addresses", &addresses); err != nil {
		return nil, err
	}
	return addresses, nil
}

// PickupLocations lists a vendor's designated pickup points.
func (c *Client) PickupLocations(ctx context.Context, vendorID string) ([]domain.PickupLocation, error) {
	var locations []domain.PickupLocation
	path := fmt.Sprintf("/vendors/%s/pickup-locations", vendorID)
	if err := c.get(ctx, path, &locations); err != nil {
		return nil, err
	}
	return locations, nil
}

// ShippingRate quotes a vendor's flat rate into a destination country.
func (c *Client) ShippingRate(ctx context.Context, vendorID, country string) (*domain.ShippingRate, error) {
	var rate domain.ShippingRate
	path := fmt.Sprintf("/vendors/%s/shipping-rate", vendorID) + query(map[string]string{"country": country})
	if err := c.get(ctx, path, &rate); err != nil {
		return nil, err
	}
	return &rate, nil
}

// CreateOrderRequest consumes the cart server-side; on success the
// order exists regardless of what happens to payment afterwards.
type CreateOrderRequest struct {
	CartID           string             `json:"cart_id"`
	Fulfillment      domain.Fulfillment `json:"fulfillment"`
	AddressID        string             `json:"address_id,omitempty"`
	PickupLocationID string             `json:"pickup_location_id,omitempty"`
}

func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (*domain.Order, error) {
	var order domain.Order
	if err := c.post(ctx, "/orders", req, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// PaymentIntent is the result of initiating payment on an order. A
// non-empty RedirectURL means the user must be handed off to the
// processor's hosted page.
type PaymentIntent struct {
	RedirectURL string `json:"redirect_url,omitempty"`
	Reference   string `json:"reference,omitempty"`
}

// InitiateStripePayment starts the international card flow.
func (c *Client) InitiateStripePayment(ctx context.Context, orderID string) (*PaymentIntent, error) {
	return c.initiatePayment(ctx, orderID, "stripe")
}

// InitiateWavePayment starts a Wave Money payment.
func (c *Client) InitiateWavePayment(ctx context.Context, orderID string) (*PaymentIntent, error) {
	return c.initiatePayment(ctx, orderID, "wave")
}

// InitiateKBZPayPayment starts a KBZPay payment.
func (c *Client) InitiateKBZPayPayment(ctx context.Context, orderID string) (*PaymentIntent, error) {
	return c.initiatePayment(ctx, orderID, "kbzpay")
}

func (c *Client) initiatePayment(ctx context.Context, orderID, provider string) (*PaymentIntent, error) {
	var intent PaymentIntent
	path := fmt.Sprintf("/orders/%s/payments/%s", orderID, provider)
	if err := c.post(ctx, path, nil, &intent); err != nil {
		return nil, err
	}
	return &intent, nil
}
