package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Fulfillment is the delivery mode of an order.
type Fulfillment string

const (
	FulfillmentShipping Fulfillment = "shipping"
	FulfillmentPickup   Fulfillment = "pickup"
)

// MMKProvider selects the regional payment processor for kyat orders.
type MMKProvider string

const (
	ProviderWave   MMKProvider = "wave"
	ProviderKBZPay MMKProvider = "kbzpay"
)

const (
	CurrencyUSD = "USD"
	CurrencyMMK = "MMK"
)

// Order as returned by order creation. Durable server-side from the
// moment creation succeeds, independent of whether payment follows.
type Order struct {
	ID        string          `json:"id"`
	Currency  string          `json:"currency"`
	Status    string          `json:"status"`
	Total     decimal.Decimal `json:"total"`
	CreatedAt time.Time       `json:"created_at"`
}

type Address struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
	Line1    string `json:"line1"`
	City     string `json:"city"`
	Country  string `json:"country"`
	Phone    string `json:"phone,omitempty"`
}

type PickupLocation struct {
	ID       string `json:"id"`
	VendorID string `json:"vendor_id"`
	Name     string `json:"name"`
	Address  string `json:"address"`
}

// ShippingRate is a vendor+country quote. Available=false is a hard
// checkout precondition failure, not an error.
type ShippingRate struct {
	Available bool            `json:"available"`
	FlatRate  decimal.Decimal `json:"flat_rate"`
	Currency  string          `json:"currency"`
}

type WishlistItem struct {
	ID        string    `json:"id"`
	ProductID string    `json:"product_id"`
	VendorID  string    `json:"vendor_id"`
	AddedAt   time.Time `json:"added_at"`
}
