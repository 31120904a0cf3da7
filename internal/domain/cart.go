package domain

import "github.com/shopspring/decimal"

// Cart is the single outstanding cart. All line items in a non-empty
// cart belong to the same vendor; the server rejects cross-vendor adds
// with a conflict response.
type Cart struct {
	ID       string     `json:"id"`
	VendorID string     `json:"vendor_id,omitempty"`
	Currency string     `json:"currency"`
	Items    []CartLine `json:"items"`
}

type CartLine struct {
	ID          string          `json:"id"`
	VariantID   string          `json:"variant_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// Empty reports whether the cart has no line items.
func (c *Cart) Empty() bool {
	return c == nil || len(c.Items) == 0
}

// Quantity sums the line quantities, which is what the header badge shows.
func (c *Cart) Quantity() int {
	if c == nil {
		return 0
	}
	total := 0
	for _, line := range c.Items {
		total += line.Quantity
	}
	return total
}

// Subtotal sums quantity-weighted line prices.
func (c *Cart) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	if c == nil {
		return sum
	}
	for _, line := range c.Items {
		sum = sum.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return sum
}
