package api

import (
	"context"
	"fmt"

	"github.com/shwemart/storefront-client/internal/domain"
)

// Cart fetches the caller's single outstanding cart.
func (c *Client) Cart(ctx context.Context) (*domain.Cart, error) {
	var cart domain.Cart
	if err := c.get(ctx, "/cart", &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

// AddCartItem adds a variant to the cart. A cross-vendor add comes back
// as a conflict error (IsConflict); the caller must not retry it.
func (c *Client) AddCartItem(ctx context.Context, variantID string, quantity int) (*domain.Cart, error) {
	body := map[string]interface{}{
		"variant_id": variantID,
		"quantity":   quantity,
	}
	var cart domain.Cart
	if err := c.post(ctx, "/cart/items", body, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

// RemoveCartItem deletes one line from the cart.
func (c *Client) RemoveCartItem(ctx context.Context, lineID string) error {
	return c.delete(ctx, fmt.Sprintf("/cart/items/%s", lineID))
}

// ClearCart empties the server-side cart.
func (c *Client) ClearCart(ctx context.Context) error {
	return c.delete(ctx, "/cart")
}
