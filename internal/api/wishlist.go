package api

import (
	"context"
	"fmt"

	"github.com/shwemart/storefront-client/internal/domain"
)

func (c *Client) Wishlist(ctx context.Context) ([]domain.WishlistItem, error) {
	var items []domain.WishlistItem
	if err := c.get(ctx, "/wishlist", &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *Client) AddWishlistItem(ctx context.Context, productID string) (*domain.WishlistItem, error) {
	req := map[string]string{"product_id": productID}
	var item domain.WishlistItem
	if err := c.post(ctx, "/wishlist", req, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *Client) RemoveWishlistItem(ctx context.Context, id string) error {
	return c.delete(ctx, fmt.Sprintf("/wishlist/%s", id))
}
