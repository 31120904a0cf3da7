package api

import "context"

type countResult struct {
	Count int `json:"count"`
}

// WishlistCount returns the number of wishlist items.
func (c *Client) WishlistCount(ctx context.Context) (int, error) {
	var result countResult
	if err := c.get(ctx, "/wishlist/count", &result); err != nil {
		return 0, err
	}
	return result.Count, nil
}

// UnreadNotificationCount returns the number of unread inbox items.
func (c *Client) UnreadNotificationCount(ctx context.Context) (int, error) {
	var result countResult
	if err := c.get(ctx, "/notifications/unread-count", &result); err != nil {
		return 0, err
	}
	return result.Count, nil
}

// UnreadChatCount returns the number of threads with unread messages.
func (c *Client) UnreadChatCount(ctx context.Context) (int, error) {
	var result countResult
	if err := c.get(ctx, "/chat/unread-count", &result); err != nil {
		return 0, err
	}
	return result.Count, nil
}
