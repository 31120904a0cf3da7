package api

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/shwemart/storefront-client/internal/domain"
)

// NotificationPage is one inbox page; NextCursor is opaque and empty on
// the last page.
type NotificationPage struct {
	Items      []domain.NotificationItem `json:"items"`
	NextCursor string                    `json:"next_cursor,omitempty"`
}

func (c *Client) Notifications(ctx context.Context, cursor string, limit int) (*NotificationPage, error) {
	var page NotificationPage
	path := "/notifications" + query(map[string]string{
		"cursor": cursor,
		"limit":  strconv.Itoa(limit),
	})
	if err := c.get(ctx, path, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

type markReadResult struct {
	ReadAt time.Time `json:"read_at"`
}

// MarkNotificationRead marks one item read and returns the server's
// read timestamp.
func (c *Client) MarkNotificationRead(ctx context.Context, id string) (time.Time, error) {
	var result markReadResult
	path := fmt.Sprintf("/notifications/%s/read", id)
	if err := c.post(ctx, path, nil, &result); err != nil {
		return time.Time{}, err
	}
	return result.ReadAt, nil
}

// MarkAllNotificationsRead marks every unread item with a single
// server-supplied batch timestamp, which it returns.
func (c *Client) MarkAllNotificationsRead(ctx context.Context) (time.Time, error) {
	var result markReadResult
	if err := c.post(ctx, "/notifications/read-all", nil, &result); err != nil {
		return time.Time{}, err
	}
	return result.ReadAt, nil
}
