package api

import (
	"context"
	"fmt"
	"strconv"

	"github.com/shwemart/storefront-client/internal/domain"
)

// Threads lists the caller's order conversations, most recent first.
func (c *Client) Threads(ctx context.Context) ([]domain.Thread, error) {
	var threads []domain.Thread
	if err := c.get(ctx, "/chat/threads", &threads); err != nil {
		return nil, err
	}
	return threads, nil
}

// ThreadMessages fetches the most recent limit messages of one order's
// thread, newest first; callers reverse into chronological order.
func (c *Client) ThreadMessages(ctx context.Context, orderID string, limit int) ([]domain.Message, error) {
	var messages []domain.Message
	path := fmt.Sprintf("/chat/threads/%s/messages", orderID) + query(map[string]string{
		"limit": strconv.Itoa(limit),
	})
	if err := c.get(ctx, path, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// SendMessage posts a message; the returned message is authoritative
// and carries the server-assigned id any realtime echo will share.
func (c *Client) SendMessage(ctx context.Context, orderID, clientID, body string) (*domain.Message, error) {
	req := map[string]string{
		"client_id": clientID,
		"body":      body,
	}
	var msg domain.Message
	path := fmt.Sprintf("/chat/threads/%s/messages", orderID)
	if err := c.post(ctx, path, req, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// MarkThreadRead advances the caller's read cursor to messageID and
// returns the server's cursor timestamp.
func (c *Client) MarkThreadRead(ctx context.Context, orderID, messageID string) (*domain.ReadCursor, error) {
	req := map[string]string{"message_id": messageID}
	var cursor domain.ReadCursor
	path := fmt.Sprintf("/chat/threads/%s/read", orderID)
	if err := c.post(ctx, path, req, &cursor); err != nil {
		return nil, err
	}
	return &cursor, nil
}
