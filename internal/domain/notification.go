package domain

import "time"

type NotificationType string

const (
	NotificationOrderStatusChanged  NotificationType = "order_status_changed"
	NotificationReturnStatusChanged NotificationType = "return_status_changed"
	NotificationNewMessage          NotificationType = "new_message"
)

// Map alias for loosely-typed notification payloads.
type Map map[string]interface{}

// NotificationItem is one inbox entry. ReadAt is monotonic: once set it
// is never cleared, and a later mark never rewinds it.
type NotificationItem struct {
	ID        string           `json:"id"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Body      string           `json:"body"`
	Payload   Map              `json:"payload,omitempty"`
	ReadAt    *time.Time       `json:"read_at,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

// Read reports whether the item has been marked read.
func (n *NotificationItem) Read() bool {
	return n.ReadAt != nil
}
