package domain

import "time"

// Thread is one order-scoped conversation between the buyer and the
// owning vendor.
type Thread struct {
	OrderID     string    `json:"order_id"`
	VendorID    string    `json:"vendor_id"`
	BuyerID     string    `json:"buyer_id"`
	LastMessage *Message  `json:"last_message,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Message is immutable once created. Pending and Failed are local-only
// flags for the sender's optimistic echo; they never go over the wire.
type Message struct {
	ID        string    `json:"id"`
	ThreadID  string    `json:"thread_id"`
	SenderID  string    `json:"sender_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`

	Pending bool `json:"-"`
	Failed  bool `json:"-"`
}

// ReadCursor is a watermark: instead of flagging individual messages,
// each participant tracks the newest message they have read.
type ReadCursor struct {
	LastReadMessageID string    `json:"last_read_message_id"`
	LastReadAt        time.Time `json:"last_read_at"`
}

// Covers reports whether the cursor already accounts for a message
// created at the given time.
func (c ReadCursor) Covers(createdAt time.Time) bool {
	return !c.LastReadAt.Before(createdAt)
}
