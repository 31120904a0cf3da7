package realtime

// Event types on the realtime channel. The chat:subscribe action is
// client-to-server and must be re-sent after every reconnect; the rest
// are server pushes.
const (
	EventChatSubscribe = "chat:subscribe"
	EventChatMessage   = "chat:message"
	EventChatRead      = "chat:read"

	EventNotificationNew     = "notifications:new"
	EventNotificationRead    = "notifications:read"
	EventNotificationReadAll = "notifications:read-all"

	EventCartUpdated     = "cart:updated"
	EventWishlistUpdated = "wishlist:updated"
)
