package realtime

import "encoding/json"

// Inbound event names understood by the hub.
const (
	EventRegister    = "register"
	EventTyping      = "typing"
	EventSendMessage = "send_message"
)

// Outbound event names emitted to connections.
const (
	EventUserOnline     = "user_online"
	EventUserOffline    = "user_offline"
	EventOnlineUsers    = "online_users"
	EventPrivateMessage = "private_message"
	EventMessageSent    = "message_sent"
	EventNotification   = "notification"
)

// Notification type tags.
const (
	NotificationNewPost = "new_post"
	NotificationLike    = "like"
	NotificationComment = "comment"
	NotificationFollow  = "follow"
	NotificationMessage = "message"
)

// Envelope is the wire frame for every event, in both directions. Inbound
// frames carry raw JSON data; outbound frames carry the payload value to be
// serialized.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Outbound is an event queued for delivery to one connection.
type Outbound struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

type registerPayload struct {
	UserID uint `json:"user_id"`
}

type typingPayload struct {
	From uint `json:"from"`
	To   uint `json:"to"`
}

type sendMessagePayload struct {
	SenderID   uint   `json:"sender_id"`
	ReceiverID uint   `json:"receiver_id"`
	Content    string `json:"content"`
	ImageURL   string `json:"image_url"`
}

type presencePayload struct {
	UserID uint `json:"user_id"`
}

type onlineUsersPayload struct {
	UserIDs []uint `json:"user_ids"`
}

// Notification is the payload of a notification event. It is never
// persisted; targets with no live connections miss it.
type Notification struct {
	Type      string `json:"type"`
	FromID    uint   `json:"from_id"`
	FromName  string `json:"from_name"`
	PostID    uint   `json:"post_id,omitempty"`
	MessageID uint   `json:"message_id,omitempty"`
	Content   string `json:"content,omitempty"`
}
