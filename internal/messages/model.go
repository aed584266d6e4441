package messages

import "time"

// Message is a persisted direct message between two users.
type Message struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	SenderID   uint      `gorm:"index;not null" json:"sender_id"`
	ReceiverID uint      `gorm:"index;not null" json:"receiver_id"`
	Content    string    `gorm:"column:message;type:text" json:"content"`
	ImageURL   string    `gorm:"size:512" json:"image_url"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName exposes the table backing direct messages.
func (Message) TableName() string {
	return "messages"
}

// ConversationMessage is a message joined with the sender's display name.
type ConversationMessage struct {
	ID         uint      `json:"id"`
	Content    string    `json:"content"`
	SenderName string    `json:"sender_name"`
	CreatedAt  time.Time `json:"created_at"`
}
