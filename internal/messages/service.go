package messages

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// ErrMissingFields indicates a send request without both participants.
var ErrMissingFields = errors.New("messages: sender and receiver required")

// ServiceConfig describes the dependencies required by the messages service.
type ServiceConfig struct {
	Database *gorm.DB
	Clock    func() time.Time
}

// Service owns direct messages.
type Service struct {
	db  *gorm.DB
	now func() time.Time
}

// NewService constructs the messages service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, fmt.Errorf("messages: database connection required")
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Service{db: cfg.Database, now: clock}, nil
}

// Send persists a direct message and returns the stored record.
func (s *Service) Send(ctx context.Context, senderID, receiverID uint, content, imageURL string) (*Message, error) {
	if senderID == 0 || receiverID == 0 {
		return nil, ErrMissingFields
	}
	message := &Message{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
		ImageURL:   imageURL,
		CreatedAt:  s.now(),
	}
	if err := s.db.WithContext(ctx).Create(message).Error; err != nil {
		return nil, err
	}
	return message, nil
}

// Conversation returns both directions of traffic between two users,
// oldest-first, with sender names attached.
func (s *Service) Conversation(ctx context.Context, a, b uint) ([]ConversationMessage, error) {
	var rows []ConversationMessage
	err := s.db.WithContext(ctx).Table("messages m").
		Select("m.id, m.message AS content, m.created_at, u.name AS sender_name").
		Joins("JOIN users u ON u.id = m.sender_id").
		Where("(m.sender_id = ? AND m.receiver_id = ?) OR (m.sender_id = ? AND m.receiver_id = ?)", a, b, b, a).
		Order("m.created_at ASC").
		Scan(&rows).Error
	return rows, err
}
