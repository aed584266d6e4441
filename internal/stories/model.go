package stories

import "time"

// Story is an ephemeral image post that expires from listings after 24 hours.
type Story struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	ImageURL  string    `gorm:"size:512;not null" json:"image_url"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// TableName exposes the table backing stories.
func (Story) TableName() string {
	return "stories"
}

// StoryView is a story joined with its author name.
type StoryView struct {
	ID        uint      `json:"id"`
	UserID    uint      `json:"user_id"`
	Name      string    `json:"name"`
	ImageURL  string    `json:"image_url"`
	CreatedAt time.Time `json:"created_at"`
}
