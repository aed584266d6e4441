package users

import "time"

// User is a registered account. The password column stores a bcrypt hash,
// never the plaintext.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"size:190;not null" json:"name"`
	Email        string    `gorm:"size:320;uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"column:password;size:120;not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName exposes the table backing user accounts.
func (User) TableName() string {
	return "users"
}
