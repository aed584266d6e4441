package social

import "time"

// Follow records that follower follows followee. The pair is unique so a
// repeated follow is a no-op.
type Follow struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	FollowerID uint      `gorm:"uniqueIndex:ux_follow_pair;index;not null" json:"follower_id"`
	FolloweeID uint      `gorm:"uniqueIndex:ux_follow_pair;index;not null" json:"followee_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName exposes the table backing follow relationships.
func (Follow) TableName() string {
	return "followers"
}

// UserRef is the id+name projection the follower/following endpoints return.
type UserRef struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}
