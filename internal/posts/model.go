package posts

import "time"

// Post is a feed entry. Content and image are individually optional but at
// least one must be present.
type Post struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	Content   string    `gorm:"type:text" json:"content"`
	ImageURL  string    `gorm:"size:512" json:"image_url"`
	CreatedAt time.Time `json:"created_at"`
}

func (Post) TableName() string { return "posts" }

// Tag is a reusable label attachable to posts.
type Tag struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:190;uniqueIndex;not null" json:"name"`
}

func (Tag) TableName() string { return "tags" }

// PostTag links a post to a tag. The pair is unique so re-tagging is a no-op.
type PostTag struct {
	ID     uint `gorm:"primaryKey" json:"id"`
	PostID uint `gorm:"uniqueIndex:ux_post_tag;not null" json:"post_id"`
	TagID  uint `gorm:"uniqueIndex:ux_post_tag;not null" json:"tag_id"`
}

func (PostTag) TableName() string { return "post_tags" }

// Like records one user liking one post. The pair is unique; liking twice
// toggles the like off instead of duplicating it.
type Like struct {
	ID     uint `gorm:"primaryKey" json:"id"`
	PostID uint `gorm:"uniqueIndex:ux_like_pair;not null" json:"post_id"`
	UserID uint `gorm:"uniqueIndex:ux_like_pair;not null" json:"user_id"`
}

func (Like) TableName() string { return "likes" }

// Comment is a user remark on a post.
type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"index;not null" json:"post_id"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

func (Comment) TableName() string { return "comments" }

// FeedPost is a post joined with its author name, counters and tag names,
// the shape the feed endpoints return.
type FeedPost struct {
	ID        uint      `json:"id"`
	UserID    uint      `json:"user_id"`
	Name      string    `json:"name"`
	Content   string    `json:"content"`
	ImageURL  string    `json:"image_url"`
	Likes     int64     `json:"likes"`
	Comments  int64     `json:"comments"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"created_at"`
}

// CommentView is a comment joined with its author name.
type CommentView struct {
	ID        uint      `json:"id"`
	Content   string    `json:"content"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
