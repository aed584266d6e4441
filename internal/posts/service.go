package posts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrMissingFields indicates a request without the required identifiers or content.
	ErrMissingFields = errors.New("posts: missing required fields")
	// ErrPostNotFound indicates no post exists for the identifier.
	ErrPostNotFound = errors.New("posts: post not found")
)

// ServiceConfig describes the dependencies required by the posts service.
type ServiceConfig struct {
	Database *gorm.DB
	Clock    func() time.Time
}

// Service owns posts, tags, likes and comments.
type Service struct {
	db  *gorm.DB
	now func() time.Time
}

// NewService constructs the posts service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, fmt.Errorf("posts: database connection required")
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Service{db: cfg.Database, now: clock}, nil
}

// Create stores a post and attaches the given tags, creating any tag that
// does not exist yet. The whole write happens in one transaction.
func (s *Service) Create(ctx context.Context, userID uint, content, imageURL string, tags []string) (uint, error) {
	if userID == 0 || (strings.TrimSpace(content) == "" && strings.TrimSpace(imageURL) == "") {
		return 0, ErrMissingFields
	}

	post := &Post{UserID: userID, Content: content, ImageURL: imageURL, CreatedAt: s.now()}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(post).Error; err != nil {
			return err
		}
		for _, name := range tags {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			tag, err := findOrCreateTag(tx, name)
			if err != nil {
				return err
			}
			link := &PostTag{PostID: post.ID, TagID: tag.ID}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(link).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return post.ID, nil
}

// Feed returns every post newest-first with author name, counters and tags.
func (s *Service) Feed(ctx context.Context) ([]FeedPost, error) {
	return s.feedQuery(ctx, s.db.WithContext(ctx).Table("posts p"))
}

// FeedByTag returns the feed restricted to posts carrying the named tag.
func (s *Service) FeedByTag(ctx context.Context, tag string) ([]FeedPost, error) {
	query := s.db.WithContext(ctx).Table("posts p").
		Joins("JOIN post_tags pt ON pt.post_id = p.id").
		Joins("JOIN tags t ON t.id = pt.tag_id").
		Where("t.name = ?", tag)
	return s.feedQuery(ctx, query)
}

func (s *Service) feedQuery(ctx context.Context, base *gorm.DB) ([]FeedPost, error) {
	var rows []FeedPost
	err := base.
		Select(`p.id, p.user_id, u.name, p.content, p.image_url, p.created_at,
			(SELECT COUNT(*) FROM likes WHERE likes.post_id = p.id) AS likes,
			(SELECT COUNT(*) FROM comments WHERE comments.post_id = p.id) AS comments`).
		Joins("JOIN users u ON u.id = p.user_id").
		Order("p.created_at DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if err := s.attachTags(ctx, rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Service) attachTags(ctx context.Context, rows []FeedPost) error {
	if len(rows) == 0 {
		return nil
	}
	ids := make([]uint, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}
	var links []struct {
		PostID uint
		Name   string
	}
	err := s.db.WithContext(ctx).Table("post_tags pt").
		Select("pt.post_id, t.name").
		Joins("JOIN tags t ON t.id = pt.tag_id").
		Where("pt.post_id IN ?", ids).
		Scan(&links).Error
	if err != nil {
		return err
	}
	byPost := make(map[uint][]string, len(rows))
	for _, link := range links {
		byPost[link.PostID] = append(byPost[link.PostID], link.Name)
	}
	for i := range rows {
		if tags, ok := byPost[rows[i].ID]; ok {
			rows[i].Tags = tags
		} else {
			rows[i].Tags = []string{}
		}
	}
	return nil
}

// ToggleLike likes the post when no like by the user exists and removes the
// like otherwise. It reports whether the post is liked after the call.
func (s *Service) ToggleLike(ctx context.Context, postID, userID uint) (bool, error) {
	if postID == 0 || userID == 0 {
		return false, ErrMissingFields
	}

	var existing Like
	err := s.db.WithContext(ctx).Where("post_id = ? AND user_id = ?", postID, userID).First(&existing).Error
	if err == nil {
		return false, s.db.WithContext(ctx).Delete(&existing).Error
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}
	like := &Like{PostID: postID, UserID: userID}
	if err := s.db.WithContext(ctx).Create(like).Error; err != nil {
		return false, err
	}
	return true, nil
}

// AddComment stores a comment on the post.
func (s *Service) AddComment(ctx context.Context, postID, userID uint, content string) (*Comment, error) {
	if postID == 0 || userID == 0 || strings.TrimSpace(content) == "" {
		return nil, ErrMissingFields
	}
	comment := &Comment{PostID: postID, UserID: userID, Content: content, CreatedAt: s.now()}
	if err := s.db.WithContext(ctx).Create(comment).Error; err != nil {
		return nil, err
	}
	return comment, nil
}

// Comments returns the post's comments newest-first with commenter names.
func (s *Service) Comments(ctx context.Context, postID uint) ([]CommentView, error) {
	var rows []CommentView
	err := s.db.WithContext(ctx).Table("comments c").
		Select("c.id, c.content, c.created_at, u.name").
		Joins("JOIN users u ON u.id = c.user_id").
		Where("c.post_id = ?", postID).
		Order("c.created_at DESC").
		Scan(&rows).Error
	return rows, err
}

// PostOwner returns the author of the post.
func (s *Service) PostOwner(ctx context.Context, postID uint) (uint, error) {
	var post Post
	err := s.db.WithContext(ctx).Select("id", "user_id").First(&post, postID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, ErrPostNotFound
	}
	if err != nil {
		return 0, err
	}
	return post.UserID, nil
}

// CreateTag creates the named tag when it does not exist yet.
func (s *Service) CreateTag(ctx context.Context, name string) (*Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrMissingFields
	}
	return findOrCreateTag(s.db.WithContext(ctx), name)
}

// Tags returns every tag ordered by name.
func (s *Service) Tags(ctx context.Context) ([]Tag, error) {
	var out []Tag
	err := s.db.WithContext(ctx).Order("name").Find(&out).Error
	return out, err
}

// AttachTag links an existing tag to a post; duplicate links are ignored.
func (s *Service) AttachTag(ctx context.Context, postID, tagID uint) error {
	if postID == 0 || tagID == 0 {
		return ErrMissingFields
	}
	link := &PostTag{PostID: postID, TagID: tagID}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(link).Error
}

// PostTags returns the tags attached to a post.
func (s *Service) PostTags(ctx context.Context, postID uint) ([]Tag, error) {
	var out []Tag
	err := s.db.WithContext(ctx).Table("post_tags pt").
		Select("t.id, t.name").
		Joins("JOIN tags t ON t.id = pt.tag_id").
		Where("pt.post_id = ?", postID).
		Scan(&out).Error
	return out, err
}

func findOrCreateTag(tx *gorm.DB, name string) (*Tag, error) {
	var tag Tag
	err := tx.Where("name = ?", name).First(&tag).Error
	if err == nil {
		return &tag, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	tag = Tag{Name: name}
	if err := tx.Create(&tag).Error; err != nil {
		return nil, err
	}
	return &tag, nil
}

// SplitTags normalizes a client-supplied tag field that may arrive as a
// comma-separated string.
func SplitTags(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
