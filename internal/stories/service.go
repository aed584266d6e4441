package stories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

const storyLifetime = 24 * time.Hour

// ErrMissingFields indicates a story request without user or image.
var ErrMissingFields = errors.New("stories: user and image required")

// ServiceConfig describes the dependencies required by the stories service.
type ServiceConfig struct {
	Database *gorm.DB
	Clock    func() time.Time
}

// Service owns stories.
type Service struct {
	db  *gorm.DB
	now func() time.Time
}

// NewService constructs the stories service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, fmt.Errorf("stories: database connection required")
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Service{db: cfg.Database, now: clock}, nil
}

// Create stores a story.
func (s *Service) Create(ctx context.Context, userID uint, imageURL string) (*Story, error) {
	if userID == 0 || strings.TrimSpace(imageURL) == "" {
		return nil, ErrMissingFields
	}
	story := &Story{UserID: userID, ImageURL: imageURL, CreatedAt: s.now()}
	if err := s.db.WithContext(ctx).Create(story).Error; err != nil {
		return nil, err
	}
	return story, nil
}

// Active returns stories younger than 24 hours, newest-first, with author names.
func (s *Service) Active(ctx context.Context) ([]StoryView, error) {
	cutoff := s.now().Add(-storyLifetime)
	var rows []StoryView
	err := s.db.WithContext(ctx).Table("stories st").
		Select("st.id, st.user_id, st.image_url, st.created_at, u.name").
		Joins("JOIN users u ON u.id = st.user_id").
		Where("st.created_at > ?", cutoff).
		Order("st.created_at DESC").
		Scan(&rows).Error
	return rows, err
}
