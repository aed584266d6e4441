package social

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrMissingFields indicates a follow request without both identifiers.
var ErrMissingFields = errors.New("social: follower and followee required")

// ServiceConfig describes the dependencies required by the social graph service.
type ServiceConfig struct {
	Database *gorm.DB
	Cache    *FollowerCache
	Clock    func() time.Time
	Logger   *zap.Logger
}

// Service owns the follow graph. When a cache is configured, follower id
// reads go through it and graph writes invalidate it.
type Service struct {
	db     *gorm.DB
	cache  *FollowerCache
	now    func() time.Time
	logger *zap.Logger
}

// NewService constructs the social graph service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, fmt.Errorf("social: database connection required")
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{db: cfg.Database, cache: cfg.Cache, now: clock, logger: logger}, nil
}

// Follow records the relationship; repeating an existing follow is a no-op.
func (s *Service) Follow(ctx context.Context, followerID, followeeID uint) error {
	if followerID == 0 || followeeID == 0 {
		return ErrMissingFields
	}
	follow := &Follow{FollowerID: followerID, FolloweeID: followeeID, CreatedAt: s.now()}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(follow).Error
	if err != nil {
		return err
	}
	s.invalidate(ctx, followeeID)
	return nil
}

// Unfollow removes the relationship if present.
func (s *Service) Unfollow(ctx context.Context, followerID, followeeID uint) error {
	if followerID == 0 || followeeID == 0 {
		return ErrMissingFields
	}
	err := s.db.WithContext(ctx).
		Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
		Delete(&Follow{}).Error
	if err != nil {
		return err
	}
	s.invalidate(ctx, followeeID)
	return nil
}

// Followers returns the accounts following the user.
func (s *Service) Followers(ctx context.Context, userID uint) ([]UserRef, error) {
	var out []UserRef
	err := s.db.WithContext(ctx).Table("followers f").
		Select("u.id, u.name").
		Joins("JOIN users u ON u.id = f.follower_id").
		Where("f.followee_id = ?", userID).
		Scan(&out).Error
	return out, err
}

// Following returns the accounts the user follows.
func (s *Service) Following(ctx context.Context, userID uint) ([]UserRef, error) {
	var out []UserRef
	err := s.db.WithContext(ctx).Table("followers f").
		Select("u.id, u.name").
		Joins("JOIN users u ON u.id = f.followee_id").
		Where("f.follower_id = ?", userID).
		Scan(&out).Error
	return out, err
}

// FollowerIDs returns the ids of every follower of the user. This is the
// fan-out audience lookup, so it is served from the cache when one is
// configured.
func (s *Service) FollowerIDs(ctx context.Context, userID uint) ([]uint, error) {
	if s.cache != nil {
		if ids, ok := s.cache.Get(ctx, userID); ok {
			return ids, nil
		}
	}

	var ids []uint
	err := s.db.WithContext(ctx).Model(&Follow{}).
		Where("followee_id = ?", userID).
		Pluck("follower_id", &ids).Error
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, userID, ids); err != nil {
			s.logger.Warn("follower cache write failed", zap.Uint("user_id", userID), zap.Error(err))
		}
	}
	return ids, nil
}

func (s *Service) invalidate(ctx context.Context, followeeID uint) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, followeeID); err != nil {
		s.logger.Warn("follower cache invalidation failed", zap.Uint("user_id", followeeID), zap.Error(err))
	}
}
