package server

import (
	"context"

	"github.com/minglehq/mingle/backend/internal/posts"
	"github.com/minglehq/mingle/backend/internal/social"
	"github.com/minglehq/mingle/backend/internal/users"
)

// Directory composes the service lookups the notification fan-out needs.
type Directory struct {
	Users  *users.Service
	Social *social.Service
	Posts  *posts.Service
}

// UserName returns the display name for a user id.
func (d Directory) UserName(ctx context.Context, id uint) (string, error) {
	return d.Users.UserName(ctx, id)
}

// FollowerIDs returns the ids of every follower of the user.
func (d Directory) FollowerIDs(ctx context.Context, userID uint) ([]uint, error) {
	return d.Social.FollowerIDs(ctx, userID)
}

// PostOwner returns the author of the post.
func (d Directory) PostOwner(ctx context.Context, postID uint) (uint, error) {
	return d.Posts.PostOwner(ctx, postID)
}
