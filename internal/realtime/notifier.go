package realtime

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const resolveTimeout = 5 * time.Second

// Directory resolves notification audiences and display names from the
// persistent store.
type Directory interface {
	UserName(ctx context.Context, id uint) (string, error)
	FollowerIDs(ctx context.Context, userID uint) ([]uint, error)
	PostOwner(ctx context.Context, postID uint) (uint, error)
}

// Delivery carries events to a user's live connections.
type Delivery interface {
	EmitToUser(userID uint, event Outbound)
}

// NotifierConfig describes the dependencies required by the notifier.
type NotifierConfig struct {
	Directory Directory
	Delivery  Delivery
	Logger    *zap.Logger
}

// Notifier fans a committed domain event out to the live connections of its
// audience. Delivery is strictly best-effort: failures while resolving the
// audience or emitting are logged and swallowed, never rolled back into the
// domain write, and offline targets miss the event with no pending record.
type Notifier struct {
	directory Directory
	delivery  Delivery
	logger    *zap.Logger
}

// NewNotifier constructs the notifier.
func NewNotifier(cfg NotifierConfig) (*Notifier, error) {
	if cfg.Directory == nil {
		return nil, fmt.Errorf("realtime: directory required")
	}
	if cfg.Delivery == nil {
		return nil, fmt.Errorf("realtime: delivery required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{directory: cfg.Directory, delivery: cfg.Delivery, logger: logger}, nil
}

// PostCreated notifies every follower of the author.
func (n *Notifier) PostCreated(ctx context.Context, actorID, postID uint) {
	ctx, cancel := context.WithTimeout(ctx, resolveTimeout)
	defer cancel()

	name, err := n.directory.UserName(ctx, actorID)
	if err != nil {
		n.warn("new_post", actorID, err)
		return
	}
	followerIDs, err := n.directory.FollowerIDs(ctx, actorID)
	if err != nil {
		n.warn("new_post", actorID, err)
		return
	}
	event := Outbound{Event: EventNotification, Data: Notification{
		Type:     NotificationNewPost,
		FromID:   actorID,
		FromName: name,
		PostID:   postID,
	}}
	for _, followerID := range followerIDs {
		n.delivery.EmitToUser(followerID, event)
	}
}

// PostLiked notifies the post owner. A user liking their own post emits
// nothing.
func (n *Notifier) PostLiked(ctx context.Context, actorID, postID uint) {
	n.notifyPostOwner(ctx, actorID, postID, NotificationLike, "")
}

// PostCommented notifies the post owner with the comment text. A user
// commenting on their own post emits nothing.
func (n *Notifier) PostCommented(ctx context.Context, actorID, postID uint, content string) {
	n.notifyPostOwner(ctx, actorID, postID, NotificationComment, content)
}

func (n *Notifier) notifyPostOwner(ctx context.Context, actorID, postID uint, kind, content string) {
	ctx, cancel := context.WithTimeout(ctx, resolveTimeout)
	defer cancel()

	ownerID, err := n.directory.PostOwner(ctx, postID)
	if err != nil {
		n.warn(kind, actorID, err)
		return
	}
	if ownerID == actorID {
		return
	}
	name, err := n.directory.UserName(ctx, actorID)
	if err != nil {
		n.warn(kind, actorID, err)
		return
	}
	n.delivery.EmitToUser(ownerID, Outbound{Event: EventNotification, Data: Notification{
		Type:     kind,
		FromID:   actorID,
		FromName: name,
		PostID:   postID,
		Content:  content,
	}})
}

// Followed notifies the followee of their new follower.
func (n *Notifier) Followed(ctx context.Context, actorID, followeeID uint) {
	ctx, cancel := context.WithTimeout(ctx, resolveTimeout)
	defer cancel()

	name, err := n.directory.UserName(ctx, actorID)
	if err != nil {
		n.warn("follow", actorID, err)
		return
	}
	n.delivery.EmitToUser(followeeID, Outbound{Event: EventNotification, Data: Notification{
		Type:     NotificationFollow,
		FromID:   actorID,
		FromName: name,
	}})
}

// MessageSent notifies the receiver of a new direct message.
func (n *Notifier) MessageSent(ctx context.Context, actorID, receiverID, messageID uint) {
	ctx, cancel := context.WithTimeout(ctx, resolveTimeout)
	defer cancel()

	name, err := n.directory.UserName(ctx, actorID)
	if err != nil {
		n.warn("message", actorID, err)
		return
	}
	n.delivery.EmitToUser(receiverID, Outbound{Event: EventNotification, Data: Notification{
		Type:      NotificationMessage,
		FromID:    actorID,
		FromName:  name,
		MessageID: messageID,
	}})
}

func (n *Notifier) warn(kind string, actorID uint, err error) {
	n.logger.Warn("notification fan-out failed",
		zap.String("type", kind),
		zap.Uint("actor_id", actorID),
		zap.Error(err))
}
