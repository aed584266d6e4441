package social

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultFollowerTTL = 5 * time.Minute

// FollowerCache keeps follower id lists in Redis so repeated fan-outs for
// the same author skip the database.
type FollowerCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewFollowerCache wraps the provided Redis client.
func NewFollowerCache(client *redis.Client, ttl time.Duration) *FollowerCache {
	if ttl <= 0 {
		ttl = defaultFollowerTTL
	}
	return &FollowerCache{client: client, ttl: ttl}
}

// Get returns the cached follower ids and whether the key was present.
func (c *FollowerCache) Get(ctx context.Context, userID uint) ([]uint, bool) {
	data, err := c.client.Get(ctx, c.key(userID)).Bytes()
	if err != nil {
		return nil, false
	}
	var ids []uint
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, false
	}
	return ids, true
}

// Set stores the follower ids under the user's key.
func (c *FollowerCache) Set(ctx context.Context, userID uint, ids []uint) error {
	payload, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(userID), payload, c.ttl).Err()
}

// Invalidate drops the user's cached follower list.
func (c *FollowerCache) Invalidate(ctx context.Context, userID uint) error {
	return c.client.Del(ctx, c.key(userID)).Err()
}

func (c *FollowerCache) key(userID uint) string {
	return fmt.Sprintf("followers:%d", userID)
}
