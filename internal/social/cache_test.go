package social

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestCache(t *testing.T) (*FollowerCache, *miniredis.Miniredis) {
	t.Helper()
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewFollowerCache(client, time.Minute), server
}

func TestFollowerCacheRoundTrip(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	if _, ok := cache.Get(ctx, 1); ok {
		t.Fatal("expected a miss on an empty cache")
	}

	if err := cache.Set(ctx, 1, []uint{2, 3, 4}); err != nil {
		t.Fatalf("unexpected set error: %v", err)
	}
	ids, ok := cache.Get(ctx, 1)
	if !ok {
		t.Fatal("expected a hit after set")
	}
	if len(ids) != 3 || ids[0] != 2 || ids[2] != 4 {
		t.Fatalf("unexpected cached ids: %v", ids)
	}

	if err := cache.Invalidate(ctx, 1); err != nil {
		t.Fatalf("unexpected invalidate error: %v", err)
	}
	if _, ok := cache.Get(ctx, 1); ok {
		t.Fatal("expected a miss after invalidation")
	}
}

func TestFollowerCacheExpires(t *testing.T) {
	cache, server := newTestCache(t)
	ctx := context.Background()

	if err := cache.Set(ctx, 1, []uint{2}); err != nil {
		t.Fatalf("unexpected set error: %v", err)
	}
	server.FastForward(2 * time.Minute)
	if _, ok := cache.Get(ctx, 1); ok {
		t.Fatal("expected entry to expire")
	}
}

func TestServiceServesFollowerIDsThroughCache(t *testing.T) {
	cache, _ := newTestCache(t)
	service, db := newTestService(t, cache)
	ctx := context.Background()
	alice := seedUser(t, db, "Alice")
	bob := seedUser(t, db, "Bob")

	if err := service.Follow(ctx, alice, bob); err != nil {
		t.Fatalf("unexpected follow error: %v", err)
	}

	// First read populates the cache from the database.
	ids, err := service.FollowerIDs(ctx, bob)
	if err != nil {
		t.Fatalf("unexpected follower ids error: %v", err)
	}
	if len(ids) != 1 || ids[0] != alice {
		t.Fatalf("expected follower %d, got %v", alice, ids)
	}
	if cached, ok := cache.Get(ctx, bob); !ok || len(cached) != 1 {
		t.Fatalf("expected cache to be populated, got %v ok=%v", cached, ok)
	}

	// A graph write invalidates the cached audience.
	carol := seedUser(t, db, "Carol")
	if err := service.Follow(ctx, carol, bob); err != nil {
		t.Fatalf("unexpected follow error: %v", err)
	}
	if _, ok := cache.Get(ctx, bob); ok {
		t.Fatal("expected cache invalidation after follow")
	}

	ids, err = service.FollowerIDs(ctx, bob)
	if err != nil {
		t.Fatalf("unexpected follower ids error: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected both followers after refresh, got %v", ids)
	}
}
