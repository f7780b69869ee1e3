package discovery

import (
    "context"
    "fmt"
    "time"

    "github.com/go-redis/redis/v8"
)

// ViewTracker deduplicates profile-view counting
type ViewTracker interface {
    // FirstView reports whether this is the first time viewer has seen
    // viewed within the dedup window.
    FirstView(ctx context.Context, viewerID, viewedID int64) (bool, error)
}

// RedisViewTracker dedups views with SETNX under a TTL. A view seen again
// inside the window doesn't count twice; after expiry it counts again.
type RedisViewTracker struct {
    client *redis.Client
    ttl    time.Duration
}

func NewRedisViewTracker(client *redis.Client, ttl time.Duration) *RedisViewTracker {
    return &RedisViewTracker{client: client, ttl: ttl}
}

func (t *RedisViewTracker) FirstView(ctx context.Context, viewerID, viewedID int64) (bool, error) {
    key := fmt.Sprintf("discovery:viewed:%d:%d", viewerID, viewedID)
    return t.client.SetNX(ctx, key, 1, t.ttl).Result()
}

// NopViewTracker counts every view. Used when Redis isn't configured.
type NopViewTracker struct{}

func (NopViewTracker) FirstView(ctx context.Context, viewerID, viewedID int64) (bool, error) {
    return true, nil
}
