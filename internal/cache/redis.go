package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"farmfi-backend/internal/config"

	"github.com/redis/go-redis/v9"
)

// Cache keys
const (
	LocationsKey     = "locations:all"
	CropCatalogKey   = "crops:catalog"
	AnalyticsKeyFmt  = "analytics:%s:%s" // report, scope
	analyticsPattern = "analytics:*"
	AnalyticsTTL     = 5 * time.Minute
	ReferenceDataTTL = 24 * time.Hour
)

var client *redis.Client

// Init connects to Redis. A failed ping leaves the package without a client
// and every call below becomes a no-op, so the API keeps working without
// Redis.
func Init(cfg *config.Config) error {
	if cfg.Redis.Addr == "" {
		client = nil
		return fmt.Errorf("redis address not configured")
	}

	opts := &redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
	// Accept redis:// URLs as well as host:port
	if strings.HasPrefix(cfg.Redis.Addr, "redis://") || strings.HasPrefix(cfg.Redis.Addr, "rediss://") {
		parsed, err := redis.ParseURL(cfg.Redis.Addr)
		if err != nil {
			return fmt.Errorf("parse redis url: %w", err)
		}
		opts = parsed
	}

	client = redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		// Close the failed client and set to nil for graceful degradation
		client.Close()
		client = nil
		return err
	}
	return nil
}

// SetClient installs an already connected client (tests, embedding).
func SetClient(c *redis.Client) {
	client = c
}

// GetClient returns the Redis client
func GetClient() *redis.Client {
	return client
}

// Close releases the connection pool.
func Close() error {
	if client == nil {
		return nil
	}
	err := client.Close()
	client = nil
	return err
}

// AnalyticsKey builds the cache key for one report in one scope ("all" for
// staff, "farmer:<id>" for a farmer).
func AnalyticsKey(report, scope string) string {
	return fmt.Sprintf(AnalyticsKeyFmt, report, scope)
}

// GetCached returns cached data for a key
func GetCached(ctx context.Context, key string) ([]byte, bool) {
	if client == nil {
		return nil, false
	}
	data, err := client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return data, true
}

// SetCached stores data with a TTL
func SetCached(ctx context.Context, key string, data []byte, ttl time.Duration) {
	if client == nil {
		return
	}
	client.Set(ctx, key, data, ttl)
}

// InvalidatePattern removes all keys matching a glob pattern
func InvalidatePattern(ctx context.Context, pattern string) {
	if client == nil {
		return
	}
	iter := client.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if iter.Err() == nil && len(keys) > 0 {
		client.Del(ctx, keys...)
	}
}

// InvalidateAnalytics clears every cached aggregation.
// Called when: any field or crop record is created, updated, deleted or
// changes status.
func InvalidateAnalytics(ctx context.Context) {
	InvalidatePattern(ctx, analyticsPattern)
}

// IsHealthy returns true if Redis connection is working
func IsHealthy() bool {
	if client == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return client.Ping(ctx).Err() == nil
}
