package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAnalyticsKey(t *testing.T) {
	assert.Equal(t, "analytics:overview:all", AnalyticsKey("overview", "all"))
	assert.Equal(t, "analytics:diseases:farmer:7", AnalyticsKey("diseases", "farmer:7"))
}

// Without a client every call degrades to a miss or a no-op.
func TestRedisHelpersWithoutClient(t *testing.T) {
	SetClient(nil)
	ctx := context.Background()

	SetCached(ctx, "k", []byte("v"), time.Minute)
	_, ok := GetCached(ctx, "k")
	assert.False(t, ok)

	InvalidateAnalytics(ctx)
	assert.False(t, IsHealthy())
	assert.NoError(t, Close())
}

func TestLocalCache(t *testing.T) {
	l := NewLocal(time.Minute)

	_, ok := l.Get(LocationsKey)
	assert.False(t, ok)

	l.Set(LocationsKey, []string{"Kurnool"})
	v, ok := l.Get(LocationsKey)
	assert.True(t, ok)
	assert.Equal(t, []string{"Kurnool"}, v)

	l.Delete(LocationsKey)
	_, ok = l.Get(LocationsKey)
	assert.False(t, ok)
}
