package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Local is an in-process cache for reference data that never changes while
// the server runs (mandals, villages, crop catalog). It sits in front of
// Redis so a cold Redis does not hit the database on every request.
type Local struct {
	c *gocache.Cache
}

func NewLocal(ttl time.Duration) *Local {
	return &Local{c: gocache.New(ttl, 2*ttl)}
}

func (l *Local) Get(key string) (any, bool) {
	return l.c.Get(key)
}

func (l *Local) Set(key string, v any) {
	l.c.SetDefault(key, v)
}

func (l *Local) Delete(key string) {
	l.c.Delete(key)
}
