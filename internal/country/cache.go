package country

import (
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

type resolved struct {
	code string
	flag string
}

// CachedResolver memoizes Resolve for repeated inputs, e.g. during a backfill
// where many cards share a company name.
type CachedResolver struct {
	cache *lru.Cache[string, resolved]
}

// NewCachedResolver creates a resolver holding up to size entries.
func NewCachedResolver(size int) (*CachedResolver, error) {
	if size <= 0 {
		size = 512
	}
	c, err := lru.New[string, resolved](size)
	if err != nil {
		return nil, err
	}
	return &CachedResolver{cache: c}, nil
}

// Resolve behaves exactly like the package-level Resolve.
func (r *CachedResolver) Resolve(s string) (string, string) {
	key := strings.ToLower(strings.TrimSpace(s))
	if v, ok := r.cache.Get(key); ok {
		return v.code, v.flag
	}
	code, flag := Resolve(key)
	r.cache.Add(key, resolved{code: code, flag: flag})
	return code, flag
}

// Len is the number of cached entries.
func (r *CachedResolver) Len() int {
	return r.cache.Len()
}
