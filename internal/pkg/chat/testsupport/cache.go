package testsupport

import (
	"context"
	"strconv"
	"sync"
	"time"

	cacheport "github.com/tung2212002/BE-TimViecNow-sub000/internal/infrastructure/cache/port"
)

// Cache is an in-memory cacheport.Cache. TTLs are accepted and ignored; tests
// that care about expiry manipulate the cache directly.
type Cache struct {
	mu     sync.Mutex
	kv     map[string]string
	sets   map[string]map[string]struct{}
	hashes map[string]map[string]string

	// Fail, when set, makes every operation return it. Lets tests exercise
	// the storage-fallback paths.
	Fail error
}

var _ cacheport.Cache = (*Cache)(nil)

func NewCache() *Cache {
	return &Cache{
		kv:     make(map[string]string),
		sets:   make(map[string]map[string]struct{}),
		hashes: make(map[string]map[string]string),
	}
}

func (c *Cache) Get(ctx context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Fail != nil {
		return "", c.Fail
	}
	v, ok := c.kv[key]
	if !ok {
		return "", cacheport.ErrMiss
	}
	return v, nil
}

func (c *Cache) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Fail != nil {
		return c.Fail
	}
	c.kv[key] = value
	return nil
}

func (c *Cache) Del(ctx context.Context, keys ...string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Fail != nil {
		return 0, c.Fail
	}
	var n int64
	for _, k := range keys {
		if _, ok := c.kv[k]; ok {
			delete(c.kv, k)
			n++
		}
		if _, ok := c.sets[k]; ok {
			delete(c.sets, k)
			n++
		}
		if _, ok := c.hashes[k]; ok {
			delete(c.hashes, k)
			n++
		}
	}
	return n, nil
}

func (c *Cache) SetAdd(ctx context.Context, key string, members ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Fail != nil {
		return c.Fail
	}
	if c.sets[key] == nil {
		c.sets[key] = make(map[string]struct{})
	}
	for _, m := range members {
		c.sets[key][m] = struct{}{}
	}
	return nil
}

func (c *Cache) SetMembers(ctx context.Context, key string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Fail != nil {
		return nil, c.Fail
	}
	set, ok := c.sets[key]
	if !ok || len(set) == 0 {
		return nil, cacheport.ErrMiss
	}
	out := make([]string, 0, len(set))
	for m := range set {
		out = append(out, m)
	}
	return out, nil
}

func (c *Cache) SetRemove(ctx context.Context, key string, members ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Fail != nil {
		return c.Fail
	}
	for _, m := range members {
		delete(c.sets[key], m)
	}
	return nil
}

func (c *Cache) HashIncr(ctx context.Context, key, field string, delta int64) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Fail != nil {
		return 0, c.Fail
	}
	if c.hashes[key] == nil {
		c.hashes[key] = make(map[string]string)
	}
	cur, _ := strconv.ParseInt(c.hashes[key][field], 10, 64)
	cur += delta
	c.hashes[key][field] = strconv.FormatInt(cur, 10)
	return cur, nil
}

func (c *Cache) HashSet(ctx context.Context, key, field, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Fail != nil {
		return c.Fail
	}
	if c.hashes[key] == nil {
		c.hashes[key] = make(map[string]string)
	}
	c.hashes[key][field] = value
	return nil
}

func (c *Cache) HashGet(ctx context.Context, key, field string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Fail != nil {
		return "", c.Fail
	}
	v, ok := c.hashes[key][field]
	if !ok {
		return "", cacheport.ErrMiss
	}
	return v, nil
}

func (c *Cache) Expire(ctx context.Context, key string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Fail
}

func (c *Cache) Ping(ctx context.Context) error { return c.Fail }

func (c *Cache) Close() error { return nil }
