package config

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the number of distinct payloads kept compiled.
const DefaultCacheSize = 64

// Cache keeps compiled Patterns keyed by the raw option payload, so hosts that
// send the same payload on every invocation compile it once.
//
// Thread-safe: the underlying LRU is synchronized.
type Cache struct {
	lru *lru.Cache[string, *Patterns]
}

// NewCache creates a cache holding up to size compiled payloads.
// A size <= 0 uses DefaultCacheSize.
func NewCache(size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	c, err := lru.New[string, *Patterns](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create pattern cache: %w", err)
	}
	return &Cache{lru: c}, nil
}

// Get returns the compiled patterns for opts, compiling on a miss.
// Compile failures are returned and not cached.
func (c *Cache) Get(opts Options) (*Patterns, error) {
	key := cacheKey(opts)
	if p, ok := c.lru.Get(key); ok {
		return p, nil
	}

	p, err := Compile(opts)
	if err != nil {
		return nil, err
	}
	c.lru.Add(key, p)
	return p, nil
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	return c.lru.Len()
}

// cacheKey encodes opts unambiguously. Names and patterns may contain any
// character, so each element is length-prefixed.
func cacheKey(opts Options) string {
	key := make([]byte, 0, 64)
	key = fmt.Appendf(key, "j%d:", len(opts.Jsxs))
	for _, s := range opts.Jsxs {
		key = fmt.Appendf(key, "%d:%s", len(s), s)
	}
	key = fmt.Appendf(key, "m%d:", len(opts.Matches))
	for _, s := range opts.Matches {
		key = fmt.Appendf(key, "%d:%s", len(s), s)
	}
	return string(key)
}
