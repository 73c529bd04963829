// Package cache provides caching utilities for the observer.
package cache

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// BodyCache provides thread-safe LRU caching of response bodies keyed by request ID.
// Bodies are fetched from the browser on demand and can disappear once the
// page navigates away, so the cache keeps the ones already read.
type BodyCache struct {
	cache *lru.Cache[string, []byte]
}

// NewBodyCache creates a new LRU cache with the specified maximum number of bodies.
func NewBodyCache(maxItems int) (*BodyCache, error) {
	c, err := lru.New[string, []byte](maxItems)
	if err != nil {
		return nil, err
	}
	return &BodyCache{cache: c}, nil
}

// Get retrieves a body by request ID.
// Returns the body and true if found, nil and false otherwise.
func (c *BodyCache) Get(requestID string) ([]byte, bool) {
	return c.cache.Get(requestID)
}

// Put adds or updates a body in the cache.
func (c *BodyCache) Put(requestID string, body []byte) {
	c.cache.Add(requestID, body)
}

// Purge drops every cached body.
func (c *BodyCache) Purge() {
	c.cache.Purge()
}

// Len returns the current number of items in the cache.
func (c *BodyCache) Len() int {
	return c.cache.Len()
}
