package persistence

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/rendis/canopy/pkg/schema"
)

// DefaultCacheSize is the number of documents CachedBackend keeps.
const DefaultCacheSize = 64

// CachedBackend keeps recently loaded or saved documents in memory in front
// of another Backend. Documents are immutable, so cached pointers are handed
// out as-is.
type CachedBackend struct {
	next  Backend
	cache *lru.Cache[string, *schema.Node]
}

// NewCachedBackend wraps next with an LRU of the given size.
func NewCachedBackend(next Backend, size int) (*CachedBackend, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, *schema.Node](size)
	if err != nil {
		return nil, err
	}
	return &CachedBackend{next: next, cache: cache}, nil
}

// Load serves from the cache, falling back to the wrapped backend.
func (c *CachedBackend) Load(ctx context.Context, id string) (*schema.Node, error) {
	if doc, ok := c.cache.Get(id); ok {
		return doc, nil
	}
	doc, err := c.next.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc != nil {
		c.cache.Add(id, doc)
	}
	return doc, nil
}

// Save writes through and caches the saved document on success.
func (c *CachedBackend) Save(ctx context.Context, id string, doc *schema.Node) error {
	if err := c.next.Save(ctx, id, doc); err != nil {
		c.cache.Remove(id)
		return err
	}
	if doc == nil {
		c.cache.Remove(id)
		return nil
	}
	c.cache.Add(id, doc)
	return nil
}

// Invalidate drops id so the next Load reaches the wrapped backend.
func (c *CachedBackend) Invalidate(id string) {
	c.cache.Remove(id)
}

// Len returns the number of cached documents.
func (c *CachedBackend) Len() int { return c.cache.Len() }
