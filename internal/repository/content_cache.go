package repository

import (
	"context"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru"

	"party_server/internal/domain"
)

// DocumentSource is anything that can fetch a content document.
type DocumentSource interface {
	FetchDocument(ctx context.Context, id string) (*domain.Document, error)
}

// CachedContent keeps recently used documents in an ARC cache. Misses are
// not cached, so a document added later is picked up on the next fetch.
type CachedContent struct {
	next  DocumentSource
	cache *lru.ARCCache
}

func NewCachedContent(next DocumentSource, size int) (*CachedContent, error) {
	c, err := lru.NewARC(size)
	if err != nil {
		return nil, fmt.Errorf("lru new instance of lru arc cache: %w", err)
	}
	return &CachedContent{next: next, cache: c}, nil
}

func (c *CachedContent) FetchDocument(ctx context.Context, id string) (*domain.Document, error) {
	if v, ok := c.cache.Get(id); ok {
		return v.(*domain.Document), nil
	}
	d, err := c.next.FetchDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	c.cache.Add(id, d)
	return d, nil
}

// Invalidate drops id from the cache.
func (c *CachedContent) Invalidate(id string) {
	c.cache.Remove(id)
}

func (c *CachedContent) Len() int {
	return c.cache.Len()
}

// ContentChain asks each source in order and returns the first document
// found. Any error other than not-found stops the search.
type ContentChain []DocumentSource

func (c ContentChain) FetchDocument(ctx context.Context, id string) (*domain.Document, error) {
	for _, src := range c {
		d, err := src.FetchDocument(ctx, id)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		return d, err
	}
	return nil, domain.ErrNotFound
}
