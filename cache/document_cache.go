// Package cache provides the explicit document metadata cache used on read
// and write paths.
package cache

import (
	"time"

	"github.com/Itish41/DocIntel/models"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// DocumentCache is a get/put/invalidate cache of Document metadata keyed by id.
type DocumentCache interface {
	Get(id string) (*models.Document, bool)
	Put(doc *models.Document)
	Invalidate(id string)
}

// LRUDocumentCache is a size and TTL bounded DocumentCache. It stores copies
// so callers can never mutate a cached entry.
type LRUDocumentCache struct {
	lru *expirable.LRU[string, models.Document]
}

// NewLRUDocumentCache creates a cache holding at most size entries for ttl.
func NewLRUDocumentCache(size int, ttl time.Duration) *LRUDocumentCache {
	return &LRUDocumentCache{lru: expirable.NewLRU[string, models.Document](size, nil, ttl)}
}

func (c *LRUDocumentCache) Get(id string) (*models.Document, bool) {
	doc, ok := c.lru.Get(id)
	if !ok {
		return nil, false
	}
	return &doc, true
}

func (c *LRUDocumentCache) Put(doc *models.Document) {
	if doc == nil || doc.ID == "" {
		return
	}
	c.lru.Add(doc.ID, *doc)
}

func (c *LRUDocumentCache) Invalidate(id string) {
	c.lru.Remove(id)
}

// Len returns the number of live entries.
func (c *LRUDocumentCache) Len() int {
	return c.lru.Len()
}

// Noop never stores anything.
type Noop struct{}

func (Noop) Get(string) (*models.Document, bool) { return nil, false }
func (Noop) Put(*models.Document)                {}
func (Noop) Invalidate(string)                   {}
