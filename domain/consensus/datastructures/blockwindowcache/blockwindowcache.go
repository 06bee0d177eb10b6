// Package blockwindowcache implements the two LRU caches that back
// difficulty and past-median-time window lookups, both keyed by hash.
// Backed by hashicorp/golang-lru/v2 (grounded on the pack's erigon
// require block), scaled by config.RAMScale.
package blockwindowcache

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/kasparite/node/domain/consensus/model/externalapi"
)

// Window is an ordered slice of ancestor hashes, from nearest to farthest,
// used by both the difficulty and past-median-time managers.
type Window []*externalapi.DomainHash

// Cache is an LRU cache of precomputed windows, keyed by the hash whose
// window it is.
type Cache struct {
	lru *lru.Cache[externalapi.DomainHash, Window]
}

// New constructs a Cache sized for size entries (after RAMScale has
// already been applied by the caller).
func New(size int) *Cache {
	if size < 1 {
		size = 1
	}
	c, _ := lru.New[externalapi.DomainHash, Window](size)
	return &Cache{lru: c}
}

// Get returns the cached window for hash, if present.
func (c *Cache) Get(hash *externalapi.DomainHash) (Window, bool) {
	return c.lru.Get(*hash)
}

// Add inserts or refreshes the cached window for hash.
func (c *Cache) Add(hash *externalapi.DomainHash, window Window) {
	c.lru.Add(*hash, window)
}
