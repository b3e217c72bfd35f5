package stl

import (
	"fmt"
	"os"

	"github.com/cespare/xxhash/v2"
	"gonum.org/v1/gonum/spatial/r3"
)

type cacheKey struct {
	sum   uint64
	dedup bool
}

// Cache memoizes extracted vertices by payload content, so a mesh used by
// both the start and the end figure is parsed once. It is not safe for
// concurrent use.
type Cache struct {
	entries map[cacheKey][]r3.Vec
	hits    int
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[cacheKey][]r3.Vec)}
}

// Extract behaves like the package-level Extract but reuses earlier results
// for identical bytes. The returned slice is a copy the caller may modify.
func (c *Cache) Extract(data []byte, dedup bool) ([]r3.Vec, error) {
	key := cacheKey{sum: xxhash.Sum64(data), dedup: dedup}
	if verts, ok := c.entries[key]; ok {
		c.hits++
		return clone(verts), nil
	}
	verts, err := Extract(data, dedup)
	if err != nil {
		return nil, err
	}
	c.entries[key] = verts
	return clone(verts), nil
}

// Load reads path and extracts it through the cache.
func (c *Cache) Load(path string, dedup bool) ([]r3.Vec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}
	verts, err := c.Extract(data, dedup)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return verts, nil
}

// Len returns the number of cached payloads.
func (c *Cache) Len() int {
	return len(c.entries)
}

// Hits returns how many lookups were served from the cache.
func (c *Cache) Hits() int {
	return c.hits
}

func clone(vs []r3.Vec) []r3.Vec {
	out := make([]r3.Vec, len(vs))
	copy(out, vs)
	return out
}
