package hashcorpus

import (
	"context"
	"sync"
)

// MemoryCorpus is an in-memory corpus for single-process deployments and
// tests. Entries are held most recent first.
type MemoryCorpus struct {
	mu         sync.RWMutex
	hashes     []string
	maxEntries int
}

// NewMemoryCorpus creates an in-memory corpus bounded to maxEntries.
func NewMemoryCorpus(maxEntries int) *MemoryCorpus {
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}
	return &MemoryCorpus{
		hashes:     make([]string, 0, maxEntries),
		maxEntries: maxEntries,
	}
}

// Add prepends the hash, dropping the oldest entry past the bound.
func (c *MemoryCorpus) Add(_ context.Context, hash string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.hashes = append([]string{hash}, c.hashes...)
	if len(c.hashes) > c.maxEntries {
		c.hashes = c.hashes[:c.maxEntries]
	}
	return nil
}

// Recent returns up to limit fingerprints, most recent first.
func (c *MemoryCorpus) Recent(_ context.Context, limit int) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if limit <= 0 || limit > len(c.hashes) {
		limit = len(c.hashes)
	}
	out := make([]string, limit)
	copy(out, c.hashes[:limit])
	return out, nil
}
