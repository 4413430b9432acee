package hashcorpus

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const corpusKey = "renderqa:hash_corpus"

// RedisCorpus keeps the recent fingerprints in a Redis list, trimmed to the
// configured bound on every insert. Shared across QA service replicas.
type RedisCorpus struct {
	client     *redis.Client
	maxEntries int
}

// NewRedisCorpus creates a Redis-backed corpus.
func NewRedisCorpus(client *redis.Client, maxEntries int) *RedisCorpus {
	return &RedisCorpus{
		client:     client,
		maxEntries: maxEntries,
	}
}

// Add prepends the hash and trims the list to the bound.
func (c *RedisCorpus) Add(ctx context.Context, hash string) error {
	pipe := c.client.TxPipeline()
	pipe.LPush(ctx, corpusKey, hash)
	pipe.LTrim(ctx, corpusKey, 0, int64(c.maxEntries-1))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("add hash to corpus: %w", err)
	}
	return nil
}

// Recent returns up to limit fingerprints, most recent first.
func (c *RedisCorpus) Recent(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 || limit > c.maxEntries {
		limit = c.maxEntries
	}
	hashes, err := c.client.LRange(ctx, corpusKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("read hash corpus: %w", err)
	}
	return hashes, nil
}
