// Package hashcorpus stores the bounded corpus of recent render fingerprints
// that duplicate detection scans. Only the most recent N hashes are kept; a
// duplicate-scan is a Hamming comparison per entry, so the corpus stays cheap
// to walk in full.
package hashcorpus

import (
	"context"
	"errors"
	"fmt"

	"github.com/pitabwire/util"
	"github.com/redis/go-redis/v9"
)

// BackendType represents the type of backend storage.
type BackendType string

// Backend type constants.
const (
	BackendMemory BackendType = "memory"
	BackendRedis  BackendType = "redis"
)

const defaultMaxEntries = 500

// Config contains configuration for the corpus backend.
type Config struct {
	// Backend selects the corpus storage.
	Backend BackendType

	// RedisURL is the Redis connection string, required for BackendRedis.
	RedisURL string

	// MaxEntries bounds the corpus; older fingerprints age out.
	MaxEntries int
}

// Corpus is the bounded store of recent fingerprints. Recent returns hashes
// most recent first; duplicate detection compares in that order and stops at
// the first match.
type Corpus interface {
	Add(ctx context.Context, hash string) error
	Recent(ctx context.Context, limit int) ([]string, error)
}

// Store wraps a Corpus with the resources backing it.
type Store struct {
	Corpus Corpus

	redisClient *redis.Client
}

// Close closes any resources held by the store.
func (s *Store) Close() error {
	if s.redisClient != nil {
		return s.redisClient.Close()
	}
	return nil
}

// New creates a corpus backed by the configured storage.
func New(ctx context.Context, cfg Config) (*Store, error) {
	log := util.Log(ctx)

	maxEntries := cfg.MaxEntries
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}

	store := &Store{}

	switch cfg.Backend {
	case BackendRedis:
		if cfg.RedisURL == "" {
			return nil, errors.New("redis URL required when using redis backend")
		}

		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis URL: %w", err)
		}
		store.redisClient = redis.NewClient(opts)

		if pingErr := store.redisClient.Ping(ctx).Err(); pingErr != nil {
			return nil, fmt.Errorf("redis ping: %w", pingErr)
		}

		store.Corpus = NewRedisCorpus(store.redisClient, maxEntries)
		log.Info("using Redis hash corpus",
			"url", sanitizeRedisURL(cfg.RedisURL),
			"max_entries", maxEntries,
		)
	case BackendMemory, "":
		store.Corpus = NewMemoryCorpus(maxEntries)
		log.Info("using in-memory hash corpus", "max_entries", maxEntries)
	default:
		return nil, fmt.Errorf("unknown hash corpus backend %q", cfg.Backend)
	}

	return store, nil
}

// sanitizeRedisURL removes credentials from a Redis URL for logging.
func sanitizeRedisURL(url string) string {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return "[invalid]"
	}
	return fmt.Sprintf("redis://%s/%d", opts.Addr, opts.DB)
}
