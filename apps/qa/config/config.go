package config

import (
	"strings"

	"github.com/pitabwire/frame/config"

	"github.com/scenicworks/renderqa/internal/assess"
	"github.com/scenicworks/renderqa/internal/hashcorpus"
)

// QAConfig defines configuration for the render QA service. The service
// assesses render output, routes reviews through the approval workflow and
// serves the reviewer-facing HTTP API.
type QAConfig struct {
	config.ConfigurationDefault

	// ==========================================================================
	// Queue Configuration
	// ==========================================================================

	// Render output queue (incoming from the generation pipeline)
	QueueRenderOutputName string `envDefault:"render.outputs" env:"QUEUE_RENDER_OUTPUT_NAME"`
	QueueRenderOutputURI  string `envDefault:"mem://render.outputs" env:"QUEUE_RENDER_OUTPUT_URI"`

	// Review events queue (outgoing decisions and queue entries)
	QueueReviewEventsName string `envDefault:"render.reviews" env:"QUEUE_REVIEW_EVENTS_NAME"`
	QueueReviewEventsURI  string `envDefault:"mem://render.reviews" env:"QUEUE_REVIEW_EVENTS_URI"`

	// ==========================================================================
	// Review Criteria
	// ==========================================================================

	// AutoApproveThreshold routes scores at or above it straight to approval.
	AutoApproveThreshold float64 `envDefault:"0.85" env:"AUTO_APPROVE_THRESHOLD"`

	// AutoRejectThreshold routes scores at or below it straight to rejection.
	AutoRejectThreshold float64 `envDefault:"0.5" env:"AUTO_REJECT_THRESHOLD"`

	// RequireManualReviewFor lists render categories that always queue for a
	// human, comma separated, regardless of score.
	RequireManualReviewFor string `envDefault:"" env:"REQUIRE_MANUAL_REVIEW_FOR"`

	// ==========================================================================
	// Quality Thresholds
	// ==========================================================================

	// AllowedFormats lists accepted image formats, comma separated.
	AllowedFormats string `envDefault:"jpeg,png,webp" env:"ALLOWED_FORMATS"`

	// MaxFileSizeBytes is the maximum accepted image size.
	MaxFileSizeBytes int64 `envDefault:"10485760" env:"MAX_FILE_SIZE_BYTES"`

	// MinWidth and MinHeight are the minimum accepted dimensions.
	MinWidth  int `envDefault:"512" env:"MIN_WIDTH"`
	MinHeight int `envDefault:"512" env:"MIN_HEIGHT"`

	// MinQualityScore is the score floor for passing pre-screening.
	MinQualityScore float64 `envDefault:"0.7" env:"MIN_QUALITY_SCORE"`

	// ==========================================================================
	// Duplicate Detection
	// ==========================================================================

	// DuplicateThreshold is the fingerprint similarity treated as duplicate.
	DuplicateThreshold float64 `envDefault:"0.95" env:"DUPLICATE_THRESHOLD"`

	// HashCorpusBackend selects the fingerprint corpus storage (memory|redis).
	HashCorpusBackend string `envDefault:"memory" env:"HASH_CORPUS_BACKEND"`

	// HashCorpusRedisURL is the Redis connection string for the corpus.
	HashCorpusRedisURL string `env:"HASH_CORPUS_REDIS_URL"`

	// HashCorpusSize bounds the number of recent fingerprints scanned.
	HashCorpusSize int `envDefault:"500" env:"HASH_CORPUS_SIZE"`

	// ==========================================================================
	// API Rate Limiting
	// ==========================================================================

	// APIRequestsPerMinute is the per-client request budget on the review API.
	APIRequestsPerMinute int `envDefault:"120" env:"API_REQUESTS_PER_MINUTE"`

	// APIBurstSize is the per-client burst allowance.
	APIBurstSize int `envDefault:"20" env:"API_BURST_SIZE"`

	// MaxRequestBodyBytes bounds review API request bodies.
	MaxRequestBodyBytes int64 `envDefault:"65536" env:"MAX_REQUEST_BODY_BYTES"`
}

// QualityThresholds returns the assessor thresholds from configuration.
func (c *QAConfig) QualityThresholds() assess.Thresholds {
	return assess.Thresholds{
		AllowedFormats:  splitCSV(c.AllowedFormats),
		MaxFileSize:     c.MaxFileSizeBytes,
		MinWidth:        c.MinWidth,
		MinHeight:       c.MinHeight,
		MinQualityScore: c.MinQualityScore,
	}
}

// ManualReviewCategories returns the category tags forcing manual review.
func (c *QAConfig) ManualReviewCategories() []string {
	return splitCSV(c.RequireManualReviewFor)
}

// CorpusConfig returns the hash corpus configuration.
func (c *QAConfig) CorpusConfig() hashcorpus.Config {
	return hashcorpus.Config{
		Backend:    hashcorpus.BackendType(c.HashCorpusBackend),
		RedisURL:   c.HashCorpusRedisURL,
		MaxEntries: c.HashCorpusSize,
	}
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
