// Package queue receives render outputs from the generation pipeline and
// feeds them through quality assessment into the review queue.
package queue

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/pitabwire/util"

	"github.com/scenicworks/renderqa/apps/qa/service/review"
	"github.com/scenicworks/renderqa/internal/assess"
	"github.com/scenicworks/renderqa/internal/events"
	"github.com/scenicworks/renderqa/internal/hashcorpus"
)

// RenderOutputHandler consumes render output messages, scores each image and
// queues a review. A message that fails quality checks still produces a
// review; only malformed messages are rejected back to the queue.
type RenderOutputHandler struct {
	assessor           *assess.Assessor
	corpus             hashcorpus.Corpus
	reviewQueue        *review.Queue
	criteria           review.Criteria
	duplicateThreshold float64
	corpusScanLimit    int
}

// NewRenderOutputHandler creates a render output queue handler.
func NewRenderOutputHandler(
	assessor *assess.Assessor,
	corpus hashcorpus.Corpus,
	reviewQueue *review.Queue,
	criteria review.Criteria,
	duplicateThreshold float64,
	corpusScanLimit int,
) *RenderOutputHandler {
	return &RenderOutputHandler{
		assessor:           assessor,
		corpus:             corpus,
		reviewQueue:        reviewQueue,
		criteria:           criteria,
		duplicateThreshold: duplicateThreshold,
		corpusScanLimit:    corpusScanLimit,
	}
}

// Handle processes an incoming render output message.
// Implements the frame queue handler interface.
func (h *RenderOutputHandler) Handle(ctx context.Context, _ map[string]string, payload []byte) error {
	log := util.Log(ctx)

	var msg events.RenderOutputPayload
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("unmarshal render output: %w", err)
	}
	if msg.RenderID.IsZero() {
		return fmt.Errorf("render output missing render_id")
	}

	imageData, err := base64.StdEncoding.DecodeString(msg.ImageData)
	if err != nil {
		return fmt.Errorf("decode image data for render %s: %w", msg.RenderID, err)
	}

	result := h.assessor.CheckQuality(ctx, imageData)

	// Duplicate detection is advisory. A corpus failure degrades the review
	// rather than bouncing the message back to the queue.
	hash := result.Hash()
	if hash != "" {
		h.checkDuplicate(ctx, hash, &result)
	}

	reviewRecord, err := h.reviewQueue.AddToReviewQueue(ctx, review.IngestRequest{
		RenderID:          msg.RenderID.String(),
		ProjectID:         msg.ProjectID,
		ImageURL:          msg.ImageURL,
		ThumbnailURL:      msg.ThumbnailURL,
		QualityScore:      result.Score,
		Issues:            result.Issues,
		Metadata:          result.Metadata,
		ForceManualReview: h.criteria.RequiresManualReview(msg.Category),
	})
	if err != nil {
		return fmt.Errorf("queue review for render %s: %w", msg.RenderID, err)
	}

	// The fingerprint enters the corpus only once the review exists, so a
	// redelivered message cannot match its own hash on retry.
	if hash != "" {
		if err = h.corpus.Add(ctx, hash); err != nil {
			log.WithError(err).Warn("could not record fingerprint",
				"render_id", msg.RenderID.String(),
			)
		}
	}

	log.Info("render output assessed",
		"render_id", msg.RenderID.String(),
		"review_id", reviewRecord.ID,
		"status", reviewRecord.Status,
		"score", result.Score,
		"passed", result.Passed,
	)
	return nil
}

func (h *RenderOutputHandler) checkDuplicate(ctx context.Context, hash string, result *assess.Result) {
	log := util.Log(ctx)

	recent, err := h.corpus.Recent(ctx, h.corpusScanLimit)
	if err != nil {
		log.WithError(err).Warn("could not load fingerprint corpus")
		return
	}

	dup, err := assess.CompareAgainstCorpus(hash, recent, h.duplicateThreshold)
	if err != nil {
		log.WithError(err).Warn("fingerprint comparison failed")
		return
	}
	if !dup.IsDuplicate {
		return
	}

	result.AddIssue(fmt.Sprintf("near-duplicate of existing render (similarity %.3f)", dup.Similarity))
	result.Metadata["duplicate_of_hash"] = dup.SimilarTo
	result.Metadata["duplicate_similarity"] = dup.Similarity
}
