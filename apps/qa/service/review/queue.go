// Package review implements the review queue: ingestion with threshold
// routing, the manual approve/reject operations and reviewer statistics.
package review

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/pitabwire/util"

	"github.com/scenicworks/renderqa/internal/events"
	"github.com/scenicworks/renderqa/internal/records"
)

// EventsEmitter emits events.
type EventsEmitter interface {
	Emit(ctx context.Context, eventName string, payload any) error
}

// Criteria are the routing rules applied at ingestion.
type Criteria struct {
	// AutoApproveThreshold: scores at or above go straight to auto_approved.
	AutoApproveThreshold float64

	// AutoRejectThreshold: scores at or below go straight to rejected.
	AutoRejectThreshold float64

	// RequireManualReviewFor lists render categories that always queue for
	// a human, overriding the score rules even at extreme scores.
	RequireManualReviewFor []string
}

// RequiresManualReview reports whether the category forces a human decision.
func (c Criteria) RequiresManualReview(category string) bool {
	return category != "" && slices.Contains(c.RequireManualReviewFor, category)
}

// IngestRequest carries a scored render into the queue.
type IngestRequest struct {
	RenderID          string
	ProjectID         string
	ImageURL          string
	ThumbnailURL      string
	QualityScore      float64
	Issues            []string
	Metadata          map[string]any
	ForceManualReview bool
}

// Queue is the review state machine service. Reviews enter pending or a
// terminal state at ingestion and only leave pending through ApproveReview
// or RejectReview; no transition leaves a terminal state.
type Queue struct {
	criteria  Criteria
	reviews   records.ReviewRepository
	renders   records.RenderRepository
	eventsMan EventsEmitter
}

// NewQueue creates a review queue service.
func NewQueue(
	criteria Criteria,
	reviews records.ReviewRepository,
	renders records.RenderRepository,
	eventsMan EventsEmitter,
) *Queue {
	return &Queue{
		criteria:  criteria,
		reviews:   reviews,
		renders:   renders,
		eventsMan: eventsMan,
	}
}

// AddToReviewQueue decides the initial status from the score and the manual
// override, persists the review and propagates auto decisions to the render.
// Fails with records.ErrRenderNotFound if the referenced render does not
// exist.
func (q *Queue) AddToReviewQueue(ctx context.Context, req IngestRequest) (*records.QualityReview, error) {
	log := util.Log(ctx)

	exists, err := q.renders.Exists(ctx, req.RenderID)
	if err != nil {
		return nil, fmt.Errorf("check render: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", records.ErrRenderNotFound, req.RenderID)
	}

	status := q.decideStatus(req.QualityScore, req.ForceManualReview)

	issues := req.Issues
	if issues == nil {
		issues = []string{}
	}

	review := &records.QualityReview{
		ID:           events.NewReviewID().String(),
		RenderID:     req.RenderID,
		ProjectID:    req.ProjectID,
		ImageURL:     req.ImageURL,
		ThumbnailURL: req.ThumbnailURL,
		QualityScore: req.QualityScore,
		Issues:       issues,
		Status:       status,
		Metadata:     req.Metadata,
		CreatedAt:    time.Now(),
	}

	if err = q.reviews.Create(ctx, review); err != nil {
		return nil, err
	}

	// Auto decisions propagate the quality verdict immediately; a pending
	// review's render stays untouched until a human decides.
	switch status {
	case events.ReviewStatusAutoApproved:
		if err = q.renders.SetQualityStatus(ctx, req.RenderID, events.QualityStatusApproved); err != nil {
			return nil, err
		}
	case events.ReviewStatusRejected:
		if err = q.renders.SetQualityStatus(ctx, req.RenderID, events.QualityStatusRejected); err != nil {
			return nil, err
		}
	}

	log.Info("review queued",
		"review_id", review.ID,
		"render_id", review.RenderID,
		"status", review.Status,
		"quality_score", review.QualityScore,
		"issues", len(review.Issues),
	)

	q.emit(ctx, events.ReviewCreated, &events.ReviewCreatedPayload{
		ReviewID:     mustReviewID(review.ID),
		RenderID:     mustRenderID(review.RenderID),
		ProjectID:    review.ProjectID,
		Status:       review.Status,
		QualityScore: review.QualityScore,
		Issues:       review.Issues,
		CreatedAt:    review.CreatedAt,
	})

	if status == events.ReviewStatusAutoApproved {
		q.emit(ctx, events.ReviewAutoApproved, &events.ReviewDecisionPayload{
			ReviewID:  mustReviewID(review.ID),
			RenderID:  mustRenderID(review.RenderID),
			Status:    review.Status,
			DecidedAt: review.CreatedAt,
		})
	}

	return review, nil
}

func (q *Queue) decideStatus(score float64, forceManualReview bool) events.ReviewStatus {
	if forceManualReview {
		return events.ReviewStatusPending
	}
	switch {
	case score >= q.criteria.AutoApproveThreshold:
		return events.ReviewStatusAutoApproved
	case score <= q.criteria.AutoRejectThreshold:
		return events.ReviewStatusRejected
	default:
		return events.ReviewStatusPending
	}
}

// GetPendingReviews returns the oldest pending reviews first.
func (q *Queue) GetPendingReviews(ctx context.Context, limit int) ([]records.QualityReview, error) {
	return q.reviews.ListPending(ctx, limit)
}

// ApproveReview marks a pending review approved, stamping reviewer, time and
// notes, and propagates the approval to the render's quality status.
func (q *Queue) ApproveReview(ctx context.Context, reviewID, reviewerID, notes string) (*records.QualityReview, error) {
	return q.decide(ctx, reviewID, reviewerID, notes, events.ReviewStatusApproved)
}

// RejectReview marks a pending review rejected and fails the render, with
// the notes embedded in the render's error message so downstream retry logic
// can act on them.
func (q *Queue) RejectReview(ctx context.Context, reviewID, reviewerID, notes string) (*records.QualityReview, error) {
	return q.decide(ctx, reviewID, reviewerID, notes, events.ReviewStatusRejected)
}

func (q *Queue) decide(
	ctx context.Context,
	reviewID, reviewerID, notes string,
	status events.ReviewStatus,
) (*records.QualityReview, error) {
	log := util.Log(ctx)

	review, err := q.reviews.GetByID(ctx, reviewID)
	if err != nil {
		return nil, err
	}

	decidedAt := time.Now()
	if err = q.reviews.RecordDecision(ctx, reviewID, status, reviewerID, notes, decidedAt); err != nil {
		return nil, err
	}

	switch status {
	case events.ReviewStatusApproved:
		err = q.renders.SetQualityStatus(ctx, review.RenderID, events.QualityStatusApproved)
	case events.ReviewStatusRejected:
		err = q.renders.MarkRejected(ctx, review.RenderID, notes)
	}
	if err != nil {
		return nil, err
	}

	review.Status = status
	review.ReviewedBy = reviewerID
	review.ReviewedAt = &decidedAt
	review.ReviewNotes = notes

	log.Info("review decided",
		"review_id", reviewID,
		"render_id", review.RenderID,
		"status", status,
		"reviewer", reviewerID,
	)

	eventType := events.ReviewApproved
	if status == events.ReviewStatusRejected {
		eventType = events.ReviewRejected
	}
	q.emit(ctx, eventType, &events.ReviewDecisionPayload{
		ReviewID:   mustReviewID(review.ID),
		RenderID:   mustRenderID(review.RenderID),
		Status:     status,
		ReviewedBy: reviewerID,
		Notes:      notes,
		DecidedAt:  decidedAt,
	})

	return review, nil
}

// emit publishes best-effort; a stuck event bus must not block decisions.
func (q *Queue) emit(ctx context.Context, eventType events.EventType, payload any) {
	if q.eventsMan == nil {
		return
	}
	if err := q.eventsMan.Emit(ctx, string(eventType), payload); err != nil {
		util.Log(ctx).WithError(err).Warn("failed to emit review event", "event", eventType)
	}
}

func mustRenderID(s string) events.RenderID {
	id, err := events.ParseRenderID(s)
	if err != nil {
		return events.RenderID{}
	}
	return id
}

func mustReviewID(s string) events.ReviewID {
	id, err := events.ParseReviewID(s)
	if err != nil {
		return events.ReviewID{}
	}
	return id
}
