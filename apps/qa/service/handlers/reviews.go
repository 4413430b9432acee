// Package handlers exposes the review queue over HTTP.
package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/pitabwire/util"

	"github.com/scenicworks/renderqa/apps/qa/service/review"
	"github.com/scenicworks/renderqa/internal/records"
)

const (
	defaultPendingPageSize = 50
	maxPendingPageSize     = 200
)

// ReviewService is the review queue surface the handlers call into.
type ReviewService interface {
	GetPendingReviews(ctx context.Context, limit int) ([]records.QualityReview, error)
	ApproveReview(ctx context.Context, reviewID, reviewerID, notes string) (*records.QualityReview, error)
	RejectReview(ctx context.Context, reviewID, reviewerID, notes string) (*records.QualityReview, error)
	GetReviewStats(ctx context.Context, timeframe review.Timeframe) (*review.Stats, error)
}

// =============================================================================
// Pending Reviews Handler
// =============================================================================

// PendingReviewsHandler lists reviews waiting for a human decision.
type PendingReviewsHandler struct {
	service ReviewService
}

// NewPendingReviewsHandler creates a pending reviews handler.
func NewPendingReviewsHandler(service ReviewService) *PendingReviewsHandler {
	return &PendingReviewsHandler{service: service}
}

// PendingReviewsResponse is the pending reviews listing.
type PendingReviewsResponse struct {
	Reviews []records.QualityReview `json:"reviews"`
	Count   int                     `json:"count"`
}

// ServeHTTP handles GET requests for the pending review queue.
func (h *PendingReviewsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed",
			"Only GET method is allowed", nil)
		return
	}

	limit := defaultPendingPageSize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "invalid_limit",
				"limit must be a positive integer", nil)
			return
		}
		limit = min(parsed, maxPendingPageSize)
	}

	reviews, err := h.service.GetPendingReviews(r.Context(), limit)
	if err != nil {
		writeRepositoryError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, PendingReviewsResponse{
		Reviews: reviews,
		Count:   len(reviews),
	})
}

// =============================================================================
// Review Decision Handler
// =============================================================================

// DecisionRequest is the body of an approve or reject call.
type DecisionRequest struct {
	// ReviewerID identifies who made the decision (required).
	ReviewerID string `json:"reviewer_id"`

	// Notes explain the decision. Required when rejecting.
	Notes string `json:"notes,omitempty"`
}

// DecisionResponse returns the review after the decision was applied.
type DecisionResponse struct {
	Review *records.QualityReview `json:"review"`
}

// ReviewDecisionHandler applies a terminal decision to a pending review.
type ReviewDecisionHandler struct {
	service ReviewService
	approve bool
	maxBody int64
}

// NewApproveReviewHandler creates a handler that approves reviews.
func NewApproveReviewHandler(service ReviewService, maxBody int64) *ReviewDecisionHandler {
	return &ReviewDecisionHandler{service: service, approve: true, maxBody: maxBody}
}

// NewRejectReviewHandler creates a handler that rejects reviews.
func NewRejectReviewHandler(service ReviewService, maxBody int64) *ReviewDecisionHandler {
	return &ReviewDecisionHandler{service: service, approve: false, maxBody: maxBody}
}

// ServeHTTP handles POST requests deciding a review.
func (h *ReviewDecisionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := util.Log(ctx)

	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed",
			"Only POST method is allowed", nil)
		return
	}

	reviewID := r.PathValue("id")
	if reviewID == "" {
		writeError(w, http.StatusBadRequest, "missing_review_id",
			"Review ID is required in the path", nil)
		return
	}

	var request DecisionRequest
	if !decodeBody(w, r, h.maxBody, &request) {
		return
	}

	if request.ReviewerID == "" {
		writeError(w, http.StatusBadRequest, "validation_error",
			"reviewer_id is required", map[string]string{"field": "reviewer_id"})
		return
	}
	if !h.approve && request.Notes == "" {
		writeError(w, http.StatusBadRequest, "validation_error",
			"notes are required when rejecting", map[string]string{"field": "notes"})
		return
	}

	var (
		decided *records.QualityReview
		err     error
	)
	if h.approve {
		decided, err = h.service.ApproveReview(ctx, reviewID, request.ReviewerID, request.Notes)
	} else {
		decided, err = h.service.RejectReview(ctx, reviewID, request.ReviewerID, request.Notes)
	}
	if err != nil {
		log.WithError(err).Warn("review decision failed",
			"review_id", reviewID,
			"reviewer_id", request.ReviewerID,
		)
		writeRepositoryError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, DecisionResponse{Review: decided})
}

// =============================================================================
// Review Stats Handler
// =============================================================================

// ReviewStatsHandler reports aggregate review statistics.
type ReviewStatsHandler struct {
	service ReviewService
}

// NewReviewStatsHandler creates a review statistics handler.
func NewReviewStatsHandler(service ReviewService) *ReviewStatsHandler {
	return &ReviewStatsHandler{service: service}
}

// ServeHTTP handles GET requests for review statistics.
func (h *ReviewStatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed",
			"Only GET method is allowed", nil)
		return
	}

	timeframe := review.Timeframe(r.URL.Query().Get("timeframe"))
	if timeframe == "" {
		timeframe = review.TimeframeDay
	}

	stats, err := h.service.GetReviewStats(r.Context(), timeframe)
	if err != nil {
		switch timeframe {
		case review.TimeframeDay, review.TimeframeWeek, review.TimeframeMonth:
			writeRepositoryError(w, err)
		default:
			writeError(w, http.StatusBadRequest, "invalid_timeframe",
				"timeframe must be one of: day, week, month", nil)
		}
		return
	}

	writeJSON(w, http.StatusOK, stats)
}
