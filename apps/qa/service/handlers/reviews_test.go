package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scenicworks/renderqa/apps/qa/service/handlers"
	"github.com/scenicworks/renderqa/apps/qa/service/review"
	"github.com/scenicworks/renderqa/internal/events"
	"github.com/scenicworks/renderqa/internal/records"
)

const testMaxBody = 64 << 10

// =============================================================================
// Fakes
// =============================================================================

type fakeReviewService struct {
	pending     []records.QualityReview
	pendingErr  error
	decided     *records.QualityReview
	decideErr   error
	stats       *review.Stats
	gotLimit    int
	gotReviewID string
	gotReviewer string
	gotNotes    string
	gotApprove  bool
}

func (f *fakeReviewService) GetPendingReviews(_ context.Context, limit int) ([]records.QualityReview, error) {
	f.gotLimit = limit
	return f.pending, f.pendingErr
}

func (f *fakeReviewService) ApproveReview(
	_ context.Context, reviewID, reviewerID, notes string,
) (*records.QualityReview, error) {
	f.gotReviewID, f.gotReviewer, f.gotNotes, f.gotApprove = reviewID, reviewerID, notes, true
	return f.decided, f.decideErr
}

func (f *fakeReviewService) RejectReview(
	_ context.Context, reviewID, reviewerID, notes string,
) (*records.QualityReview, error) {
	f.gotReviewID, f.gotReviewer, f.gotNotes, f.gotApprove = reviewID, reviewerID, notes, false
	return f.decided, f.decideErr
}

func (f *fakeReviewService) GetReviewStats(
	_ context.Context, timeframe review.Timeframe,
) (*review.Stats, error) {
	if _, err := timeframe.Cutoff(time.Now()); err != nil {
		return nil, err
	}
	return f.stats, nil
}

func decisionBody(t *testing.T, reviewerID, notes string) *bytes.Reader {
	t.Helper()
	body, err := json.Marshal(handlers.DecisionRequest{ReviewerID: reviewerID, Notes: notes})
	require.NoError(t, err)
	return bytes.NewReader(body)
}

// =============================================================================
// Pending Reviews
// =============================================================================

func TestPendingReviews_ReturnsQueue(t *testing.T) {
	service := &fakeReviewService{pending: []records.QualityReview{
		{ID: "rev-1", Status: events.ReviewStatusPending},
		{ID: "rev-2", Status: events.ReviewStatusPending},
	}}
	handler := handlers.NewPendingReviewsHandler(service)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reviews/pending", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 50, service.gotLimit)

	var resp handlers.PendingReviewsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, "rev-1", resp.Reviews[0].ID)
}

func TestPendingReviews_LimitCapped(t *testing.T) {
	service := &fakeReviewService{}
	handler := handlers.NewPendingReviewsHandler(service)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reviews/pending?limit=9999", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 200, service.gotLimit)
}

func TestPendingReviews_InvalidLimit(t *testing.T) {
	handler := handlers.NewPendingReviewsHandler(&fakeReviewService{})

	for _, limit := range []string{"abc", "-1", "0"} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/reviews/pending?limit="+limit, nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code, "limit=%s", limit)
	}
}

func TestPendingReviews_MethodNotAllowed(t *testing.T) {
	handler := handlers.NewPendingReviewsHandler(&fakeReviewService{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reviews/pending", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

// =============================================================================
// Decisions
// =============================================================================

func TestApproveReview_Valid(t *testing.T) {
	service := &fakeReviewService{decided: &records.QualityReview{
		ID:     "rev-1",
		Status: events.ReviewStatusApproved,
	}}
	handler := handlers.NewApproveReviewHandler(service, testMaxBody)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reviews/rev-1/approve",
		decisionBody(t, "reviewer-7", "sharp detail"))
	req.SetPathValue("id", "rev-1")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "rev-1", service.gotReviewID)
	assert.Equal(t, "reviewer-7", service.gotReviewer)
	assert.True(t, service.gotApprove)

	var resp handlers.DecisionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, events.ReviewStatusApproved, resp.Review.Status)
}

func TestApproveReview_MissingReviewer(t *testing.T) {
	handler := handlers.NewApproveReviewHandler(&fakeReviewService{}, testMaxBody)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reviews/rev-1/approve",
		decisionBody(t, "", ""))
	req.SetPathValue("id", "rev-1")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRejectReview_RequiresNotes(t *testing.T) {
	handler := handlers.NewRejectReviewHandler(&fakeReviewService{}, testMaxBody)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reviews/rev-1/reject",
		decisionBody(t, "reviewer-7", ""))
	req.SetPathValue("id", "rev-1")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRejectReview_Valid(t *testing.T) {
	service := &fakeReviewService{decided: &records.QualityReview{
		ID:     "rev-1",
		Status: events.ReviewStatusRejected,
	}}
	handler := handlers.NewRejectReviewHandler(service, testMaxBody)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reviews/rev-1/reject",
		decisionBody(t, "reviewer-7", "washed out sky"))
	req.SetPathValue("id", "rev-1")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.False(t, service.gotApprove)
	assert.Equal(t, "washed out sky", service.gotNotes)
}

func TestDecision_UnknownReview(t *testing.T) {
	service := &fakeReviewService{decideErr: records.ErrReviewNotFound}
	handler := handlers.NewApproveReviewHandler(service, testMaxBody)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reviews/missing/approve",
		decisionBody(t, "reviewer-7", ""))
	req.SetPathValue("id", "missing")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDecision_AlreadyDecidedConflicts(t *testing.T) {
	service := &fakeReviewService{decideErr: fmt.Errorf("decide: %w", records.ErrReviewConflict)}
	handler := handlers.NewRejectReviewHandler(service, testMaxBody)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reviews/rev-1/reject",
		decisionBody(t, "reviewer-7", "too late"))
	req.SetPathValue("id", "rev-1")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestDecision_InvalidJSON(t *testing.T) {
	handler := handlers.NewApproveReviewHandler(&fakeReviewService{}, testMaxBody)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reviews/rev-1/approve",
		bytes.NewReader([]byte("{not json")))
	req.SetPathValue("id", "rev-1")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// =============================================================================
// Stats
// =============================================================================

func TestReviewStats_DefaultTimeframe(t *testing.T) {
	service := &fakeReviewService{stats: &review.Stats{
		Timeframe: review.TimeframeDay,
		Total:     3,
	}}
	handler := handlers.NewReviewStatsHandler(service)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reviews/stats", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp review.Stats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Total)
}

func TestReviewStats_InvalidTimeframe(t *testing.T) {
	handler := handlers.NewReviewStatsHandler(&fakeReviewService{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reviews/stats?timeframe=fortnight", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
