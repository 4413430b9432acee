package review

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scenicworks/renderqa/internal/events"
	"github.com/scenicworks/renderqa/internal/records"
)

// =============================================================================
// Fakes
// =============================================================================

type fakeReviewRepo struct {
	mu      sync.Mutex
	reviews map[string]*records.QualityReview
}

func newFakeReviewRepo() *fakeReviewRepo {
	return &fakeReviewRepo{reviews: make(map[string]*records.QualityReview)}
}

func (f *fakeReviewRepo) Create(_ context.Context, review *records.QualityReview) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored := *review
	f.reviews[review.ID] = &stored
	return nil
}

func (f *fakeReviewRepo) GetByID(_ context.Context, id string) (*records.QualityReview, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	review, ok := f.reviews[id]
	if !ok {
		return nil, records.ErrReviewNotFound
	}
	copied := *review
	return &copied, nil
}

func (f *fakeReviewRepo) ListPending(_ context.Context, limit int) ([]records.QualityReview, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var pending []records.QualityReview
	for _, review := range f.reviews {
		if review.Status == events.ReviewStatusPending {
			pending = append(pending, *review)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].CreatedAt.Before(pending[j].CreatedAt) })
	if limit > 0 && len(pending) > limit {
		pending = pending[:limit]
	}
	return pending, nil
}

func (f *fakeReviewRepo) RecordDecision(
	_ context.Context,
	id string,
	status events.ReviewStatus,
	reviewerID, notes string,
	at time.Time,
) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	review, ok := f.reviews[id]
	if !ok {
		return records.ErrReviewNotFound
	}
	if review.Status != events.ReviewStatusPending {
		return records.ErrReviewConflict
	}
	review.Status = status
	review.ReviewedBy = reviewerID
	review.ReviewedAt = &at
	review.ReviewNotes = notes
	return nil
}

func (f *fakeReviewRepo) ListSince(_ context.Context, cutoff time.Time) ([]records.QualityReview, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []records.QualityReview
	for _, review := range f.reviews {
		if !review.CreatedAt.Before(cutoff) {
			out = append(out, *review)
		}
	}
	return out, nil
}

type fakeRenderRepo struct {
	mu      sync.Mutex
	renders map[string]*records.Render
}

func newFakeRenderRepo(ids ...string) *fakeRenderRepo {
	repo := &fakeRenderRepo{renders: make(map[string]*records.Render)}
	for _, id := range ids {
		repo.renders[id] = &records.Render{
			ID:            id,
			Status:        events.RenderStatusCompleted,
			QualityStatus: events.QualityStatusUnreviewed,
			CreatedAt:     time.Now(),
		}
	}
	return repo
}

func (f *fakeRenderRepo) GetByID(_ context.Context, id string) (*records.Render, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	render, ok := f.renders[id]
	if !ok {
		return nil, records.ErrRenderNotFound
	}
	copied := *render
	return &copied, nil
}

func (f *fakeRenderRepo) Exists(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.renders[id]
	return ok, nil
}

func (f *fakeRenderRepo) SetQualityStatus(_ context.Context, id string, status events.QualityStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	render, ok := f.renders[id]
	if !ok {
		return records.ErrRenderNotFound
	}
	render.QualityStatus = status
	return nil
}

func (f *fakeRenderRepo) MarkRejected(_ context.Context, id, notes string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	render, ok := f.renders[id]
	if !ok {
		return records.ErrRenderNotFound
	}
	render.Status = events.RenderStatusFailed
	render.QualityStatus = events.QualityStatusRejected
	render.ErrorMessage = "rejected by quality review: " + notes
	return nil
}

type capturingEmitter struct {
	mu     sync.Mutex
	events []string
}

func (c *capturingEmitter) Emit(_ context.Context, eventName string, _ any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, eventName)
	return nil
}

// =============================================================================
// Helpers
// =============================================================================

func defaultCriteria() Criteria {
	return Criteria{
		AutoApproveThreshold: 0.85,
		AutoRejectThreshold:  0.5,
	}
}

func newTestQueue(renderIDs ...string) (*Queue, *fakeReviewRepo, *fakeRenderRepo, *capturingEmitter) {
	reviews := newFakeReviewRepo()
	renders := newFakeRenderRepo(renderIDs...)
	emitter := &capturingEmitter{}
	return NewQueue(defaultCriteria(), reviews, renders, emitter), reviews, renders, emitter
}

// =============================================================================
// Ingestion routing
// =============================================================================

func TestAddToReviewQueue_HighScoreAutoApproves(t *testing.T) {
	queue, _, renders, emitter := newTestQueue("render-1")

	review, err := queue.AddToReviewQueue(context.Background(), IngestRequest{
		RenderID:     "render-1",
		QualityScore: 0.9,
	})

	require.NoError(t, err)
	assert.Equal(t, events.ReviewStatusAutoApproved, review.Status)

	render, err := renders.GetByID(context.Background(), "render-1")
	require.NoError(t, err)
	assert.Equal(t, events.QualityStatusApproved, render.QualityStatus)
	assert.Contains(t, emitter.events, string(events.ReviewCreated))
}

func TestAddToReviewQueue_LowScoreRejects(t *testing.T) {
	queue, _, renders, _ := newTestQueue("render-1")

	review, err := queue.AddToReviewQueue(context.Background(), IngestRequest{
		RenderID:     "render-1",
		QualityScore: 0.4,
	})

	require.NoError(t, err)
	assert.Equal(t, events.ReviewStatusRejected, review.Status)

	render, err := renders.GetByID(context.Background(), "render-1")
	require.NoError(t, err)
	assert.Equal(t, events.QualityStatusRejected, render.QualityStatus)
}

func TestAddToReviewQueue_MiddleScoreQueuesPending(t *testing.T) {
	queue, _, renders, _ := newTestQueue("render-1")

	review, err := queue.AddToReviewQueue(context.Background(), IngestRequest{
		RenderID:     "render-1",
		QualityScore: 0.7,
	})

	require.NoError(t, err)
	assert.Equal(t, events.ReviewStatusPending, review.Status)

	// The render is untouched until a human decides.
	render, err := renders.GetByID(context.Background(), "render-1")
	require.NoError(t, err)
	assert.Equal(t, events.QualityStatusUnreviewed, render.QualityStatus)
}

func TestAddToReviewQueue_ThresholdBoundariesAreInclusive(t *testing.T) {
	queue, _, _, _ := newTestQueue("render-1", "render-2")

	atApprove, err := queue.AddToReviewQueue(context.Background(), IngestRequest{
		RenderID:     "render-1",
		QualityScore: 0.85,
	})
	require.NoError(t, err)
	assert.Equal(t, events.ReviewStatusAutoApproved, atApprove.Status)

	atReject, err := queue.AddToReviewQueue(context.Background(), IngestRequest{
		RenderID:     "render-2",
		QualityScore: 0.5,
	})
	require.NoError(t, err)
	assert.Equal(t, events.ReviewStatusRejected, atReject.Status)
}

func TestAddToReviewQueue_ManualOverrideBeatsExtremeScore(t *testing.T) {
	queue, _, _, _ := newTestQueue("render-1")

	review, err := queue.AddToReviewQueue(context.Background(), IngestRequest{
		RenderID:          "render-1",
		QualityScore:      0.99,
		ForceManualReview: true,
	})

	require.NoError(t, err)
	assert.Equal(t, events.ReviewStatusPending, review.Status)
}

func TestAddToReviewQueue_UnknownRender(t *testing.T) {
	queue, _, _, _ := newTestQueue()

	_, err := queue.AddToReviewQueue(context.Background(), IngestRequest{
		RenderID:     "missing",
		QualityScore: 0.9,
	})

	assert.ErrorIs(t, err, records.ErrRenderNotFound)
}

func TestCriteria_RequiresManualReview(t *testing.T) {
	criteria := Criteria{RequireManualReviewFor: []string{"hero_banner", "print"}}

	assert.True(t, criteria.RequiresManualReview("hero_banner"))
	assert.False(t, criteria.RequiresManualReview("thumbnail"))
	assert.False(t, criteria.RequiresManualReview(""))
}

// =============================================================================
// Manual decisions
// =============================================================================

func TestApproveReview_PendingReview(t *testing.T) {
	queue, _, renders, emitter := newTestQueue("render-1")

	review, err := queue.AddToReviewQueue(context.Background(), IngestRequest{
		RenderID:     "render-1",
		QualityScore: 0.7,
	})
	require.NoError(t, err)

	approved, err := queue.ApproveReview(context.Background(), review.ID, "reviewer-7", "looks good")

	require.NoError(t, err)
	assert.Equal(t, events.ReviewStatusApproved, approved.Status)
	assert.Equal(t, "reviewer-7", approved.ReviewedBy)
	require.NotNil(t, approved.ReviewedAt)
	assert.Equal(t, "looks good", approved.ReviewNotes)

	render, err := renders.GetByID(context.Background(), "render-1")
	require.NoError(t, err)
	assert.Equal(t, events.QualityStatusApproved, render.QualityStatus)
	assert.Contains(t, emitter.events, string(events.ReviewApproved))
}

func TestRejectReview_FailsRenderWithNotes(t *testing.T) {
	queue, _, renders, emitter := newTestQueue("render-1")

	review, err := queue.AddToReviewQueue(context.Background(), IngestRequest{
		RenderID:     "render-1",
		QualityScore: 0.7,
	})
	require.NoError(t, err)

	rejected, err := queue.RejectReview(context.Background(), review.ID, "reviewer-7", "horizon is warped")

	require.NoError(t, err)
	assert.Equal(t, events.ReviewStatusRejected, rejected.Status)

	render, err := renders.GetByID(context.Background(), "render-1")
	require.NoError(t, err)
	assert.Equal(t, events.RenderStatusFailed, render.Status)
	assert.Equal(t, events.QualityStatusRejected, render.QualityStatus)
	assert.Contains(t, render.ErrorMessage, "horizon is warped")
	assert.Contains(t, emitter.events, string(events.ReviewRejected))
}

func TestApproveReview_UnknownReview(t *testing.T) {
	queue, _, _, _ := newTestQueue("render-1")

	_, err := queue.ApproveReview(context.Background(), "missing", "reviewer-7", "")

	assert.ErrorIs(t, err, records.ErrReviewNotFound)
}

func TestApproveReview_TerminalReviewConflicts(t *testing.T) {
	queue, _, _, _ := newTestQueue("render-1")

	review, err := queue.AddToReviewQueue(context.Background(), IngestRequest{
		RenderID:     "render-1",
		QualityScore: 0.7,
	})
	require.NoError(t, err)

	_, err = queue.ApproveReview(context.Background(), review.ID, "reviewer-7", "")
	require.NoError(t, err)

	_, err = queue.RejectReview(context.Background(), review.ID, "reviewer-8", "too late")
	assert.ErrorIs(t, err, records.ErrReviewConflict)
}

// =============================================================================
// Pending queue and statistics
// =============================================================================

func TestGetPendingReviews_OldestFirst(t *testing.T) {
	queue, reviews, _, _ := newTestQueue()

	now := time.Now()
	for i, id := range []string{"r-old", "r-mid", "r-new"} {
		require.NoError(t, reviews.Create(context.Background(), &records.QualityReview{
			ID:        id,
			Status:    events.ReviewStatusPending,
			CreatedAt: now.Add(time.Duration(i) * time.Minute),
		}))
	}

	page, err := queue.GetPendingReviews(context.Background(), 2)

	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "r-old", page[0].ID)
	assert.Equal(t, "r-mid", page[1].ID)
}

func TestGetReviewStats_Aggregates(t *testing.T) {
	queue, reviews, _, _ := newTestQueue()

	now := time.Now()
	require.NoError(t, reviews.Create(context.Background(), &records.QualityReview{
		ID:           "r-1",
		Status:       events.ReviewStatusApproved,
		QualityScore: 0.9,
		Issues:       []string{"minor banding"},
		CreatedAt:    now,
	}))
	require.NoError(t, reviews.Create(context.Background(), &records.QualityReview{
		ID:           "r-2",
		Status:       events.ReviewStatusRejected,
		QualityScore: 0.3,
		Issues:       []string{"minor banding", "low contrast"},
		CreatedAt:    now,
	}))

	stats, err := queue.GetReviewStats(context.Background(), TimeframeDay)

	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
	assert.InDelta(t, 0.6, stats.AverageQualityScore, 1e-9)
	assert.Equal(t, 1, stats.StatusCounts[events.ReviewStatusApproved])
	assert.Equal(t, 1, stats.StatusCounts[events.ReviewStatusRejected])
	assert.Equal(t, 2, stats.IssueFrequency["minor banding"])
	assert.Equal(t, 1, stats.IssueFrequency["low contrast"])
}

func TestGetReviewStats_UnknownTimeframe(t *testing.T) {
	queue, _, _, _ := newTestQueue()

	_, err := queue.GetReviewStats(context.Background(), Timeframe("fortnight"))

	assert.Error(t, err)
}

func TestGetReviewStats_ExcludesOlderReviews(t *testing.T) {
	queue, reviews, _, _ := newTestQueue()

	require.NoError(t, reviews.Create(context.Background(), &records.QualityReview{
		ID:           "r-ancient",
		Status:       events.ReviewStatusApproved,
		QualityScore: 1.0,
		CreatedAt:    time.Now().Add(-48 * time.Hour),
	}))
	require.NoError(t, reviews.Create(context.Background(), &records.QualityReview{
		ID:           "r-recent",
		Status:       events.ReviewStatusApproved,
		QualityScore: 0.8,
		CreatedAt:    time.Now(),
	}))

	stats, err := queue.GetReviewStats(context.Background(), TimeframeDay)

	require.NoError(t, err)
	assert.Equal(t, 1, stats.Total)
	assert.InDelta(t, 0.8, stats.AverageQualityScore, 1e-9)
}
