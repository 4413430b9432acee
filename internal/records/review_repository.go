package records

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pitabwire/frame/datastore/pool"
	"gorm.io/gorm"

	"github.com/scenicworks/renderqa/internal/events"
)

// ReviewRepository defines the persistence operations the review queue needs.
type ReviewRepository interface {
	Create(ctx context.Context, review *QualityReview) error
	GetByID(ctx context.Context, id string) (*QualityReview, error)
	ListPending(ctx context.Context, limit int) ([]QualityReview, error)
	// RecordDecision moves a pending review to a terminal status, stamping
	// reviewer, time and notes. It fails with ErrReviewConflict when the
	// review already left the pending state.
	RecordDecision(ctx context.Context, id string, status events.ReviewStatus, reviewerID, notes string, at time.Time) error
	ListSince(ctx context.Context, cutoff time.Time) ([]QualityReview, error)
}

// PGReviewRepository is the PostgreSQL implementation of ReviewRepository.
type PGReviewRepository struct {
	pool pool.Pool
}

// NewReviewRepository creates a new review repository.
func NewReviewRepository(ctx context.Context, pool pool.Pool) ReviewRepository {
	return &PGReviewRepository{pool: pool}
}

func (r *PGReviewRepository) db(ctx context.Context, readOnly bool) *gorm.DB {
	if r.pool == nil {
		return nil
	}
	return r.pool.DB(ctx, readOnly)
}

// Create persists a new quality review.
func (r *PGReviewRepository) Create(ctx context.Context, review *QualityReview) error {
	db := r.db(ctx, false)
	if db == nil {
		return ErrDatabaseUnavailable
	}

	if review.CreatedAt.IsZero() {
		review.CreatedAt = time.Now()
	}
	if err := db.Create(review).Error; err != nil {
		return fmt.Errorf("create quality review: %w", err)
	}
	return nil
}

// GetByID retrieves a review by ID.
func (r *PGReviewRepository) GetByID(ctx context.Context, id string) (*QualityReview, error) {
	db := r.db(ctx, true)
	if db == nil {
		return nil, ErrDatabaseUnavailable
	}

	var review QualityReview
	if err := db.First(&review, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrReviewNotFound, id)
		}
		return nil, fmt.Errorf("get quality review: %w", err)
	}
	return &review, nil
}

// ListPending returns the oldest pending reviews first, so reviewers work the
// queue in arrival order.
func (r *PGReviewRepository) ListPending(ctx context.Context, limit int) ([]QualityReview, error) {
	db := r.db(ctx, true)
	if db == nil {
		return nil, ErrDatabaseUnavailable
	}

	var reviews []QualityReview
	query := db.Where("status = ?", events.ReviewStatusPending).Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&reviews).Error; err != nil {
		return nil, fmt.Errorf("list pending reviews: %w", err)
	}
	return reviews, nil
}

// RecordDecision applies a terminal decision with a status guard so two
// racing decisions cannot both land.
func (r *PGReviewRepository) RecordDecision(
	ctx context.Context,
	id string,
	status events.ReviewStatus,
	reviewerID, notes string,
	at time.Time,
) error {
	db := r.db(ctx, false)
	if db == nil {
		return ErrDatabaseUnavailable
	}

	result := db.Model(&QualityReview{}).
		Where("id = ? AND status = ?", id, events.ReviewStatusPending).
		Updates(map[string]interface{}{
			"status":       status,
			"reviewed_by":  reviewerID,
			"reviewed_at":  &at,
			"review_notes": notes,
		})
	if result.Error != nil {
		return fmt.Errorf("record review decision: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		// Either the review does not exist or it already left pending.
		var count int64
		if err := db.Model(&QualityReview{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return fmt.Errorf("record review decision: %w", err)
		}
		if count == 0 {
			return fmt.Errorf("%w: %s", ErrReviewNotFound, id)
		}
		return fmt.Errorf("%w: %s", ErrReviewConflict, id)
	}
	return nil
}

// ListSince returns all reviews created at or after the cutoff.
func (r *PGReviewRepository) ListSince(ctx context.Context, cutoff time.Time) ([]QualityReview, error) {
	db := r.db(ctx, true)
	if db == nil {
		return nil, ErrDatabaseUnavailable
	}

	var reviews []QualityReview
	if err := db.Where("created_at >= ?", cutoff).Find(&reviews).Error; err != nil {
		return nil, fmt.Errorf("list reviews since %s: %w", cutoff.Format(time.RFC3339), err)
	}
	return reviews, nil
}
