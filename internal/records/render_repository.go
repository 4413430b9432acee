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

// RenderRepository exposes the subset of render-record operations the review
// queue performs: existence checks at ingestion and status propagation on
// approve/reject.
type RenderRepository interface {
	GetByID(ctx context.Context, id string) (*Render, error)
	Exists(ctx context.Context, id string) (bool, error)
	SetQualityStatus(ctx context.Context, id string, status events.QualityStatus) error
	// MarkRejected fails the render and embeds the review notes in the
	// error message so downstream retry logic can act on them.
	MarkRejected(ctx context.Context, id, notes string) error
}

// OutcomeRepository supplies recent render outcomes to the failure monitor.
// Queries are bounded by the pattern windows, never full history.
type OutcomeRepository interface {
	ListSince(ctx context.Context, cutoff time.Time) ([]RenderOutcome, error)
}

// PGRenderRepository is the PostgreSQL implementation of RenderRepository and
// OutcomeRepository over the shared renders table.
type PGRenderRepository struct {
	pool pool.Pool
}

// NewRenderRepository creates a new render repository.
func NewRenderRepository(ctx context.Context, pool pool.Pool) *PGRenderRepository {
	return &PGRenderRepository{pool: pool}
}

func (r *PGRenderRepository) db(ctx context.Context, readOnly bool) *gorm.DB {
	if r.pool == nil {
		return nil
	}
	return r.pool.DB(ctx, readOnly)
}

// GetByID retrieves a render by ID.
func (r *PGRenderRepository) GetByID(ctx context.Context, id string) (*Render, error) {
	db := r.db(ctx, true)
	if db == nil {
		return nil, ErrDatabaseUnavailable
	}

	var render Render
	if err := db.First(&render, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrRenderNotFound, id)
		}
		return nil, fmt.Errorf("get render: %w", err)
	}
	return &render, nil
}

// Exists reports whether a render row is present.
func (r *PGRenderRepository) Exists(ctx context.Context, id string) (bool, error) {
	db := r.db(ctx, true)
	if db == nil {
		return false, ErrDatabaseUnavailable
	}

	var count int64
	if err := db.Model(&Render{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, fmt.Errorf("check render exists: %w", err)
	}
	return count > 0, nil
}

// SetQualityStatus updates the render's quality verdict.
func (r *PGRenderRepository) SetQualityStatus(ctx context.Context, id string, status events.QualityStatus) error {
	db := r.db(ctx, false)
	if db == nil {
		return ErrDatabaseUnavailable
	}

	result := db.Model(&Render{}).Where("id = ?", id).Updates(map[string]interface{}{
		"quality_status": status,
		"updated_at":     time.Now(),
	})
	if result.Error != nil {
		return fmt.Errorf("set render quality status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrRenderNotFound, id)
	}
	return nil
}

// MarkRejected fails the render with the rejection notes in its error message.
func (r *PGRenderRepository) MarkRejected(ctx context.Context, id, notes string) error {
	db := r.db(ctx, false)
	if db == nil {
		return ErrDatabaseUnavailable
	}

	result := db.Model(&Render{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":         events.RenderStatusFailed,
		"quality_status": events.QualityStatusRejected,
		"error_message":  fmt.Sprintf("rejected by quality review: %s", notes),
		"updated_at":     time.Now(),
	})
	if result.Error != nil {
		return fmt.Errorf("mark render rejected: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrRenderNotFound, id)
	}
	return nil
}

// ListSince returns outcome projections for renders created at or after the
// cutoff, oldest first.
func (r *PGRenderRepository) ListSince(ctx context.Context, cutoff time.Time) ([]RenderOutcome, error) {
	db := r.db(ctx, true)
	if db == nil {
		return nil, ErrDatabaseUnavailable
	}

	var renders []Render
	if err := db.Where("created_at >= ?", cutoff).Order("created_at ASC").Find(&renders).Error; err != nil {
		return nil, fmt.Errorf("list render outcomes since %s: %w", cutoff.Format(time.RFC3339), err)
	}

	outcomes := make([]RenderOutcome, 0, len(renders))
	for _, render := range renders {
		outcomes = append(outcomes, RenderOutcome{
			ID:           render.ID,
			Status:       render.Status,
			ErrorMessage: render.ErrorMessage,
			Provider:     render.Provider,
			QualityScore: render.QualityScore,
			CreatedAt:    render.CreatedAt,
		})
	}
	return outcomes, nil
}
