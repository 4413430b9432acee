package records

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pitabwire/frame/datastore/pool"
	"gorm.io/gorm"
)

// AlertRepository defines the persistence operations the failure monitor needs.
type AlertRepository interface {
	Create(ctx context.Context, alert *FailureAlert) error
	GetByID(ctx context.Context, id string) (*FailureAlert, error)
	// ListActive returns unacknowledged alerts, newest first.
	ListActive(ctx context.Context) ([]FailureAlert, error)
	ListSince(ctx context.Context, cutoff time.Time) ([]FailureAlert, error)
	Acknowledge(ctx context.Context, id, userID string, at time.Time) error
}

// PGAlertRepository is the PostgreSQL implementation of AlertRepository.
type PGAlertRepository struct {
	pool pool.Pool
}

// NewAlertRepository creates a new alert repository.
func NewAlertRepository(ctx context.Context, pool pool.Pool) AlertRepository {
	return &PGAlertRepository{pool: pool}
}

func (r *PGAlertRepository) db(ctx context.Context, readOnly bool) *gorm.DB {
	if r.pool == nil {
		return nil
	}
	return r.pool.DB(ctx, readOnly)
}

// Create persists a new failure alert.
func (r *PGAlertRepository) Create(ctx context.Context, alert *FailureAlert) error {
	db := r.db(ctx, false)
	if db == nil {
		return ErrDatabaseUnavailable
	}

	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = time.Now()
	}
	if err := db.Create(alert).Error; err != nil {
		return fmt.Errorf("create failure alert: %w", err)
	}
	return nil
}

// GetByID retrieves an alert by ID.
func (r *PGAlertRepository) GetByID(ctx context.Context, id string) (*FailureAlert, error) {
	db := r.db(ctx, true)
	if db == nil {
		return nil, ErrDatabaseUnavailable
	}

	var alert FailureAlert
	if err := db.First(&alert, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrAlertNotFound, id)
		}
		return nil, fmt.Errorf("get failure alert: %w", err)
	}
	return &alert, nil
}

// ListActive returns unacknowledged alerts, newest first.
func (r *PGAlertRepository) ListActive(ctx context.Context) ([]FailureAlert, error) {
	db := r.db(ctx, true)
	if db == nil {
		return nil, ErrDatabaseUnavailable
	}

	var alerts []FailureAlert
	if err := db.Where("acknowledged = ?", false).Order("created_at DESC").Find(&alerts).Error; err != nil {
		return nil, fmt.Errorf("list active alerts: %w", err)
	}
	return alerts, nil
}

// ListSince returns all alerts created at or after the cutoff, acknowledged
// or not, newest first.
func (r *PGAlertRepository) ListSince(ctx context.Context, cutoff time.Time) ([]FailureAlert, error) {
	db := r.db(ctx, true)
	if db == nil {
		return nil, ErrDatabaseUnavailable
	}

	var alerts []FailureAlert
	if err := db.Where("created_at >= ?", cutoff).Order("created_at DESC").Find(&alerts).Error; err != nil {
		return nil, fmt.Errorf("list alerts since %s: %w", cutoff.Format(time.RFC3339), err)
	}
	return alerts, nil
}

// Acknowledge stamps the acknowledger and time on an alert.
func (r *PGAlertRepository) Acknowledge(ctx context.Context, id, userID string, at time.Time) error {
	db := r.db(ctx, false)
	if db == nil {
		return ErrDatabaseUnavailable
	}

	result := db.Model(&FailureAlert{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"acknowledged":    true,
			"acknowledged_by": userID,
			"acknowledged_at": &at,
		})
	if result.Error != nil {
		return fmt.Errorf("acknowledge alert: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrAlertNotFound, id)
	}
	return nil
}
