package records

import (
	"context"
	"fmt"

	"github.com/pitabwire/frame/datastore/pool"
)

// Migrate creates or updates the QA tables.
func Migrate(ctx context.Context, p pool.Pool) error {
	if p == nil {
		return ErrDatabaseUnavailable
	}
	db := p.DB(ctx, false)
	if db == nil {
		return ErrDatabaseUnavailable
	}

	if err := db.AutoMigrate(&Render{}, &QualityReview{}, &FailureAlert{}); err != nil {
		return fmt.Errorf("migrate qa tables: %w", err)
	}
	return nil
}
