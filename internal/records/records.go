// Package records holds the persistent models of the QA subsystem and the
// repository interfaces the services depend on. Reviews and alerts are audit
// records: they are created and amended, never deleted.
package records

import (
	"errors"
	"time"

	"github.com/scenicworks/renderqa/internal/events"
)

// ErrDatabaseUnavailable is returned when the database connection is not available.
var ErrDatabaseUnavailable = errors.New("database connection is not available")

// ErrReviewNotFound is returned for an unknown review ID.
var ErrReviewNotFound = errors.New("quality review not found")

// ErrRenderNotFound is returned for an unknown render ID.
var ErrRenderNotFound = errors.New("render not found")

// ErrAlertNotFound is returned for an unknown alert ID.
var ErrAlertNotFound = errors.New("failure alert not found")

// ErrReviewConflict is returned when a decision races another decision on the
// same review; the review already left the pending state.
var ErrReviewConflict = errors.New("review is no longer pending")

// QualityReview is the audit record of one render passing through the review
// queue. Once the status is terminal the record is immutable except for the
// fields stamped at that transition.
type QualityReview struct {
	ID           string              `json:"id"                      gorm:"primaryKey"`
	RenderID     string              `json:"render_id"               gorm:"index"`
	ProjectID    string              `json:"project_id"              gorm:"index"`
	ImageURL     string              `json:"image_url"`
	ThumbnailURL string              `json:"thumbnail_url,omitempty"`
	QualityScore float64             `json:"quality_score"`
	Issues       []string            `json:"issues"                  gorm:"serializer:json"`
	Status       events.ReviewStatus `json:"status"                  gorm:"index"`
	ReviewedBy   string              `json:"reviewed_by,omitempty"`
	ReviewedAt   *time.Time          `json:"reviewed_at,omitempty"`
	ReviewNotes  string              `json:"review_notes,omitempty"`
	Metadata     map[string]any      `json:"metadata,omitempty"      gorm:"serializer:json"`
	CreatedAt    time.Time           `json:"created_at"`
}

// TableName returns the table name for the QualityReview model.
func (QualityReview) TableName() string {
	return "quality_reviews"
}

// FailureAlert records one firing of a failure pattern. Alerts are only ever
// mutated through acknowledgement.
type FailureAlert struct {
	ID             string               `json:"id"                        gorm:"primaryKey"`
	Type           string               `json:"type"                      gorm:"index"`
	Severity       events.AlertSeverity `json:"severity"`
	Message        string               `json:"message"`
	Details        map[string]any       `json:"details,omitempty"         gorm:"serializer:json"`
	Acknowledged   bool                 `json:"acknowledged"              gorm:"index"`
	AcknowledgedBy string               `json:"acknowledged_by,omitempty"`
	AcknowledgedAt *time.Time           `json:"acknowledged_at,omitempty"`
	CreatedAt      time.Time            `json:"created_at"                gorm:"index"`
}

// TableName returns the table name for the FailureAlert model.
func (FailureAlert) TableName() string {
	return "failure_alerts"
}

// Render is the subset of the render record this subsystem reads and writes.
// The surrounding application owns the full row; review decisions update the
// status fields and failure monitoring reads the outcome columns.
type Render struct {
	ID            string               `json:"id"                       gorm:"primaryKey"`
	ProjectID     string               `json:"project_id"               gorm:"index"`
	Status        events.RenderStatus  `json:"status"                   gorm:"index"`
	QualityStatus events.QualityStatus `json:"quality_status"`
	QualityScore  *float64             `json:"quality_score,omitempty"`
	Provider      string               `json:"provider,omitempty"`
	ErrorMessage  string               `json:"error_message,omitempty"`
	CreatedAt     time.Time            `json:"created_at"               gorm:"index"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

// TableName returns the table name for the Render model.
func (Render) TableName() string {
	return "renders"
}

// RenderOutcome is the projection of a render the failure monitor evaluates.
type RenderOutcome struct {
	ID           string
	Status       events.RenderStatus
	ErrorMessage string
	Provider     string
	QualityScore *float64
	CreatedAt    time.Time
}

// Failed reports whether the outcome counts as a failure.
func (o RenderOutcome) Failed() bool {
	return o.Status == events.RenderStatusFailed
}
