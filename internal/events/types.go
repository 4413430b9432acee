package events

// EventType identifies the type of event.
// Format: {domain}.{aggregate}.{action}[.{qualifier}]
type EventType string

// Event type constants organized by category.
const (
	// === RENDER EVENTS ===

	// RenderOutputReceived carries a completed render's image for assessment.
	RenderOutputReceived EventType = "render.output.received"

	// RenderOutputFailed marks a render that produced no usable output.
	RenderOutputFailed EventType = "render.output.failed"

	// === REVIEW EVENTS ===

	// ReviewCreated marks a quality review entering the queue.
	ReviewCreated EventType = "review.queue.created"

	// ReviewAutoApproved marks a review approved without human input.
	ReviewAutoApproved EventType = "review.decision.auto_approved"

	// ReviewApproved marks a manual approval.
	ReviewApproved EventType = "review.decision.approved"

	// ReviewRejected marks a rejection, manual or automatic.
	ReviewRejected EventType = "review.decision.rejected"

	// === ALERT EVENTS ===

	// AlertRaised marks a failure pattern firing.
	AlertRaised EventType = "alert.pattern.raised"

	// AlertAcknowledged marks an operator acknowledging an alert.
	AlertAcknowledged EventType = "alert.pattern.acknowledged"
)

// ReviewStatus is the state of a quality review.
type ReviewStatus string

const (
	ReviewStatusPending      ReviewStatus = "pending"
	ReviewStatusAutoApproved ReviewStatus = "auto_approved"
	ReviewStatusApproved     ReviewStatus = "approved"
	ReviewStatusRejected     ReviewStatus = "rejected"
)

// IsTerminal returns true once no further transition is permitted.
func (s ReviewStatus) IsTerminal() bool {
	switch s {
	case ReviewStatusAutoApproved, ReviewStatusApproved, ReviewStatusRejected:
		return true
	default:
		return false
	}
}

// RenderStatus is the lifecycle status of a render record.
type RenderStatus string

const (
	RenderStatusPending    RenderStatus = "pending"
	RenderStatusProcessing RenderStatus = "processing"
	RenderStatusCompleted  RenderStatus = "completed"
	RenderStatusFailed     RenderStatus = "failed"
)

// QualityStatus is the quality verdict attached to a render.
type QualityStatus string

const (
	QualityStatusUnreviewed QualityStatus = "unreviewed"
	QualityStatusApproved   QualityStatus = "approved"
	QualityStatusRejected   QualityStatus = "rejected"
)

// AlertSeverity is the ordinal classification of a failure alert.
type AlertSeverity string

const (
	SeverityLow      AlertSeverity = "low"
	SeverityMedium   AlertSeverity = "medium"
	SeverityHigh     AlertSeverity = "high"
	SeverityCritical AlertSeverity = "critical"
)

// TelemetryLevel is the level reported to the external telemetry sink.
type TelemetryLevel string

const (
	TelemetryInfo    TelemetryLevel = "info"
	TelemetryWarning TelemetryLevel = "warning"
	TelemetryError   TelemetryLevel = "error"
	TelemetryFatal   TelemetryLevel = "fatal"
)

// TelemetryLevel maps an alert severity onto the telemetry sink's levels.
func (s AlertSeverity) TelemetryLevel() TelemetryLevel {
	switch s {
	case SeverityCritical:
		return TelemetryFatal
	case SeverityHigh:
		return TelemetryError
	case SeverityMedium:
		return TelemetryWarning
	default:
		return TelemetryInfo
	}
}

// FailureCategory groups render failures for pattern evaluation.
type FailureCategory string

const (
	FailureCategoryQuality  FailureCategory = "quality"
	FailureCategoryTimeout  FailureCategory = "timeout"
	FailureCategoryAPIError FailureCategory = "api_error"
)
