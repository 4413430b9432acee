package events

import "time"

// RenderOutputPayload is the message the generation pipeline publishes for
// each completed render. ImageData carries the raw image base64-encoded;
// large originals stay on the CDN and only the stored URL travels onward.
type RenderOutputPayload struct {
	RenderID     RenderID  `json:"render_id"`
	ProjectID    string    `json:"project_id"`
	ImageData    string    `json:"image_data"`
	ImageURL     string    `json:"image_url"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty"`
	Category     string    `json:"category,omitempty"`
	Provider     string    `json:"provider,omitempty"`
	CompletedAt  time.Time `json:"completed_at"`
}

// ReviewCreatedPayload announces a review entering the queue.
type ReviewCreatedPayload struct {
	ReviewID     ReviewID     `json:"review_id"`
	RenderID     RenderID     `json:"render_id"`
	ProjectID    string       `json:"project_id"`
	Status       ReviewStatus `json:"status"`
	QualityScore float64      `json:"quality_score"`
	Issues       []string     `json:"issues,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
}

// ReviewDecisionPayload announces a terminal review decision.
type ReviewDecisionPayload struct {
	ReviewID   ReviewID     `json:"review_id"`
	RenderID   RenderID     `json:"render_id"`
	Status     ReviewStatus `json:"status"`
	ReviewedBy string       `json:"reviewed_by,omitempty"`
	Notes      string       `json:"notes,omitempty"`
	DecidedAt  time.Time    `json:"decided_at"`
}

// AlertRaisedPayload announces a failure pattern firing.
type AlertRaisedPayload struct {
	AlertID   AlertID        `json:"alert_id"`
	Type      string         `json:"type"`
	Severity  AlertSeverity  `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// AlertAcknowledgedPayload announces an operator acknowledgement.
type AlertAcknowledgedPayload struct {
	AlertID        AlertID   `json:"alert_id"`
	AcknowledgedBy string    `json:"acknowledged_by"`
	AcknowledgedAt time.Time `json:"acknowledged_at"`
}
