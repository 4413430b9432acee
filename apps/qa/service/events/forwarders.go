// Package events bridges in-process review events onto the outbound review
// events queue so downstream services (notifications, billing, the render
// pipeline itself) can react to decisions.
package events

import (
	"context"

	"github.com/pitabwire/util"

	"github.com/scenicworks/renderqa/internal/events"
)

// QueuePublisher manages queue publishing.
type QueuePublisher interface {
	Publish(ctx context.Context, queueName string, payload any, headers ...map[string]string) error
}

// ReviewEventForwarder republishes one review event type onto the review
// events queue.
type ReviewEventForwarder struct {
	event       events.EventType
	payloadType func() any
	queueName   string
	publisher   QueuePublisher
}

// NewReviewCreatedForwarder forwards review creation events.
func NewReviewCreatedForwarder(queueName string, publisher QueuePublisher) *ReviewEventForwarder {
	return &ReviewEventForwarder{
		event:       events.ReviewCreated,
		payloadType: func() any { return &events.ReviewCreatedPayload{} },
		queueName:   queueName,
		publisher:   publisher,
	}
}

// NewReviewAutoApprovedForwarder forwards automatic approval events.
func NewReviewAutoApprovedForwarder(queueName string, publisher QueuePublisher) *ReviewEventForwarder {
	return &ReviewEventForwarder{
		event:       events.ReviewAutoApproved,
		payloadType: func() any { return &events.ReviewDecisionPayload{} },
		queueName:   queueName,
		publisher:   publisher,
	}
}

// NewReviewApprovedForwarder forwards approval events.
func NewReviewApprovedForwarder(queueName string, publisher QueuePublisher) *ReviewEventForwarder {
	return &ReviewEventForwarder{
		event:       events.ReviewApproved,
		payloadType: func() any { return &events.ReviewDecisionPayload{} },
		queueName:   queueName,
		publisher:   publisher,
	}
}

// NewReviewRejectedForwarder forwards rejection events.
func NewReviewRejectedForwarder(queueName string, publisher QueuePublisher) *ReviewEventForwarder {
	return &ReviewEventForwarder{
		event:       events.ReviewRejected,
		payloadType: func() any { return &events.ReviewDecisionPayload{} },
		queueName:   queueName,
		publisher:   publisher,
	}
}

// Name returns the event name.
func (f *ReviewEventForwarder) Name() string {
	return string(f.event)
}

// PayloadType returns the expected payload type.
func (f *ReviewEventForwarder) PayloadType() any {
	return f.payloadType()
}

// Validate validates the payload.
func (f *ReviewEventForwarder) Validate(ctx context.Context, payload any) error {
	return nil
}

// Execute republishes the event onto the outbound queue.
func (f *ReviewEventForwarder) Execute(ctx context.Context, payload any) error {
	err := f.publisher.Publish(ctx, f.queueName, payload, map[string]string{
		"event_type": string(f.event),
	})
	if err != nil {
		util.Log(ctx).WithError(err).Error("could not forward review event",
			"event_type", string(f.event),
			"queue", f.queueName,
		)
		return err
	}
	return nil
}
