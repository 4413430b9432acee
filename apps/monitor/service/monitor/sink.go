package monitor

import (
	"context"

	"github.com/pitabwire/util"

	"github.com/scenicworks/renderqa/internal/events"
	"github.com/scenicworks/renderqa/internal/records"
)

// AlertSink receives every alert the monitor raises. Implementations must be
// safe for concurrent use.
type AlertSink interface {
	Report(ctx context.Context, alert *records.FailureAlert) error
}

// QueuePublisher manages queue publishing.
type QueuePublisher interface {
	Publish(ctx context.Context, queueName string, payload any, headers ...map[string]string) error
}

// TelemetrySink reports alerts to the logging backend at the level matching
// their severity, tagged for downstream aggregation.
type TelemetrySink struct{}

// NewTelemetrySink creates a telemetry sink.
func NewTelemetrySink() *TelemetrySink {
	return &TelemetrySink{}
}

// Report logs the alert at its mapped telemetry level.
func (s *TelemetrySink) Report(ctx context.Context, alert *records.FailureAlert) error {
	log := util.Log(ctx).With(
		"alert_id", alert.ID,
		"alert_type", alert.Type,
		"severity", string(alert.Severity),
		"telemetry_level", string(alert.Severity.TelemetryLevel()),
		"details", alert.Details,
	)

	switch alert.Severity.TelemetryLevel() {
	case events.TelemetryFatal, events.TelemetryError:
		log.Error(alert.Message)
	case events.TelemetryWarning:
		log.Warn(alert.Message)
	default:
		log.Info(alert.Message)
	}
	return nil
}

// QueueSink publishes alerts onto the outbound alert queue.
type QueueSink struct {
	queueName string
	publisher QueuePublisher
}

// NewQueueSink creates a queue-backed alert sink.
func NewQueueSink(queueName string, publisher QueuePublisher) *QueueSink {
	return &QueueSink{queueName: queueName, publisher: publisher}
}

// Report publishes the alert payload, tagged with type and severity headers.
func (s *QueueSink) Report(ctx context.Context, alert *records.FailureAlert) error {
	alertID, err := events.ParseAlertID(alert.ID)
	if err != nil {
		return err
	}

	return s.publisher.Publish(ctx, s.queueName, &events.AlertRaisedPayload{
		AlertID:   alertID,
		Type:      alert.Type,
		Severity:  alert.Severity,
		Message:   alert.Message,
		Details:   alert.Details,
		CreatedAt: alert.CreatedAt,
	}, map[string]string{
		"alert_type": alert.Type,
		"severity":   string(alert.Severity),
	})
}

// MultiSink fans an alert out to several sinks; a failing sink does not stop
// the others.
type MultiSink []AlertSink

// Report delivers the alert to every sink, returning the first error seen.
func (m MultiSink) Report(ctx context.Context, alert *records.FailureAlert) error {
	var firstErr error
	for _, sink := range m {
		if err := sink.Report(ctx, alert); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
