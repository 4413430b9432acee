// Package monitor evaluates recent render outcomes against configured
// failure patterns and raises severity-tagged alerts.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pitabwire/util"

	"github.com/scenicworks/renderqa/internal/events"
	"github.com/scenicworks/renderqa/internal/records"
)

const healthWindow = time.Hour

// healthyFailureRatio is the last-hour failure ratio below which the service
// reports healthy, provided no alerts are active.
const healthyFailureRatio = 0.1

// Listener is an in-process alert callback. Listeners run in isolation; a
// panicking listener cannot block persistence or the other listeners.
type Listener func(alert records.FailureAlert)

// Monitor runs the failure pattern sweep and manages the alert lifecycle.
type Monitor struct {
	patterns []FailurePattern
	outcomes records.OutcomeRepository
	alerts   records.AlertRepository
	sink     AlertSink

	mu        sync.RWMutex
	listeners []Listener
}

// New creates a failure monitor over the given pattern set.
func New(
	patterns []FailurePattern,
	outcomes records.OutcomeRepository,
	alerts records.AlertRepository,
	sink AlertSink,
) *Monitor {
	return &Monitor{
		patterns: patterns,
		outcomes: outcomes,
		alerts:   alerts,
		sink:     sink,
	}
}

// AddListener registers an in-process alert callback.
func (m *Monitor) AddListener(listener Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, listener)
}

// CheckForFailurePatterns evaluates every pattern over its own window and
// raises an alert for each condition that holds. There is no suppression: a
// condition that persists across sweeps raises an alert on every sweep.
func (m *Monitor) CheckForFailurePatterns(ctx context.Context) ([]records.FailureAlert, error) {
	log := util.Log(ctx)
	now := time.Now()

	var raised []records.FailureAlert
	var errs []error

	for _, pattern := range m.patterns {
		outcomes, err := m.outcomes.ListSince(ctx, now.Add(-pattern.Window))
		if err != nil {
			errs = append(errs, fmt.Errorf("pattern %s: %w", pattern.Name, err))
			continue
		}

		finding, firing := pattern.Evaluate(outcomes)
		if !firing {
			continue
		}

		alert := records.FailureAlert{
			ID:        events.NewAlertID().String(),
			Type:      pattern.Name,
			Severity:  pattern.Severity,
			Message:   finding.Message,
			Details:   finding.Details,
			CreatedAt: now,
		}

		if err = m.alerts.Create(ctx, &alert); err != nil {
			errs = append(errs, fmt.Errorf("persist alert %s: %w", pattern.Name, err))
			continue
		}

		if m.sink != nil {
			if err = m.sink.Report(ctx, &alert); err != nil {
				log.WithError(err).Warn("could not forward alert",
					"alert_id", alert.ID,
					"alert_type", alert.Type,
				)
			}
		}

		m.notifyListeners(ctx, alert)
		raised = append(raised, alert)

		log.Warn("failure pattern fired",
			"alert_id", alert.ID,
			"pattern", pattern.Name,
			"severity", string(pattern.Severity),
		)
	}

	return raised, errors.Join(errs...)
}

func (m *Monitor) notifyListeners(ctx context.Context, alert records.FailureAlert) {
	m.mu.RLock()
	listeners := make([]Listener, len(m.listeners))
	copy(listeners, m.listeners)
	m.mu.RUnlock()

	for _, listener := range listeners {
		func() {
			defer func() {
				if r := recover(); r != nil {
					util.Log(ctx).Error("alert listener panicked",
						"alert_id", alert.ID,
						"panic", fmt.Sprint(r),
					)
				}
			}()
			listener(alert)
		}()
	}
}

// AcknowledgeAlert stamps the acknowledging user and time on an alert.
func (m *Monitor) AcknowledgeAlert(ctx context.Context, alertID, userID string) error {
	if err := m.alerts.Acknowledge(ctx, alertID, userID, time.Now()); err != nil {
		return err
	}

	util.Log(ctx).Info("alert acknowledged",
		"alert_id", alertID,
		"acknowledged_by", userID,
	)
	return nil
}

// GetActiveAlerts returns unacknowledged alerts, newest first.
func (m *Monitor) GetActiveAlerts(ctx context.Context) ([]records.FailureAlert, error) {
	return m.alerts.ListActive(ctx)
}

// GetAlertHistory returns all alerts of the trailing period, acknowledged or
// not.
func (m *Monitor) GetAlertHistory(ctx context.Context, days int) ([]records.FailureAlert, error) {
	if days <= 0 {
		days = 1
	}
	cutoff := time.Now().Add(-time.Duration(days) * 24 * time.Hour)
	return m.alerts.ListSince(ctx, cutoff)
}

// HealthStatus is the monitor's view of pipeline health.
type HealthStatus struct {
	Healthy      bool      `json:"healthy"`
	FailureRatio float64   `json:"failure_ratio"`
	ActiveAlerts int       `json:"active_alerts"`
	CheckedAt    time.Time `json:"checked_at"`
}

// HealthCheck reports the last-hour failure ratio and the active alert
// count. A failing query yields an explicitly unhealthy signal rather than a
// false healthy.
func (m *Monitor) HealthCheck(ctx context.Context) HealthStatus {
	now := time.Now()
	unhealthy := HealthStatus{
		Healthy:      false,
		FailureRatio: 1,
		ActiveAlerts: -1,
		CheckedAt:    now,
	}

	outcomes, err := m.outcomes.ListSince(ctx, now.Add(-healthWindow))
	if err != nil {
		util.Log(ctx).WithError(err).Error("health check outcome query failed")
		return unhealthy
	}

	ratio := 0.0
	if len(outcomes) > 0 {
		failures := 0
		for _, outcome := range outcomes {
			if outcome.Failed() {
				failures++
			}
		}
		ratio = float64(failures) / float64(len(outcomes))
	}

	active, err := m.alerts.ListActive(ctx)
	if err != nil {
		util.Log(ctx).WithError(err).Error("health check alert query failed")
		return unhealthy
	}

	return HealthStatus{
		Healthy:      ratio < healthyFailureRatio && len(active) == 0,
		FailureRatio: ratio,
		ActiveAlerts: len(active),
		CheckedAt:    now,
	}
}

// Run executes the pattern sweep on the configured interval until the
// context is cancelled.
func (m *Monitor) Run(ctx context.Context, interval time.Duration) {
	log := util.Log(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info("failure monitor sweeping", "interval", interval.String())

	for {
		select {
		case <-ticker.C:
			if _, err := m.CheckForFailurePatterns(ctx); err != nil {
				log.WithError(err).Error("pattern sweep failed")
			}
		case <-ctx.Done():
			log.Info("failure monitor stopping")
			return
		}
	}
}
