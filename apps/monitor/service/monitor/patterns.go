package monitor

import (
	"fmt"
	"sort"
	"time"

	"github.com/scenicworks/renderqa/internal/events"
	"github.com/scenicworks/renderqa/internal/records"
)

// FailurePattern is one configured condition over a sliding window of render
// outcomes. Patterns are read-only at evaluation time; each evaluates
// independently and can fire its own alert per sweep.
type FailurePattern struct {
	Name     string
	Category events.FailureCategory
	Window   time.Duration
	Severity events.AlertSeverity

	// MinFailures is the minimum failure count in the window; when
	// RatioThreshold is also positive, failures/total must reach it too.
	MinFailures    int
	RatioThreshold float64

	// ScoreFloor switches the pattern to average-score mode: it fires when
	// the mean recorded quality score over at least MinSamples outcomes
	// drops below the floor.
	ScoreFloor float64
	MinSamples int
}

// DefaultPatterns returns the standing pattern set.
func DefaultPatterns() []FailurePattern {
	return []FailurePattern{
		{
			Name:           "high_failure_rate",
			Category:       events.FailureCategoryQuality,
			Window:         10 * time.Minute,
			Severity:       events.SeverityHigh,
			MinFailures:    5,
			RatioThreshold: 0.5,
		},
		{
			Name:        "repeated_timeouts",
			Category:    events.FailureCategoryTimeout,
			Window:      5 * time.Minute,
			Severity:    events.SeverityHigh,
			MinFailures: 3,
		},
		{
			Name:        "api_errors",
			Category:    events.FailureCategoryAPIError,
			Window:      15 * time.Minute,
			Severity:    events.SeverityCritical,
			MinFailures: 10,
		},
		{
			Name:       "quality_degradation",
			Category:   events.FailureCategoryQuality,
			Window:     30 * time.Minute,
			Severity:   events.SeverityMedium,
			ScoreFloor: 0.6,
			MinSamples: 10,
		},
	}
}

// Finding is a pattern condition that held over the window.
type Finding struct {
	Message string
	Details map[string]any
}

// Evaluate checks the pattern against the outcomes of its window.
func (p FailurePattern) Evaluate(outcomes []records.RenderOutcome) (*Finding, bool) {
	if p.ScoreFloor > 0 {
		return p.evaluateAverageScore(outcomes)
	}
	return p.evaluateFailureCount(outcomes)
}

func (p FailurePattern) evaluateAverageScore(outcomes []records.RenderOutcome) (*Finding, bool) {
	var sum float64
	samples := 0
	for _, outcome := range outcomes {
		if outcome.QualityScore == nil {
			continue
		}
		sum += *outcome.QualityScore
		samples++
	}
	if samples < p.MinSamples {
		return nil, false
	}

	avg := sum / float64(samples)
	if avg >= p.ScoreFloor {
		return nil, false
	}

	return &Finding{
		Message: fmt.Sprintf(
			"average quality score %.2f over %d renders in the last %s dropped below %.2f",
			avg, samples, p.Window, p.ScoreFloor,
		),
		Details: map[string]any{
			"average_score": avg,
			"sample_count":  samples,
			"score_floor":   p.ScoreFloor,
			"window":        p.Window.String(),
		},
	}, true
}

func (p FailurePattern) evaluateFailureCount(outcomes []records.RenderOutcome) (*Finding, bool) {
	total := len(outcomes)
	failures := 0
	apiKinds := map[APIErrorKind]int{}
	providers := map[string]bool{}

	for _, outcome := range outcomes {
		if !outcome.Failed() {
			continue
		}
		if ClassifyError(outcome.ErrorMessage) != p.Category {
			continue
		}
		failures++
		if p.Category == events.FailureCategoryAPIError {
			apiKinds[ClassifyAPIError(outcome.ErrorMessage)]++
		}
		if outcome.Provider != "" {
			providers[outcome.Provider] = true
		}
	}

	if failures < p.MinFailures {
		return nil, false
	}

	ratio := 0.0
	if total > 0 {
		ratio = float64(failures) / float64(total)
	}
	if p.RatioThreshold > 0 && ratio < p.RatioThreshold {
		return nil, false
	}

	details := map[string]any{
		"failure_count": failures,
		"total_renders": total,
		"failure_ratio": ratio,
		"window":        p.Window.String(),
	}
	if p.Category == events.FailureCategoryAPIError {
		kinds := map[string]int{}
		for kind, count := range apiKinds {
			kinds[string(kind)] = count
		}
		details["error_kinds"] = kinds
	}
	if len(providers) > 0 {
		names := make([]string, 0, len(providers))
		for name := range providers {
			names = append(names, name)
		}
		sort.Strings(names)
		details["affected_providers"] = names
	}

	return &Finding{
		Message: fmt.Sprintf(
			"%d %s failures out of %d renders in the last %s",
			failures, p.Category, total, p.Window,
		),
		Details: details,
	}, true
}
