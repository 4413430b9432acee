package review

import (
	"context"
	"fmt"
	"time"

	"github.com/scenicworks/renderqa/internal/events"
)

// Timeframe is the lookback window for review statistics.
type Timeframe string

const (
	TimeframeDay   Timeframe = "day"
	TimeframeWeek  Timeframe = "week"
	TimeframeMonth Timeframe = "month"
)

// Cutoff returns the start of the timeframe relative to now.
func (t Timeframe) Cutoff(now time.Time) (time.Time, error) {
	switch t {
	case TimeframeDay:
		return now.Add(-24 * time.Hour), nil
	case TimeframeWeek:
		return now.Add(-7 * 24 * time.Hour), nil
	case TimeframeMonth:
		return now.Add(-30 * 24 * time.Hour), nil
	default:
		return time.Time{}, fmt.Errorf("unknown timeframe %q", t)
	}
}

// Stats summarizes review activity since the cutoff, for operator dashboards.
type Stats struct {
	Timeframe           Timeframe                   `json:"timeframe"`
	Since               time.Time                   `json:"since"`
	Total               int                         `json:"total"`
	StatusCounts        map[events.ReviewStatus]int `json:"status_counts"`
	AverageQualityScore float64                     `json:"average_quality_score"`
	IssueFrequency      map[string]int              `json:"issue_frequency"`
}

// GetReviewStats aggregates counts per status, the average quality score and
// issue frequencies over the timeframe.
func (q *Queue) GetReviewStats(ctx context.Context, timeframe Timeframe) (*Stats, error) {
	cutoff, err := timeframe.Cutoff(time.Now())
	if err != nil {
		return nil, err
	}

	reviews, err := q.reviews.ListSince(ctx, cutoff)
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		Timeframe:      timeframe,
		Since:          cutoff,
		Total:          len(reviews),
		StatusCounts:   make(map[events.ReviewStatus]int),
		IssueFrequency: make(map[string]int),
	}

	var scoreSum float64
	for i := range reviews {
		r := &reviews[i]
		stats.StatusCounts[r.Status]++
		scoreSum += r.QualityScore
		for _, issue := range r.Issues {
			stats.IssueFrequency[issue]++
		}
	}
	if len(reviews) > 0 {
		stats.AverageQualityScore = scoreSum / float64(len(reviews))
	}

	return stats, nil
}
