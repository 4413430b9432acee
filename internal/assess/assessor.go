// Package assess scores render output images. The pipeline always prefers a
// degraded-but-present result over a hard failure: anything derived from the
// image itself becomes an issue string and a score penalty, never an error,
// so reviewers see a flawed image with visible issues rather than nothing.
package assess

import (
	"context"
	"fmt"
	"slices"

	"github.com/pitabwire/util"

	"github.com/scenicworks/renderqa/internal/imaging"
)

// Score penalties per validation failure.
const (
	penaltyBadFormat     = 0.3
	penaltyOversized     = 0.2
	penaltyLowResolution = 0.3
	penaltyLowStatScore  = 0.2
	penaltyUndecodable   = 0.5

	statPenaltyVeryLowContrast = 0.3
	statPenaltyLowContrast     = 0.1
	statPenaltyHighNoise       = 0.2
	statPenaltyLowEntropy      = 0.2

	contrastRangeVeryLow = 50.0
	contrastRangeLow     = 100.0
	noiseStdDevLimit     = 80.0
	entropyFloor         = 0.5
)

// Thresholds configures the validation limits.
type Thresholds struct {
	// AllowedFormats are the accepted canonical format names.
	AllowedFormats []string

	// MaxFileSize is the maximum accepted byte size.
	MaxFileSize int64

	// MinWidth and MinHeight are the minimum accepted dimensions.
	MinWidth  int
	MinHeight int

	// MinQualityScore is the floor below which a result fails review
	// pre-screening and the statistics sub-score draws a penalty.
	MinQualityScore float64
}

// Result is the outcome of a quality check. Score is clamped to [0,1];
// Metadata carries the measured values, including the perceptual hash when
// one could be computed.
type Result struct {
	Passed   bool           `json:"passed"`
	Score    float64        `json:"score"`
	Issues   []string       `json:"issues"`
	Metadata map[string]any `json:"metadata"`
}

// AddIssue records an issue found after assessment and withdraws the pass
// verdict so Passed never contradicts a non-empty issue list.
func (r *Result) AddIssue(issue string) {
	r.Issues = append(r.Issues, issue)
	r.Passed = false
}

// Hash returns the perceptual hash attached to the result, if any.
func (r Result) Hash() string {
	if h, ok := r.Metadata["perceptual_hash"].(string); ok {
		return h
	}
	return ""
}

// Assessor validates render images and computes composite quality scores.
type Assessor struct {
	thresholds Thresholds
}

// New creates an assessor with the given thresholds.
func New(thresholds Thresholds) *Assessor {
	return &Assessor{thresholds: thresholds}
}

// CheckQuality validates the image and computes its composite score.
// Structural checks (format, size, resolution) and statistical heuristics
// each contribute issues and penalties; corrupt input draws a flat penalty
// instead of aborting the check.
func (a *Assessor) CheckQuality(ctx context.Context, data []byte) Result {
	log := util.Log(ctx)

	score := 1.0
	issues := []string{}
	metadata := map[string]any{
		"file_size": len(data),
	}

	// Format is detected from leading bytes, never the declared extension.
	format := imaging.DetectFormat(data)
	metadata["format"] = format
	if format == "" || !slices.Contains(a.thresholds.AllowedFormats, format) {
		issues = append(issues, fmt.Sprintf("unsupported format: %q (allowed: %v)", format, a.thresholds.AllowedFormats))
		score -= penaltyBadFormat
	}

	if a.thresholds.MaxFileSize > 0 && int64(len(data)) > a.thresholds.MaxFileSize {
		issues = append(issues, fmt.Sprintf("file size %d exceeds maximum %d", len(data), a.thresholds.MaxFileSize))
		score -= penaltyOversized
	}

	decodable := true
	width, height, err := imaging.Resolution(data)
	if err != nil {
		// Corrupt or undecodable input: flat penalty, keep going.
		decodable = false
		issues = append(issues, "image could not be decoded")
		score -= penaltyUndecodable
		log.WithError(err).Debug("image decode failed during quality check")
	} else {
		metadata["width"] = width
		metadata["height"] = height
		if width < a.thresholds.MinWidth || height < a.thresholds.MinHeight {
			issues = append(issues, fmt.Sprintf("resolution %dx%d below minimum %dx%d",
				width, height, a.thresholds.MinWidth, a.thresholds.MinHeight))
			score -= penaltyLowResolution
		}
	}

	if decodable {
		statScore := a.statisticsScore(data, metadata)
		metadata["stat_score"] = statScore
		if statScore < a.thresholds.MinQualityScore {
			issues = append(issues, fmt.Sprintf("image statistics score %.2f below minimum %.2f",
				statScore, a.thresholds.MinQualityScore))
			score -= penaltyLowStatScore
		}
	}

	// A fingerprint failure is recorded but never blocks the result.
	hash, err := imaging.GenerateHash(data)
	if err != nil {
		issues = append(issues, "perceptual hash could not be computed")
	} else {
		metadata["perceptual_hash"] = hash
	}

	score = clamp01(score)

	return Result{
		Passed:   len(issues) == 0 && score >= a.thresholds.MinQualityScore,
		Score:    score,
		Issues:   issues,
		Metadata: metadata,
	}
}

// statisticsScore computes the [0,1] image-statistics sub-score: channel
// spread as a contrast proxy, channel deviation as a noise proxy, and byte
// entropy as a degenerate-output proxy.
func (a *Assessor) statisticsScore(data []byte, metadata map[string]any) float64 {
	img, err := imaging.Decode(data)
	if err != nil {
		return 0
	}

	score := 1.0
	stats := imaging.ComputeStats(img)

	var maxRange, maxStdDev float64
	for _, ch := range stats.Channels() {
		if ch.Range() > maxRange {
			maxRange = ch.Range()
		}
		if ch.StdDev > maxStdDev {
			maxStdDev = ch.StdDev
		}
	}
	metadata["contrast_range"] = maxRange
	metadata["noise_stddev"] = maxStdDev

	switch {
	case maxRange < contrastRangeVeryLow:
		score -= statPenaltyVeryLowContrast
	case maxRange < contrastRangeLow:
		score -= statPenaltyLowContrast
	}

	if maxStdDev > noiseStdDevLimit {
		score -= statPenaltyHighNoise
	}

	entropy := imaging.Entropy(data)
	metadata["entropy"] = entropy
	if entropy < entropyFloor {
		score -= statPenaltyLowEntropy
	}

	return clamp01(score)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
