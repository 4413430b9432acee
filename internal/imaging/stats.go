package imaging

import (
	"image"
	"math"
)

// ChannelStats holds per-channel pixel statistics for one color channel.
type ChannelStats struct {
	Min    float64
	Max    float64
	Mean   float64
	StdDev float64
}

// Range is the max-min spread, used as a contrast proxy.
func (c ChannelStats) Range() float64 {
	return c.Max - c.Min
}

// PixelStats holds the statistics of the decoded image used for quality
// heuristics: channel spread for contrast, channel deviation for noise.
type PixelStats struct {
	Red   ChannelStats
	Green ChannelStats
	Blue  ChannelStats
}

// Channels returns the three channel statistics for iteration.
func (p PixelStats) Channels() []ChannelStats {
	return []ChannelStats{p.Red, p.Green, p.Blue}
}

// ComputeStats walks every pixel once and accumulates per-channel min, max,
// mean and standard deviation on 8-bit channel values.
func ComputeStats(img image.Image) PixelStats {
	bounds := img.Bounds()
	total := float64(bounds.Dx() * bounds.Dy())

	type acc struct {
		min, max   float64
		sum, sumSq float64
	}
	accs := [3]acc{}
	for i := range accs {
		accs[i].min = math.MaxFloat64
	}

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			for i, v := range [3]float64{float64(r >> 8), float64(g >> 8), float64(b >> 8)} {
				a := &accs[i]
				if v < a.min {
					a.min = v
				}
				if v > a.max {
					a.max = v
				}
				a.sum += v
				a.sumSq += v * v
			}
		}
	}

	finish := func(a acc) ChannelStats {
		mean := a.sum / total
		variance := a.sumSq/total - mean*mean
		if variance < 0 {
			variance = 0
		}
		return ChannelStats{Min: a.min, Max: a.max, Mean: mean, StdDev: math.Sqrt(variance)}
	}

	return PixelStats{
		Red:   finish(accs[0]),
		Green: finish(accs[1]),
		Blue:  finish(accs[2]),
	}
}

// Entropy computes the Shannon entropy of the byte histogram, normalized to
// [0,1]. Low-entropy files indicate flat or collapsed render output.
func Entropy(data []byte) float64 {
	if len(data) == 0 {
		return 0
	}

	var histogram [256]int
	for _, b := range data {
		histogram[b]++
	}

	total := float64(len(data))
	var entropy float64
	for _, count := range histogram {
		if count == 0 {
			continue
		}
		p := float64(count) / total
		entropy -= p * math.Log2(p)
	}

	// A byte carries at most 8 bits of information.
	return entropy / 8
}
