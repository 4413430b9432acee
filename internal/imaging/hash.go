package imaging

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"math/bits"
	"strconv"
	"strings"
)

// ErrHashLengthMismatch is returned when comparing fingerprints of unequal
// length; such a comparison is meaningless and is never silently coerced.
var ErrHashLengthMismatch = errors.New("perceptual hash length mismatch")

const (
	// hashSampleSize is the side of the downsampled greyscale grid the DCT
	// runs over. 32 keeps enough signal for the 8x8 low-frequency block.
	hashSampleSize = 32

	// hashBlockSize is the side of the low-frequency DCT block retained.
	hashBlockSize = 8

	// HashBitLength is the number of bits in a fingerprint (one per
	// retained coefficient), and HashHexLength its hex-encoded length.
	HashBitLength = hashBlockSize * hashBlockSize
	HashHexLength = HashBitLength / 4

	// DefaultDuplicateThreshold is the similarity at or above which two
	// fingerprints are considered the same scene.
	DefaultDuplicateThreshold = 0.95
)

// GenerateHash computes a perceptual fingerprint for the image: the picture
// is reduced to a small greyscale grid, a discrete cosine transform extracts
// its low-frequency structure, and each coefficient becomes one bit depending
// on whether it lies above the median. Two renders of the same scene that
// differ only by provider non-determinism or lossy re-encoding hash
// near-identically, which a cryptographic digest would not allow.
func GenerateHash(data []byte) (string, error) {
	img, err := Decode(data)
	if err != nil {
		return "", fmt.Errorf("perceptual hash: %w", err)
	}

	grid := greyscaleGrid(img, hashSampleSize)
	coeffs := dctBlock(grid, hashBlockSize)

	// Median of the non-DC coefficients; DC only tracks overall brightness.
	median := medianOf(coeffs[1:])

	var packed [HashBitLength / 8]byte
	for i, c := range coeffs {
		if c > median {
			packed[i/8] |= 1 << uint(7-i%8)
		}
	}

	var sb strings.Builder
	sb.Grow(HashHexLength)
	for _, b := range packed {
		sb.WriteString(fmt.Sprintf("%02x", b))
	}
	return sb.String(), nil
}

// CompareHashes returns the similarity of two fingerprints in [0,1]:
// 1 minus the Hamming distance over the total bit count. The operands must
// have equal length or ErrHashLengthMismatch is returned.
func CompareHashes(a, b string) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrHashLengthMismatch, len(a), len(b))
	}
	if len(a) == 0 {
		return 0, fmt.Errorf("%w: empty operands", ErrHashLengthMismatch)
	}

	distance := 0
	for i := 0; i < len(a); i++ {
		na, err := strconv.ParseUint(string(a[i]), 16, 8)
		if err != nil {
			return 0, fmt.Errorf("invalid hash character %q at %d", a[i], i)
		}
		nb, err := strconv.ParseUint(string(b[i]), 16, 8)
		if err != nil {
			return 0, fmt.Errorf("invalid hash character %q at %d", b[i], i)
		}
		distance += bits.OnesCount8(uint8(na ^ nb))
	}

	totalBits := len(a) * 4
	return 1 - float64(distance)/float64(totalBits), nil
}

// IsDuplicate reports whether two fingerprints meet the similarity threshold.
func IsDuplicate(a, b string, threshold float64) (bool, error) {
	similarity, err := CompareHashes(a, b)
	if err != nil {
		return false, err
	}
	return similarity >= threshold, nil
}

// greyscaleGrid box-samples the image down to a size x size luminance grid.
func greyscaleGrid(img image.Image, size int) []float64 {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	grid := make([]float64, size*size)

	for gy := 0; gy < size; gy++ {
		y0 := bounds.Min.Y + gy*h/size
		y1 := bounds.Min.Y + (gy+1)*h/size
		if y1 <= y0 {
			y1 = y0 + 1
		}
		for gx := 0; gx < size; gx++ {
			x0 := bounds.Min.X + gx*w/size
			x1 := bounds.Min.X + (gx+1)*w/size
			if x1 <= x0 {
				x1 = x0 + 1
			}

			var sum float64
			var count int
			for y := y0; y < y1; y++ {
				for x := x0; x < x1; x++ {
					sum += luminance(img.At(x, y))
					count++
				}
			}
			grid[gy*size+gx] = sum / float64(count)
		}
	}
	return grid
}

// luminance converts a color to its Rec.601 luma in [0,255].
func luminance(c color.Color) float64 {
	r, g, b, _ := c.RGBA()
	return 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(b>>8)
}

// dctBlock computes the top-left block x block coefficients of the 2D DCT-II
// over the grid, row-major. Only the low-frequency corner is needed so the
// full transform is never materialized.
func dctBlock(grid []float64, block int) []float64 {
	n := hashSampleSize
	out := make([]float64, block*block)

	for v := 0; v < block; v++ {
		for u := 0; u < block; u++ {
			var sum float64
			for y := 0; y < n; y++ {
				cy := math.Cos(float64(2*y+1) * float64(v) * math.Pi / float64(2*n))
				for x := 0; x < n; x++ {
					cx := math.Cos(float64(2*x+1) * float64(u) * math.Pi / float64(2*n))
					sum += grid[y*n+x] * cx * cy
				}
			}
			sum *= dctScale(u) * dctScale(v)
			out[v*block+u] = sum
		}
	}
	return out
}

func dctScale(k int) float64 {
	if k == 0 {
		return math.Sqrt(1.0 / float64(hashSampleSize))
	}
	return math.Sqrt(2.0 / float64(hashSampleSize))
}

// medianOf returns the median of the values without mutating the input.
func medianOf(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j] < sorted[j-1]; j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}
