package assess

import (
	"context"
	"fmt"

	"github.com/scenicworks/renderqa/internal/imaging"
)

// DuplicateResult reports whether a candidate image matches a prior
// fingerprint. SimilarTo and Similarity are set only on a match.
type DuplicateResult struct {
	IsDuplicate bool    `json:"is_duplicate"`
	SimilarTo   string  `json:"similar_to,omitempty"`
	Similarity  float64 `json:"similarity,omitempty"`
}

// CheckForDuplicates hashes the candidate image and compares it sequentially
// against the supplied corpus, returning on the first fingerprint at or above
// the threshold. Corpus order is caller-defined; there is no ranking among
// multiple matches.
func (a *Assessor) CheckForDuplicates(
	ctx context.Context,
	data []byte,
	existingHashes []string,
	threshold float64,
) (DuplicateResult, error) {
	hash, err := imaging.GenerateHash(data)
	if err != nil {
		return DuplicateResult{}, fmt.Errorf("hash candidate image: %w", err)
	}
	return CompareAgainstCorpus(hash, existingHashes, threshold)
}

// CompareAgainstCorpus compares an already computed fingerprint against the
// corpus, first match wins.
func CompareAgainstCorpus(hash string, existingHashes []string, threshold float64) (DuplicateResult, error) {
	if threshold <= 0 {
		threshold = imaging.DefaultDuplicateThreshold
	}

	for _, existing := range existingHashes {
		similarity, err := imaging.CompareHashes(hash, existing)
		if err != nil {
			return DuplicateResult{}, fmt.Errorf("compare against corpus: %w", err)
		}
		if similarity >= threshold {
			return DuplicateResult{
				IsDuplicate: true,
				SimilarTo:   existing,
				Similarity:  similarity,
			}, nil
		}
	}
	return DuplicateResult{}, nil
}
