package handlers

import (
	"encoding/base64"
	"errors"
	"net/http"

	"github.com/scenicworks/renderqa/internal/assess"
	"github.com/scenicworks/renderqa/internal/hashcorpus"
	"github.com/scenicworks/renderqa/internal/imaging"
)

// DuplicateCheckHandler compares a candidate image against the recent
// fingerprint corpus without adding it. Clients use this to pre-screen an
// image before committing a render slot.
type DuplicateCheckHandler struct {
	corpus    hashcorpus.Corpus
	threshold float64
	scanLimit int
	maxBody   int64
}

// NewDuplicateCheckHandler creates a duplicate check handler.
func NewDuplicateCheckHandler(
	corpus hashcorpus.Corpus,
	threshold float64,
	scanLimit int,
	maxBody int64,
) *DuplicateCheckHandler {
	return &DuplicateCheckHandler{
		corpus:    corpus,
		threshold: threshold,
		scanLimit: scanLimit,
		maxBody:   maxBody,
	}
}

// DuplicateCheckRequest is the body of a duplicate check call.
type DuplicateCheckRequest struct {
	// ImageData is the candidate image, base64-encoded (required).
	ImageData string `json:"image_data"`
}

// DuplicateCheckResponse reports the comparison outcome.
type DuplicateCheckResponse struct {
	assess.DuplicateResult

	// Hash is the candidate's computed fingerprint.
	Hash string `json:"hash"`
}

// ServeHTTP handles POST requests checking an image for duplicates.
func (h *DuplicateCheckHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed",
			"Only POST method is allowed", nil)
		return
	}

	var request DuplicateCheckRequest
	if !decodeBody(w, r, h.maxBody, &request) {
		return
	}
	if request.ImageData == "" {
		writeError(w, http.StatusBadRequest, "validation_error",
			"image_data is required", map[string]string{"field": "image_data"})
		return
	}

	imageData, err := base64.StdEncoding.DecodeString(request.ImageData)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_image_data",
			"image_data must be valid base64", nil)
		return
	}

	hash, err := imaging.GenerateHash(imageData)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "undecodable_image",
			"Image could not be decoded for fingerprinting", nil)
		return
	}

	recent, err := h.corpus.Recent(ctx, h.scanLimit)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "corpus_unavailable",
			"Fingerprint corpus is temporarily unavailable", nil)
		return
	}

	result, err := assess.CompareAgainstCorpus(hash, recent, h.threshold)
	if err != nil {
		if errors.Is(err, imaging.ErrHashLengthMismatch) {
			writeError(w, http.StatusInternalServerError, "corpus_corrupt",
				"Fingerprint corpus holds an incompatible entry", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error",
			"Comparison could not be completed", nil)
		return
	}

	writeJSON(w, http.StatusOK, DuplicateCheckResponse{
		DuplicateResult: result,
		Hash:            hash,
	})
}
