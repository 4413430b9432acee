package handlers_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scenicworks/renderqa/apps/qa/service/handlers"
	"github.com/scenicworks/renderqa/internal/hashcorpus"
	"github.com/scenicworks/renderqa/internal/imaging"
)

func gradientImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8((x * 255) / max(w-1, 1))
			img.SetNRGBA(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func duplicateCheckBody(t *testing.T, imageData []byte) *bytes.Reader {
	t.Helper()
	body, err := json.Marshal(handlers.DuplicateCheckRequest{
		ImageData: base64.StdEncoding.EncodeToString(imageData),
	})
	require.NoError(t, err)
	return bytes.NewReader(body)
}

func newDuplicateCheckHandler(corpus hashcorpus.Corpus) *handlers.DuplicateCheckHandler {
	return handlers.NewDuplicateCheckHandler(corpus, 0.95, 100, testMaxBody)
}

func TestDuplicateCheck_KnownFingerprintMatches(t *testing.T) {
	img := encodePNG(t, gradientImage(64, 64))
	hash, err := imaging.GenerateHash(img)
	require.NoError(t, err)

	corpus := hashcorpus.NewMemoryCorpus(10)
	require.NoError(t, corpus.Add(context.Background(), hash))

	handler := newDuplicateCheckHandler(corpus)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/duplicates/check", duplicateCheckBody(t, img))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp handlers.DuplicateCheckResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.IsDuplicate)
	assert.Equal(t, hash, resp.SimilarTo)
	assert.Equal(t, hash, resp.Hash)
	assert.InDelta(t, 1.0, resp.Similarity, 1e-9)
}

func TestDuplicateCheck_EmptyCorpus(t *testing.T) {
	img := encodePNG(t, gradientImage(64, 64))

	handler := newDuplicateCheckHandler(hashcorpus.NewMemoryCorpus(10))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/duplicates/check", duplicateCheckBody(t, img))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp handlers.DuplicateCheckResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.IsDuplicate)
	assert.Len(t, resp.Hash, imaging.HashHexLength)
}

func TestDuplicateCheck_MissingImageData(t *testing.T) {
	handler := newDuplicateCheckHandler(hashcorpus.NewMemoryCorpus(10))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/duplicates/check",
		bytes.NewReader([]byte(`{}`)))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDuplicateCheck_InvalidBase64(t *testing.T) {
	handler := newDuplicateCheckHandler(hashcorpus.NewMemoryCorpus(10))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/duplicates/check",
		bytes.NewReader([]byte(`{"image_data":"!!! not base64 !!!"}`)))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDuplicateCheck_UndecodableImage(t *testing.T) {
	handler := newDuplicateCheckHandler(hashcorpus.NewMemoryCorpus(10))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/duplicates/check",
		duplicateCheckBody(t, []byte("plain text, not an image")))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestDuplicateCheck_MethodNotAllowed(t *testing.T) {
	handler := newDuplicateCheckHandler(hashcorpus.NewMemoryCorpus(10))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/duplicates/check", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
