// internal/handler/handler_test.go
package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/SyedDaiam9101/leaf-classifier/internal/bundle"
	"github.com/SyedDaiam9101/leaf-classifier/internal/disease"
	"github.com/SyedDaiam9101/leaf-classifier/internal/pipeline"
)

func jpegBytes(t *testing.T, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 40, 30))
	for y := 0; y < 30; y++ {
		for x := 0; x < 40; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}); err != nil {
		t.Fatalf("Failed to encode JPEG: %v", err)
	}
	return buf.Bytes()
}

// multipartRequest builds a POST /predict request. An empty category omits
// the field; nil image omits the file.
func multipartRequest(t *testing.T, category string, img []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if category != "" {
		if err := mw.WriteField(CategoryField, category); err != nil {
			t.Fatal(err)
		}
	}
	if img != nil {
		fw, err := mw.CreateFormFile(ImageField, "leaf.jpg")
		if err != nil {
			t.Fatal(err)
		}
		fw.Write(img)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/predict", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func newMockHandler(opts Options) *Handler {
	cache := bundle.NewCache(bundle.NewMockLoader(), zerolog.Nop())
	p := pipeline.New(cache, disease.NewResolver(), nil, pipeline.Options{}, zerolog.Nop())
	return New(p, opts, zerolog.Nop())
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode error body: %v", err)
	}
	return resp.Error
}

func TestPredictFreshLeaf(t *testing.T) {
	h := newMockHandler(Options{}).Routes()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, multipartRequest(t, "smooth", jpegBytes(t, color.RGBA{R: 40, G: 170, B: 50, A: 255})))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp PredictResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.PredictedDisease != "Fresh" {
		t.Errorf("Expected Fresh, got %s", resp.PredictedDisease)
	}
	if resp.Message != "Predicted Disease: Fresh" {
		t.Errorf("Unexpected message %q", resp.Message)
	}
	if !strings.Contains(resp.DiseaseInfo, "healthy") {
		t.Errorf("Unexpected info %q", resp.DiseaseInfo)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("Expected X-Request-ID response header")
	}
}

func TestPredictDefaultsToSmooth(t *testing.T) {
	h := newMockHandler(Options{}).Routes()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, multipartRequest(t, "", jpegBytes(t, color.RGBA{R: 200, G: 60, B: 20, A: 255})))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp PredictResponse
	json.NewDecoder(rec.Body).Decode(&resp)

	found := false
	for _, l := range disease.Labels(disease.Smooth) {
		if l == resp.PredictedDisease {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected a Smooth label, got %s", resp.PredictedDisease)
	}
}

func TestPredictInvalidCategory(t *testing.T) {
	h := newMockHandler(Options{}).Routes()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, multipartRequest(t, "Woven", jpegBytes(t, color.White)))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", rec.Code)
	}
	if msg := decodeError(t, rec); msg != "Invalid model type" {
		t.Errorf("Unexpected error %q", msg)
	}
}

func TestPredictMissingImage(t *testing.T) {
	h := newMockHandler(Options{}).Routes()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, multipartRequest(t, "sponge", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", rec.Code)
	}
	if msg := decodeError(t, rec); msg != "No image provided" {
		t.Errorf("Unexpected error %q", msg)
	}
}

func TestPredictUndecodableImage(t *testing.T) {
	h := newMockHandler(Options{}).Routes()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, multipartRequest(t, "sponge", []byte("definitely not an image")))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestPredictTooLarge(t *testing.T) {
	h := newMockHandler(Options{MaxUploadBytes: 1024}).Routes()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, multipartRequest(t, "smooth", bytes.Repeat([]byte{0xff}, 4096)))

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("Expected 413, got %d", rec.Code)
	}
}

func TestPredictLoadFailure(t *testing.T) {
	failing := bundle.LoaderFunc(func(ctx context.Context, c disease.Category) (*bundle.Bundle, error) {
		return nil, &bundle.LoadError{Category: c, Path: "model/smooth/manifest.yaml", Err: errors.New("no such file or directory")}
	})
	p := pipeline.New(bundle.NewCache(failing, zerolog.Nop()), nil, nil, pipeline.Options{}, zerolog.Nop())
	h := New(p, Options{}, zerolog.Nop()).Routes()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, multipartRequest(t, "smooth", jpegBytes(t, color.White)))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("Expected 500, got %d", rec.Code)
	}
	if msg := decodeError(t, rec); !strings.Contains(msg, "model/smooth/manifest.yaml") {
		t.Errorf("Expected error to name the artifact, got %q", msg)
	}
}

func TestPredictWithoutPipeline(t *testing.T) {
	h := New(nil, Options{}, zerolog.Nop()).Routes()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, multipartRequest(t, "smooth", jpegBytes(t, color.White)))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected readyz 503, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("Expected healthz 200, got %d", rec.Code)
	}
}

func TestLabels(t *testing.T) {
	h := newMockHandler(Options{}).Routes()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/labels/Sponge", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var resp LabelsResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Category != disease.Sponge {
		t.Errorf("Expected sponge, got %v", resp.Category)
	}
	if len(resp.Labels) != 6 || resp.Labels[0].Label != "Bacteria Leaf Spot" || resp.Labels[5].Label != "Others" {
		t.Errorf("Unexpected labels %+v", resp.Labels)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/labels/woven", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rec.Code)
	}
}

func TestReadyzFollowsReadyFunc(t *testing.T) {
	ready := false
	h := newMockHandler(Options{Ready: func(context.Context) bool { return ready }}).Routes()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 before ready, got %d", rec.Code)
	}

	ready = true
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200 when ready, got %d", rec.Code)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&disease.InvalidCategoryError{Value: "x"}, http.StatusBadRequest},
		{&disease.FatalMismatchError{Category: disease.Smooth, Index: 9, NumLabels: 6}, http.StatusInternalServerError},
		{&bundle.LoadError{}, http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
