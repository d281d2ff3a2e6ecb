// internal/handler/handler.go
package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/SyedDaiam9101/leaf-classifier/internal/disease"
	"github.com/SyedDaiam9101/leaf-classifier/internal/middleware"
	"github.com/SyedDaiam9101/leaf-classifier/internal/pipeline"
)

const (
	// ImageField is the multipart field holding the uploaded leaf image
	ImageField = "luffa_image"
	// CategoryField is the multipart field selecting the model bundle
	CategoryField = "model_type"
	// DefaultCategory is used when CategoryField is absent
	DefaultCategory = "smooth"

	// DefaultMaxUploadBytes bounds the request body when Options leaves it unset
	DefaultMaxUploadBytes int64 = 10 << 20
)

// PredictResponse is the body of a successful prediction.
type PredictResponse struct {
	PredictedDisease string `json:"predicted_disease"`
	DiseaseInfo      string `json:"disease_info"`
	Message          string `json:"message"`
}

// LabelInfo describes one class of a category.
type LabelInfo struct {
	Index int    `json:"index"`
	Label string `json:"label"`
	Info  string `json:"info"`
}

// LabelsResponse lists the classes of a category in meta-classifier order.
type LabelsResponse struct {
	Category disease.Category `json:"category"`
	Labels   []LabelInfo      `json:"labels"`
}

// Options configures the HTTP surface.
type Options struct {
	// MaxUploadBytes caps the multipart request body.
	MaxUploadBytes int64
	// AllowedOrigins for CORS; empty allows any origin.
	AllowedOrigins []string
	// Ready reports readiness for /readyz; nil means always ready.
	Ready func(ctx context.Context) bool
}

// Handler serves the classification HTTP API.
type Handler struct {
	pipe *pipeline.Pipeline
	opts Options
	log  zerolog.Logger
}

// New creates a Handler. A nil pipeline makes prediction endpoints answer
// 503 while health endpoints keep working.
func New(pipe *pipeline.Pipeline, opts Options, logger zerolog.Logger) *Handler {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	return &Handler{pipe: pipe, opts: opts, log: logger}
}

// Routes builds the chi router with all endpoints and middleware.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(h.log))
	r.Use(middleware.HTTPMetrics)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: h.opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Post("/predict", h.Predict)
	r.Get("/labels/{category}", h.Labels)
	r.Get("/healthz", h.Healthz)
	r.Get("/readyz", h.Readyz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	return r
}

// Predict classifies the uploaded image with the selected category bundle.
func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	log := zerolog.Ctx(r.Context())

	if h.pipe == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "classifier not initialized")
		return
	}

	if r.ContentLength > h.opts.MaxUploadBytes {
		writeJSONError(w, http.StatusRequestEntityTooLarge, tooLarge(h.opts.MaxUploadBytes))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(h.opts.MaxUploadBytes); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeJSONError(w, http.StatusRequestEntityTooLarge, tooLarge(h.opts.MaxUploadBytes))
			return
		}
		writeJSONError(w, http.StatusBadRequest, "No image provided")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, _, err := r.FormFile(ImageField)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "No image provided")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("failed to read image: %v", err))
		return
	}

	category := r.FormValue(CategoryField)
	if category == "" {
		category = DefaultCategory
	}

	res, err := h.pipe.ClassifyNamed(r.Context(), category, data)
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			log.Error().Err(err).Str("category", category).Str("kind", pipeline.ErrorKind(err)).Msg("prediction failed")
		} else {
			log.Info().Err(err).Str("category", category).Msg("prediction rejected")
		}
		writeJSONError(w, status, errorMessage(err))
		return
	}

	log.Info().
		Str("category", res.Category.String()).
		Str("label", res.Label).
		Int("class_index", res.ClassIndex).
		Dur("latency", time.Since(start)).
		Msg("prediction")

	writeJSON(w, http.StatusOK, PredictResponse{
		PredictedDisease: res.Label,
		DiseaseInfo:      res.Info,
		Message:          "Predicted Disease: " + res.Label,
	})
}

// Labels lists the classes and descriptions of one category.
func (h *Handler) Labels(w http.ResponseWriter, r *http.Request) {
	if h.pipe == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "classifier not initialized")
		return
	}
	c, err := disease.ParseCategory(chi.URLParam(r, "category"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, errorMessage(err))
		return
	}

	resolver := h.pipe.Resolver()
	labels := disease.Labels(c)
	resp := LabelsResponse{Category: c, Labels: make([]LabelInfo, len(labels))}
	for i, l := range labels {
		resp.Labels[i] = LabelInfo{Index: i, Label: l, Info: resolver.Info(l)}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Healthz reports liveness.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// Readyz reports whether the service can take predictions.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	if h.pipe == nil || (h.opts.Ready != nil && !h.opts.Ready(r.Context())) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("Not Ready"))
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Ready"))
}

func tooLarge(limit int64) string {
	return fmt.Sprintf("image exceeds the %d byte upload limit", limit)
}
