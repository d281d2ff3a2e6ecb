// internal/pipeline/pipeline.go

// Package pipeline runs one classification request end to end: category
// check, image decode, per-member inference, stacking, meta-classification
// and label resolution.
package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/SyedDaiam9101/leaf-classifier/internal/bundle"
	"github.com/SyedDaiam9101/leaf-classifier/internal/disease"
	"github.com/SyedDaiam9101/leaf-classifier/internal/metrics"
	"github.com/SyedDaiam9101/leaf-classifier/internal/preprocess"
)

const tracerName = "github.com/SyedDaiam9101/leaf-classifier/internal/pipeline"

// Result is the outcome of classifying one image.
type Result struct {
	Category   disease.Category `json:"category"`
	ClassIndex int              `json:"class_index"`
	Label      string           `json:"class_label"`
	Info       string           `json:"info_text"`
}

// BundleSource yields the loaded artifacts for a category. *bundle.Cache
// implements it.
type BundleSource interface {
	Get(ctx context.Context, c disease.Category) (*bundle.Bundle, error)
}

// ResultStore persists results keyed by category and image digest.
// *cache.Cache implements it.
type ResultStore interface {
	ResultKey(category, digest string) string
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
}

// Options configures a Pipeline.
type Options struct {
	// ParallelMembers runs ensemble members concurrently.
	ParallelMembers bool
	// ResultTTL is how long stored results live; zero disables storing.
	ResultTTL time.Duration
}

// Pipeline classifies leaf images. It is safe for concurrent use.
type Pipeline struct {
	bundles  BundleSource
	resolver *disease.Resolver
	store    ResultStore
	opts     Options
	log      zerolog.Logger
	tracer   trace.Tracer
}

// New creates a Pipeline. store may be nil.
func New(bundles BundleSource, resolver *disease.Resolver, store ResultStore, opts Options, logger zerolog.Logger) *Pipeline {
	if resolver == nil {
		resolver = disease.NewResolver()
	}
	return &Pipeline{
		bundles:  bundles,
		resolver: resolver,
		store:    store,
		opts:     opts,
		log:      logger,
		tracer:   otel.Tracer(tracerName),
	}
}

// Resolver returns the label/info resolver used by the pipeline.
func (p *Pipeline) Resolver() *disease.Resolver {
	return p.resolver
}

// ClassifyNamed parses the category selector and classifies image. An
// unknown selector fails before any model is touched.
func (p *Pipeline) ClassifyNamed(ctx context.Context, category string, image []byte) (*Result, error) {
	c, err := disease.ParseCategory(category)
	if err != nil {
		metrics.RecordPredictionError(ErrorKind(err))
		return nil, err
	}
	return p.Classify(ctx, c, image)
}

// Classify runs the full pipeline for one image. Once inference starts it
// runs to completion; ctx is only consulted up front and for I/O.
func (p *Pipeline) Classify(ctx context.Context, c disease.Category, image []byte) (*Result, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.Classify",
		trace.WithAttributes(attribute.String("leaf.category", c.String())))
	defer span.End()

	res, err := p.classify(ctx, c, image)
	if err != nil {
		metrics.RecordPredictionError(ErrorKind(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	metrics.RecordPrediction(c.String(), res.Label)
	span.SetAttributes(
		attribute.Int("leaf.class_index", res.ClassIndex),
		attribute.String("leaf.label", res.Label),
	)
	return res, nil
}

func (p *Pipeline) classify(ctx context.Context, c disease.Category, image []byte) (*Result, error) {
	if !c.Valid() {
		return nil, &disease.InvalidCategoryError{Value: c.String()}
	}

	var key string
	if p.store != nil {
		sum := sha256.Sum256(image)
		key = p.store.ResultKey(c.String(), hex.EncodeToString(sum[:]))
		if res, ok := p.lookup(ctx, key); ok {
			return res, nil
		}
	}

	start := time.Now()
	_, span := p.tracer.Start(ctx, "preprocess.Decode")
	img, format, err := preprocess.Decode(image)
	span.End()
	metrics.RecordStageLatency("decode", time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	start = time.Now()
	bctx, span := p.tracer.Start(ctx, "bundle.Get")
	b, err := p.bundles.Get(bctx, c)
	span.End()
	metrics.RecordStageLatency("bundle", time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start = time.Now()
	_, span = p.tracer.Start(ctx, "preprocess.Run",
		trace.WithAttributes(attribute.Int("leaf.members", len(b.Members))))
	vectors, err := preprocess.Run(img, b.Members, preprocess.Options{Parallel: p.opts.ParallelMembers})
	span.End()
	metrics.RecordStageLatency("ensemble", time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	start = time.Now()
	features, err := preprocess.Stack(vectors, b.Layout)
	metrics.RecordStageLatency("stack", time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	start = time.Now()
	_, span = p.tracer.Start(ctx, "meta.Predict",
		trace.WithAttributes(attribute.Int("leaf.features", len(features))))
	index, err := b.Meta.Predict(features)
	span.End()
	metrics.RecordStageLatency("meta", time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	label, info, err := p.resolver.Resolve(c, index)
	if err != nil {
		p.log.Error().Err(err).Str("category", c.String()).Int("class_index", index).
			Msg("meta-classifier output does not match label set")
		return nil, err
	}

	res := &Result{Category: c, ClassIndex: index, Label: label, Info: info}
	p.log.Debug().
		Str("category", c.String()).
		Str("format", format).
		Int("class_index", index).
		Str("label", label).
		Msg("classified image")

	if p.store != nil && p.opts.ResultTTL > 0 {
		p.save(ctx, key, res)
	}
	return res, nil
}

// lookup returns a stored result. Store failures are logged and treated
// as a miss.
func (p *Pipeline) lookup(ctx context.Context, key string) (*Result, bool) {
	data, ok, err := p.store.Get(ctx, key)
	if err != nil {
		p.log.Warn().Err(err).Str("key", key).Msg("result cache lookup failed")
		return nil, false
	}
	metrics.RecordResultCache(ok)
	if !ok {
		return nil, false
	}
	var res Result
	if err := json.Unmarshal(data, &res); err != nil {
		p.log.Warn().Err(err).Str("key", key).Msg("discarding undecodable cached result")
		return nil, false
	}
	return &res, true
}

func (p *Pipeline) save(ctx context.Context, key string, res *Result) {
	data, err := json.Marshal(res)
	if err != nil {
		p.log.Warn().Err(err).Msg("failed to encode result for cache")
		return
	}
	if err := p.store.Set(ctx, key, data, p.opts.ResultTTL); err != nil {
		p.log.Warn().Err(err).Str("key", key).Msg("failed to store result")
	}
}

// ErrorKind classifies a pipeline error for metrics and responses.
func ErrorKind(err error) string {
	var (
		ice *disease.InvalidCategoryError
		fme *disease.FatalMismatchError
		ide *preprocess.ImageDecodeError
		le  *bundle.LoadError
		me  *preprocess.MemberError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &ice):
		return "invalid_category"
	case errors.As(err, &ide):
		return "decode"
	case errors.As(err, &le):
		return "load"
	case errors.As(err, &fme):
		return "mismatch"
	case errors.As(err, &me):
		return "inference"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "internal"
	}
}
