// cmd/leafd/app.go
package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/SyedDaiam9101/leaf-classifier/internal/bundle"
	"github.com/SyedDaiam9101/leaf-classifier/internal/cache"
	"github.com/SyedDaiam9101/leaf-classifier/internal/config"
	"github.com/SyedDaiam9101/leaf-classifier/internal/disease"
	"github.com/SyedDaiam9101/leaf-classifier/internal/inference"
	"github.com/SyedDaiam9101/leaf-classifier/internal/pipeline"
)

const pingTimeout = time.Second

// app owns the long-lived classification resources shared by subcommands.
type app struct {
	bundles *bundle.Cache
	store   *cache.Cache
	pipe    *pipeline.Pipeline
	onnx    bool
}

// newApp wires resolver, model cache, optional result cache and pipeline.
// Nothing is loaded from disk yet; call bundles.Warm to preload.
func newApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger, useStore bool) (*app, error) {
	resolver := disease.NewResolver()
	if cfg.DiseaseInfoFile != "" {
		if err := resolver.LoadInfoFile(cfg.DiseaseInfoFile); err != nil {
			return nil, fmt.Errorf("failed to load disease info: %w", err)
		}
		logger.Info().Str("path", cfg.DiseaseInfoFile).Msg("loaded disease descriptions")
	}

	a := &app{}
	var loader bundle.Loader
	if cfg.UseMockInference {
		logger.Warn().Msg("using mock inference, predictions are not meaningful")
		loader = bundle.NewMockLoader()
	} else {
		if err := inference.InitEnvironment(cfg.ONNXRuntimeLib); err != nil {
			return nil, err
		}
		a.onnx = true
		loader = bundle.NewFileLoader(cfg.ModelsDir, logger)
	}
	a.bundles = bundle.NewCache(loader, logger)

	var store pipeline.ResultStore
	if useStore && cfg.Redis != "" {
		logger.Info().Str("addr", cfg.Redis).Msg("connecting to Redis")
		c, err := cache.New(ctx, cfg.Redis)
		if err != nil {
			logger.Warn().Err(err).Msg("continuing without result cache")
		} else {
			a.store = c
			store = c
		}
	}

	a.pipe = pipeline.New(a.bundles, resolver, store, pipeline.Options{
		ParallelMembers: cfg.ParallelMembers,
		ResultTTL:       cfg.ResultTTL,
	}, logger)
	return a, nil
}

// ready reports whether every category bundle is resident and the result
// cache, if any, answers.
func (a *app) ready(ctx context.Context) bool {
	return a.modelsLoaded() && a.storeReachable(ctx)
}

func (a *app) modelsLoaded() bool {
	for _, c := range disease.Categories {
		if !a.bundles.Loaded(c) {
			return false
		}
	}
	return true
}

// storeReachable pings Redis when a result cache is configured.
func (a *app) storeReachable(ctx context.Context) bool {
	if a.store == nil {
		return true
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return a.store.Ping(ctx) == nil
}

// Close releases models, the Redis connection and the ONNX environment.
func (a *app) Close() error {
	var errs []error
	if err := a.bundles.Close(); err != nil {
		errs = append(errs, err)
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.onnx {
		if err := inference.DestroyEnvironment(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
