// cmd/leafd/health.go
package main

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/SyedDaiam9101/leaf-classifier/internal/bundle"
	"github.com/SyedDaiam9101/leaf-classifier/internal/disease"
	"github.com/SyedDaiam9101/leaf-classifier/internal/metrics"
)

const (
	preloadBackoff    = time.Second
	maxPreloadBackoff = time.Minute
)

// healthReporter publishes the serving status to the gRPC health service
// and the health gauge. After Shutdown it stays NOT_SERVING.
type healthReporter struct {
	mu       sync.Mutex
	server   *health.Server
	shutdown bool
}

func newHealthReporter() *healthReporter {
	return &healthReporter{server: health.NewServer()}
}

func (h *healthReporter) set(serving bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.shutdown {
		return
	}
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		st = healthpb.HealthCheckResponse_SERVING
		metrics.SetHealthy()
	} else {
		metrics.SetUnhealthy()
	}
	h.server.SetServingStatus(serviceName, st)
	h.server.SetServingStatus("", st)
}

// Shutdown marks every service NOT_SERVING and ignores later updates.
func (h *healthReporter) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.shutdown = true
	h.server.Shutdown()
	metrics.SetUnhealthy()
}

// trackModels reports SERVING once every category bundle is resident,
// whether the preload or a request loaded the last one.
func trackModels(a *app, h *healthReporter) {
	h.set(a.modelsLoaded())
	a.bundles.OnLoad(func(disease.Category) {
		if a.modelsLoaded() {
			h.set(true)
		}
	})
}

// preload warms every bundle, retrying failed categories with exponential
// backoff until they all load or ctx ends.
func preload(ctx context.Context, bundles *bundle.Cache, logger zerolog.Logger, backoff time.Duration) {
	start := time.Now()
	for attempt := 1; ; attempt++ {
		err := bundles.Warm(ctx)
		if err == nil {
			logger.Info().Dur("elapsed", time.Since(start)).Int("attempts", attempt).Msg("model bundles loaded")
			return
		}
		logger.Error().Err(err).Int("attempt", attempt).Dur("retry_in", backoff).Msg("model preload failed")
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxPreloadBackoff)
	}
}
