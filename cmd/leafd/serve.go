// cmd/leafd/serve.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/SyedDaiam9101/leaf-classifier/internal/config"
	"github.com/SyedDaiam9101/leaf-classifier/internal/handler"
	"github.com/SyedDaiam9101/leaf-classifier/internal/middleware"
)

// drainDelay gives load balancers time to observe NOT_SERVING before the
// listeners close.
const drainDelay = 5 * time.Second

func newServeCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP prediction API and gRPC health service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
	f := cmd.Flags()
	f.Int("http-port", 0, "HTTP API port (default 8080)")
	f.Int("grpc-port", 0, "gRPC health port, 0 in config disables it (default 50051)")
	f.String("redis", "", "Redis address for the prediction result cache")
	f.Duration("result-ttl", 0, "Lifetime of cached prediction results")
	f.Int64("max-upload-bytes", 0, "Maximum accepted upload size")
	f.Bool("preload", true, "Load all model bundles at startup")
	f.Bool("otel-enabled", false, "Enable OpenTelemetry tracing")
	return cmd
}

func serve(parent context.Context, cfg *config.Config) error {
	logger := newLogger(cfg)
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info().
		Int("http_port", cfg.HTTPPort).
		Int("grpc_port", cfg.GRPCPort).
		Str("models_dir", cfg.ModelsDir).
		Str("redis", cfg.Redis).
		Bool("mock", cfg.UseMockInference).
		Bool("otel", cfg.OTELEnabled).
		Msgf("starting %s", serviceName)

	var tracerShutdown func(context.Context) error
	if cfg.OTELEnabled {
		var err error
		tracerShutdown, err = initTracer(cfg.OTELEndpoint, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to initialize tracer")
		}
	}

	a, err := newApp(ctx, cfg, logger, true)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to release resources")
		}
	}()

	hr := newHealthReporter()
	ready := a.storeReachable
	if cfg.Preload {
		ready = a.ready
		trackModels(a, hr)
		go preload(ctx, a.bundles, logger, preloadBackoff)
	} else {
		hr.set(true)
	}

	h := handler.New(a.pipe, handler.Options{
		MaxUploadBytes: cfg.MaxUploadBytes,
		AllowedOrigins: cfg.CORSOrigins,
		Ready:          ready,
	}, logger)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           h.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info().Str("addr", httpServer.Addr).Msg("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	var grpcServer *grpc.Server
	if cfg.GRPCPort > 0 {
		grpcServer, err = startGRPC(cfg, hr.server, logger, errCh)
		if err != nil {
			return err
		}
	}

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutting down gracefully")
	case err = <-errCh:
		logger.Error().Err(err).Msg("server failed, shutting down")
	}

	hr.Shutdown()
	if ctx.Err() != nil {
		time.Sleep(drainDelay)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}
	if shutdownErr := httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
		logger.Warn().Err(shutdownErr).Msg("HTTP shutdown error")
	}
	if tracerShutdown != nil {
		if shutdownErr := tracerShutdown(shutdownCtx); shutdownErr != nil {
			logger.Warn().Err(shutdownErr).Msg("tracer shutdown error")
		}
	}

	logger.Info().Msg("server shutdown complete")
	return err
}

// startGRPC serves the standard health service with request-id and
// metrics interceptors.
func startGRPC(cfg *config.Config, healthServer *health.Server, logger zerolog.Logger, errCh chan<- error) (*grpc.Server, error) {
	interceptors := []grpc.UnaryServerInterceptor{
		middleware.UnaryRequestIDInterceptor(),
		middleware.UnaryMetricsInterceptor(),
	}
	if cfg.OTELEnabled {
		interceptors = append(interceptors, otelgrpc.UnaryServerInterceptor())
	}

	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(interceptors...))
	healthpb.RegisterHealthServer(srv, healthServer)
	reflection.Register(srv)

	addr := fmt.Sprintf(":%d", cfg.GRPCPort)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	go func() {
		logger.Info().Str("addr", addr).Msg("gRPC health server listening")
		if err := srv.Serve(lis); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()
	return srv, nil
}
