package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lexiqai/media-transcriber/internal/audio"
	"github.com/lexiqai/media-transcriber/internal/capture"
	"github.com/lexiqai/media-transcriber/internal/config"
	"github.com/lexiqai/media-transcriber/internal/media"
	"github.com/lexiqai/media-transcriber/internal/observability"
	"github.com/lexiqai/media-transcriber/internal/probe"
	"github.com/lexiqai/media-transcriber/internal/resilience"
	"github.com/lexiqai/media-transcriber/internal/session"
	"github.com/lexiqai/media-transcriber/internal/stt"
	"github.com/lexiqai/media-transcriber/internal/web"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		// Use fmt for fatal errors before logger is initialized
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	observability.InitLogger(cfg.LogLevel, cfg.LogPretty)
	logger := observability.GetLogger()

	logger.Info().
		Str("port", cfg.Port).
		Str("recognizer", cfg.RecognizerProvider).
		Str("connectivity_probe", cfg.ConnectivityProbe).
		Str("log_level", cfg.LogLevel).
		Bool("metrics_enabled", cfg.MetricsEnabled).
		Msg("Media Transcriber starting")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Recognition backend; a missing backend is reported to the UI on start
	recognizer, err := stt.New(cfg, observability.Component("stt"))
	if err != nil {
		if !errors.Is(err, stt.ErrUnsupported) {
			logger.Fatal().Err(err).Msg("Failed to create recognizer")
		}
		logger.Warn().Msg("Speech recognition unavailable")
	}

	// Connectivity probe
	var pinger probe.Pinger
	switch strings.ToLower(cfg.ConnectivityProbe) {
	case "grpc":
		grpcProbe, err := probe.NewGRPCProbe(cfg.ConnectivityGRPCTarget, "")
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to create gRPC connectivity probe")
		}
		defer grpcProbe.Close()
		pinger = grpcProbe
	default:
		pinger = probe.NewHTTPProbe(cfg.ConnectivityURL, &http.Client{Timeout: cfg.ConnectivityTimeout()})
	}
	checker := probe.NewChecker(pinger, cfg.ConnectivityTimeout(), observability.Component("probe"))

	// Media decoding
	loader, err := media.NewLoader(cfg, observability.Component("media"))
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create media loader")
	}
	load := func(ctx context.Context, name, path string) (media.Source, error) {
		src, err := loader.Load(ctx, name, path)
		if err != nil {
			return nil, err
		}
		return src, nil
	}

	recorder := capture.NewRecorder(
		audio.Format{SampleRate: cfg.SampleRate, Channels: cfg.Channels},
		observability.Component("capture"),
	)

	hub := web.NewHub(observability.Component("web"))

	ctrl := session.New(session.Options{
		Recognizer: recognizer,
		Checker:    checker,
		Load:       load,
		Observer:   hub,
		MaxErrors:  cfg.MaxErrors,
		Restart: resilience.RestartConfig{
			MinInterval: cfg.MinRestartInterval(),
			MinDelay:    cfg.MinRestartDelay(),
		},
		NotificationDismiss: cfg.NotificationDismiss(),
		Logger:              observability.Component("session"),
	})

	ctrlDone := make(chan struct{})
	go func() {
		defer close(ctrlDone)
		if err := ctrl.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("Session controller exited")
		}
	}()

	monitor := probe.NewMonitor(checker, cfg.MonitorInterval(), ctrl.SetOnline, observability.Component("monitor"))
	go monitor.Run(ctx)

	// Create HTTP server
	mux := http.NewServeMux()

	server := web.NewServer(web.Options{
		Controller: ctrl,
		Hub:        hub,
		Recorder:   recorder,
		UploadDir:  cfg.UploadDir,
		UploadMax:  int64(cfg.UploadMaxMB) << 20,
		Logger:     observability.Component("web"),
	})
	server.Register(mux)

	// Health check endpoint
	mux.HandleFunc("/health", observability.HealthCheckHandler())

	// Readiness: recognizer configured and network reachable
	mux.HandleFunc("/ready", observability.ReadinessHandler(map[string]observability.HealthCheckFunc{
		"recognizer": func(ctx context.Context) (bool, error) {
			if recognizer == nil {
				return false, stt.ErrUnsupported
			}
			return true, nil
		},
		"connectivity": checker.Ready,
	}))

	// Metrics endpoint (Prometheus)
	if cfg.MetricsEnabled {
		mux.Handle("/metrics", promhttp.Handler())
		logger.Info().Msg("Prometheus metrics enabled at /metrics")
	}

	// Uploads can be large, so only the header read is bounded
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           mux,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	baseURL := cfg.PublicURL
	if baseURL == "" {
		baseURL = fmt.Sprintf("http://localhost:%s", cfg.Port)
	}

	// Start server in a goroutine
	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("api", baseURL+"/api").
			Str("endpoint", strings.Replace(baseURL, "http", "ws", 1)+"/ws").
			Msg("Server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}

	cancel()
	<-ctrlDone

	if recognizer != nil {
		if err := recognizer.Close(); err != nil {
			logger.Warn().Err(err).Msg("Error closing recognizer")
		}
	}
	if err := recorder.Close(); err != nil {
		logger.Warn().Err(err).Msg("Error closing live capture")
	}

	logger.Info().Msg("Server exited gracefully")
}
