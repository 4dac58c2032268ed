// Package main is the entrypoint for the route decision engine API server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/greenroute/greenroute/internal/api"
	"github.com/greenroute/greenroute/internal/api/handler"
	"github.com/greenroute/greenroute/internal/api/middleware"
	"github.com/greenroute/greenroute/internal/config"
	"github.com/greenroute/greenroute/internal/greenwave"
	"github.com/greenroute/greenroute/internal/provider/openaq"
	"github.com/greenroute/greenroute/internal/provider/resilience"
	"github.com/greenroute/greenroute/internal/routing"
	"github.com/greenroute/greenroute/internal/snapshot"
	"github.com/greenroute/greenroute/internal/telemetry"
	"github.com/greenroute/greenroute/internal/trafficsignal"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallback := zerolog.New(os.Stderr)
		fallback.Fatal().Err(err).Msg("failed to load configuration")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	log := zerolog.New(os.Stdout).
		Level(level).
		With().
		Timestamp().
		Str("service", cfg.Service).
		Str("version", Version).
		Logger()

	log.Info().
		Str("environment", cfg.Environment).
		Str("build_time", BuildTime).
		Msg("starting route decision engine API")

	ctx := context.Background()

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    cfg.Service,
		ServiceVersion: Version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.Observability.OTLPEndpoint,
		Enabled:        cfg.Observability.TracingEnabled,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	metrics, err := middleware.NewMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize metrics")
	}

	// Sensor feed with circuit breaking and retries, tracked by the
	// provider registry for readiness reporting.
	sensorClient := resilience.NewClient(resilience.ClientConfig{
		Name:    openaq.ProviderName,
		Timeout: cfg.Sensor.Timeout,
	})
	registry := resilience.NewRegistry()
	registry.Register(openaq.ProviderName, sensorClient)

	feed := openaq.NewClient(openaq.ClientConfig{
		BaseURL:    cfg.Sensor.BaseURL,
		APIKey:     cfg.Sensor.APIKey,
		HTTPClient: sensorClient,
	})

	snapshots := snapshot.NewService(snapshot.ServiceConfig{
		Provider:        feed,
		Logger:          log,
		CacheTTL:        cfg.Sensor.CacheTTL,
		StaleIfErrorTTL: cfg.Sensor.StaleIfErrorTTL,
	})

	directory := trafficsignal.NewDirectory()
	scorer := routing.NewScorer(routing.ScorerConfig{Logger: log})
	calculator := greenwave.NewCalculator()

	router := api.NewRouter(api.RouterConfig{
		Version:   Version,
		BuildTime: BuildTime,
		Logger:    log,
		Metrics:   metrics,
		Routes: handler.NewRouteHandler(handler.RouteHandlerConfig{
			Scorer:          scorer,
			Directory:       directory,
			Snapshots:       snapshots,
			Logger:          log,
			DefaultRadiusKm: cfg.Sensor.DefaultRadiusKm,
		}),
		Signals:   handler.NewSignalHandler(directory),
		GreenWave: handler.NewGreenWaveHandler(calculator, directory),
		AirQuality: handler.NewAirQualityHandler(handler.AirQualityHandlerConfig{
			Snapshots:       snapshots,
			DefaultRadiusKm: cfg.Sensor.DefaultRadiusKm,
		}),
		Ops: handler.NewOpsHandler(handler.OpsHandlerConfig{
			Version:   Version,
			BuildTime: BuildTime,
			Snapshots: snapshots,
			Registry:  registry,
			Directory: directory,
		}),
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server stopped")
}
