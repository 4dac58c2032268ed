// Package main is the entrypoint for the background refresh worker. It
// keeps sensor snapshots warm for the configured focus areas, either by
// consuming Pub/Sub job messages or, without a Pub/Sub project, on a
// fixed interval.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/greenroute/greenroute/internal/config"
	"github.com/greenroute/greenroute/internal/provider/openaq"
	"github.com/greenroute/greenroute/internal/snapshot"
	"github.com/greenroute/greenroute/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

const refreshInterval = 5 * time.Minute

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
		Str("service", cfg.Service+"-worker").
		Str("version", Version).
		Logger()

	log.Info().
		Str("environment", cfg.Environment).
		Str("build_time", BuildTime).
		Msg("starting refresh worker")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	feed := openaq.NewClient(openaq.ClientConfig{
		BaseURL: cfg.Sensor.BaseURL,
		APIKey:  cfg.Sensor.APIKey,
		Timeout: cfg.Sensor.Timeout,
	})

	snapshots := snapshot.NewService(snapshot.ServiceConfig{
		Provider:        feed,
		Logger:          log,
		CacheTTL:        cfg.Sensor.CacheTTL,
		StaleIfErrorTTL: cfg.Sensor.StaleIfErrorTTL,
	})

	refreshJob := worker.NewRefreshJob(worker.RefreshJobConfig{
		Config: worker.RefreshConfig{
			Targets:     worker.DefaultRefreshTargets(),
			Concurrency: cfg.Worker.Concurrency,
		},
		Logger:   log,
		Snapshot: snapshots,
	})

	// Health endpoint for the container platform.
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"healthy","version":"%s"}`, Version)
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("health server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("health server error")
		}
	}()

	if cfg.Worker.ProjectID != "" {
		go runPubSub(ctx, cfg, refreshJob, log)
	} else {
		go runTicker(ctx, refreshJob, log)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down worker")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}

	log.Info().Msg("worker stopped")
}

// runPubSub processes refresh jobs from the configured subscription.
func runPubSub(ctx context.Context, cfg *config.Config, job *worker.RefreshJob, log zerolog.Logger) {
	handler, err := worker.NewPubSubHandler(ctx, worker.PubSubConfig{
		ProjectID:        cfg.Worker.ProjectID,
		SubscriptionName: cfg.Worker.SubscriptionName,
		RefreshJob:       job,
		Logger:           log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create pubsub handler")
	}
	defer handler.Close()

	if err := handler.Start(ctx); err != nil && ctx.Err() == nil {
		log.Error().Err(err).Msg("pubsub handler stopped")
	}
}

// runTicker refreshes every target on a fixed interval. Used for local
// development and deployments without Pub/Sub.
func runTicker(ctx context.Context, job *worker.RefreshJob, log zerolog.Logger) {
	log.Info().Dur("interval", refreshInterval).Msg("running in interval mode")

	// Warm the caches immediately on startup.
	job.Run(ctx)

	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			result := job.Run(ctx)
			log.Info().
				Int("successful", result.Successful).
				Int("failed", result.Failed).
				Dur("duration", result.Duration).
				Msg("scheduled refresh completed")
		}
	}
}
