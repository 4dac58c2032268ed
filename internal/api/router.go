// Package api assembles the HTTP router for the route decision engine.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/greenroute/greenroute/internal/api/handler"
	"github.com/greenroute/greenroute/internal/api/middleware"
)

// RouterConfig holds the dependencies the router wires together.
type RouterConfig struct {
	Version   string
	BuildTime string
	Logger    zerolog.Logger

	// Metrics is optional; nil skips the metrics middleware.
	Metrics *middleware.Metrics

	Routes     *handler.RouteHandler
	Signals    *handler.SignalHandler
	GreenWave  *handler.GreenWaveHandler
	AirQuality *handler.AirQualityHandler
	Ops        *handler.OpsHandler
}

// NewRouter builds the API router with the full middleware stack.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Tracing())
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware())
	}
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.ContentTypeJSON)
	r.Use(middleware.RequireJSON)

	expensive := middleware.RateLimitByIP(middleware.ExpensiveRateLimit)
	standard := middleware.RateLimitByIP(middleware.StandardRateLimit)

	r.Route("/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(standard)

			r.Get("/ops/health", cfg.Ops.HealthCheck)
			r.Get("/ops/ready", cfg.Ops.ReadinessCheck)
			r.Get("/ops/status", cfg.Ops.SystemStatus)

			r.Get("/signals", cfg.Signals.ListSignals)
			r.Get("/signals/{signalID}", cfg.Signals.GetSignal)
			r.Put("/signals/{signalID}", cfg.Signals.UpsertSignal)
			r.Post("/signals:predict", cfg.Signals.Predict)

			r.Post("/greenwave:offset", cfg.GreenWave.Offset)
			r.Post("/greenwave:corridor", cfg.GreenWave.Corridor)

			r.Get("/airquality/sensors", cfg.AirQuality.Sensors)
			r.Post("/airquality:interpolate", cfg.AirQuality.Interpolate)
		})

		// Simulation-heavy endpoints get the tighter budget.
		r.Group(func(r chi.Router) {
			r.Use(expensive)

			r.Post("/routes:score", cfg.Routes.ScoreRoutes)
			r.Post("/greenwave:progression", cfg.GreenWave.Progression)
			r.Post("/greenwave:bandwidth", cfg.GreenWave.Bandwidth)
		})
	})

	return r
}
