package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"

	"github.com/greenroute/greenroute/internal/api/models"
)

// RateLimitConfig holds a request budget per window.
type RateLimitConfig struct {
	RequestLimit int
	WindowLength time.Duration
}

// Default rate limit tiers.
var (
	// ExpensiveRateLimit covers scoring and simulation endpoints (30 req/min).
	ExpensiveRateLimit = RateLimitConfig{
		RequestLimit: 30,
		WindowLength: time.Minute,
	}

	// StandardRateLimit covers everything else (100 req/min).
	StandardRateLimit = RateLimitConfig{
		RequestLimit: 100,
		WindowLength: time.Minute,
	}
)

// RateLimitByIP limits requests per client IP. Relies on chi's RealIP
// middleware to resolve forwarded addresses.
func RateLimitByIP(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return httprate.Limit(
		cfg.RequestLimit,
		cfg.WindowLength,
		httprate.WithKeyFuncs(httprate.KeyByRealIP),
		httprate.WithLimitHandler(rateLimitExceededHandler),
	)
}

func rateLimitExceededHandler(w http.ResponseWriter, r *http.Request) {
	traceID := GetRequestID(r.Context())

	problem := models.NewTooManyRequests(traceID, "Rate limit exceeded. Please try again later.")
	problem.Instance = r.URL.Path

	// httprate does not expose the exact reset instant; a full window is a
	// safe upper bound.
	w.Header().Set("Retry-After", strconv.Itoa(60))

	problem.Write(w)
}
