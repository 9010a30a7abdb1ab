package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"go.uber.org/zap"

	"github.com/leadline-ai/bot-platform/internal/ratelimit"
	"github.com/leadline-ai/bot-platform/pkg/logger"
)

// RateLimit creates in-process rate limiting middleware for the
// authenticated dashboard API, keyed by tenant when available.
func RateLimit(requestLimit int, windowLength time.Duration) func(http.Handler) http.Handler {
	return httprate.Limit(
		requestLimit,
		windowLength,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			tenantID := GetTenantID(r.Context())
			if tenantID != "" {
				return "tenant:" + tenantID, nil
			}
			return "ip:" + r.RemoteAddr, nil
		}),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "60")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":"rate limit exceeded","retry_after":60}`))
		}),
	)
}

// VisitorRateLimit limits the public chat endpoint per bot and caller IP
// using the shared Redis window so the limit holds across instances.
// Redis unavailability fails open with a warning: the usage gate is the
// real quota, this only blunts abuse.
func VisitorRateLimit(limiter *ratelimit.Limiter, requestLimit int, window time.Duration, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil {
				next.ServeHTTP(w, r)
				return
			}

			key := "bot:" + chi.URLParam(r, "botID") + ":ip:" + r.RemoteAddr
			allowed, err := limiter.Allow(r.Context(), key, requestLimit, window)
			if err != nil {
				log.Warn("visitor rate limit check failed, allowing request", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			if !allowed {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", "60")
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte(`{"error":"rate limit exceeded","retry_after":60}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
