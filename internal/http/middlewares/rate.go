package middlewares

import (
	"math"
	"net/http"
	"strconv"

	httperrors "github.com/dropDatabas3/weasl/internal/http/errors"
	"github.com/dropDatabas3/weasl/internal/observability/logger"
	"github.com/dropDatabas3/weasl/internal/rate"
)

// RateKeyFunc genera la clave de rate limiting de un request.
type RateKeyFunc func(r *http.Request) string

// IPRateKey limita por IP de cliente y client id (si viene).
func IPRateKey(r *http.Request) string {
	key := clientIP(r)
	if cid := r.Header.Get(HeaderClientID); cid != "" {
		key += "|" + cid
	}
	return key
}

// RateLimitConfig configura WithRateLimit. Scope separa contadores por endpoint.
type RateLimitConfig struct {
	Limiter rate.Limiter
	Scope   string
	KeyFunc RateKeyFunc
}

// WithRateLimit responde 429 rate-limited cuando el limiter rechaza. Un error
// del limiter deja pasar el request.
func WithRateLimit(cfg RateLimitConfig) Middleware {
	if cfg.Limiter == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = IPRateKey
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := cfg.Scope + "|" + cfg.KeyFunc(r)
			res, err := cfg.Limiter.Allow(r.Context(), key)
			if err != nil {
				logger.From(r.Context()).Warn("rate limiter failed", logger.Err(err))
				next.ServeHTTP(w, r)
				return
			}
			if !res.Allowed {
				if res.RetryAfter > 0 {
					secs := int(math.Ceil(res.RetryAfter.Seconds()))
					w.Header().Set("Retry-After", strconv.Itoa(secs))
				}
				httperrors.WriteError(w, httperrors.ErrRateLimited)
				return
			}
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))
			next.ServeHTTP(w, r)
		})
	}
}
