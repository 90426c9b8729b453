package middleware

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	apierrors "statementcheck/internal/errors"
)

// idle clients lose their bucket after this long
const limiterIdleTTL = 10 * time.Minute

// RateLimiter keeps one token bucket per client address. Run it after
// RealIP so proxied clients are told apart.
type RateLimiter struct {
	rps          rate.Limit
	burst        int
	clients      *gocache.Cache
	mu           sync.Mutex
	errorHandler *apierrors.ErrorHandler
	logger       *slog.Logger
}

// NewRateLimiter allows each client rps requests per second with bursts of
// burst. Rejections are written through errorHandler as 429 problems.
func NewRateLimiter(rps float64, burst int, errorHandler *apierrors.ErrorHandler, logger *slog.Logger) *RateLimiter {
	if logger == nil {
		logger = slog.Default()
	}
	return &RateLimiter{
		rps:          rate.Limit(rps),
		burst:        burst,
		clients:      gocache.New(limiterIdleTTL, 2*limiterIdleTTL),
		errorHandler: errorHandler,
		logger:       logger.With(slog.String("component", "rate_limiter")),
	}
}

// limiter returns the bucket of client, creating it on first sight.
// Every hit renews the idle expiry.
func (rl *RateLimiter) limiter(client string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if v, ok := rl.clients.Get(client); ok {
		l := v.(*rate.Limiter)
		rl.clients.SetDefault(client, l)
		return l
	}
	l := rate.NewLimiter(rl.rps, rl.burst)
	rl.clients.SetDefault(client, l)
	return l
}

// Handler rejects requests from clients whose bucket is empty, setting
// Retry-After, and passes the rest to next.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client := GetRealIP(r)
		if !rl.limiter(client).Allow() {
			rl.logger.WarnContext(r.Context(), "rate limit exceeded",
				slog.String("client", client),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
			)
			w.Header().Set("Retry-After", "1")
			rl.errorHandler.HandleError(w, r, apierrors.ErrRateLimitExceeded)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Clients is the number of addresses holding a bucket.
func (rl *RateLimiter) Clients() int {
	return rl.clients.ItemCount()
}
