package middleware

import (
	"log/slog"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	aierrors "github.com/hrygo/tutorvoice/server/internal/errors"
	"github.com/hrygo/tutorvoice/server/internal/observability"
)

const (
	// DefaultRate is the sustained requests per second allowed per key.
	DefaultRate = 5
	// DefaultBurst is the burst allowed per key.
	DefaultBurst = 10
	// idleTTL is how long an unused limiter is kept before being dropped.
	idleTTL = 10 * time.Minute
)

// RateLimiter provides per-key rate limiting.
type RateLimiter struct {
	mu     sync.Mutex
	limits map[string]*keyLimiter
	rps    rate.Limit
	burst  int
	now    func() time.Time
	lastGC time.Time
}

type keyLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a new rate limiter allowing rps requests per second
// with the given burst for every key. Non-positive values fall back to the defaults.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if rps <= 0 {
		rps = DefaultRate
	}
	if burst <= 0 {
		burst = DefaultBurst
	}
	return &RateLimiter{
		limits: make(map[string]*keyLimiter),
		rps:    rate.Limit(rps),
		burst:  burst,
		now:    time.Now,
	}
}

// getLimiter gets or creates a limiter for the given key.
func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.gcLocked(now)

	if kl, ok := rl.limits[key]; ok {
		kl.lastSeen = now
		return kl.limiter
	}

	kl := &keyLimiter{
		limiter:  rate.NewLimiter(rl.rps, rl.burst),
		lastSeen: now,
	}
	rl.limits[key] = kl
	return kl.limiter
}

// gcLocked drops limiters idle longer than idleTTL, at most once per idleTTL.
func (rl *RateLimiter) gcLocked(now time.Time) {
	if now.Sub(rl.lastGC) < idleTTL {
		return
	}
	rl.lastGC = now
	for key, kl := range rl.limits {
		if now.Sub(kl.lastSeen) > idleTTL {
			delete(rl.limits, key)
		}
	}
}

// Allow checks if a request is allowed for the given key.
func (rl *RateLimiter) Allow(key string) bool {
	return rl.getLimiter(key).Allow()
}

// Len returns the number of tracked keys.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limits)
}

// KeyFunc extracts the rate limiting key from a request.
type KeyFunc func(c echo.Context) string

// RealIPKey keys requests by client address.
func RealIPKey(c echo.Context) string {
	return c.RealIP()
}

// Middleware rejects requests over the limit with a RATE_LIMIT_EXCEEDED error
// rendered as 429. Requests for which keyFunc returns "" are keyed by client
// address.
func (rl *RateLimiter) Middleware(keyFunc KeyFunc) echo.MiddlewareFunc {
	if keyFunc == nil {
		keyFunc = RealIPKey
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := keyFunc(c)
			if key == "" {
				key = RealIPKey(c)
			}
			if !rl.Allow(key) {
				err := aierrors.RateLimitExceeded("rate limit exceeded")
				slog.Warn("request rejected",
					slog.String(observability.LogFieldErrorCode, string(err.GetCode())),
					slog.String("path", c.Path()),
					slog.String("remote_ip", c.RealIP()),
				)
				return c.JSON(aierrors.HTTPStatus(err.GetCode()), map[string]string{
					"error": err.Message,
				})
			}
			return next(c)
		}
	}
}
