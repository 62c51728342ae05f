package ratelimit

import (
	"math"
	"strconv"
	"time"

	xhttp "ForecastDash/pkg/http"

	"github.com/labstack/echo/v4"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// DefaultIdleTTL is how long a client's limiter survives without requests.
const DefaultIdleTTL = 10 * time.Minute

// Limiter keeps one token bucket per key. Buckets of keys idle for longer than
// the idle TTL are dropped, so a forgotten client starts again with a full burst.
type Limiter struct {
	clients *cache.Cache
	limit   rate.Limit
	burst   int
	now     func() time.Time
}

// New allows bursts of capacity requests refilled at refillPerSec per key.
// A non-positive idle uses DefaultIdleTTL.
func New(capacity, refillPerSec float64, idle time.Duration) *Limiter {
	if idle <= 0 {
		idle = DefaultIdleTTL
	}
	return &Limiter{
		clients: cache.New(idle, idle),
		limit:   rate.Limit(refillPerSec),
		burst:   int(capacity),
		now:     time.Now,
	}
}

// Allow consumes one token for key if one is available.
func (l *Limiter) Allow(key string) bool {
	return l.bucket(key).AllowN(l.now(), 1)
}

// Len counts tracked keys, expired ones included until the janitor runs.
func (l *Limiter) Len() int { return l.clients.ItemCount() }

func (l *Limiter) bucket(key string) *rate.Limiter {
	if v, ok := l.clients.Get(key); ok {
		lim := v.(*rate.Limiter)
		// touching the entry pushes its expiry out
		l.clients.SetDefault(key, lim)
		return lim
	}
	lim := rate.NewLimiter(l.limit, l.burst)
	if err := l.clients.Add(key, lim, cache.DefaultExpiration); err != nil {
		// another request for the same key won the race
		if v, ok := l.clients.Get(key); ok {
			return v.(*rate.Limiter)
		}
	}
	return lim
}

// retryAfter is the whole seconds until one token is back.
func (l *Limiter) retryAfter() string {
	if l.limit <= 0 {
		return "60"
	}
	return strconv.Itoa(int(math.Ceil(1 / float64(l.limit))))
}

// Middleware rejects callers over their budget with 429, keyed by client IP.
func (l *Limiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !l.Allow(c.RealIP()) {
				c.Response().Header().Set("Retry-After", l.retryAfter())
				return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("too many forecast requests, slow down"))
			}
			return next(c)
		}
	}
}
