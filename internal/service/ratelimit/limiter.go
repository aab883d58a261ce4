package ratelimit

import (
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	xhttp "nichescope/pkg/http"
)

type client struct {
	lim  *rate.Limiter
	last time.Time
}

// Limiter keeps one token bucket per key. Every key shares the same capacity and refill rate.
type Limiter struct {
	mu        sync.Mutex
	clients   map[string]*client
	every     rate.Limit
	burst     int
	idle      time.Duration
	lastPrune time.Time
	now       func() time.Time
}

type Option func(*Limiter)

// WithIdleTTL sets how long an unused key is kept. Zero keeps keys forever.
func WithIdleTTL(d time.Duration) Option {
	return func(l *Limiter) {
		if d >= 0 {
			l.idle = d
		}
	}
}

// New allows capacity requests at once per key, refilled at refillPerSec. A zero refill
// rate makes capacity a lifetime budget until the key is pruned.
func New(capacity, refillPerSec float64, opts ...Option) *Limiter {
	if capacity < 1 {
		capacity = 1
	}
	if refillPerSec < 0 {
		refillPerSec = 0
	}
	l := &Limiter{
		clients: make(map[string]*client),
		every:   rate.Limit(refillPerSec),
		burst:   int(capacity),
		idle:    10 * time.Minute,
		now:     time.Now,
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Allow reports whether key may make a request now.
func (l *Limiter) Allow(key string) bool {
	ok, _ := l.take(key)
	return ok
}

// take consumes a token for key. On refusal it also returns how long until one is back,
// or zero when the bucket never refills.
func (l *Limiter) take(key string) (bool, time.Duration) {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.idle > 0 {
		if l.lastPrune.IsZero() {
			l.lastPrune = now
		} else if now.Sub(l.lastPrune) >= l.idle {
			l.pruneLocked(now.Add(-l.idle))
			l.lastPrune = now
		}
	}

	c, ok := l.clients[key]
	if !ok {
		c = &client{lim: rate.NewLimiter(l.every, l.burst)}
		l.clients[key] = c
	}
	c.last = now
	if c.lim.AllowN(now, 1) {
		return true, 0
	}
	if l.every <= 0 {
		return false, 0
	}
	missing := 1 - c.lim.TokensAt(now)
	return false, time.Duration(missing / float64(l.every) * float64(time.Second))
}

// Prune forgets keys idle for longer than idle; a forgotten key starts with a full bucket.
func (l *Limiter) Prune(idle time.Duration) int {
	cutoff := l.now().Add(-idle)
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pruneLocked(cutoff)
}

func (l *Limiter) pruneLocked(cutoff time.Time) int {
	n := 0
	for k, c := range l.clients {
		if c.last.Before(cutoff) {
			delete(l.clients, k)
			n++
		}
	}
	return n
}

// Middleware rejects requests over the per-client budget with a 429 envelope and a
// Retry-After header. Clients are keyed by IP.
func (l *Limiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ok, wait := l.take(c.RealIP())
			if ok {
				return next(c)
			}
			appErr := xhttp.TooManyRequestsError("rate limit exceeded")
			if secs := int(math.Ceil(wait.Seconds())); secs > 0 {
				c.Response().Header().Set(echo.HeaderRetryAfter, strconv.Itoa(secs))
				appErr = appErr.WithParam("retry_after", secs)
			}
			return xhttp.AppErrorResponse(c, appErr)
		}
	}
}
