package middleware

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Endpoint classes with independent rate budgets.
const (
	ClassBooking      = "booking"
	ClassAvailability = "availability"
	ClassOAuth        = "oauth"
)

// classLimits maps an endpoint class to its fixed-window budget.
var classLimits = map[string]struct {
	limit  int
	window time.Duration
}{
	ClassBooking:      {limit: 10, window: time.Minute},
	ClassAvailability: {limit: 30, window: time.Minute},
	ClassOAuth:        {limit: 5, window: time.Minute},
}

// Decision is the outcome of one rate-limit check.
type Decision struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

type window struct {
	count   int
	resetAt time.Time
}

// FixedWindowLimiter counts requests per (class, client) inside fixed
// windows. Counts reset at the window boundary, not on a sliding horizon.
type FixedWindowLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
}

// NewFixedWindowLimiter builds an empty limiter.
func NewFixedWindowLimiter() *FixedWindowLimiter {
	return &FixedWindowLimiter{
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

// Check records one request against the class budget and reports the
// decision. Unknown classes are never limited.
func (l *FixedWindowLimiter) Check(class, clientKey string) Decision {
	cfg, ok := classLimits[class]
	if !ok {
		return Decision{Allowed: true, Remaining: 1, ResetAt: l.now()}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	key := class + ":" + clientKey
	w, ok := l.windows[key]
	if !ok || !now.Before(w.resetAt) {
		// Stale windows for other keys are evicted lazily on their next hit;
		// the map only grows with active clients.
		w = &window{resetAt: now.Add(cfg.window)}
		l.windows[key] = w
	}

	if w.count >= cfg.limit {
		return Decision{Allowed: false, Remaining: 0, ResetAt: w.resetAt}
	}
	w.count++
	return Decision{
		Allowed:   true,
		Remaining: cfg.limit - w.count,
		ResetAt:   w.resetAt,
	}
}

// RateLimitMiddleware enforces the class budget and exposes the remaining
// budget in response headers. Authenticated requests are keyed by host id so
// a host's budget follows them across addresses; anonymous requests are
// keyed by client IP.
func RateLimitMiddleware(limiter *FixedWindowLimiter, class string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetString("hostID")
		if key == "" {
			key = getClientIP(c)
		}
		d := limiter.Check(class, key)

		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", d.Remaining))
		c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", d.ResetAt.Unix()))

		if !d.Allowed {
			zap.L().Warn("Rate limit exceeded",
				zap.String("class", class), zap.String("client", key))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":   "rateLimited",
				"message": "Rate limit exceeded. Try again later.",
				"resetAt": d.ResetAt.UTC().Format(time.RFC3339),
			})
			return
		}
		c.Next()
	}
}
