package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/funkypatns/Progym-sub001/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const purgeInterval = 5 * time.Minute

// Fixed-window per-IP limiter held entirely in memory. One process, one map;
// a multi-instance deployment would move this to Redis.
type limiter struct {
	mu        sync.Mutex
	windows   map[string]*ipWindow
	limit     int
	period    time.Duration
	detail    string
	lastPurge time.Time
}

type ipWindow struct {
	count int
	until time.Time
}

func newLimiter(limit int, period time.Duration, detail string) *limiter {
	return &limiter{
		windows:   make(map[string]*ipWindow),
		limit:     limit,
		period:    period,
		detail:    detail,
		lastPurge: time.Now(),
	}
}

func (l *limiter) allow(ip string) (bool, time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	l.purgeLocked(now)

	w, ok := l.windows[ip]
	if !ok || now.After(w.until) {
		w = &ipWindow{until: now.Add(l.period)}
		l.windows[ip] = w
	}
	w.count++
	return w.count <= l.limit, w.until
}

// purgeLocked drops expired windows so IPs that never return do not
// accumulate. Piggybacks on allow instead of running its own goroutine,
// which keeps the limiter free of anything needing a shutdown hook.
// Caller holds l.mu.
func (l *limiter) purgeLocked(now time.Time) {
	if now.Sub(l.lastPurge) < purgeInterval {
		return
	}
	l.lastPurge = now
	removed := 0
	for ip, w := range l.windows {
		if now.After(w.until) {
			delete(l.windows, ip)
			removed++
		}
	}
	if removed > 0 {
		log.Debug().Int("removed", removed).Msg("rate limiter windows purged")
	}
}

func (l *limiter) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, until := l.allow(c.ClientIP())
		if !ok {
			c.Header("Retry-After", until.Format(time.RFC1123))
			c.AbortWithStatusJSON(http.StatusTooManyRequests,
				apierror.New(apierror.CodeRateLimited, l.detail))
			return
		}
		c.Next()
	}
}

// LoginRateLimiter caps login attempts at 20 per minute per IP. Applied only
// to /auth/login so credential stuffing cannot ride the general limit.
func LoginRateLimiter() gin.HandlerFunc {
	return newLimiter(20, time.Minute, "too many login attempts, retry in 1 minute").middleware()
}

// RateLimiter is the general per-IP API limiter.
func RateLimiter(limit int, period time.Duration) gin.HandlerFunc {
	return newLimiter(limit, period, "too many requests, retry shortly").middleware()
}
