// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements a process-local token-bucket rate limiter with one
// golang.org/x/time/rate bucket per caller. Buckets live in a go-cache with
// sliding expiry so idle callers are evicted by the cache janitor.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// keyFunc selects the bucket identity of a request.
type keyFunc func(*gin.Context) string

// KeyByActorOrIP prefers the authenticated actor and falls back to the
// client IP. Prefixes keep the two namespaces apart.
func KeyByActorOrIP() keyFunc {
	return func(c *gin.Context) string {
		if a := ActorFrom(c); a != "" {
			return "actor:" + a
		}
		return "ip:" + c.ClientIP()
	}
}

// RateLimiter enforces per-key request rates. Safe for concurrent use.
type RateLimiter struct {
	rps     rate.Limit
	burst   int
	keyFn   keyFunc
	mu      sync.Mutex // serializes get-or-create
	buckets *cache.Cache
}

// NewRateLimiter builds a limiter refilling rps tokens per second up to
// burst (coerced to >= 1). Buckets idle for idleTTL are dropped; zero means
// ten minutes.
func NewRateLimiter(rps float64, burst int, idleTTL time.Duration, keyFn keyFunc) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	if idleTTL <= 0 {
		idleTTL = 10 * time.Minute
	}
	return &RateLimiter{
		rps:     rate.Limit(rps),
		burst:   burst,
		keyFn:   keyFn,
		buckets: cache.New(idleTTL, idleTTL/2),
	}
}

// limiter returns the bucket for key, refreshing its expiry.
func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if v, ok := rl.buckets.Get(key); ok {
		lim := v.(*rate.Limiter)
		rl.buckets.SetDefault(key, lim)
		return lim
	}
	lim := rate.NewLimiter(rl.rps, rl.burst)
	rl.buckets.SetDefault(key, lim)
	return lim
}

// IsRateBypass reports whether the request is an idempotent replay.
func IsRateBypass(c *gin.Context) bool {
	v, _ := c.Get(ctxKeyRateBypass)
	b, _ := v.(bool)
	return b
}

// Handler rejects requests over the caller's rate with 429 and a
// Retry-After hint. Replays are never limited.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsRateBypass(c) {
			c.Next()
			return
		}
		key := rl.keyFn(c)
		res := rl.limiter(key).Reserve()
		if !res.OK() {
			reject(c, key, "1")
			return
		}
		if d := res.Delay(); d > 0 {
			res.Cancel()
			secs := int(d / time.Second)
			if d%time.Second != 0 {
				secs++
			}
			reject(c, key, strconv.Itoa(secs))
			return
		}
		c.Next()
	}
}

func reject(c *gin.Context, key, retryAfter string) {
	kind, _, found := strings.Cut(key, ":")
	if !found {
		kind = "other"
	}
	rateLimited.WithLabelValues(kind).Inc()
	c.Header("Retry-After", retryAfter)
	abort(c, http.StatusTooManyRequests, "rate_limited", "rate limit exceeded")
}
