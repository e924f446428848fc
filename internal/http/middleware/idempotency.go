// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements idempotency support for resource-creating POSTs. A
// retried request carrying the same Idempotency-Key must not repeat side
// effects such as a second SpeedPay disbursement. The validator checks the
// header, derives the operation scope, and looks up a previous outcome;
// handlers then serve the stored resource instead of executing again and
// record new outcomes through the same scope.
package middleware

import (
	"context"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
)

// HeaderIdempotencyKey is the request header carrying the client's key.
const HeaderIdempotencyKey = "Idempotency-Key"

const (
	ctxKeyIdemKey    = "idem.key"
	ctxKeyIdemScope  = "idem.scope"
	ctxKeyIdemReplay = "idem.replay" // uint64: resource created by the first request
	ctxKeyRateBypass = "rate.bypass"
)

// GetIdempotencyKey returns the validated key, if the request carried one.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxKeyIdemKey)
	if !ok {
		return "", false
	}
	s, _ := v.(string)
	return s, s != ""
}

// IdempotencyScope names the operation and its target, for example
// "POST /api/v1/claims/:id/payments:42". Keys are unique per user and scope.
func IdempotencyScope(c *gin.Context) string {
	if v, ok := c.Get(ctxKeyIdemScope); ok {
		return asString(v)
	}
	scope := c.Request.Method + " " + c.FullPath()
	if id := c.Param("id"); id != "" {
		scope += ":" + id
	}
	return scope
}

// ReplayOf returns the resource ID recorded for this key by an earlier
// request, when there is one.
func ReplayOf(c *gin.Context) (uint64, bool) {
	v, ok := c.Get(ctxKeyIdemReplay)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint64)
	return id, ok
}

// IdempotencyOptions configures IdempotencyValidator.
type IdempotencyOptions struct {
	// MaxLen caps the accepted key length. Values <= 0 default to 128.
	MaxLen int
	// Pattern restricts allowed characters; defaults to ^[A-Za-z0-9._~\-:@]+$.
	Pattern *regexp.Regexp
}

// IdempotencyLookup returns the resource recorded for (userID, scope, key)
// if it has not expired. Lookup errors are logged and treated as a miss.
type IdempotencyLookup func(ctx context.Context, userID, scope, key string, now time.Time) (resourceID uint64, found bool, err error)

// IdempotencyValidator must run after Authenticate. Requests without the
// header pass through untouched; an invalid header is rejected with 400.
// When lookup finds an earlier outcome the request is marked as a replay
// and exempted from rate limiting.
func IdempotencyValidator(opts IdempotencyOptions, lookup IdempotencyLookup) gin.HandlerFunc {
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = 128
	}
	pat := opts.Pattern
	if pat == nil {
		pat = regexp.MustCompile(`^[A-Za-z0-9._~\-:@]+$`)
	}

	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			c.Next()
			return
		}
		if len(key) > maxLen || !pat.MatchString(key) {
			abort(c, http.StatusBadRequest, "bad_idempotency_key", "invalid Idempotency-Key")
			return
		}
		scope := IdempotencyScope(c)
		c.Set(ctxKeyIdemKey, key)
		c.Set(ctxKeyIdemScope, scope)

		if lookup != nil {
			id, found, err := lookup(c.Request.Context(), ActorFrom(c), scope, key, time.Now().UTC())
			switch {
			case err != nil:
				LoggerFrom(c).Warn().Err(err).Str("scope", scope).Msg("idempotency lookup failed")
			case found:
				c.Set(ctxKeyIdemReplay, id)
				c.Set(ctxKeyRateBypass, true)
				idemReplays.WithLabelValues(routeLabel(c)).Inc()
			}
		}
		c.Next()
	}
}
