// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// authentication, CORS, security headers, idempotency, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	_ "github.com/tbourn/go-policy-admin/docs" // swagger spec registration
	"github.com/tbourn/go-policy-admin/internal/config"
	"github.com/tbourn/go-policy-admin/internal/domain"
	"github.com/tbourn/go-policy-admin/internal/http/handlers"
	"github.com/tbourn/go-policy-admin/internal/http/middleware"
	"github.com/tbourn/go-policy-admin/internal/repo"
	"github.com/tbourn/go-policy-admin/internal/validation"
)

const (
	// apiBodyLimit caps JSON request bodies.
	apiBodyLimit int64 = 1 << 20
	// documentBodyLimit leaves room for multipart framing around a document
	// twice the accepted size, so oversized files still reach validation
	// and get a field-level error instead of a bare 413.
	documentBodyLimit = 2*validation.MaxDocumentSize + 1<<20

	docsPrefix = "/swagger"
)

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), authentication,
// idempotency and rate limiting, CORS and security headers, health and
// metrics endpoints, and then mounts the versioned public API under /api/v*.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Logger: structured access logs, PII scrubbing when enabled
//  4. Recovery: capture panics after logger
//  5. Body size limiter (per route class)
//  6. Metrics
//  7. CORS, compression and security headers
//  8. Authentication (JWT or development headers)
//  9. Idempotency validator (before rate limiter to allow bypass on replay)
//  10. Rate limiter (per actor/IP, bypass on replay)
func RegisterRoutes(r *gin.Engine, cfg config.Config, d handlers.Deps) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging, redacted on request
	r.Use(middleware.Logger(middleware.LogOptions{
		Redact:      cfg.LogRedact,
		MaskHeaders: []string{"X-API-Key"},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Body size limits
	r.Use(bodyLimit(apiBodyLimit, documentBodyLimit))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) CORS posture (safe defaults: allow all if none configured)
	allowHeaders := []string{
		"Origin", "Content-Type", "Accept", "Authorization", "If-None-Match",
		middleware.HeaderUserID, middleware.HeaderUserRoles, middleware.HeaderIdempotencyKey,
	}
	exposeHeaders := []string{"X-Request-ID", "Content-Length", "Location", "ETag", "Idempotency-Replayed"}
	methods := []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     methods,
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    exposeHeaders,
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist (in addition to gin-contrib/cors).
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     methods,
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    exposeHeaders,
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      true,
		EnablePolicy: true,
		DocsPrefix:   docsPrefix,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	h := handlers.New(d)

	// Liveness/readiness stay outside authentication.
	r.GET("/health", h.Health)
	r.GET("/health/ready", h.Ready)

	if cfg.SwaggerEnabled {
		r.GET(docsPrefix+"/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Public API
	api := groupWithPrefix(r, cfg.APIBasePath) // e.g. "/api/v1"

	// 8) Identity
	api.Use(middleware.Authenticate(middleware.AuthOptions{
		Secret:     []byte(cfg.JWTSecret),
		DevHeaders: cfg.AuthDevHeaders,
		Leeway:     30 * time.Second,
	}))

	// 9) Idempotency validation (before rate limiting)
	db := d.DB
	api.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{MaxLen: 200},
		func(ctx context.Context, userID, scope, key string, now time.Time) (uint64, bool, error) {
			if db == nil {
				return 0, false, nil
			}
			rec, err := repo.GetIdempotency(ctx, db, userID, scope, key, now)
			if err != nil || rec == nil {
				return 0, false, nil
			}
			return rec.ResourceID, true, nil
		},
	))

	// 10) Token-bucket rate limiter per actor/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, 0, middleware.KeyByActorOrIP())
	api.Use(rl.Handler())

	{
		// Policies
		api.POST("/policies", h.CreatePolicy)
		api.GET("/policies", h.ListPolicies)
		api.GET("/policies/:id", h.GetPolicy)
		api.PUT("/policies/:id", h.UpdatePolicy)
		api.POST("/policies/:id/submit", h.SubmitPolicy)
		api.POST("/policies/:id/return", h.ReturnPolicy)
		api.POST("/policies/:id/activate", h.ActivatePolicy)
		api.POST("/policies/:id/cancel", h.CancelPolicy)
		api.POST("/policies/:id/terminate", h.TerminatePolicy)
		api.POST("/policies/:id/export", h.ExportPolicy)
		api.GET("/policies/:id/exports", h.ListPolicyExports)

		// Claims
		api.POST("/claims", h.CreateClaim)
		api.GET("/claims", h.ListClaims)
		api.GET("/claims/:id", h.GetClaim)
		api.PATCH("/claims/:id/status", h.UpdateClaimStatus)
		api.POST("/claims/:id/documents", h.UploadClaimDocument)
		api.GET("/claims/:id/documents", h.ListClaimDocuments)
		api.POST("/claims/:id/payments", h.ProcessClaimPayment)
		api.GET("/claims/:id/payments", h.ListClaimPayments)

		// Underwriting lookups
		api.POST("/rmv/verifications", h.VerifyLicense)
		api.POST("/clue/reports", h.LossHistory)
	}

	// Users (administrators only)
	users := api.Group("/users", middleware.RequireRole(domain.RoleAdmin))
	{
		users.POST("", h.CreateUser)
		users.GET("", h.ListUsers)
		users.GET("/:id", h.GetUser)
		users.PUT("/:id", h.UpdateUser)
	}
}

// bodyLimit caps request bodies at def, or at docs for document uploads.
// The route template is known here because engine middleware is compiled
// into each route's chain.
func bodyLimit(def, docs int64) gin.HandlerFunc {
	small, large := middleware.LimitBody(def), middleware.LimitBody(docs)
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodPost && strings.HasSuffix(c.FullPath(), "/documents") {
			large(c)
			return
		}
		small(c)
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
