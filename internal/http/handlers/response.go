// Package handlers provides HTTP handler implementations for the public API.
//
// This file defines the standard response utilities used across all endpoints,
// including structured error envelopes, consistent JSON serialization, and
// helpers for common HTTP patterns. The goal is to guarantee uniform responses
// for both success and failure cases, making the API predictable and
// machine-friendly.
//
// Conventions:
//   - All error responses must return an ErrorResponse with a stable `code`.
//   - Every error envelope carries a fresh correlation_id; the same id is
//     logged together with the internal error so support can find it.
//   - `fail()` and `writeError()` centralize logging and formatting; 5xx
//     responses are logged at error level with request context.
//   - `ok()` and `created()` simplify writing success responses in a consistent
//     shape across handlers.
//
// Example success response:
//
//	HTTP/1.1 201 Created
//	Location: /api/v1/policies/1
//	{ "id": 1, "policy_number": "POL-2024-000001", "status": "DRAFT", ... }
package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tbourn/go-policy-admin/internal/http/middleware"
	"github.com/tbourn/go-policy-admin/internal/validation"
)

// ErrorResponse is the standard error envelope returned by all endpoints.
//
// Fields:
//   - RequestID: echoed from X-Request-ID; correlates one HTTP exchange.
//   - CorrelationID: unique per error; quoted by clients when reporting it.
//   - Status: the HTTP status, repeated for clients that lose it.
//   - Code: A stable, machine-readable string (see errors.go constants).
//   - Message: A human-readable error description, safe for display to users.
//
// The remaining fields are set only for the error kinds they describe.
type ErrorResponse struct {
	// Correlates server logs and client errors
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Unique id of this error occurrence
	CorrelationID string `json:"correlation_id" example:"0f5c3f0e-2b7a-4d53-9a47-5d8f9b7e7c11"`
	Status        int    `json:"status" example:"404"`
	// Stable, machine-readable code (see errors.go constants)
	Code string `json:"code" example:"not_found"`
	// Human-readable message (safe to show to users)
	Message string `json:"message" example:"policy 42 not found"`

	Violations  []validation.Violation `json:"violations,omitempty"`
	Resource    string                 `json:"resource,omitempty" example:"policy"`
	ResourceID  uint64                 `json:"resource_id,omitempty" example:"42"`
	Rule        string                 `json:"rule,omitempty" example:"payment_exceeds_claim_amount"`
	Integration string                 `json:"integration,omitempty" example:"speedpay"`
}

// respond fills the envelope's common fields, logs and aborts. cause is the
// internal error (nil for transport-level failures).
func respond(c *gin.Context, cause error, status int, resp ErrorResponse) {
	resp.RequestID = middleware.RequestIDFrom(c)
	resp.CorrelationID = uuid.NewString()
	resp.Status = status

	lg := middleware.LoggerFrom(c)
	ev := lg.Debug()
	if status >= http.StatusInternalServerError {
		ev = lg.Error()
	}
	ev.Int("status", status).
		Str("code", resp.Code).
		Str("correlation_id", resp.CorrelationID).
		Err(cause).
		Msg("api error")

	middleware.CountAPIError(resp.Code)
	c.AbortWithStatusJSON(status, resp)
}

// fail aborts the request with a structured error.
//
// It constructs an ErrorResponse, writes it as JSON with the given HTTP status,
// and calls gin.Context.AbortWithStatusJSON to stop further processing.
func fail(c *gin.Context, status int, code, msg string) {
	respond(c, nil, status, ErrorResponse{Code: code, Message: msg})
}

// Fail is the exported variant of fail().
//
// External packages (e.g., router setup) should call Fail to return
// consistent error envelopes without directly depending on unexported helpers.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

// ok writes a success JSON response.
//
// It serializes `body` as JSON with the given HTTP status code.
func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

// created writes 201 with a Location header pointing at the new resource.
func created(c *gin.Context, id uint64, body any) {
	c.Header("Location", strings.TrimSuffix(c.FullPath(), "/")+"/"+strconv.FormatUint(id, 10))
	ok(c, http.StatusCreated, body)
}
