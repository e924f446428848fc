// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// This file centralizes the symbolic codes written into every error envelope
// and the classification of service, validation and integration errors into
// HTTP statuses (writeError). Clients branch on `code`; `message` is for
// humans.
//
// Mapping:
//
//	*validation.Error                    400 validation_failed (+ violations)
//	*services.NotFoundError              404 not_found
//	*services.IllegalStateError          409 illegal_state
//	*services.ConcurrentModificationError 409 conflict
//	*services.BusinessRuleError          422 business_rule_violation
//	*integration.Error timeout           504 integration_timeout
//	*integration.Error unavailable       502 integration_unavailable
//	*integration.Error rejected          422 integration_rejected
//	*http.MaxBytesError                  413 payload_too_large
//	anything else                        500 internal_error
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "correlation_id": "0f5c3f0e-2b7a-4d53-9a47-5d8f9b7e7c11",
//	  "status": 409,
//	  "code": "illegal_state",
//	  "message": "policy 7: transition TERMINATED -> ACTIVE not allowed"
//	}
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-policy-admin/internal/integration"
	"github.com/tbourn/go-policy-admin/internal/services"
	"github.com/tbourn/go-policy-admin/internal/validation"
)

const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeForbidden    = "forbidden"
	ErrCodeNotFound     = "not_found"
	ErrCodeConflict     = "conflict"
	ErrCodeTooLarge     = "payload_too_large"
	ErrCodeRateLimited  = "rate_limited"
	ErrCodeUnavailable  = "service_unavailable"
	ErrCodeInternal     = "internal_error"

	// Domain-specific:
	ErrCodeValidation       = "validation_failed"
	ErrCodeIllegalState     = "illegal_state"
	ErrCodeBusinessRule     = "business_rule_violation"
	ErrCodeIntegrationTO    = "integration_timeout"
	ErrCodeIntegrationDown  = "integration_unavailable"
	ErrCodeIntegrationNo    = "integration_rejected"
	ErrCodeFeatureDisabled  = "feature_disabled"
	ErrCodeMethodNotAllowed = "method_not_allowed"
)

// writeError classifies err and writes the matching envelope. Unclassified
// errors never leak their text to the client; it is logged under the
// envelope's correlation id instead.
func writeError(c *gin.Context, err error) {
	var (
		ve *validation.Error
		nf *services.NotFoundError
		is *services.IllegalStateError
		cm *services.ConcurrentModificationError
		br *services.BusinessRuleError
		ie *integration.Error
		mb *http.MaxBytesError
	)
	switch {
	case errors.As(err, &ve):
		respond(c, err, http.StatusBadRequest, ErrorResponse{
			Code: ErrCodeValidation, Message: "request validation failed", Violations: ve.Violations,
		})
	case errors.As(err, &nf):
		respond(c, err, http.StatusNotFound, ErrorResponse{
			Code: ErrCodeNotFound, Message: nf.Error(), Resource: nf.Resource, ResourceID: nf.ID,
		})
	case errors.As(err, &is):
		respond(c, err, http.StatusConflict, ErrorResponse{
			Code: ErrCodeIllegalState, Message: is.Error(), Resource: is.Resource, ResourceID: is.ID,
		})
	case errors.As(err, &cm):
		respond(c, err, http.StatusConflict, ErrorResponse{
			Code: ErrCodeConflict, Message: cm.Error(), Resource: cm.Resource, ResourceID: cm.ID,
		})
	case errors.As(err, &br):
		respond(c, err, http.StatusUnprocessableEntity, ErrorResponse{
			Code: ErrCodeBusinessRule, Message: br.Message, Rule: br.Rule,
		})
	case errors.As(err, &ie):
		status, code := integrationStatus(ie.Kind)
		respond(c, err, status, ErrorResponse{Code: code, Message: ie.Error(), Integration: ie.Integration})
	case errors.As(err, &mb):
		respond(c, err, http.StatusRequestEntityTooLarge, ErrorResponse{
			Code: ErrCodeTooLarge, Message: "request body too large",
		})
	case errors.Is(err, services.ErrExportDisabled):
		respond(c, err, http.StatusServiceUnavailable, ErrorResponse{
			Code: ErrCodeFeatureDisabled, Message: err.Error(),
		})
	case errors.Is(err, integration.ErrExecutorClosed):
		respond(c, err, http.StatusServiceUnavailable, ErrorResponse{
			Code: ErrCodeUnavailable, Message: "server is shutting down",
		})
	case errors.Is(err, context.DeadlineExceeded):
		respond(c, err, http.StatusGatewayTimeout, ErrorResponse{
			Code: ErrCodeIntegrationTO, Message: "operation did not finish in time",
		})
	default:
		respond(c, err, http.StatusInternalServerError, ErrorResponse{
			Code: ErrCodeInternal, Message: "internal server error",
		})
	}
}

func integrationStatus(k integration.Kind) (int, string) {
	switch k {
	case integration.KindTimeout:
		return http.StatusGatewayTimeout, ErrCodeIntegrationTO
	case integration.KindRejected:
		return http.StatusUnprocessableEntity, ErrCodeIntegrationNo
	default:
		return http.StatusBadGateway, ErrCodeIntegrationDown
	}
}
