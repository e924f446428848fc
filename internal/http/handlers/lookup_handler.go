// Underwriting lookup handlers: RMV license verification and CLUE loss
// history. Both are read-only and wait for the remote answer within the
// request deadline.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-policy-admin/internal/integration"
)

// VerifyLicense godoc
// @ID          verifyLicense
// @Summary     Verify a driver license at the RMV
// @Tags        Lookups
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       body  body  integration.VerificationRequest  true  "License to verify"
// @Success     200  {object}  integration.Verification
// @Failure     400  {object}  handlers.ErrorResponse  "Validation failed"
// @Failure     502  {object}  handlers.ErrorResponse  "RMV unavailable"
// @Failure     504  {object}  handlers.ErrorResponse  "RMV timed out"
// @Router      /rmv/verifications [post]
func (h *Handlers) VerifyLicense(c *gin.Context) {
	var req integration.VerificationRequest
	if !bindJSON(c, &req) {
		return
	}
	v, err := h.lookups.VerifyLicense(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, v)
}

// LossHistory godoc
// @ID          lossHistory
// @Summary     Retrieve a CLUE loss-history report
// @Tags        Lookups
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       body  body  integration.HistoryRequest  true  "Subject of the report"
// @Success     200  {object}  integration.Report
// @Failure     400  {object}  handlers.ErrorResponse  "Validation failed"
// @Failure     502  {object}  handlers.ErrorResponse  "CLUE unavailable"
// @Failure     504  {object}  handlers.ErrorResponse  "CLUE timed out"
// @Router      /clue/reports [post]
func (h *Handlers) LossHistory(c *gin.Context) {
	var req integration.HistoryRequest
	if !bindJSON(c, &req) {
		return
	}
	r, err := h.lookups.LossHistory(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, r)
}
