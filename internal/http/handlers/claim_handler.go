// Claim HTTP handlers.
//
// This file exposes REST endpoints for claim resources:
//   - POST   /claims                   (file a claim, Idempotency-Key aware)
//   - GET    /claims                   (list, paginated, ETag support)
//   - GET    /claims/{id}              (read)
//   - PATCH  /claims/{id}/status       (workflow transition)
//   - POST   /claims/{id}/documents    (multipart upload, field "file")
//   - GET    /claims/{id}/documents    (list)
//   - POST   /claims/{id}/payments     (SpeedPay disbursement, Idempotency-Key aware)
//   - GET    /claims/{id}/payments     (list)
//
// Idempotency:
// When IdempotencyValidator matched an earlier outcome for the caller's
// Idempotency-Key, the stored resource is returned with
// `Idempotency-Replayed: true` and nothing is executed again.
package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-policy-admin/internal/domain"
	"github.com/tbourn/go-policy-admin/internal/repo"
	"github.com/tbourn/go-policy-admin/internal/services"
	"github.com/tbourn/go-policy-admin/internal/validation"
)

// CreateClaim godoc
// @ID          createClaim
// @Summary     File a claim
// @Description Files a PENDING claim against a policy in force on the incident date. Supports idempotency via the Idempotency-Key header.
// @Tags        Claims
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       Idempotency-Key  header  string                 false  "Idempotency key for safe retries"
// @Param       body             body    handlers.ClaimRequest  true   "Claim payload"
// @Success     201  {object}  handlers.ClaimResponse
// @Header      201  {string}  Location  "URL of the new claim"
// @Failure     400  {object}  handlers.ErrorResponse  "Validation failed"
// @Router      /claims [post]
func (h *Handlers) CreateClaim(c *gin.Context) {
	ctx := c.Request.Context()
	if id, replayed := replay(c); replayed {
		if cl, err := h.claims.Get(ctx, id); err == nil {
			created(c, cl.ID, claimResponse(cl))
			return
		}
	}

	var req ClaimRequest
	if !bindJSON(c, &req) {
		return
	}
	in, err := req.input()
	if err != nil {
		writeError(c, err)
		return
	}
	cl, err := h.claims.Create(ctx, in)
	if err != nil {
		writeError(c, err)
		return
	}
	h.remember(c, cl.ID, http.StatusCreated)
	created(c, cl.ID, claimResponse(cl))
}

// ListClaims godoc
// @ID          listClaims
// @Summary     List claims (paginated)
// @Description Returns a page of claims, newest first. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Claims
// @Produce     json
// @Security    BearerAuth
// @Param       policy_id      query   int     false "Filter by policy"
// @Param       status         query   string  false "Filter by status"  Enums(PENDING,IN_REVIEW,APPROVED,REJECTED,CLOSED)
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"
// @Param       page           query   int     false "Page number"     minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"  minimum(1) maximum(100) default(20)
// @Success     200  {object} handlers.ListClaimsResponse
// @Success     304  {string} string "Not Modified"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Router      /claims [get]
func (h *Handlers) ListClaims(c *gin.Context) {
	ctx := c.Request.Context()
	page, pageSize := clampPagination(c)

	var f repo.ClaimFilter
	if s := c.Query("policy_id"); s != "" {
		id, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			writeError(c, validation.Fail("policy_id", "must be a positive integer"))
			return
		}
		f.PolicyID = id
	}
	if s := strings.TrimSpace(c.Query("status")); s != "" {
		f.Status = domain.ClaimStatus(validation.NormalizeCode(s))
		if !f.Status.Valid() {
			writeError(c, validation.Fail("status", "unknown claim status"))
			return
		}
	}

	if h.notModified(c, "claims", func() (int64, *time.Time, error) {
		return repo.ClaimsStats(ctx, h.db, f)
	}) {
		return
	}

	items, total, err := h.claims.List(ctx, f, page, pageSize)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, ListClaimsResponse{
		Claims:     mapSlice(items, claimResponse),
		Pagination: newPagination(page, pageSize, total),
	})
}

// GetClaim godoc
// @ID          getClaim
// @Summary     Get a claim
// @Tags        Claims
// @Produce     json
// @Security    BearerAuth
// @Param       id   path  int  true  "Claim ID"
// @Success     200  {object}  handlers.ClaimResponse
// @Failure     404  {object}  handlers.ErrorResponse  "Claim not found"
// @Router      /claims/{id} [get]
func (h *Handlers) GetClaim(c *gin.Context) {
	id, okID := pathID(c)
	if !okID {
		return
	}
	cl, err := h.claims.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, claimResponse(cl))
}

// UpdateClaimStatus godoc
// @ID          updateClaimStatus
// @Summary     Move a claim through its workflow
// @Description PENDING -> IN_REVIEW -> APPROVED|REJECTED -> CLOSED.
// @Tags        Claims
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id    path  int                          true  "Claim ID"
// @Param       body  body  handlers.ClaimStatusRequest  true  "Target status"
// @Success     200  {object}  handlers.ClaimResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Unknown status"
// @Failure     404  {object}  handlers.ErrorResponse  "Claim not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Transition not allowed or stale version"
// @Router      /claims/{id}/status [patch]
func (h *Handlers) UpdateClaimStatus(c *gin.Context) {
	id, okID := pathID(c)
	if !okID {
		return
	}
	var req ClaimStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	target := domain.ClaimStatus(validation.NormalizeCode(req.Status))
	cl, err := h.claims.UpdateStatus(c.Request.Context(), id, target, req.Version)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, claimResponse(cl))
}

// UploadClaimDocument godoc
// @ID          uploadClaimDocument
// @Summary     Attach a document to a claim
// @Description Accepts PDF, JPEG or PNG up to 10 MiB. The declared type must match the content.
// @Tags        Claims
// @Accept      mpfd
// @Produce     json
// @Security    BearerAuth
// @Param       id    path      int   true  "Claim ID"
// @Param       file  formData  file  true  "Document"
// @Success     200  {object}  domain.ClaimDocument
// @Failure     400  {object}  handlers.ErrorResponse  "Validation failed"
// @Failure     404  {object}  handlers.ErrorResponse  "Claim not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Claim closed"
// @Failure     413  {object}  handlers.ErrorResponse  "Request body too large"
// @Router      /claims/{id}/documents [post]
func (h *Handlers) UploadClaimDocument(c *gin.Context) {
	id, okID := pathID(c)
	if !okID {
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		var mb *http.MaxBytesError
		if errors.As(err, &mb) {
			writeError(c, err)
			return
		}
		writeError(c, validation.Fail("file", "multipart field \"file\" is required"))
		return
	}
	f, err := fh.Open()
	if err != nil {
		writeError(c, err)
		return
	}
	defer f.Close()

	doc, err := h.claims.UploadDocument(c.Request.Context(), id, services.Upload{
		FileName:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Body:        f,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, doc)
}

// ListClaimDocuments godoc
// @ID          listClaimDocuments
// @Summary     List documents of a claim
// @Tags        Claims
// @Produce     json
// @Security    BearerAuth
// @Param       id   path  int  true  "Claim ID"
// @Success     200  {array}   domain.ClaimDocument
// @Failure     404  {object}  handlers.ErrorResponse  "Claim not found"
// @Router      /claims/{id}/documents [get]
func (h *Handlers) ListClaimDocuments(c *gin.Context) {
	id, okID := pathID(c)
	if !okID {
		return
	}
	docs, err := h.claims.ListDocuments(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, docs)
}

// ProcessClaimPayment godoc
// @ID          processClaimPayment
// @Summary     Disburse a payment on a claim
// @Description Reserves the amount against the claim and waits for SpeedPay. Supports idempotency via the Idempotency-Key header.
// @Tags        Claims
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       Idempotency-Key  header  string                   false  "Idempotency key for safe retries"
// @Param       id               path    int                      true   "Claim ID"
// @Param       body             body    handlers.PaymentRequest  true   "Payment payload"
// @Success     200  {object}  handlers.PaymentResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Validation failed"
// @Failure     404  {object}  handlers.ErrorResponse  "Claim not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Claim does not accept payments"
// @Failure     422  {object}  handlers.ErrorResponse  "Amount not positive or over the claim, or declined"
// @Failure     502  {object}  handlers.ErrorResponse  "SpeedPay unavailable"
// @Failure     504  {object}  handlers.ErrorResponse  "SpeedPay timed out"
// @Router      /claims/{id}/payments [post]
func (h *Handlers) ProcessClaimPayment(c *gin.Context) {
	id, okID := pathID(c)
	if !okID {
		return
	}
	ctx := c.Request.Context()
	if pid, replayed := replay(c); replayed && h.db != nil {
		if p, err := repo.GetPayment(ctx, h.db, pid); err == nil && p.ClaimID == id {
			ok(c, http.StatusOK, paymentResponse(p))
			return
		}
	}

	var req PaymentRequest
	if !bindJSON(c, &req) {
		return
	}
	fut, err := h.claims.ProcessPayment(ctx, id, req.Amount, domain.PaymentMethod(req.Method))
	if err != nil {
		writeError(c, err)
		return
	}
	p, err := fut.Await(ctx)
	if err != nil {
		writeError(c, err)
		return
	}
	h.remember(c, p.ID, http.StatusOK)
	ok(c, http.StatusOK, paymentResponse(p))
}

// ListClaimPayments godoc
// @ID          listClaimPayments
// @Summary     List payments of a claim
// @Tags        Claims
// @Produce     json
// @Security    BearerAuth
// @Param       id   path  int  true  "Claim ID"
// @Success     200  {array}   handlers.PaymentResponse
// @Failure     404  {object}  handlers.ErrorResponse  "Claim not found"
// @Router      /claims/{id}/payments [get]
func (h *Handlers) ListClaimPayments(c *gin.Context) {
	id, okID := pathID(c)
	if !okID {
		return
	}
	items, err := h.claims.ListPayments(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, mapSlice(items, paymentResponse))
}
