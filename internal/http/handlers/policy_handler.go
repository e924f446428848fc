// Policy HTTP handlers.
//
// This file exposes REST endpoints for policy resources:
//   - POST   /policies                 (create, DRAFT)
//   - GET    /policies                 (list, paginated, ETag support)
//   - GET    /policies/{id}            (read)
//   - PUT    /policies/{id}            (replace, optimistic version)
//   - POST   /policies/{id}/submit     (DRAFT -> PENDING)
//   - POST   /policies/{id}/return     (PENDING -> DRAFT)
//   - POST   /policies/{id}/activate   (-> ACTIVE)
//   - POST   /policies/{id}/cancel     (-> CANCELLED)
//   - POST   /policies/{id}/terminate  (ACTIVE -> TERMINATED)
//   - POST   /policies/{id}/export     (PolicySTAR, sync or ?async=true)
//   - GET    /policies/{id}/exports    (export history)
package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-policy-admin/internal/domain"
	"github.com/tbourn/go-policy-admin/internal/repo"
	"github.com/tbourn/go-policy-admin/internal/validation"
)

// CreatePolicy godoc
// @ID          createPolicy
// @Summary     Create a policy
// @Description Creates a DRAFT policy. Dates are YYYY-MM-DD; money is a decimal string.
// @Tags        Policies
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       body  body  handlers.PolicyRequest  true  "Policy payload"
// @Success     201  {object}  handlers.PolicyResponse
// @Header      201  {string}  Location  "URL of the new policy"
// @Failure     400  {object}  handlers.ErrorResponse  "Validation failed"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /policies [post]
func (h *Handlers) CreatePolicy(c *gin.Context) {
	var req PolicyRequest
	if !bindJSON(c, &req) {
		return
	}
	in, err := req.input()
	if err != nil {
		writeError(c, err)
		return
	}
	p, err := h.policies.Create(c.Request.Context(), in)
	if err != nil {
		writeError(c, err)
		return
	}
	created(c, p.ID, policyResponse(p))
}

// ListPolicies godoc
// @ID          listPolicies
// @Summary     List policies (paginated)
// @Description Returns a page of policies, newest first. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Policies
// @Produce     json
// @Security    BearerAuth
// @Param       status         query   string  false "Filter by status"  Enums(DRAFT,PENDING,ACTIVE,TERMINATED,EXPIRED,CANCELLED)
// @Param       owner_id       query   int     false "Filter by owner"
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"
// @Param       page           query   int     false "Page number"     minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"  minimum(1) maximum(100) default(20)
// @Success     200  {object} handlers.ListPoliciesResponse
// @Header      200  {string} ETag  "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /policies [get]
func (h *Handlers) ListPolicies(c *gin.Context) {
	ctx := c.Request.Context()
	page, pageSize := clampPagination(c)

	var f repo.PolicyFilter
	if s := strings.TrimSpace(c.Query("status")); s != "" {
		f.Status = domain.PolicyStatus(validation.NormalizeCode(s))
		if !f.Status.Valid() {
			writeError(c, validation.Fail("status", "unknown policy status"))
			return
		}
	}
	if s := c.Query("owner_id"); s != "" {
		id, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			writeError(c, validation.Fail("owner_id", "must be a positive integer"))
			return
		}
		f.OwnerID = &id
	}

	if h.notModified(c, "policies", func() (int64, *time.Time, error) {
		return repo.PoliciesStats(ctx, h.db, f)
	}) {
		return
	}

	items, total, err := h.policies.List(ctx, f, page, pageSize)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, ListPoliciesResponse{
		Policies:   mapSlice(items, policyResponse),
		Pagination: newPagination(page, pageSize, total),
	})
}

// GetPolicy godoc
// @ID          getPolicy
// @Summary     Get a policy
// @Tags        Policies
// @Produce     json
// @Security    BearerAuth
// @Param       id   path  int  true  "Policy ID"
// @Success     200  {object}  handlers.PolicyResponse
// @Failure     404  {object}  handlers.ErrorResponse  "Policy not found"
// @Router      /policies/{id} [get]
func (h *Handlers) GetPolicy(c *gin.Context) {
	id, okID := pathID(c)
	if !okID {
		return
	}
	p, err := h.policies.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, policyResponse(p))
}

// UpdatePolicy godoc
// @ID          updatePolicy
// @Summary     Replace a policy
// @Description Replaces the editable fields of a DRAFT, PENDING or ACTIVE policy. The body must carry the version last read.
// @Tags        Policies
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id    path  int                     true  "Policy ID"
// @Param       body  body  handlers.PolicyRequest  true  "Policy payload with version"
// @Success     200  {object}  handlers.PolicyResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Validation failed"
// @Failure     404  {object}  handlers.ErrorResponse  "Policy not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Stale version or terminal status"
// @Router      /policies/{id} [put]
func (h *Handlers) UpdatePolicy(c *gin.Context) {
	id, okID := pathID(c)
	if !okID {
		return
	}
	var req PolicyRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Version < 1 {
		writeError(c, validation.Fail("version", "is required"))
		return
	}
	in, err := req.input()
	if err != nil {
		writeError(c, err)
		return
	}
	p, err := h.policies.Update(c.Request.Context(), id, in, req.Version)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, policyResponse(p))
}

// SubmitPolicy godoc
// @ID          submitPolicy
// @Summary     Submit a draft for underwriting
// @Tags        Policies
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id    path  int                      true  "Policy ID"
// @Param       body  body  handlers.VersionRequest  false "Expected version"
// @Success     200  {object}  handlers.PolicyResponse
// @Failure     404  {object}  handlers.ErrorResponse  "Policy not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Transition not allowed or stale version"
// @Router      /policies/{id}/submit [post]
func (h *Handlers) SubmitPolicy(c *gin.Context) { h.transitionPolicy(c, domain.PolicyPending) }

// ReturnPolicy godoc
// @ID          returnPolicy
// @Summary     Return a pending policy to draft
// @Tags        Policies
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id    path  int                      true  "Policy ID"
// @Param       body  body  handlers.VersionRequest  false "Expected version"
// @Success     200  {object}  handlers.PolicyResponse
// @Failure     409  {object}  handlers.ErrorResponse  "Transition not allowed or stale version"
// @Router      /policies/{id}/return [post]
func (h *Handlers) ReturnPolicy(c *gin.Context) { h.transitionPolicy(c, domain.PolicyDraft) }

// ActivatePolicy godoc
// @ID          activatePolicy
// @Summary     Activate a policy
// @Tags        Policies
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id    path  int                      true  "Policy ID"
// @Param       body  body  handlers.VersionRequest  false "Expected version"
// @Success     200  {object}  handlers.PolicyResponse
// @Failure     404  {object}  handlers.ErrorResponse  "Policy not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Transition not allowed or stale version"
// @Router      /policies/{id}/activate [post]
func (h *Handlers) ActivatePolicy(c *gin.Context) { h.transitionPolicy(c, domain.PolicyActive) }

// CancelPolicy godoc
// @ID          cancelPolicy
// @Summary     Cancel a policy that never went live
// @Tags        Policies
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id    path  int                      true  "Policy ID"
// @Param       body  body  handlers.VersionRequest  false "Expected version"
// @Success     200  {object}  handlers.PolicyResponse
// @Failure     409  {object}  handlers.ErrorResponse  "Transition not allowed or stale version"
// @Router      /policies/{id}/cancel [post]
func (h *Handlers) CancelPolicy(c *gin.Context) { h.transitionPolicy(c, domain.PolicyCancelled) }

func (h *Handlers) transitionPolicy(c *gin.Context, target domain.PolicyStatus) {
	id, okID := pathID(c)
	if !okID {
		return
	}
	var req VersionRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}
	p, err := h.policies.Transition(c.Request.Context(), id, target, req.Version)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, policyResponse(p))
}

// TerminatePolicy godoc
// @ID          terminatePolicy
// @Summary     Terminate an active policy
// @Description Ends an ACTIVE policy on termination_date (default: today); the expiry date becomes that day.
// @Tags        Policies
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id    path  int                        true   "Policy ID"
// @Param       body  body  handlers.TerminateRequest  false  "Termination date"
// @Success     200  {object}  handlers.PolicyResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Malformed date"
// @Failure     404  {object}  handlers.ErrorResponse  "Policy not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Policy not active or date outside the term"
// @Router      /policies/{id}/terminate [post]
func (h *Handlers) TerminatePolicy(c *gin.Context) {
	id, okID := pathID(c)
	if !okID {
		return
	}
	var req TerminateRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}
	ve := &validation.Error{}
	date := parseDate(ve, "termination_date", req.TerminationDate)
	if err := ve.OrNil(); err != nil {
		writeError(c, err)
		return
	}
	p, err := h.policies.Terminate(c.Request.Context(), id, date)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, policyResponse(p))
}

// ExportPolicy godoc
// @ID          exportPolicy
// @Summary     Export a policy to PolicySTAR
// @Description Submits an ACTIVE policy. By default the request waits for the outcome; with async=true it returns 202 and the SUBMITTED record, whose outcome appears under /policies/{id}/exports.
// @Tags        Policies
// @Produce     json
// @Security    BearerAuth
// @Param       id     path   int   true   "Policy ID"
// @Param       async  query  bool  false  "Do not wait for PolicySTAR"
// @Success     200  {object}  handlers.ExportResponse
// @Success     202  {object}  handlers.ExportResponse
// @Failure     404  {object}  handlers.ErrorResponse  "Policy not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Policy not active"
// @Failure     502  {object}  handlers.ErrorResponse  "PolicySTAR unavailable"
// @Failure     503  {object}  handlers.ErrorResponse  "Export disabled"
// @Failure     504  {object}  handlers.ErrorResponse  "PolicySTAR timed out"
// @Router      /policies/{id}/export [post]
func (h *Handlers) ExportPolicy(c *gin.Context) {
	id, okID := pathID(c)
	if !okID {
		return
	}
	ctx := c.Request.Context()
	rec, fut, err := h.policies.ExportToExternalSystem(ctx, id)
	if err != nil {
		writeError(c, err)
		return
	}
	if async, _ := strconv.ParseBool(c.Query("async")); async {
		c.Header("Location", strings.TrimSuffix(c.Request.URL.Path, "/export")+"/exports")
		ok(c, http.StatusAccepted, exportResponse(rec))
		return
	}
	done, err := fut.Await(ctx)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, exportResponse(done))
}

// ListPolicyExports godoc
// @ID          listPolicyExports
// @Summary     List export attempts of a policy
// @Tags        Policies
// @Produce     json
// @Security    BearerAuth
// @Param       id   path  int  true  "Policy ID"
// @Success     200  {array}   handlers.ExportResponse
// @Failure     404  {object}  handlers.ErrorResponse  "Policy not found"
// @Router      /policies/{id}/exports [get]
func (h *Handlers) ListPolicyExports(c *gin.Context) {
	id, okID := pathID(c)
	if !okID {
		return
	}
	items, err := h.policies.ListExports(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, mapSlice(items, exportResponse))
}
