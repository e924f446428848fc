// User HTTP handlers (ADMIN only; the router applies the role guard).
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CreateUser godoc
// @ID          createUser
// @Summary     Create a user
// @Description Roles default to USER. Usernames are case-folded.
// @Tags        Users
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       body  body  handlers.UserRequest  true  "User payload"
// @Success     201  {object}  handlers.UserResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Validation failed"
// @Failure     403  {object}  handlers.ErrorResponse  "Caller is not ADMIN"
// @Router      /users [post]
func (h *Handlers) CreateUser(c *gin.Context) {
	var req UserRequest
	if !bindJSON(c, &req) {
		return
	}
	u, err := h.users.Create(c.Request.Context(), req.input())
	if err != nil {
		writeError(c, err)
		return
	}
	created(c, u.ID, userResponse(u))
}

// ListUsers godoc
// @ID          listUsers
// @Summary     List users (paginated)
// @Tags        Users
// @Produce     json
// @Security    BearerAuth
// @Param       page       query  int  false  "Page number"     minimum(1) default(1)
// @Param       page_size  query  int  false  "Items per page"  minimum(1) maximum(100) default(20)
// @Success     200  {object}  handlers.ListUsersResponse
// @Router      /users [get]
func (h *Handlers) ListUsers(c *gin.Context) {
	page, pageSize := clampPagination(c)
	items, total, err := h.users.List(c.Request.Context(), page, pageSize)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, ListUsersResponse{
		Users:      mapSlice(items, userResponse),
		Pagination: newPagination(page, pageSize, total),
	})
}

// GetUser godoc
// @ID          getUser
// @Summary     Get a user
// @Tags        Users
// @Produce     json
// @Security    BearerAuth
// @Param       id   path  int  true  "User ID"
// @Success     200  {object}  handlers.UserResponse
// @Failure     404  {object}  handlers.ErrorResponse  "User not found"
// @Router      /users/{id} [get]
func (h *Handlers) GetUser(c *gin.Context) {
	id, okID := pathID(c)
	if !okID {
		return
	}
	u, err := h.users.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, userResponse(u))
}

// UpdateUser godoc
// @ID          updateUser
// @Summary     Replace a user
// @Tags        Users
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id    path  int                   true  "User ID"
// @Param       body  body  handlers.UserRequest  true  "User payload"
// @Success     200  {object}  handlers.UserResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Validation failed"
// @Failure     404  {object}  handlers.ErrorResponse  "User not found"
// @Router      /users/{id} [put]
func (h *Handlers) UpdateUser(c *gin.Context) {
	id, okID := pathID(c)
	if !okID {
		return
	}
	var req UserRequest
	if !bindJSON(c, &req) {
		return
	}
	u, err := h.users.Update(c.Request.Context(), id, req.input())
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, userResponse(u))
}
