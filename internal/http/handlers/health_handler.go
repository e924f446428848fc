// Liveness and readiness probes.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-policy-admin/internal/repo"
)

var errNoDatabase = errors.New("database not configured")

// ReadinessResponse reports each dependency as "ok" or its error.
type ReadinessResponse struct {
	Status string            `json:"status" example:"ok"`
	Checks map[string]string `json:"checks"`
}

// Health godoc
// @ID          health
// @Summary     Liveness probe
// @Tags        Ops
// @Produce     json
// @Success     200  {object}  map[string]string
// @Router      /health [get]
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready godoc
// @ID          ready
// @Summary     Readiness probe
// @Description 503 when the database is unreachable. Unreachable integrations only degrade the status, since reads keep working without them.
// @Tags        Ops
// @Produce     json
// @Success     200  {object}  handlers.ReadinessResponse
// @Failure     503  {object}  handlers.ReadinessResponse
// @Router      /health/ready [get]
func (h *Handlers) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.readyTimeout)
	defer cancel()

	resp := ReadinessResponse{Status: "ok", Checks: map[string]string{}}
	status := http.StatusOK

	dbErr := errNoDatabase
	if h.db != nil {
		dbErr = repo.Ping(ctx, h.db)
	}
	if dbErr != nil {
		resp.Checks["database"] = dbErr.Error()
		resp.Status = "unavailable"
		status = http.StatusServiceUnavailable
	} else {
		resp.Checks["database"] = "ok"
	}

	if h.integrations != nil {
		for name, err := range h.integrations(ctx) {
			if err != nil {
				resp.Checks[name] = err.Error()
				if status == http.StatusOK {
					resp.Status = "degraded"
				}
				continue
			}
			resp.Checks[name] = "ok"
		}
	}
	c.JSON(status, resp)
}
