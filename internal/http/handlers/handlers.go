// Handler wiring and shared request plumbing.
//
// Handlers are transport-thin: they bind and parse input, call application
// services, and translate results into HTTP responses. Business errors are
// classified in one place (writeError) so every endpoint maps them the same
// way.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tbourn/go-policy-admin/internal/domain"
	"github.com/tbourn/go-policy-admin/internal/http/middleware"
	"github.com/tbourn/go-policy-admin/internal/integration"
	"github.com/tbourn/go-policy-admin/internal/repo"
	"github.com/tbourn/go-policy-admin/internal/services"
	"github.com/tbourn/go-policy-admin/internal/utils"
)

//
// Service contracts (context-aware)
//

// PolicyService defines the policy lifecycle consumed by HTTP handlers.
type PolicyService interface {
	Create(ctx context.Context, in services.PolicyInput) (*domain.Policy, error)
	Get(ctx context.Context, id uint64) (*domain.Policy, error)
	List(ctx context.Context, f repo.PolicyFilter, page, pageSize int) ([]domain.Policy, int64, error)
	Update(ctx context.Context, id uint64, in services.PolicyInput, expected int64) (*domain.Policy, error)
	Transition(ctx context.Context, id uint64, target domain.PolicyStatus, expected int64) (*domain.Policy, error)
	Terminate(ctx context.Context, id uint64, date time.Time) (*domain.Policy, error)
	ExportToExternalSystem(ctx context.Context, id uint64) (*domain.PolicyExport, *integration.Future[*domain.PolicyExport], error)
	ListExports(ctx context.Context, id uint64) ([]domain.PolicyExport, error)
}

// ClaimService defines the claim lifecycle consumed by HTTP handlers.
type ClaimService interface {
	Create(ctx context.Context, in services.ClaimInput) (*domain.Claim, error)
	Get(ctx context.Context, id uint64) (*domain.Claim, error)
	List(ctx context.Context, f repo.ClaimFilter, page, pageSize int) ([]domain.Claim, int64, error)
	UpdateStatus(ctx context.Context, id uint64, target domain.ClaimStatus, expected int64) (*domain.Claim, error)
	UploadDocument(ctx context.Context, id uint64, up services.Upload) (*domain.ClaimDocument, error)
	ListDocuments(ctx context.Context, id uint64) ([]domain.ClaimDocument, error)
	ProcessPayment(ctx context.Context, id uint64, amount decimal.Decimal, method domain.PaymentMethod) (*integration.Future[*domain.Payment], error)
	ListPayments(ctx context.Context, id uint64) ([]domain.Payment, error)
}

// UserService defines user administration.
type UserService interface {
	Create(ctx context.Context, in services.UserInput) (*domain.User, error)
	Get(ctx context.Context, id uint64) (*domain.User, error)
	List(ctx context.Context, page, pageSize int) ([]domain.User, int64, error)
	Update(ctx context.Context, id uint64, in services.UserInput) (*domain.User, error)
}

// LookupService defines the underwriting lookups.
type LookupService interface {
	VerifyLicense(ctx context.Context, req integration.VerificationRequest) (integration.Verification, error)
	LossHistory(ctx context.Context, req integration.HistoryRequest) (integration.Report, error)
}

// Probe reports the health of named dependencies (nil error = healthy).
type Probe func(ctx context.Context) map[string]error

//
// Handler wiring
//

// Deps carries everything New needs. DB backs idempotency records,
// conditional list responses and the readiness probe.
type Deps struct {
	Policies PolicyService
	Claims   ClaimService
	Users    UserService
	Lookups  LookupService

	DB             *gorm.DB
	IdempotencyTTL time.Duration
	// Integrations is reported by /health/ready; nil skips it.
	Integrations Probe
	ReadyTimeout time.Duration
}

// Handlers groups HTTP endpoints for policies, claims, users and lookups.
type Handlers struct {
	policies PolicyService
	claims   ClaimService
	users    UserService
	lookups  LookupService

	db           *gorm.DB
	idemTTL      time.Duration
	integrations Probe
	readyTimeout time.Duration
}

// New constructs and returns a Handlers instance bound to the given services.
func New(d Deps) *Handlers {
	if d.IdempotencyTTL <= 0 {
		d.IdempotencyTTL = 24 * time.Hour
	}
	if d.ReadyTimeout <= 0 {
		d.ReadyTimeout = 2 * time.Second
	}
	return &Handlers{
		policies:     d.Policies,
		claims:       d.Claims,
		users:        d.Users,
		lookups:      d.Lookups,
		db:           d.DB,
		idemTTL:      d.IdempotencyTTL,
		integrations: d.Integrations,
		readyTimeout: d.ReadyTimeout,
	}
}

//
// Pagination
//

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

func newPagination(page, pageSize int, total int64) Pagination {
	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
	}
}

// clampPagination reads the page and page_size query params.
func clampPagination(c *gin.Context) (page, pageSize int) {
	return utils.ParsePage(c.Query("page"), c.Query("page_size"))
}

// notModified sets a weak ETag derived from the collection, its size, its
// newest update and the query string, and reports whether the client's If-None-Match already matches.
// Failures only skip the optimization.
func (h *Handlers) notModified(c *gin.Context, kind string, stats func() (int64, *time.Time, error)) bool {
	if h.db == nil {
		return false
	}
	count, maxTS, err := stats()
	if err != nil {
		return false
	}
	var ts int64
	if maxTS != nil {
		ts = maxTS.UnixNano()
	}
	etag := fmt.Sprintf(`W/"%s:%d:%d:%s"`, kind, count, ts, c.Request.URL.RawQuery)
	c.Header("ETag", etag)
	if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
		c.Status(http.StatusNotModified)
		return true
	}
	return false
}

//
// Request plumbing
//

// pathID parses the :id parameter, answering 400 when it is not a positive
// integer.
func pathID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "id must be a positive integer")
		return 0, false
	}
	return id, true
}

// bindJSON decodes the body into dst, answering 413 for oversized bodies and
// 400 for malformed ones.
func bindJSON(c *gin.Context, dst any) bool {
	err := c.ShouldBindJSON(dst)
	if err == nil {
		return true
	}
	var mb *http.MaxBytesError
	if errors.As(err, &mb) {
		writeError(c, err)
		return false
	}
	fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
	return false
}

//
// Idempotency
//

// replay reports whether IdempotencyValidator matched an earlier outcome and
// returns the resource it created.
func replay(c *gin.Context) (uint64, bool) {
	id, ok := middleware.ReplayOf(c)
	if ok {
		c.Header("Idempotency-Replayed", "true")
	}
	return id, ok
}

// remember records the outcome for the request's Idempotency-Key, if any.
// Best effort: a lost record only means a retry executes again.
func (h *Handlers) remember(c *gin.Context, resourceID uint64, status int) {
	key, ok := middleware.GetIdempotencyKey(c)
	if !ok || h.db == nil {
		return
	}
	_, err := repo.CreateIdempotency(c.Request.Context(), h.db, middleware.ActorFrom(c),
		middleware.IdempotencyScope(c), key, resourceID, status, h.idemTTL)
	if err != nil {
		middleware.LoggerFrom(c).Warn().Err(err).Str("key", key).Msg("idempotency record not stored")
	}
}
