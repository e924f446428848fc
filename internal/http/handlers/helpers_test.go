package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-policy-admin/internal/domain"
	"github.com/tbourn/go-policy-admin/internal/events"
	"github.com/tbourn/go-policy-admin/internal/http/middleware"
	"github.com/tbourn/go-policy-admin/internal/integration"
	"github.com/tbourn/go-policy-admin/internal/repo"
	"github.com/tbourn/go-policy-admin/internal/services"
	"github.com/tbourn/go-policy-admin/internal/storage"
	"github.com/tbourn/go-policy-admin/internal/validation"
)

// ---------- test DB ----------

func newHandlerDB(t *testing.T) *gorm.DB {
	t.Helper()

	// Unique DSN per call to avoid cross-test contamination
	dsn := fmt.Sprintf("file:handlers_%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// ---------- integration stubs ----------

type stubExporter struct {
	err   error
	calls atomic.Int32
}

func (s *stubExporter) Export(context.Context, *domain.Policy) (integration.ExportReceipt, error) {
	n := s.calls.Add(1)
	if s.err != nil {
		return integration.ExportReceipt{}, s.err
	}
	return integration.ExportReceipt{Reference: fmt.Sprintf("PS-%d", n), AcceptedAt: time.Now().UTC()}, nil
}

type stubPayer struct {
	err   error
	calls atomic.Int32
}

func (s *stubPayer) Pay(context.Context, integration.PayRequest) (integration.PayReceipt, error) {
	n := s.calls.Add(1)
	if s.err != nil {
		return integration.PayReceipt{}, s.err
	}
	return integration.PayReceipt{TransactionID: fmt.Sprintf("SP-%d", n), Status: "SETTLED"}, nil
}

type stubRMV struct{ err error }

func (s stubRMV) Verify(_ context.Context, req integration.VerificationRequest) (integration.Verification, error) {
	if s.err != nil {
		return integration.Verification{}, s.err
	}
	return integration.Verification{LicenseNumber: req.LicenseNumber, State: req.State, Valid: true, Status: "VALID"}, nil
}

type stubCLUE struct{}

func (stubCLUE) History(_ context.Context, req integration.HistoryRequest) (integration.Report, error) {
	return integration.Report{ReportID: "R-1", Line: req.Line}, nil
}

// ---------- environment ----------

var testNow = func() time.Time { return time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC) }

type testEnv struct {
	db       *gorm.DB
	r        *gin.Engine
	exporter *stubExporter
	payer    *stubPayer
	rmv      *stubRMV
	policies *services.PolicyService
}

// newEnv wires real services over an in-memory database with stubbed
// remote systems, mounted like the production router under /api/v1.
func newEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := newHandlerDB(t)
	exec := integration.NewExecutor(4)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = exec.Shutdown(ctx)
	})
	store, err := storage.NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	v := validation.New(testNow)
	pub := events.LogPublisher{}

	env := &testEnv{db: db, exporter: &stubExporter{}, payer: &stubPayer{}, rmv: &stubRMV{}}
	env.policies = &services.PolicyService{DB: db, Validator: v, Exporter: env.exporter, Executor: exec, Events: pub}
	claims := &services.ClaimService{DB: db, Validator: v, Store: store, Payer: env.payer, Executor: exec, Events: pub}
	users := &services.UserService{DB: db, Validator: v, Events: pub}
	lookups := &services.LookupService{RMV: env.rmv, CLUE: stubCLUE{}, Executor: exec}

	h := New(Deps{
		Policies: env.policies, Claims: claims, Users: users, Lookups: lookups,
		DB: db, IdempotencyTTL: time.Hour,
		Integrations: func(context.Context) map[string]error {
			return map[string]error{"policystar": nil, "speedpay": nil}
		},
	})

	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Authenticate(middleware.AuthOptions{DevHeaders: true}))
	r.Use(middleware.IdempotencyValidator(middleware.IdempotencyOptions{},
		func(ctx context.Context, userID, scope, key string, now time.Time) (uint64, bool, error) {
			rec, err := repo.GetIdempotency(ctx, db, userID, scope, key, now)
			if err != nil {
				return 0, false, nil
			}
			return rec.ResourceID, true, nil
		}))
	r.GET("/health", h.Health)
	r.GET("/health/ready", h.Ready)

	api := r.Group("/api/v1")
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
	api.POST("/claims", h.CreateClaim)
	api.GET("/claims", h.ListClaims)
	api.GET("/claims/:id", h.GetClaim)
	api.PATCH("/claims/:id/status", h.UpdateClaimStatus)
	api.POST("/claims/:id/documents", h.UploadClaimDocument)
	api.GET("/claims/:id/documents", h.ListClaimDocuments)
	api.POST("/claims/:id/payments", h.ProcessClaimPayment)
	api.GET("/claims/:id/payments", h.ListClaimPayments)
	api.POST("/users", h.CreateUser)
	api.GET("/users", h.ListUsers)
	api.GET("/users/:id", h.GetUser)
	api.PUT("/users/:id", h.UpdateUser)
	api.POST("/rmv/verifications", h.VerifyLicense)
	api.POST("/clue/reports", h.LossHistory)

	env.r = r
	return env
}

// do sends a JSON request (body may be nil) with optional header pairs.
func (e *testEnv) do(t *testing.T, method, path string, body any, hdr ...string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			rd = bytes.NewBufferString(b)
		default:
			buf, err := json.Marshal(b)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			rd = bytes.NewReader(buf)
		}
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	w := httptest.NewRecorder()
	e.r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("json: %v (body=%s)", err, w.Body.String())
	}
	return v
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("status = %d; want %d (body=%s)", w.Code, want, w.Body.String())
	}
}

func scenarioAPolicy(number string) gin.H {
	return gin.H{
		"policy_number":  number,
		"total_premium":  "1200.00",
		"effective_date": "2024-01-01",
		"expiry_date":    "2024-12-31",
		"coverages": []gin.H{
			{"type": "collision", "limit": "50000", "deductible": "500"},
		},
	}
}

// activePolicy creates and activates a policy, returning its id.
func (e *testEnv) activePolicy(t *testing.T, number string) uint64 {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/v1/policies", scenarioAPolicy(number))
	expectStatus(t, w, http.StatusCreated)
	p := decode[PolicyResponse](t, w)
	w = e.do(t, http.MethodPost, fmt.Sprintf("/api/v1/policies/%d/activate", p.ID), gin.H{"version": p.Version})
	expectStatus(t, w, http.StatusOK)
	return p.ID
}

// pendingClaim files a claim for amount against policyID.
func (e *testEnv) pendingClaim(t *testing.T, policyID uint64, amount string) ClaimResponse {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/v1/claims", gin.H{
		"policy_id":     policyID,
		"claim_amount":  amount,
		"incident_date": "2024-03-01",
	})
	expectStatus(t, w, http.StatusCreated)
	return decode[ClaimResponse](t, w)
}
