package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestHealth(t *testing.T) {
	env := newEnv(t)
	w := env.do(t, http.MethodGet, "/health", nil)
	expectStatus(t, w, http.StatusOK)
	if body := decode[map[string]string](t, w); body["status"] != "ok" {
		t.Fatalf("body = %v", body)
	}
}

func TestReady_OK(t *testing.T) {
	env := newEnv(t)
	w := env.do(t, http.MethodGet, "/health/ready", nil)
	expectStatus(t, w, http.StatusOK)
	rr := decode[ReadinessResponse](t, w)
	if rr.Status != "ok" || rr.Checks["database"] != "ok" || rr.Checks["policystar"] != "ok" {
		t.Fatalf("readiness = %+v", rr)
	}
}

func serveReady(h *Handlers) *httptest.ResponseRecorder {
	r := gin.New()
	r.GET("/health/ready", h.Ready)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	return w
}

func TestReady_DatabaseDown(t *testing.T) {
	gin.SetMode(gin.TestMode)
	sqlDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer sqlDB.Close()
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		DisableAutomaticPing: true,
		Logger:               logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("gorm: %v", err)
	}
	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	w := serveReady(New(Deps{DB: db, ReadyTimeout: time.Second}))
	expectStatus(t, w, http.StatusServiceUnavailable)
	rr := decode[ReadinessResponse](t, w)
	if rr.Status != "unavailable" || rr.Checks["database"] != "connection refused" {
		t.Fatalf("readiness = %+v", rr)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestReady_NoDatabase(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := serveReady(New(Deps{}))
	expectStatus(t, w, http.StatusServiceUnavailable)
	if rr := decode[ReadinessResponse](t, w); rr.Checks["database"] != errNoDatabase.Error() {
		t.Fatalf("readiness = %+v", rr)
	}
}

func TestReady_IntegrationDegraded(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := New(Deps{
		DB: newHandlerDB(t),
		Integrations: func(context.Context) map[string]error {
			return map[string]error{"speedpay": errors.New("dial tcp: i/o timeout"), "rmv": nil}
		},
	})
	w := serveReady(h)
	expectStatus(t, w, http.StatusOK)
	rr := decode[ReadinessResponse](t, w)
	if rr.Status != "degraded" || rr.Checks["speedpay"] != "dial tcp: i/o timeout" || rr.Checks["rmv"] != "ok" {
		t.Fatalf("readiness = %+v", rr)
	}
}
