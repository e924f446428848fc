package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-policy-admin/internal/domain"
	"github.com/tbourn/go-policy-admin/internal/events"
	"github.com/tbourn/go-policy-admin/internal/integration"
	"github.com/tbourn/go-policy-admin/internal/repo"
	"github.com/tbourn/go-policy-admin/internal/validation"
)

// ---------- test helpers ----------

var testNow = func() time.Time { return time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC) }

func day(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

// newSvcDB opens a private in-memory database with the full schema. The pool
// holds a single connection, so transactions from concurrent goroutines
// serialize like row locks would on a server database.
func newSvcDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", uuid.NewString())
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
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func newExecutor(t *testing.T) *integration.Executor {
	t.Helper()
	e := integration.NewExecutor(4)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = e.Shutdown(ctx)
	})
	return e
}

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) Publish(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

func scenarioAInput() PolicyInput {
	return PolicyInput{
		PolicyNumber:  "POL-2024-000001",
		TotalPremium:  decimal.RequireFromString("1200.00"),
		EffectiveDate: day(2024, 1, 1),
		ExpiryDate:    day(2024, 12, 31),
		Coverages: []CoverageInput{
			{Type: "collision", Limit: decimal.NewFromInt(50000), Deductible: decimal.NewFromInt(500)},
		},
	}
}

func newPolicyService(t *testing.T, db *gorm.DB) (*PolicyService, *recorder) {
	t.Helper()
	rec := &recorder{}
	return &PolicyService{
		DB:        db,
		Validator: validation.New(testNow),
		Executor:  newExecutor(t),
		Events:    rec,
	}, rec
}

// activePolicy creates the scenario A policy and activates it.
func activePolicy(t *testing.T, s *PolicyService) *domain.Policy {
	t.Helper()
	ctx := context.Background()
	p, err := s.Create(ctx, scenarioAInput())
	if err != nil {
		t.Fatalf("create policy: %v", err)
	}
	p, err = s.Transition(ctx, p.ID, domain.PolicyActive, p.Version)
	if err != nil {
		t.Fatalf("activate policy: %v", err)
	}
	return p
}

func mustAs[T error](t *testing.T, err error) T {
	t.Helper()
	var target T
	if err == nil {
		t.Fatalf("expected %T, got nil", target)
	}
	if !errors.As(err, &target) {
		t.Fatalf("expected %T, got %T (%v)", target, err, err)
	}
	return target
}
