package repo

import (
	"context"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-policy-admin/internal/domain"
)

// newTestDB opens a unique in-memory database per test so schemas never leak
// across tests. When migrate is true the full schema plus role seed is applied.
func newTestDB(t *testing.T, migrate bool) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:repo_%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if migrate {
		if err := AutoMigrate(db); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

func day(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func seedPolicy(t *testing.T, db *gorm.DB, number string, status domain.PolicyStatus) *domain.Policy {
	t.Helper()
	p := &domain.Policy{
		PolicyNumber:  number,
		Status:        status,
		TotalPremium:  decimal.RequireFromString("1200.00"),
		EffectiveDate: day(2024, 1, 1),
		ExpiryDate:    day(2024, 12, 31),
		Version:       1,
		Coverages: []domain.Coverage{
			{Type: "COLLISION", Limit: decimal.NewFromInt(50000), Deductible: decimal.NewFromInt(500)},
		},
	}
	if err := CreatePolicy(context.Background(), db, p); err != nil {
		t.Fatalf("seed policy: %v", err)
	}
	return p
}

func seedClaim(t *testing.T, db *gorm.DB, policyID uint64, number string, amount string) *domain.Claim {
	t.Helper()
	c := &domain.Claim{
		ClaimNumber:  number,
		Status:       domain.ClaimPending,
		ClaimAmount:  decimal.RequireFromString(amount),
		PaidAmount:   decimal.Zero,
		IncidentDate: day(2024, 3, 1),
		ReportedDate: day(2024, 3, 2),
		PolicyID:     policyID,
		Version:      1,
	}
	if err := CreateClaim(context.Background(), db, c); err != nil {
		t.Fatalf("seed claim: %v", err)
	}
	return c
}
