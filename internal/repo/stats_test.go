package repo

import (
	"context"
	"testing"
	"time"

	"github.com/tbourn/go-policy-admin/internal/domain"
)

func TestPoliciesStats_Error_NoTable(t *testing.T) {
	db := newTestDB(t, false)
	if _, _, err := PoliciesStats(context.Background(), db, PolicyFilter{}); err == nil {
		t.Fatalf("expected error due to missing policies table")
	}
}

func TestPoliciesStats_ZeroAndLatest(t *testing.T) {
	db := newTestDB(t, true)
	ctx := context.Background()

	count, maxAt, err := PoliciesStats(ctx, db, PolicyFilter{})
	if err != nil || count != 0 || maxAt != nil {
		t.Fatalf("expected (0, nil, nil), got (%d, %v, %v)", count, maxAt, err)
	}

	seedPolicy(t, db, "POL-2024-000001", domain.PolicyDraft)
	p2 := seedPolicy(t, db, "POL-2024-000002", domain.PolicyActive)
	later := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	db.Model(&domain.Policy{}).Where("id = ?", p2.ID).UpdateColumn("updated_at", later)

	count, maxAt, err = PoliciesStats(ctx, db, PolicyFilter{})
	if err != nil || count != 2 || maxAt == nil || !maxAt.Equal(later) {
		t.Fatalf("unexpected stats: %d %v %v", count, maxAt, err)
	}
	count, _, _ = PoliciesStats(ctx, db, PolicyFilter{Status: domain.PolicyDraft})
	if count != 1 {
		t.Fatalf("filtered count = %d", count)
	}
}

func TestClaimsStats(t *testing.T) {
	db := newTestDB(t, true)
	ctx := context.Background()
	p := seedPolicy(t, db, "POL-2024-000001", domain.PolicyActive)
	seedClaim(t, db, p.ID, "CLM-1", "10")

	count, maxAt, err := ClaimsStats(ctx, db, ClaimFilter{PolicyID: p.ID})
	if err != nil || count != 1 || maxAt == nil {
		t.Fatalf("unexpected stats: %d %v %v", count, maxAt, err)
	}
	count, maxAt, _ = ClaimsStats(ctx, db, ClaimFilter{PolicyID: p.ID + 1})
	if count != 0 || maxAt != nil {
		t.Fatalf("expected empty stats for other policy")
	}
}
