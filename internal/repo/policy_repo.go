package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-policy-admin/internal/domain"
)

// PolicyFilter narrows policy listings. Zero values match everything.
type PolicyFilter struct {
	Status  domain.PolicyStatus
	OwnerID *uint64
}

func (f PolicyFilter) apply(q *gorm.DB) *gorm.DB {
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.OwnerID != nil {
		q = q.Where("owner_id = ?", *f.OwnerID)
	}
	return q
}

// CreatePolicy inserts p together with its coverages. ID and timestamps are
// filled in on success; a taken policy number yields ErrDuplicate.
func CreatePolicy(ctx context.Context, db *gorm.DB, p *domain.Policy) error {
	err := db.WithContext(ctx).Omit("Owner").Create(p).Error
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// GetPolicy fetches a policy with its coverages, or ErrNotFound.
func GetPolicy(ctx context.Context, db *gorm.DB, id uint64) (*domain.Policy, error) {
	var p domain.Policy
	err := db.WithContext(ctx).
		Preload("Coverages", func(q *gorm.DB) *gorm.DB { return q.Order("id") }).
		First(&p, id).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CountPolicies returns the number of policies matching f.
func CountPolicies(ctx context.Context, db *gorm.DB, f PolicyFilter) (int64, error) {
	var total int64
	err := f.apply(db.WithContext(ctx).Model(&domain.Policy{})).Count(&total).Error
	return total, err
}

// ListPoliciesPage returns a page of policies matching f, newest first.
// The caller computes offset and limit (e.g., (page-1)*pageSize).
func ListPoliciesPage(ctx context.Context, db *gorm.DB, f PolicyFilter, offset, limit int) ([]domain.Policy, error) {
	var out []domain.Policy
	err := f.apply(db.WithContext(ctx)).
		Preload("Coverages", func(q *gorm.DB) *gorm.DB { return q.Order("id") }).
		Order("id desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// UpdatePolicy persists the mutable fields of p under the expected version
// and replaces its coverages wholesale. Run it inside a transaction so the
// coverage swap is atomic with the version bump. On success p.Version is the
// new version.
func UpdatePolicy(ctx context.Context, db *gorm.DB, p *domain.Policy, expected int64) error {
	err := updateVersioned(ctx, db, &domain.Policy{}, p.ID, expected, map[string]any{
		"policy_number":  p.PolicyNumber,
		"total_premium":  p.TotalPremium,
		"effective_date": p.EffectiveDate,
		"expiry_date":    p.ExpiryDate,
		"owner_id":       p.OwnerID,
	})
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return err
	}
	if err := db.WithContext(ctx).Where("policy_id = ?", p.ID).Delete(&domain.Coverage{}).Error; err != nil {
		return err
	}
	for i := range p.Coverages {
		p.Coverages[i].ID = 0
		p.Coverages[i].PolicyID = p.ID
	}
	if len(p.Coverages) > 0 {
		if err := db.WithContext(ctx).Create(&p.Coverages).Error; err != nil {
			return err
		}
	}
	p.Version = expected + 1
	return nil
}

// UpdatePolicyStatus moves a policy to status under the expected version.
// When expiry is non-nil the expiry date is rewritten in the same statement
// (termination shortens the term).
func UpdatePolicyStatus(ctx context.Context, db *gorm.DB, id uint64, expected int64, status domain.PolicyStatus, expiry *time.Time) error {
	updates := map[string]any{"status": status}
	if expiry != nil {
		updates["expiry_date"] = *expiry
	}
	return updateVersioned(ctx, db, &domain.Policy{}, id, expected, updates)
}

// ListPoliciesDueForExpiry returns ACTIVE policies whose term ended before asOf.
func ListPoliciesDueForExpiry(ctx context.Context, db *gorm.DB, asOf time.Time, limit int) ([]domain.Policy, error) {
	var out []domain.Policy
	err := db.WithContext(ctx).
		Where("status = ? AND expiry_date < ?", domain.PolicyActive, asOf).
		Order("expiry_date").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// CreateExport records a new export attempt.
func CreateExport(ctx context.Context, db *gorm.DB, e *domain.PolicyExport) error {
	return db.WithContext(ctx).Omit(clause.Associations).Create(e).Error
}

// CompleteExport stores the final outcome of an export attempt.
func CompleteExport(ctx context.Context, db *gorm.DB, id uint64, status domain.ExportStatus, reference, errMsg string, at time.Time) error {
	res := db.WithContext(ctx).
		Model(&domain.PolicyExport{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":             status,
			"external_reference": reference,
			"error":              errMsg,
			"completed_at":       at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetExport fetches a single export record.
func GetExport(ctx context.Context, db *gorm.DB, id uint64) (*domain.PolicyExport, error) {
	var e domain.PolicyExport
	if err := db.WithContext(ctx).First(&e, id).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

// ListExports returns the export history of a policy, newest first.
func ListExports(ctx context.Context, db *gorm.DB, policyID uint64) ([]domain.PolicyExport, error) {
	var out []domain.PolicyExport
	err := db.WithContext(ctx).
		Where("policy_id = ?", policyID).
		Order("id desc").
		Find(&out).Error
	return out, err
}
