package repo

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-policy-admin/internal/domain"
)

// ClaimFilter narrows claim listings. Zero values match everything.
type ClaimFilter struct {
	PolicyID uint64
	Status   domain.ClaimStatus
}

func (f ClaimFilter) apply(q *gorm.DB) *gorm.DB {
	if f.PolicyID != 0 {
		q = q.Where("policy_id = ?", f.PolicyID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	return q
}

// CreateClaim inserts c; a taken claim number yields ErrDuplicate.
func CreateClaim(ctx context.Context, db *gorm.DB, c *domain.Claim) error {
	err := db.WithContext(ctx).Omit(clause.Associations).Create(c).Error
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// GetClaim fetches a claim by id, or ErrNotFound.
func GetClaim(ctx context.Context, db *gorm.DB, id uint64) (*domain.Claim, error) {
	var c domain.Claim
	if err := db.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// CountClaims returns the number of claims matching f.
func CountClaims(ctx context.Context, db *gorm.DB, f ClaimFilter) (int64, error) {
	var total int64
	err := f.apply(db.WithContext(ctx).Model(&domain.Claim{})).Count(&total).Error
	return total, err
}

// ListClaimsPage returns a page of claims matching f, newest first.
func ListClaimsPage(ctx context.Context, db *gorm.DB, f ClaimFilter, offset, limit int) ([]domain.Claim, error) {
	var out []domain.Claim
	err := f.apply(db.WithContext(ctx)).
		Order("id desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// UpdateClaimStatus moves a claim to status under the expected version.
func UpdateClaimStatus(ctx context.Context, db *gorm.DB, id uint64, expected int64, status domain.ClaimStatus) error {
	return updateVersioned(ctx, db, &domain.Claim{}, id, expected, map[string]any{"status": status})
}

// SetClaimPaidAmount rewrites paid_amount under the expected version.
func SetClaimPaidAmount(ctx context.Context, db *gorm.DB, id uint64, expected int64, paid decimal.Decimal) error {
	return updateVersioned(ctx, db, &domain.Claim{}, id, expected, map[string]any{"paid_amount": paid})
}

// TouchClaim bumps the claim version without changing data. Writers that
// must not interleave (payment issuance) claim the row this way.
func TouchClaim(ctx context.Context, db *gorm.DB, id uint64, expected int64) error {
	return updateVersioned(ctx, db, &domain.Claim{}, id, expected, map[string]any{})
}

// CreateDocument inserts immutable document metadata.
func CreateDocument(ctx context.Context, db *gorm.DB, d *domain.ClaimDocument) error {
	if d.UploadedAt.IsZero() {
		d.UploadedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).Create(d).Error
}

// ListDocuments returns the documents of a claim in upload order.
func ListDocuments(ctx context.Context, db *gorm.DB, claimID uint64) ([]domain.ClaimDocument, error) {
	var out []domain.ClaimDocument
	err := db.WithContext(ctx).
		Where("claim_id = ?", claimID).
		Order("id").
		Find(&out).Error
	return out, err
}
