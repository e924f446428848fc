// Small aggregate queries used for conditional responses (ETag generation)
// in the HTTP layer.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-policy-admin/internal/domain"
)

// PoliciesStats returns the number of policies matching f and the greatest
// UpdatedAt among them (nil when there are none).
func PoliciesStats(ctx context.Context, db *gorm.DB, f PolicyFilter) (count int64, maxUpdatedAt *time.Time, err error) {
	return tableStats(f.apply(db.WithContext(ctx).Model(&domain.Policy{})))
}

// ClaimsStats returns the number of claims matching f and the greatest
// UpdatedAt among them (nil when there are none).
func ClaimsStats(ctx context.Context, db *gorm.DB, f ClaimFilter) (count int64, maxUpdatedAt *time.Time, err error) {
	return tableStats(f.apply(db.WithContext(ctx).Model(&domain.Claim{})))
}

func tableStats(q *gorm.DB) (count int64, maxUpdatedAt *time.Time, err error) {
	if err = q.Session(&gorm.Session{}).Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest updated_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		UpdatedAt time.Time
	}
	if err = q.Session(&gorm.Session{}).Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}
