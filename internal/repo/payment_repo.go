package repo

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tbourn/go-policy-admin/internal/domain"
)

// CreatePayment inserts a new payment row.
func CreatePayment(ctx context.Context, db *gorm.DB, p *domain.Payment) error {
	return db.WithContext(ctx).Create(p).Error
}

// GetPayment fetches a payment by id, or ErrNotFound.
func GetPayment(ctx context.Context, db *gorm.DB, id uint64) (*domain.Payment, error) {
	var p domain.Payment
	if err := db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// ListPayments returns the payments of a claim in creation order.
func ListPayments(ctx context.Context, db *gorm.DB, claimID uint64) ([]domain.Payment, error) {
	var out []domain.Payment
	err := db.WithContext(ctx).
		Where("claim_id = ?", claimID).
		Order("id").
		Find(&out).Error
	return out, err
}

// SumPayments totals the payments of a claim whose status is in statuses.
// Summing happens in decimal arithmetic; SQLite would otherwise round
// through float.
func SumPayments(ctx context.Context, db *gorm.DB, claimID uint64, statuses ...domain.PaymentStatus) (decimal.Decimal, error) {
	var amounts []decimal.Decimal
	err := db.WithContext(ctx).
		Model(&domain.Payment{}).
		Where("claim_id = ? AND status IN ?", claimID, statuses).
		Pluck("amount", &amounts).Error
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.Sum(decimal.Zero, amounts...), nil
}

// TransitionPayment moves a payment from one status to another. The from
// guard makes the write a compare-and-set, so a FAILED or COMPLETED payment
// is never touched again.
func TransitionPayment(ctx context.Context, db *gorm.DB, id uint64, from, to domain.PaymentStatus, extRef, reason string, at *time.Time) error {
	updates := map[string]any{"status": to}
	if extRef != "" {
		updates["external_transaction_id"] = extRef
	}
	if reason != "" {
		updates["failure_reason"] = reason
	}
	if at != nil {
		updates["processed_at"] = *at
	}
	res := db.WithContext(ctx).
		Model(&domain.Payment{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleVersion
	}
	return nil
}

// FailStalePayments marks PENDING payments created before cutoff as FAILED
// with reason. Such payments were reserved but never handed to SpeedPay.
func FailStalePayments(ctx context.Context, db *gorm.DB, cutoff, at time.Time, reason string) (int64, error) {
	res := db.WithContext(ctx).
		Model(&domain.Payment{}).
		Where("status = ? AND created_at < ?", domain.PaymentPending, cutoff).
		Updates(map[string]any{
			"status":         domain.PaymentFailed,
			"failure_reason": reason,
			"processed_at":   at,
		})
	return res.RowsAffected, res.Error
}

// StuckPayments lists PROCESSING payments created before cutoff, oldest
// first. SpeedPay may or may not have settled them.
func StuckPayments(ctx context.Context, db *gorm.DB, cutoff time.Time) ([]domain.Payment, error) {
	var out []domain.Payment
	err := db.WithContext(ctx).
		Where("status = ? AND created_at < ?", domain.PaymentProcessing, cutoff).
		Order("id").
		Find(&out).Error
	return out, err
}
