// Package repo implements the data persistence layer for domain entities,
// backed by GORM.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations. They
// follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a row is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - A versioned write whose expected version no longer matches returns
//     ErrStaleVersion; the caller decides how to surface it.
//   - A unique-index violation on insert returns ErrDuplicate.
//   - On other DB errors the raw gorm error is propagated.
//
// Usage:
//
//	p, err := repo.GetPolicy(ctx, db, id)
//	if errors.Is(err, repo.ErrNotFound) {
//	    // handle missing
//	}
//	err = repo.UpdatePolicyStatus(ctx, db, id, p.Version, domain.PolicyActive, nil)
//	if errors.Is(err, repo.ErrStaleVersion) {
//	    // someone else won the race
//	}
package repo

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// ErrStaleVersion indicates the row exists but its version moved on.
var ErrStaleVersion = errors.New("stale version")

// ErrDuplicate indicates a unique index rejected the insert.
var ErrDuplicate = errors.New("duplicate")

// isUniqueViolation recognizes duplicate-key errors from both drivers.
// glebarez/sqlite often returns plain-text errors for UNIQUE violations.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique") ||
		strings.Contains(low, "duplicate key value") ||
		strings.Contains(low, "sqlstate 23505")
}

// updateVersioned applies updates to the row (id, expected) of model and bumps
// its version. Zero rows affected means either the row is gone (ErrNotFound)
// or its version changed (ErrStaleVersion).
func updateVersioned(ctx context.Context, db *gorm.DB, model any, id uint64, expected int64, updates map[string]any) error {
	updates["version"] = gorm.Expr("version + 1")
	res := db.WithContext(ctx).
		Model(model).
		Where("id = ? AND version = ?", id, expected).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}
	var n int64
	if err := db.WithContext(ctx).Model(model).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return ErrStaleVersion
}
