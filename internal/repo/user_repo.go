package repo

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/tbourn/go-policy-admin/internal/domain"
)

// RolesByName resolves seeded role rows; an unknown name is an error.
func RolesByName(ctx context.Context, db *gorm.DB, names []domain.RoleName) ([]domain.Role, error) {
	if len(names) == 0 {
		return nil, nil
	}
	var out []domain.Role
	if err := db.WithContext(ctx).Where("name IN ?", names).Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) != len(uniqueRoles(names)) {
		return nil, fmt.Errorf("unknown role in %v", names)
	}
	return out, nil
}

func uniqueRoles(names []domain.RoleName) map[domain.RoleName]struct{} {
	set := make(map[domain.RoleName]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}

// CreateUser inserts u and links its (already resolved) roles.
func CreateUser(ctx context.Context, db *gorm.DB, u *domain.User) error {
	err := db.WithContext(ctx).
		Omit("Roles.*"). // link existing roles, never upsert them
		Create(u).Error
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// GetUser fetches a user with roles, or ErrNotFound.
func GetUser(ctx context.Context, db *gorm.DB, id uint64) (*domain.User, error) {
	var u domain.User
	if err := db.WithContext(ctx).Preload("Roles").First(&u, id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUserByUsername fetches a user by its unique username, or ErrNotFound.
func GetUserByUsername(ctx context.Context, db *gorm.DB, username string) (*domain.User, error) {
	var u domain.User
	err := db.WithContext(ctx).
		Preload("Roles").
		Where("username = ?", username).
		First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// CountUsers returns the total number of users.
func CountUsers(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.User{}).Count(&total).Error
	return total, err
}

// ListUsersPage returns a page of users ordered by id.
func ListUsersPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.User, error) {
	var out []domain.User
	err := db.WithContext(ctx).
		Preload("Roles").
		Order("id").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// UpdateUser rewrites the account flags and replaces the role set.
func UpdateUser(ctx context.Context, db *gorm.DB, u *domain.User) error {
	res := db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ?", u.ID).
		Updates(map[string]any{
			"enabled": u.Enabled,
			"locked":  u.Locked,
			"expired": u.Expired,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return db.WithContext(ctx).
		Model(&domain.User{ID: u.ID}).
		Association("Roles").
		Replace(u.Roles)
}
