// Package services – UserService
//
// UserService manages operator accounts and their role grants. Roles are a
// fixed seeded set; a request naming an unknown role is a validation error.
package services

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-policy-admin/internal/domain"
	"github.com/tbourn/go-policy-admin/internal/events"
	"github.com/tbourn/go-policy-admin/internal/repo"
	"github.com/tbourn/go-policy-admin/internal/validation"
)

// UserService implements the user administration use-cases.
type UserService struct {
	DB        *gorm.DB
	Validator *validation.Validator
	Events    events.Publisher
}

// UserInput carries the editable fields of an account. Username is ignored
// on update. An empty role list means USER.
type UserInput struct {
	Username string
	Enabled  bool
	Locked   bool
	Expired  bool
	Roles    []domain.RoleName
}

func (in UserInput) roleNames() []domain.RoleName {
	if len(in.Roles) == 0 {
		return []domain.RoleName{domain.RoleUser}
	}
	out := make([]domain.RoleName, 0, len(in.Roles))
	for _, r := range in.Roles {
		out = append(out, domain.RoleName(validation.NormalizeCode(string(r))))
	}
	return out
}

// Create registers a new account.
func (s *UserService) Create(ctx context.Context, in UserInput) (u *domain.User, err error) {
	ctx, span := startSpan(ctx, "UserService", "Create")
	defer func() { finishSpan(span, err) }()

	u = &domain.User{
		Username: validation.NormalizeUsername(in.Username),
		Enabled:  in.Enabled,
		Locked:   in.Locked,
		Expired:  in.Expired,
	}
	if err := s.resolveRoles(ctx, s.DB, u, in.roleNames()); err != nil {
		return nil, err
	}
	if err := repo.CreateUser(ctx, s.DB, u); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, validation.Fail("username", "already exists")
		}
		return nil, err
	}
	events.Emit(ctx, s.Events, events.New(events.UserCreated, u.ID, Actor(ctx), map[string]any{
		"username": u.Username,
	}))
	return u, nil
}

// Get returns account id with its roles.
func (s *UserService) Get(ctx context.Context, id uint64) (*domain.User, error) {
	ctx, span := startSpan(ctx, "UserService", "Get",
		trace.WithAttributes(attribute.Int64("user.id", int64(id))))
	defer span.End()
	return s.load(ctx, s.DB, id)
}

// List returns a page of accounts and the total count.
func (s *UserService) List(ctx context.Context, page, pageSize int) ([]domain.User, int64, error) {
	offset, limit := pageBounds(page, pageSize)
	total, err := repo.CountUsers(ctx, s.DB)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.User{}, 0, nil
	}
	items, err := repo.ListUsersPage(ctx, s.DB, offset, limit)
	return items, total, err
}

// Update rewrites the account flags and role grants of id.
func (s *UserService) Update(ctx context.Context, id uint64, in UserInput) (out *domain.User, err error) {
	ctx, span := startSpan(ctx, "UserService", "Update",
		trace.WithAttributes(attribute.Int64("user.id", int64(id))))
	defer func() { finishSpan(span, err) }()

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		u, err := s.load(ctx, tx, id)
		if err != nil {
			return err
		}
		u.Enabled, u.Locked, u.Expired = in.Enabled, in.Locked, in.Expired
		if err := s.resolveRoles(ctx, tx, u, in.roleNames()); err != nil {
			return err
		}
		if err := repo.UpdateUser(ctx, tx, u); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return &NotFoundError{Resource: "user", ID: id}
			}
			return err
		}
		out = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	events.Emit(ctx, s.Events, events.New(events.UserUpdated, id, Actor(ctx), map[string]any{
		"enabled": out.Enabled,
		"locked":  out.Locked,
		"expired": out.Expired,
	}))
	return out, nil
}

// resolveRoles validates u with the requested role names and swaps them for
// the seeded rows.
func (s *UserService) resolveRoles(ctx context.Context, db *gorm.DB, u *domain.User, names []domain.RoleName) error {
	u.Roles = make([]domain.Role, 0, len(names))
	for _, n := range names {
		u.Roles = append(u.Roles, domain.Role{Name: n})
	}
	if err := s.Validator.User(u); err != nil {
		return err
	}
	roles, err := repo.RolesByName(ctx, db, names)
	if err != nil {
		return validation.Fail("roles", fmt.Sprintf("could not resolve %v", names))
	}
	u.Roles = roles
	return nil
}

func (s *UserService) load(ctx context.Context, db *gorm.DB, id uint64) (*domain.User, error) {
	u, err := repo.GetUser(ctx, db, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, &NotFoundError{Resource: "user", ID: id}
	}
	return u, err
}
