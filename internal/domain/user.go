package domain

import "time"

// RoleName is an authorization role.
type RoleName string

const (
	RoleAdmin   RoleName = "ADMIN"
	RoleManager RoleName = "MANAGER"
	RoleUser    RoleName = "USER"
	RoleGuest   RoleName = "GUEST"
)

// AllRoles is the seed set written at migration time.
var AllRoles = []RoleName{RoleAdmin, RoleManager, RoleUser, RoleGuest}

// Valid reports whether r is a known role.
func (r RoleName) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleUser, RoleGuest:
		return true
	}
	return false
}

// Role is a named grant; rows are seeded, never created through the API.
type Role struct {
	ID   uint64   `json:"-"    gorm:"primaryKey;autoIncrement"`
	Name RoleName `json:"name" gorm:"type:varchar(16);not null;uniqueIndex:ux_role_name"`
}

// TableName returns the database table name for Role.
func (Role) TableName() string { return "roles" }

// User is an operator of the system. Account flags gate authentication.
type User struct {
	ID        uint64    `json:"id"       gorm:"primaryKey;autoIncrement"`
	Username  string    `json:"username" gorm:"type:varchar(64);not null;uniqueIndex:ux_username"`
	Enabled   bool      `json:"enabled"  gorm:"not null"`
	Locked    bool      `json:"locked"   gorm:"not null"`
	Expired   bool      `json:"expired"  gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Roles []Role `json:"roles" gorm:"many2many:user_roles;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// Active reports whether the account may authenticate.
func (u User) Active() bool { return u.Enabled && !u.Locked && !u.Expired }

// HasRole reports whether the user carries role r.
func (u User) HasRole(r RoleName) bool {
	for _, role := range u.Roles {
		if role.Name == r {
			return true
		}
	}
	return false
}
