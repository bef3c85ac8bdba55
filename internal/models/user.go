package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAdmin     UserRole = "admin"
	RoleRegistrar UserRole = "registrar"
	RoleClerk     UserRole = "clerk"
	RoleCitizen   UserRole = "citizen"
)

// Valid reports whether the role is one of the known roles.
func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleRegistrar, RoleClerk, RoleCitizen:
		return true
	}
	return false
}

// User represents an application user stored in the users table.
type User struct {
	ID            string     `db:"id" json:"id"`
	Name          string     `db:"name" json:"name"`
	Email         string     `db:"email" json:"email"`
	PasswordHash  string     `db:"password_hash" json:"-"`
	Role          UserRole   `db:"role" json:"role"`
	IsSystemAdmin bool       `db:"is_system_admin" json:"is_system_admin"`
	IsApproved    bool       `db:"is_approved" json:"is_approved"`
	OfficeID      *string    `db:"registration_office_id" json:"registration_office_id,omitempty"`
	Phone         string     `db:"phone" json:"phone"`
	LastLogin     *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// IsStaff reports whether the user holds a registrar or clerk role.
func (u User) IsStaff() bool {
	return u.Role == RoleRegistrar || u.Role == RoleClerk
}

// HasSystemAccess reports whether the user may reach protected routes at all.
// Unapproved non-admin users are locked out regardless of role.
func (u User) HasSystemAccess() bool {
	if u.IsSystemAdmin {
		return true
	}
	return u.IsApproved && u.IsStaff()
}

// UserDetail joins the assigned office onto the user for read paths.
type UserDetail struct {
	User
	OfficeName   *string `db:"office_name" json:"office_name,omitempty"`
	OfficeRegion *string `db:"office_region" json:"office_region,omitempty"`
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role     *UserRole
	Approved *bool
	OfficeID string
	Search   string
	Page     int
	PageSize int
}
