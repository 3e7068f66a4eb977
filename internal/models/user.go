package models

import (
	"time"

	"github.com/google/uuid"
)

// UserRole defines the role of a user within a tenant.
type UserRole string

const (
	// UserRoleSuperAdmin is a platform operator; bypasses entitlement checks.
	UserRoleSuperAdmin UserRole = "super_admin"
	// UserRoleClinicAdmin manages a single tenant, including billing and credentials.
	UserRoleClinicAdmin UserRole = "clinic_admin"
	// UserRoleStaff has standard access within the tenant.
	UserRoleStaff UserRole = "staff"
)

// User represents an authenticated member of a tenant.
type User struct {
	ID        uuid.UUID `json:"id"`
	TenantID  uuid.UUID `json:"tenant_id"`
	Email     string    `json:"email"`
	Name      string    `json:"name,omitempty"`
	Role      UserRole  `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewUser creates a new User with the given details.
func NewUser(tenantID uuid.UUID, email, name string, role UserRole) *User {
	now := time.Now()
	return &User{
		ID:        uuid.New(),
		TenantID:  tenantID,
		Email:     email,
		Name:      name,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsSuperAdmin returns true if the user is a platform operator.
func (u *User) IsSuperAdmin() bool {
	return u.Role == UserRoleSuperAdmin
}

// CanManageBilling returns true if the user may rotate credentials and manage
// billing for the tenant.
func (u *User) CanManageBilling() bool {
	return u.Role == UserRoleSuperAdmin || u.Role == UserRoleClinicAdmin
}
