package users

import (
	"time"

	"github.com/odyssey-erp/steward/internal/rbac"
	"github.com/odyssey-erp/steward/internal/roles"
)

// Status is the account state of an identity.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Identity is a directory record representing one authenticatable user.
type Identity struct {
	ID          int64               `json:"id"`
	Username    string              `json:"username" validate:"required,max=64"`
	Email       string              `json:"email" validate:"omitempty,email"`
	DisplayName string              `json:"display_name" validate:"max=128"`
	Role        string              `json:"role" validate:"required"`
	Status      Status              `json:"status" validate:"oneof=active inactive"`
	Permissions *rbac.PermissionSet `json:"permissions,omitempty" validate:"-"`
	LastLogin   *time.Time          `json:"last_login,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`

	// Credential fields never leave the process in JSON.
	TemporaryPassword   string `json:"-"`
	ForcePasswordChange bool   `json:"force_password_change,omitempty"`
	PasswordHash        string `json:"-"`
}

// IsActive reports whether the identity may hold permissions at all.
func (i Identity) IsActive() bool {
	return i.Status == StatusActive
}

// HasTemporaryPassword reports whether a one-off password is pending.
func (i Identity) HasTemporaryPassword() bool {
	return i.TemporaryPassword != ""
}

// EffectivePermissions resolves the permissions the identity can use: none
// when inactive, the explicit override when present, otherwise the role's set.
func (i Identity) EffectivePermissions(catalog *roles.Catalog) rbac.PermissionSet {
	if !i.IsActive() {
		return rbac.PermissionSet{}
	}
	if i.Permissions != nil {
		return *i.Permissions
	}
	role, ok := catalog.Get(i.Role)
	if !ok {
		return rbac.PermissionSet{}
	}
	return role.EffectivePermissions()
}

// Clone returns a deep copy safe to hand to callers.
func (i Identity) Clone() Identity {
	out := i
	if i.LastLogin != nil {
		t := *i.LastLogin
		out.LastLogin = &t
	}
	if i.Permissions != nil {
		p := *i.Permissions
		out.Permissions = &p
	}
	return out
}

// Fields is a partial update. Nil pointers leave the stored value untouched.
type Fields struct {
	Username            *string
	Email               *string
	DisplayName         *string
	Role                *string
	Status              *Status
	Permissions         *rbac.PermissionSet
	ClearPermissions    bool
	LastLogin           *time.Time
	TemporaryPassword   *string
	ForcePasswordChange *bool
	PasswordHash        *string
}

func (f Fields) apply(i *Identity) {
	if f.Username != nil {
		i.Username = *f.Username
	}
	if f.Email != nil {
		i.Email = *f.Email
	}
	if f.DisplayName != nil {
		i.DisplayName = *f.DisplayName
	}
	if f.Role != nil {
		i.Role = *f.Role
	}
	if f.Status != nil {
		i.Status = *f.Status
	}
	if f.ClearPermissions {
		i.Permissions = nil
	}
	if f.Permissions != nil {
		p := *f.Permissions
		i.Permissions = &p
	}
	if f.LastLogin != nil {
		t := *f.LastLogin
		i.LastLogin = &t
	}
	if f.TemporaryPassword != nil {
		i.TemporaryPassword = *f.TemporaryPassword
	}
	if f.ForcePasswordChange != nil {
		i.ForcePasswordChange = *f.ForcePasswordChange
	}
	if f.PasswordHash != nil {
		i.PasswordHash = *f.PasswordHash
	}
}
