package model

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// AdminAccount holds an administrator credential record. OTPSecret is nil
// until the first successful password login triggers TOTP enrollment.
type AdminAccount struct {
	ID           uuid.UUID
	Username     string
	Email        string
	PasswordHash string
	Role         Role
	OTPSecret    *string
	LastLogin    *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Enrolled reports whether two-factor setup has completed.
func (a *AdminAccount) Enrolled() bool {
	return a.OTPSecret != nil && *a.OTPSecret != ""
}
