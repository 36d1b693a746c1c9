package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role is the fixed set of actor roles. Decisions based on a role belong to
// the access package.
type Role string

const (
	RoleSuperAdmin          Role = "super_admin"
	RoleAdmin               Role = "admin"
	RoleCRMCommercial       Role = "crm_commercial"
	RoleCRMContent          Role = "crm_content"
	RoleAccountManagerSmall Role = "account_manager_small"
	RoleAccountManagerMid   Role = "account_manager_mid"
	RoleAccountManagerLarge Role = "account_manager_large"
	RoleMember              Role = "member"
)

// Roles lists every known role.
var Roles = []Role{
	RoleSuperAdmin,
	RoleAdmin,
	RoleCRMCommercial,
	RoleCRMContent,
	RoleAccountManagerSmall,
	RoleAccountManagerMid,
	RoleAccountManagerLarge,
	RoleMember,
}

// Actor is an already-authenticated caller.
type Actor struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	Role           Role
}

// Manager is a user eligible to own leads, with its current open-lead load.
type Manager struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	Name           string
	Email          string
	Role           Role
	Active         bool
	OpenLeads      int
	CreatedAt      time.Time
}
