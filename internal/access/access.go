// Package access is the permission resolver of the lead pipeline. It is the
// only place where a role is mapped to a decision: capabilities, which
// pipeline edges a role may traverse, reviewer routing and manager tiers.
package access

import (
	"strings"

	"lead_pipeline_backend/internal/leads/domain"
)

// Capabilities is the fixed capability record of a role.
type Capabilities struct {
	ViewAllLeads     bool `json:"viewAllLeads"`
	ViewOwnLeadsOnly bool `json:"viewOwnLeadsOnly"`
	CanAssign        bool `json:"canAssign"`
	CanVerify        bool `json:"canVerify"`
	CanApprove       bool `json:"canApprove"`
	CanViewTeam      bool `json:"canViewTeam"`
}

// restricted is the capability set of members and unknown roles.
var restricted = Capabilities{ViewOwnLeadsOnly: true}

var capabilities = map[domain.Role]Capabilities{
	domain.RoleSuperAdmin: {
		ViewAllLeads: true,
		CanAssign:    true,
		CanApprove:   true,
		CanViewTeam:  true,
	},
	domain.RoleAdmin: {
		ViewAllLeads: true,
		CanAssign:    true,
		CanApprove:   true,
		CanViewTeam:  true,
	},
	domain.RoleCRMCommercial: {
		ViewAllLeads: true,
		CanAssign:    true,
		CanVerify:    true,
		CanViewTeam:  true,
	},
	domain.RoleCRMContent: {
		ViewAllLeads: true,
		CanVerify:    true,
	},
	domain.RoleAccountManagerSmall: {ViewOwnLeadsOnly: true},
	domain.RoleAccountManagerMid:   {ViewOwnLeadsOnly: true},
	domain.RoleAccountManagerLarge: {ViewOwnLeadsOnly: true},
	domain.RoleMember:              restricted,
}

// Resolve maps a role to its capabilities. It is total: unknown roles
// resolve to the most restrictive set.
func Resolve(role domain.Role) Capabilities {
	if caps, ok := capabilities[role]; ok {
		return caps
	}
	return restricted
}

// ParseRole normalises a role claim. Unknown values are returned unchanged
// with ok=false so callers can still resolve them (to the restricted set).
func ParseRole(raw string) (domain.Role, bool) {
	role := domain.Role(strings.ToLower(strings.TrimSpace(raw)))
	_, ok := capabilities[role]
	return role, ok
}

// CanSeeLead reports whether an actor may read the lead.
func CanSeeLead(actor domain.Actor, lead domain.Lead) bool {
	if actor.OrganizationID != lead.OrganizationID {
		return false
	}
	if Resolve(actor.Role).ViewAllLeads {
		return true
	}
	return lead.IsAssignedTo(actor.ID)
}
