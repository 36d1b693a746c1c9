package access

import (
	"lead_pipeline_backend/internal/leads/domain"
)

type roleSet map[domain.Role]struct{}

func newRoleSet(roles ...domain.Role) roleSet {
	set := make(roleSet, len(roles))
	for _, r := range roles {
		set[r] = struct{}{}
	}
	return set
}

var (
	administrativeRoles = []domain.Role{domain.RoleSuperAdmin, domain.RoleAdmin}
	crmRoles            = []domain.Role{domain.RoleCRMCommercial, domain.RoleCRMContent}
	accountManagerRoles = []domain.Role{
		domain.RoleAccountManagerSmall,
		domain.RoleAccountManagerMid,
		domain.RoleAccountManagerLarge,
	}
)

func concat(groups ...[]domain.Role) []domain.Role {
	var out []domain.Role
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

var salesGate = newRoleSet(concat(accountManagerRoles, crmRoles, administrativeRoles)...)

// gates holds the gate-role set of every pipeline edge.
var gates = map[domain.Edge]roleSet{
	{From: domain.StatusNew, To: domain.StatusContacted}:            salesGate,
	{From: domain.StatusContacted, To: domain.StatusNegotiation}:    salesGate,
	{From: domain.StatusNegotiation, To: domain.StatusQualified}:    salesGate,
	{From: domain.StatusQualified, To: domain.StatusProposalSent}:   salesGate,
	{From: domain.StatusProposalSent, To: domain.StatusPendingCRM}:  salesGate,
	{From: domain.StatusPendingCRM, To: domain.StatusCRMApproved}:   newRoleSet(crmRoles...),
	{From: domain.StatusPendingCRM, To: domain.StatusCRMRejected}:   newRoleSet(crmRoles...),
	{From: domain.StatusCRMApproved, To: domain.StatusPendingAdmin}: newRoleSet(concat(crmRoles, administrativeRoles)...),
	{From: domain.StatusPendingAdmin, To: domain.StatusWon}:         newRoleSet(administrativeRoles...),
	{From: domain.StatusPendingAdmin, To: domain.StatusLost}:        newRoleSet(administrativeRoles...),
}

// CanTraverse reports whether role is in the gate-role set of the edge.
// Edges outside the pipeline graph have an empty gate.
func CanTraverse(role domain.Role, edge domain.Edge) bool {
	if !domain.IsEdge(edge) {
		return false
	}
	_, ok := gates[edge][role]
	return ok
}

// GateRoles returns the gate-role set of an edge in the order of domain.Roles.
func GateRoles(edge domain.Edge) []domain.Role {
	var out []domain.Role
	for _, r := range domain.Roles {
		if CanTraverse(r, edge) {
			out = append(out, r)
		}
	}
	return out
}

// RequiresOwnership reports whether the role may only move leads assigned
// to itself.
func RequiresOwnership(role domain.Role) bool {
	return Resolve(role).ViewOwnLeadsOnly
}

// ReviewerRoles returns the roles that must act on a lead sitting in status.
// Used to route stage notifications and reminders for unassigned leads.
func ReviewerRoles(status domain.Status) []domain.Role {
	switch status {
	case domain.StatusPendingCRM:
		return append([]domain.Role(nil), crmRoles...)
	case domain.StatusCRMApproved, domain.StatusPendingAdmin:
		return append([]domain.Role(nil), administrativeRoles...)
	default:
		return nil
	}
}

var managerTiers = map[domain.Role]domain.Tier{
	domain.RoleAccountManagerSmall: domain.TierSmall,
	domain.RoleAccountManagerMid:   domain.TierMid,
	domain.RoleAccountManagerLarge: domain.TierLarge,
}

// ManagerTier returns the tier an account-manager role serves.
func ManagerTier(role domain.Role) (domain.Tier, bool) {
	tier, ok := managerTiers[role]
	return tier, ok
}

// RolesForTier returns the account-manager roles serving tier.
func RolesForTier(tier domain.Tier) []domain.Role {
	var out []domain.Role
	for _, r := range accountManagerRoles {
		if managerTiers[r] == tier {
			out = append(out, r)
		}
	}
	return out
}

// ManagerRoles returns every role that can own leads.
func ManagerRoles() []domain.Role {
	return append([]domain.Role(nil), accountManagerRoles...)
}

// AssignerRoles returns the roles allowed to assign leads, in the order of
// domain.Roles.
func AssignerRoles() []domain.Role {
	var out []domain.Role
	for _, r := range domain.Roles {
		if Resolve(r).CanAssign {
			out = append(out, r)
		}
	}
	return out
}

// ReminderRoles returns who is reminded about an unassigned lead: the
// reviewers of its status, or the assigners while it waits in the pool.
func ReminderRoles(status domain.Status) []domain.Role {
	if roles := ReviewerRoles(status); len(roles) > 0 {
		return roles
	}
	return AssignerRoles()
}
