package auth

// Role represents an authorisation tier within an organization.
type Role string

const (
	// RoleViewer has read-only access to dashboards and catalogs.
	RoleViewer Role = "viewer"

	// RoleMember can work investigations and edit datasets.
	RoleMember Role = "member"

	// RoleAdmin manages teams, integrations, and organization settings.
	RoleAdmin Role = "admin"

	// RoleOwner has everything admin can do plus billing and
	// organization deletion.
	RoleOwner Role = "owner"
)

// roleOrdinals fixes the total order viewer < member < admin < owner.
// Role comparisons always go through ordinals, never string comparison.
var roleOrdinals = map[Role]int{
	RoleViewer: 0,
	RoleMember: 1,
	RoleAdmin:  2,
	RoleOwner:  3,
}

// ValidRoles is the set of roles the backend can issue, lowest first.
var ValidRoles = []Role{RoleViewer, RoleMember, RoleAdmin, RoleOwner}

// IsValidRole returns true if the role is one of the known tiers.
func IsValidRole(r Role) bool {
	_, ok := roleOrdinals[r]
	return ok
}

// HasMinimumRole returns true if effective is a known role whose ordinal
// is at least that of required. An empty or unknown effective role always
// fails, as does an unknown required role.
func HasMinimumRole(effective, required Role) bool {
	eff, ok := roleOrdinals[effective]
	if !ok {
		return false
	}
	req, ok := roleOrdinals[required]
	if !ok {
		return false
	}
	return eff >= req
}

// IsExactRole returns true if effective matches role exactly. Used where
// a surface is gated to one tier only rather than a minimum tier.
func IsExactRole(effective, role Role) bool {
	return IsValidRole(effective) && effective == role
}
