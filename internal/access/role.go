// ABOUTME: Organization role names and the role helpers used by guards and layout selection.
// ABOUTME: Roles are plain strings as stored in org_members.role; unknown values fail closed.
package access

// Role is a user's standing within one organization.
type Role string

// Role values, as persisted in org_members.role.
const (
	RoleOwner             Role = "owner"
	RoleAdmin             Role = "admin"
	RoleBranchAdmin       Role = "branch_admin"
	RoleFinanceAdmin      Role = "finance_admin"
	RoleAttendanceManager Role = "attendance_manager"
	RoleAttendanceRep     Role = "attendance_rep"
	RoleWrite             Role = "write"
	RoleRead              Role = "read"
)

// Roles lists every known role in display order.
var Roles = []Role{
	RoleOwner,
	RoleAdmin,
	RoleBranchAdmin,
	RoleFinanceAdmin,
	RoleAttendanceManager,
	RoleAttendanceRep,
	RoleWrite,
	RoleRead,
}

// ParseRole converts a stored role string to a Role. ok is false for
// unknown or empty values; the returned Role is then empty, which every
// decision treats as "no role".
func ParseRole(s string) (Role, bool) {
	r := Role(s)
	if !r.Valid() {
		return "", false
	}
	return r, true
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleBranchAdmin, RoleFinanceAdmin,
		RoleAttendanceManager, RoleAttendanceRep, RoleWrite, RoleRead:
		return true
	}
	return false
}

// IsFinanceOnly reports whether the role is scoped to the finance section.
func (r Role) IsFinanceOnly() bool { return r == RoleFinanceAdmin }

// IsAttendanceOnly reports whether the role is scoped to people.attendance.
func (r Role) IsAttendanceOnly() bool {
	return r == RoleAttendanceManager || r == RoleAttendanceRep
}

// CanManageVisibility reports whether the role may edit other members'
// roles and visibility overrides.
func (r Role) CanManageVisibility() bool {
	return r == RoleOwner || r == RoleAdmin
}
