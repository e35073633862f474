// ABOUTME: Role-default policy tables: the answer used when no override is present.
// ABOUTME: Fail-closed — unknown roles, sections, or children resolve to false.
package access

// DefaultSectionAccess reports whether role sees section when no override
// applies. Attendance roles are denied every section; their access comes
// from the people.attendance child default.
func DefaultSectionAccess(role Role, section Section) bool {
	if !section.Valid() {
		return false
	}
	switch role {
	case RoleOwner:
		return true
	case RoleAdmin, RoleBranchAdmin:
		return section != SectionFinance
	case RoleFinanceAdmin:
		return section == SectionFinance
	}
	return false
}

// defaultPeopleChildAccess is the leaf-level fallback for people children,
// independent of the parent's role default.
func defaultPeopleChildAccess(role Role, c Child) bool {
	if !SectionPeople.HasChild(c) {
		return false
	}
	switch role {
	case RoleOwner, RoleAdmin, RoleBranchAdmin:
		return true
	case RoleAttendanceManager, RoleAttendanceRep:
		return c == ChildAttendance
	}
	return false
}

// childPolicy describes how one parent section resolves its children.
type childPolicy struct {
	// parentGrants: parent access grants every child outright.
	parentGrants bool
	// parentGates: parent denial denies every child outright.
	parentGates bool
	// bypass lists roles that see every child once the parent gate passes.
	bypass []Role
	// missing is the answer when the parent has no override object.
	missing func(Role, Child) bool
	// unset is the answer when the override object has neither Enabled
	// nor the child set.
	unset func(Role, Child) bool
}

func never(Role, Child) bool { return false }

var childPolicies = map[Section]childPolicy{
	SectionPeople: {
		parentGrants: true,
		missing:      defaultPeopleChildAccess,
		unset:        defaultPeopleChildAccess,
	},
	SectionFinance: {
		parentGates: true,
		bypass:      []Role{RoleOwner, RoleFinanceAdmin},
		missing:     never,
		unset:       never,
	},
}

func (p childPolicy) bypasses(r Role) bool {
	for _, b := range p.bypass {
		if r == b {
			return true
		}
	}
	return false
}
