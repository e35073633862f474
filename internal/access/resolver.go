// ABOUTME: Resolver — decides section and child visibility from a role and its overrides.
// ABOUTME: Stateless and immutable; safe for concurrent use. Never errors, fails closed.
package access

// Resolver answers visibility questions for one (role, overrides) pair.
// The zero Resolver has no role and denies everything.
type Resolver struct {
	role      Role
	overrides *VisibilityOverrides
}

// NewResolver returns a Resolver for role and overrides. An unknown role is
// treated as no role. overrides may be nil. The Resolver does not copy
// overrides; callers must not mutate them afterwards.
func NewResolver(role Role, overrides *VisibilityOverrides) Resolver {
	if !role.Valid() {
		role = ""
	}
	return Resolver{role: role, overrides: overrides}
}

// Role returns the resolver's role, empty when none is known.
func (r Resolver) Role() Role { return r.role }

// Overrides returns the overrides the resolver was built with (may be nil).
func (r Resolver) Overrides() *VisibilityOverrides { return r.overrides }

func (r Resolver) hasRole() bool { return r.role != "" }

// CanAccess reports whether the role may see section. A present override
// wins in both directions; otherwise the role default applies.
func (r Resolver) CanAccess(section Section) bool {
	if !r.hasRole() || !section.Valid() {
		return false
	}
	if v, ok := overrideFor(r.overrides, section).Value(); ok {
		return v
	}
	if DefaultSectionAccess(r.role, section) {
		return true
	}
	// A nested object with child overrides but no Enabled field does not
	// open the section itself; children are reachable only through
	// CanAccessChild.
	if n := r.overrides.Nested(section); n != nil && !n.Enabled.IsSet() {
		return false
	}
	return false
}

// CanAccessChild reports whether the role may use child of section. Only
// people and finance have children; any other pair is denied.
func (r Resolver) CanAccessChild(section Section, child Child) bool {
	if !r.hasRole() || !section.HasChild(child) {
		return false
	}
	p := childPolicies[section]

	parent := r.CanAccess(section)
	if parent && p.parentGrants {
		return true
	}
	if !parent && p.parentGates {
		return false
	}
	if p.bypasses(r.role) {
		return true
	}

	n := r.overrides.Nested(section)
	if n == nil {
		return p.missing(r.role, child)
	}
	switch n.Enabled {
	case Allow:
		return true
	case Deny:
		// An explicit parent disable still lets children be re-enabled
		// one by one.
		return childOverrideFor(r.overrides, section, child).Or(false)
	}
	if v, ok := childOverrideFor(r.overrides, section, child).Value(); ok {
		return v
	}
	return p.unset(r.role, child)
}

// CanAccessPeopleChild is CanAccessChild(SectionPeople, child).
func (r Resolver) CanAccessPeopleChild(child Child) bool {
	return r.CanAccessChild(SectionPeople, child)
}

// CanAccessFinanceChild is CanAccessChild(SectionFinance, child).
func (r Resolver) CanAccessFinanceChild(child Child) bool {
	return r.CanAccessChild(SectionFinance, child)
}

// HasAnyOverrides reports whether any section-level override differs from
// the role default for that section. Without a role there is nothing to
// differ from, so it reports false.
func (r Resolver) HasAnyOverrides() bool {
	if !r.hasRole() || r.overrides == nil {
		return false
	}
	for _, s := range Sections {
		v, ok := overrideFor(r.overrides, s).Value()
		if ok && v != DefaultSectionAccess(r.role, s) {
			return true
		}
	}
	return false
}
