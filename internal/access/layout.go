// ABOUTME: Layout selection and the full visibility snapshot served to UI clients.
// ABOUTME: Any override at all forces the general layout; scoped layouts exist only for pristine roles.
package access

// Layout names the page layout a client should render.
type Layout string

// Layout values.
const (
	LayoutNone       Layout = "none"
	LayoutGeneral    Layout = "general"
	LayoutFinance    Layout = "finance"
	LayoutAttendance Layout = "attendance"
)

// SelectLayout picks the layout for r. Finance-only and attendance-only
// roles get their simplified layout unless the member has any override,
// in which case the general layout is used.
func SelectLayout(r Resolver) Layout {
	if !r.hasRole() {
		return LayoutNone
	}
	if r.HasAnyOverrides() {
		return LayoutGeneral
	}
	switch {
	case r.role.IsFinanceOnly():
		return LayoutFinance
	case r.role.IsAttendanceOnly():
		return LayoutAttendance
	}
	return LayoutGeneral
}

// Visibility is every decision a resolver makes, in one value.
type Visibility struct {
	Role         Role             `json:"role"`
	Layout       Layout           `json:"layout"`
	HasOverrides bool             `json:"has_overrides"`
	Sections     map[Section]bool `json:"sections"`
	People       map[Child]bool   `json:"people"`
	Finance      map[Child]bool   `json:"finance"`
}

// Snapshot evaluates every section and child.
func (r Resolver) Snapshot() Visibility {
	v := Visibility{
		Role:         r.role,
		Layout:       SelectLayout(r),
		HasOverrides: r.HasAnyOverrides(),
		Sections:     make(map[Section]bool, len(Sections)),
		People:       make(map[Child]bool, len(PeopleChildren)),
		Finance:      make(map[Child]bool, len(FinanceChildren)),
	}
	for _, s := range Sections {
		v.Sections[s] = r.CanAccess(s)
	}
	for _, c := range PeopleChildren {
		v.People[c] = r.CanAccessPeopleChild(c)
	}
	for _, c := range FinanceChildren {
		v.Finance[c] = r.CanAccessFinanceChild(c)
	}
	return v
}
