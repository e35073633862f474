// ABOUTME: Section and child keys for the application areas gated by access control.
// ABOUTME: Only people and finance carry child keys.
package access

// Section identifies a top-level application area.
type Section string

// Section values.
const (
	SectionBranches       Section = "branches"
	SectionPeople         Section = "people"
	SectionFinance        Section = "finance"
	SectionEvents         Section = "events"
	SectionAnnouncements  Section = "announcements"
	SectionAssets         Section = "assets"
	SectionUserManagement Section = "user_management"
	SectionSettings       Section = "settings"
)

// Sections lists every section in navigation order.
var Sections = []Section{
	SectionBranches,
	SectionPeople,
	SectionFinance,
	SectionEvents,
	SectionAnnouncements,
	SectionAssets,
	SectionUserManagement,
	SectionSettings,
}

// Child identifies a sub-feature of the people or finance section.
type Child string

// People children.
const (
	ChildAttendance  Child = "attendance"
	ChildTagsGroups  Child = "tags_groups"
	ChildMembership  Child = "membership"
	ChildFormBuilder Child = "form_builder"
)

// Finance children.
const (
	ChildInsights      Child = "insights"
	ChildIncome        Child = "income"
	ChildExpenses      Child = "expenses"
	ChildContributions Child = "contributions"
	ChildPledges       Child = "pledges"
	ChildActivityLogs  Child = "activity_logs"
)

// PeopleChildren and FinanceChildren list the child keys of each parent.
var (
	PeopleChildren  = []Child{ChildAttendance, ChildTagsGroups, ChildMembership, ChildFormBuilder}
	FinanceChildren = []Child{ChildInsights, ChildIncome, ChildExpenses, ChildContributions, ChildPledges, ChildActivityLogs}
)

// ParseSection converts a section key to a Section; ok is false if unknown.
func ParseSection(s string) (Section, bool) {
	sec := Section(s)
	return sec, sec.Valid()
}

// Valid reports whether s is a known section.
func (s Section) Valid() bool {
	for _, known := range Sections {
		if s == known {
			return true
		}
	}
	return false
}

// HasChildren reports whether s is people or finance.
func (s Section) HasChildren() bool {
	return s == SectionPeople || s == SectionFinance
}

// Children returns the child keys of s, or nil for sections without children.
func (s Section) Children() []Child {
	switch s {
	case SectionPeople:
		return PeopleChildren
	case SectionFinance:
		return FinanceChildren
	}
	return nil
}

// HasChild reports whether c is a child key of s.
func (s Section) HasChild(c Child) bool {
	for _, known := range s.Children() {
		if c == known {
			return true
		}
	}
	return false
}
