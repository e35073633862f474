package access_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scarson/congregate/internal/access"
)

func TestSelectLayout(t *testing.T) {
	t.Parallel()
	cases := []struct {
		role access.Role
		o    *access.VisibilityOverrides
		want access.Layout
	}{
		{"", nil, access.LayoutNone},
		{access.RoleOwner, nil, access.LayoutGeneral},
		{access.RoleRead, nil, access.LayoutGeneral},
		{access.RoleFinanceAdmin, nil, access.LayoutFinance},
		{access.RoleAttendanceManager, nil, access.LayoutAttendance},
		{access.RoleAttendanceRep, nil, access.LayoutAttendance},
		// Any divergent override falls back to the general layout.
		{access.RoleFinanceAdmin, &access.VisibilityOverrides{Events: access.Allow}, access.LayoutGeneral},
		{access.RoleAttendanceRep, &access.VisibilityOverrides{Assets: access.Allow}, access.LayoutGeneral},
		// An override that matches the default is not an override.
		{access.RoleFinanceAdmin, &access.VisibilityOverrides{Events: access.Deny}, access.LayoutFinance},
	}
	for _, tc := range cases {
		got := access.SelectLayout(access.NewResolver(tc.role, tc.o))
		assert.Equal(t, tc.want, got, "role=%q overrides=%+v", tc.role, tc.o)
	}
}

func TestSnapshot(t *testing.T) {
	t.Parallel()
	r := access.NewResolver(access.RoleAttendanceManager, nil)
	v := r.Snapshot()

	assert.Equal(t, access.RoleAttendanceManager, v.Role)
	assert.Equal(t, access.LayoutAttendance, v.Layout)
	assert.False(t, v.HasOverrides)
	assert.Len(t, v.Sections, len(access.Sections))
	assert.Len(t, v.People, len(access.PeopleChildren))
	assert.Len(t, v.Finance, len(access.FinanceChildren))
	for s, ok := range v.Sections {
		assert.False(t, ok, "section %s", s)
	}
	assert.True(t, v.People[access.ChildAttendance])
	assert.False(t, v.People[access.ChildMembership])

	b, err := json.Marshal(v)
	require.NoError(t, err)
	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(b, &decoded))
	for _, k := range []string{"role", "layout", "has_overrides", "sections", "people", "finance"} {
		assert.Contains(t, decoded, k)
	}
}
