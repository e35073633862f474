// ABOUTME: Tests for the VisibilityOverrides JSON wire format and strict decoding.
package access_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scarson/congregate/internal/access"
)

func TestDecodeOverrides_AbsentVersusFalse(t *testing.T) {
	t.Parallel()
	o, err := access.DecodeOverrides([]byte(`{"assets":false,"people":{"attendance":true}}`))
	require.NoError(t, err)
	require.NotNil(t, o)

	assert.Equal(t, access.Deny, o.Assets)
	assert.Equal(t, access.Unset, o.Branches)
	require.NotNil(t, o.People)
	assert.Equal(t, access.Unset, o.People.Enabled)
	assert.Equal(t, access.Allow, o.People.Child(access.ChildAttendance))
	assert.Equal(t, access.Unset, o.People.Child(access.ChildMembership))
	assert.Nil(t, o.Finance)
}

func TestDecodeOverrides_EmptyAndNull(t *testing.T) {
	t.Parallel()
	for _, in := range []string{"", "null", "  "} {
		o, err := access.DecodeOverrides([]byte(in))
		require.NoError(t, err, "input %q", in)
		assert.Nil(t, o, "input %q", in)
	}
	o, err := access.DecodeOverrides([]byte(`{"events":null,"finance":{"enabled":null}}`))
	require.NoError(t, err)
	assert.Equal(t, access.Unset, o.Events)
	require.NotNil(t, o.Finance, "an empty nested object is still present")
	assert.Equal(t, access.Unset, o.Finance.Enabled)
}

func TestDecodeOverrides_RejectsNonBoolean(t *testing.T) {
	t.Parallel()
	_, err := access.DecodeOverrides([]byte(`{"assets":"yes"}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, access.ErrInvalidOverrides))

	_, err = access.DecodeOverrides([]byte(`{"finance":{"income":1}}`))
	require.Error(t, err)
}

func TestDecodeOverrides_IgnoresUnknownKeys(t *testing.T) {
	t.Parallel()
	o, err := access.DecodeOverrides([]byte(`{"sanctuary":true,"settings":true}`))
	require.NoError(t, err)
	assert.Equal(t, access.Allow, o.Settings)
}

func TestDecodeOverridesStrict(t *testing.T) {
	t.Parallel()
	_, err := access.DecodeOverridesStrict([]byte(`{"sanctuary":true}`))
	require.ErrorIs(t, err, access.ErrInvalidOverrides)

	_, err = access.DecodeOverridesStrict([]byte(`{"people":{"income":true}}`))
	require.ErrorIs(t, err, access.ErrInvalidOverrides)

	o, err := access.DecodeOverridesStrict([]byte(`{"finance":{"enabled":false,"income":true}}`))
	require.NoError(t, err)
	assert.Equal(t, access.Deny, o.Finance.Enabled)
	assert.Equal(t, access.Allow, o.Finance.Child(access.ChildIncome))
}

func TestDecodeOverridesStrict_ExactKeysOnly(t *testing.T) {
	t.Parallel()
	for _, doc := range []string{
		`{"ASSETS":true}`,
		`{"People":{"enabled":true}}`,
		`{"people":{"Enabled":true}}`,
		`{"finance":{"Income":true}}`,
		`{"assets":true} {"junk":1}`,
		`{"assets":true}]`,
		`[]`,
	} {
		_, err := access.DecodeOverridesStrict([]byte(doc))
		assert.ErrorIs(t, err, access.ErrInvalidOverrides, "doc %s", doc)
	}

	o, err := access.DecodeOverridesStrict([]byte("  {\"assets\":true}\n"))
	require.NoError(t, err)
	assert.Equal(t, access.Allow, o.Assets)
}

func TestEncode_RoundTrip(t *testing.T) {
	t.Parallel()
	in := &access.VisibilityOverrides{
		Assets:   access.Allow,
		Settings: access.Deny,
		People:   &access.NestedOverrides{},
		Finance: &access.NestedOverrides{
			Enabled: access.Deny,
			Children: map[access.Child]access.Override{
				access.ChildIncome:  access.Allow,
				access.ChildPledges: access.Deny,
			},
		},
	}
	b, err := in.Encode()
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"assets":true,"settings":false,"people":{},"finance":{"enabled":false,"income":true,"pledges":false}}`,
		string(b))

	out, err := access.DecodeOverrides(b)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestEncode_Nil(t *testing.T) {
	t.Parallel()
	var o *access.VisibilityOverrides
	b, err := o.Encode()
	require.NoError(t, err)
	assert.Equal(t, "{}", string(b))
	assert.True(t, o.IsEmpty())
}

func TestIsEmpty(t *testing.T) {
	t.Parallel()
	assert.True(t, (&access.VisibilityOverrides{People: &access.NestedOverrides{}}).IsEmpty())
	assert.False(t, (&access.VisibilityOverrides{Events: access.Deny}).IsEmpty())
	assert.False(t, (&access.VisibilityOverrides{Finance: &access.NestedOverrides{
		Children: map[access.Child]access.Override{access.ChildInsights: access.Allow},
	}}).IsEmpty())
}

func TestOverride_MarshalUnset(t *testing.T) {
	t.Parallel()
	b, err := json.Marshal(struct {
		A access.Override `json:"a"`
		B access.Override `json:"b"`
	}{A: access.Unset, B: access.Allow})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":null,"b":true}`, string(b))
}

func TestOverride_Helpers(t *testing.T) {
	t.Parallel()
	yes := true
	assert.Equal(t, access.Allow, access.OverrideFromPtr(&yes))
	assert.Equal(t, access.Unset, access.OverrideFromPtr(nil))
	assert.Nil(t, access.Unset.Ptr())
	require.NotNil(t, access.Deny.Ptr())
	assert.False(t, *access.Deny.Ptr())
	assert.True(t, access.Unset.Or(true))
	assert.False(t, access.Deny.Or(true))
}
