// ABOUTME: VisibilityOverrides — per-member section/child overrides with explicit tri-state values.
// ABOUTME: JSON shape matches the persisted org_members.visibility_overrides column.
package access

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
)

// Override is a tri-state visibility override. The zero value is Unset,
// which defers to the role default; Allow and Deny are authoritative.
type Override uint8

// Override values.
const (
	Unset Override = iota
	Allow
	Deny
)

// OverrideOf returns Allow for true and Deny for false.
func OverrideOf(b bool) Override {
	if b {
		return Allow
	}
	return Deny
}

// OverrideFromPtr maps nil to Unset and a non-nil pointer to its value.
func OverrideFromPtr(b *bool) Override {
	if b == nil {
		return Unset
	}
	return OverrideOf(*b)
}

// IsSet reports whether o carries an explicit value.
func (o Override) IsSet() bool { return o == Allow || o == Deny }

// Value returns the override's boolean and whether it was set.
func (o Override) Value() (value, ok bool) {
	switch o {
	case Allow:
		return true, true
	case Deny:
		return false, true
	}
	return false, false
}

// Or returns the override's value, or def when unset.
func (o Override) Or(def bool) bool {
	if v, ok := o.Value(); ok {
		return v
	}
	return def
}

// Ptr returns nil when unset, otherwise a pointer to the value.
func (o Override) Ptr() *bool {
	v, ok := o.Value()
	if !ok {
		return nil
	}
	return &v
}

func (o Override) String() string {
	switch o {
	case Allow:
		return "allow"
	case Deny:
		return "deny"
	}
	return "unset"
}

// MarshalJSON encodes Allow/Deny as JSON booleans and Unset as null.
// Struct fields holding overrides use omitempty so Unset is omitted.
func (o Override) MarshalJSON() ([]byte, error) {
	v, ok := o.Value()
	if !ok {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}

// UnmarshalJSON accepts true, false, or null (Unset).
func (o *Override) UnmarshalJSON(data []byte) error {
	var b *bool
	if err := json.Unmarshal(data, &b); err != nil {
		return fmt.Errorf("override must be a boolean or null: %w", err)
	}
	*o = OverrideFromPtr(b)
	return nil
}

// NestedOverrides holds the overrides of a section with children. Enabled
// overrides the section as a whole; Children holds per-child overrides and
// never contains Unset entries after decoding.
type NestedOverrides struct {
	Enabled  Override
	Children map[Child]Override
}

// Child returns the override of c, Unset if absent.
func (n *NestedOverrides) Child(c Child) Override {
	if n == nil {
		return Unset
	}
	return n.Children[c]
}

func (n *NestedOverrides) isEmpty() bool {
	if n == nil {
		return true
	}
	if n.Enabled.IsSet() {
		return false
	}
	for _, o := range n.Children {
		if o.IsSet() {
			return false
		}
	}
	return true
}

// MarshalJSON flattens Enabled and Children into one object:
// {"enabled":true,"income":false}. Unset entries are omitted.
func (n NestedOverrides) MarshalJSON() ([]byte, error) {
	keys := make([]string, 0, len(n.Children))
	for c, o := range n.Children {
		if o.IsSet() {
			keys = append(keys, string(c))
		}
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	write := func(key string, o Override) {
		if !first {
			buf.WriteByte(',')
		}
		first = false
		k, _ := json.Marshal(key) //nolint:errcheck // string keys always encode
		buf.Write(k)
		buf.WriteByte(':')
		v, _ := o.Value()
		if v {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	}
	if n.Enabled.IsSet() {
		write("enabled", n.Enabled)
	}
	for _, k := range keys {
		write(k, n.Children[Child(k)])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads the flattened object. Every key other than "enabled"
// is kept as a child key; Validate reports keys that do not belong to the
// parent section. Null values are treated as absent.
func (n *NestedOverrides) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("nested overrides must be an object: %w", err)
	}
	out := NestedOverrides{}
	for k, v := range raw {
		var o Override
		if err := o.UnmarshalJSON(v); err != nil {
			return fmt.Errorf("%s: %w", k, err)
		}
		if k == "enabled" {
			out.Enabled = o
			continue
		}
		if !o.IsSet() {
			continue
		}
		if out.Children == nil {
			out.Children = make(map[Child]Override)
		}
		out.Children[Child(k)] = o
	}
	*n = out
	return nil
}

// VisibilityOverrides is the per-member override record. A nil
// *VisibilityOverrides behaves like an empty one.
type VisibilityOverrides struct {
	Branches       Override         `json:"branches,omitempty"`
	People         *NestedOverrides `json:"people,omitempty"`
	Finance        *NestedOverrides `json:"finance,omitempty"`
	Events         Override         `json:"events,omitempty"`
	Announcements  Override         `json:"announcements,omitempty"`
	Assets         Override         `json:"assets,omitempty"`
	UserManagement Override         `json:"user_management,omitempty"`
	Settings       Override         `json:"settings,omitempty"`
}

// ErrInvalidOverrides is wrapped by every error returned from DecodeOverrides
// and Validate.
var ErrInvalidOverrides = errors.New("invalid visibility overrides")

// DecodeOverrides parses a persisted or client-supplied override document.
// Empty input and "null" decode to nil. Unknown keys are ignored so older
// rows keep resolving after a section is removed; use DecodeOverridesStrict
// for client input.
func DecodeOverrides(data []byte) (*VisibilityOverrides, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}
	var v VisibilityOverrides
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidOverrides, err)
	}
	return &v, nil
}

// DecodeOverridesStrict is DecodeOverrides but rejects unknown section or
// child keys, keys that differ from the lowercase names only in case, and
// anything after the document.
func DecodeOverridesStrict(data []byte) (*VisibilityOverrides, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}
	// encoding/json matches struct fields case-insensitively, so the exact
	// keys are checked first.
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidOverrides, err)
	}
	for k := range keys {
		if !Section(k).Valid() {
			return nil, fmt.Errorf("%w: unknown section %q", ErrInvalidOverrides, k)
		}
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var v VisibilityOverrides
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidOverrides, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: unexpected data after document", ErrInvalidOverrides)
	}
	if err := v.Validate(); err != nil {
		return nil, err
	}
	return &v, nil
}

// Validate reports child keys that do not belong to their parent section.
func (v *VisibilityOverrides) Validate() error {
	if v == nil {
		return nil
	}
	check := func(parent Section, n *NestedOverrides) error {
		if n == nil {
			return nil
		}
		for c := range n.Children {
			if !parent.HasChild(c) {
				return fmt.Errorf("%w: unknown %s child %q", ErrInvalidOverrides, parent, c)
			}
		}
		return nil
	}
	if err := check(SectionPeople, v.People); err != nil {
		return err
	}
	return check(SectionFinance, v.Finance)
}

// Encode returns the JSON document stored in the database. nil encodes as {}.
func (v *VisibilityOverrides) Encode() ([]byte, error) {
	if v == nil {
		return []byte("{}"), nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode visibility overrides: %w", err)
	}
	return b, nil
}

// IsEmpty reports whether v carries no explicit override anywhere.
func (v *VisibilityOverrides) IsEmpty() bool {
	if v == nil {
		return true
	}
	for _, s := range Sections {
		if s.HasChildren() {
			continue
		}
		if v.direct(s).IsSet() {
			return false
		}
	}
	return v.People.isEmpty() && v.Finance.isEmpty()
}

// Nested returns the nested override object of people or finance, nil if
// absent or if s has no children.
func (v *VisibilityOverrides) Nested(s Section) *NestedOverrides {
	if v == nil {
		return nil
	}
	switch s {
	case SectionPeople:
		return v.People
	case SectionFinance:
		return v.Finance
	}
	return nil
}

func (v *VisibilityOverrides) direct(s Section) Override {
	switch s {
	case SectionBranches:
		return v.Branches
	case SectionEvents:
		return v.Events
	case SectionAnnouncements:
		return v.Announcements
	case SectionAssets:
		return v.Assets
	case SectionUserManagement:
		return v.UserManagement
	case SectionSettings:
		return v.Settings
	}
	return Unset
}

// overrideFor returns the section-level override. For people and finance
// that is the nested object's Enabled field; a nested object without
// Enabled carries no section-level override even if children are set.
func overrideFor(v *VisibilityOverrides, s Section) Override {
	if v == nil {
		return Unset
	}
	if s.HasChildren() {
		n := v.Nested(s)
		if n == nil {
			return Unset
		}
		return n.Enabled
	}
	return v.direct(s)
}

// childOverrideFor returns the override of parent.child, Unset if the
// parent object or the child field is absent.
func childOverrideFor(v *VisibilityOverrides, parent Section, c Child) Override {
	return v.Nested(parent).Child(c)
}
