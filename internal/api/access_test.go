// ABOUTME: Tests for the caller-visibility handlers: snapshot and guard probes.
// ABOUTME: Covers layout selection and 404s for unknown sections or mismatched children.
package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scarson/congregate/internal/access"
	"github.com/scarson/congregate/internal/auth"
)

func TestGetAccess_Snapshot(t *testing.T) {
	t.Parallel()
	f := newFakeStore()
	orgID := uuid.New()
	rep := f.add(orgID, access.RoleAttendanceRep, nil)
	repWithEvents := f.add(orgID, access.RoleAttendanceRep, &access.VisibilityOverrides{Events: access.Allow})
	h := newTestServer(t, f).Handler()

	rec := do(t, h, http.MethodGet, orgPath(orgID, "/access"), rep, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	v := decodeBody[access.Visibility](t, rec)
	assert.Equal(t, access.RoleAttendanceRep, v.Role)
	assert.Equal(t, access.LayoutAttendance, v.Layout)
	assert.False(t, v.HasOverrides)
	assert.False(t, v.Sections[access.SectionPeople])
	assert.True(t, v.People[access.ChildAttendance])
	assert.False(t, v.People[access.ChildMembership])

	rec = do(t, h, http.MethodGet, orgPath(orgID, "/access"), repWithEvents, nil)
	v = decodeBody[access.Visibility](t, rec)
	assert.Equal(t, access.LayoutGeneral, v.Layout, "any override forces the general layout")
	assert.True(t, v.HasOverrides)
	assert.True(t, v.Sections[access.SectionEvents])
}

func TestGetAccess_ETag(t *testing.T) {
	t.Parallel()
	f := newFakeStore()
	orgID := uuid.New()
	admin := f.add(orgID, access.RoleAdmin, nil)
	writer := f.add(orgID, access.RoleWrite, nil)
	h := newTestServer(t, f).Handler()

	rec := do(t, h, http.MethodGet, orgPath(orgID, "/access"), writer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)

	conditional := func() *httptest.ResponseRecorder {
		token, err := auth.IssueAccessToken([]byte(testJWTSecret), writer, 15*time.Minute)
		require.NoError(t, err)
		req := httptest.NewRequestWithContext(context.Background(), http.MethodGet, orgPath(orgID, "/access"), nil)
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("If-None-Match", etag)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}
	assert.Equal(t, http.StatusNotModified, conditional().Code)

	rec = do(t, h, http.MethodPut, orgPath(orgID, "/members/"+writer.String()+"/visibility"), admin, `{"assets":true}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, http.StatusOK, conditional().Code, "override edit must invalidate the ETag")
}

func TestProbes(t *testing.T) {
	t.Parallel()
	f := newFakeStore()
	orgID := uuid.New()
	writer := f.add(orgID, access.RoleWrite, nil)
	treasurer := f.add(orgID, access.RoleFinanceAdmin, nil)
	admin := f.add(orgID, access.RoleAdmin, nil)
	h := newTestServer(t, f).Handler()

	tests := []struct {
		name     string
		caller   uuid.UUID
		path     string
		wantCode int
		allowed  bool
	}{
		{"write denied events by default", writer, "/access/events", http.StatusOK, false},
		{"admin sees events", admin, "/access/events", http.StatusOK, true},
		{"admin denied finance", admin, "/access/finance", http.StatusOK, false},
		{"finance_admin sees finance", treasurer, "/access/finance", http.StatusOK, true},
		{"finance_admin income", treasurer, "/access/finance/income", http.StatusOK, true},
		{"admin people child", admin, "/access/people/membership", http.StatusOK, true},
		{"write people child", writer, "/access/people/membership", http.StatusOK, false},
		{"unknown section", writer, "/access/choir", http.StatusNotFound, false},
		{"child of other section", treasurer, "/access/people/income", http.StatusNotFound, false},
		{"section without children", writer, "/access/events/income", http.StatusNotFound, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, h, http.MethodGet, orgPath(orgID, tc.path), tc.caller, nil)
			assert.Equal(t, tc.wantCode, rec.Code, rec.Body.String())
			if tc.wantCode == http.StatusOK {
				assert.Equal(t, tc.allowed, decodeBody[probeResponse](t, rec).Allowed)
			}
		})
	}
}
