// ABOUTME: End-to-end smoke tests: real Postgres, real store, full router.
// ABOUTME: Verifies /healthz, /metrics, and one override edit round-tripping through JSONB.
package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/scarson/congregate/internal/access"
	"github.com/scarson/congregate/internal/api"
	"github.com/scarson/congregate/internal/auth"
	"github.com/scarson/congregate/internal/config"
	"github.com/scarson/congregate/internal/testutil"
)

const smokeSecret = "smoke-secret"

func newSmokeServer(t *testing.T, s api.Store) *httptest.Server {
	t.Helper()
	cfg := &config.Config{JWTSecret: smokeSecret} //nolint:exhaustruct // test: only JWT secret needed
	apiSrv, err := api.NewServer(s, cfg)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	t.Cleanup(apiSrv.Close)
	srv := httptest.NewServer(apiSrv.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func smokeDo(t *testing.T, srv *httptest.Server, method, path string, userID uuid.UUID, body string) *http.Response {
	t.Helper()
	var buf *bytes.Buffer
	if body != "" {
		buf = bytes.NewBufferString(body)
	} else {
		buf = &bytes.Buffer{}
	}
	req, err := http.NewRequestWithContext(context.Background(), method, srv.URL+path, buf)
	if err != nil {
		t.Fatalf("new request %s: %v", path, err)
	}
	if userID != uuid.Nil {
		token, err := auth.IssueAccessToken([]byte(smokeSecret), userID, 15*time.Minute)
		if err != nil {
			t.Fatalf("issue token: %v", err)
		}
		req.AddCookie(&http.Cookie{Name: "access_token", Value: token})
	}
	resp, err := srv.Client().Do(req) //nolint:gosec // G704 false positive: srv.URL is httptest.Server, not user input
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() }) //nolint:errcheck,gosec // G104: body close in test
	return resp
}

// TestSmokeHealthz starts a real Postgres container, builds the HTTP handler,
// and asserts that /healthz returns 200 {"status":"ok"} and /metrics returns 200.
func TestSmokeHealthz(t *testing.T) {
	t.Parallel()
	db := testutil.NewTestDB(t)
	srv := newSmokeServer(t, db.Store)

	resp := smokeDo(t, srv, http.MethodGet, "/healthz", uuid.Nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET /healthz: got status %d, want %d", resp.StatusCode, http.StatusOK)
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode /healthz body: %v", err)
	}
	if body.Status != "ok" {
		t.Errorf("GET /healthz: got status %q, want %q", body.Status, "ok")
	}

	mResp := smokeDo(t, srv, http.MethodGet, "/metrics", uuid.Nil, "")
	if mResp.StatusCode != http.StatusOK {
		t.Errorf("GET /metrics: got status %d, want %d", mResp.StatusCode, http.StatusOK)
	}
}

// TestSmokeHealthzDegraded verifies that /healthz returns 503 when there is
// no store (simulating an unavailable database).
func TestSmokeHealthzDegraded(t *testing.T) {
	t.Parallel()
	srv := newSmokeServer(t, nil)

	resp := smokeDo(t, srv, http.MethodGet, "/healthz", uuid.Nil, "")
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("GET /healthz (nil db): got status %d, want %d",
			resp.StatusCode, http.StatusServiceUnavailable)
	}

	var body struct {
		Status string `json:"status"`
		DB     string `json:"db"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode /healthz body: %v", err)
	}
	if body.Status != "degraded" || body.DB != "unavailable" {
		t.Errorf("GET /healthz (nil db): got %+v, want degraded/unavailable", body)
	}
}

// TestSmokeOverrideEdit grants a write member the assets section through the
// API and checks the member's own view afterwards.
func TestSmokeOverrideEdit(t *testing.T) {
	t.Parallel()
	db := testutil.NewTestDB(t)
	ctx := context.Background()

	owner, err := db.CreateUser(ctx, "pastor@example.com", "Pastor")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	org, err := db.CreateOrgWithOwner(ctx, "Grace Chapel", owner.ID)
	if err != nil {
		t.Fatalf("CreateOrgWithOwner: %v", err)
	}
	volunteer, err := db.CreateUser(ctx, "volunteer@example.com", "Volunteer")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if err := db.CreateOrgMember(ctx, org.ID, volunteer.ID, access.RoleWrite); err != nil {
		t.Fatalf("CreateOrgMember: %v", err)
	}

	srv := newSmokeServer(t, db.Store)
	base := "/api/v1/orgs/" + org.ID.String()

	resp := smokeDo(t, srv, http.MethodPut, base+"/members/"+volunteer.ID.String()+"/visibility",
		owner.ID, `{"assets":true,"people":{}}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("PUT visibility: got status %d, want 200", resp.StatusCode)
	}

	resp = smokeDo(t, srv, http.MethodGet, base+"/access", volunteer.ID, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET access: got status %d, want 200", resp.StatusCode)
	}
	var v access.Visibility
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode access: %v", err)
	}
	if !v.Sections[access.SectionAssets] {
		t.Error("assets: got false, want true after override")
	}
	if v.Sections[access.SectionPeople] {
		t.Error("people: empty nested override must not open the section")
	}
	if !v.HasOverrides || v.Layout != access.LayoutGeneral {
		t.Errorf("has_overrides=%v layout=%q, want true/general", v.HasOverrides, v.Layout)
	}

	resp = smokeDo(t, srv, http.MethodGet, base+"/members", volunteer.ID, "")
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("GET members as write: got status %d, want 403", resp.StatusCode)
	}
}
