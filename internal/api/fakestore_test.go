// ABOUTME: In-memory Store implementation for api unit tests.
// ABOUTME: Mirrors store semantics: nil member for non-members, audit entries on every write.
package api

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/scarson/congregate/internal/access"
	"github.com/scarson/congregate/internal/config"
	"github.com/scarson/congregate/internal/store"
)

type memberKey struct{ org, user uuid.UUID }

type fakeStore struct {
	mu      sync.Mutex
	members map[memberKey]*store.Member
	changes map[memberKey][]store.VisibilityChange
	pingErr error
	getErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		members: make(map[memberKey]*store.Member),
		changes: make(map[memberKey][]store.VisibilityChange),
	}
}

// add inserts a member and returns its user ID.
func (f *fakeStore) add(orgID uuid.UUID, role access.Role, o *access.VisibilityOverrides) uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()
	if o == nil {
		o = &access.VisibilityOverrides{}
	}
	userID := uuid.New()
	now := time.Now()
	f.members[memberKey{orgID, userID}] = &store.Member{
		OrgID:       orgID,
		UserID:      userID,
		Email:       userID.String()[:8] + "@example.com",
		DisplayName: string(role),
		Role:        role,
		Overrides:   o,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return userID
}

func (f *fakeStore) Ping(context.Context) error { return f.pingErr }

func (f *fakeStore) GetMember(_ context.Context, orgID, userID uuid.UUID) (*store.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	m, ok := f.members[memberKey{orgID, userID}]
	if !ok {
		return nil, nil
	}
	cp := *m
	return &cp, nil
}

func (f *fakeStore) ListOrgMembers(_ context.Context, orgID uuid.UUID, roles ...access.Role) ([]store.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []store.Member
	for k, m := range f.members {
		if k.org != orgID {
			continue
		}
		if len(roles) > 0 && !slices.Contains(roles, m.Role) {
			continue
		}
		out = append(out, *m)
	}
	return out, nil
}

func (f *fakeStore) UpdateMemberRole(_ context.Context, orgID, userID, changedBy uuid.UUID, role access.Role) (*store.Member, error) {
	if !role.Valid() {
		return nil, store.ErrInvalidRole
	}
	return f.update(orgID, userID, changedBy, func(m *store.Member) { m.Role = role })
}

func (f *fakeStore) SetMemberOverrides(_ context.Context, orgID, userID, changedBy uuid.UUID, o *access.VisibilityOverrides) (*store.Member, error) {
	if o == nil {
		o = &access.VisibilityOverrides{}
	}
	if err := o.Validate(); err != nil {
		return nil, err
	}
	return f.update(orgID, userID, changedBy, func(m *store.Member) { m.Overrides = o })
}

func (f *fakeStore) update(orgID, userID, changedBy uuid.UUID, mutate func(*store.Member)) (*store.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := memberKey{orgID, userID}
	m, ok := f.members[k]
	if !ok {
		return nil, nil
	}
	before := *m
	mutate(m)
	m.UpdatedAt = time.Now()
	by := changedBy
	// Newest first, like the real store.
	f.changes[k] = append([]store.VisibilityChange{{
		ID:         uuid.New(),
		OrgID:      orgID,
		UserID:     userID,
		ChangedBy:  &by,
		RoleBefore: before.Role,
		RoleAfter:  m.Role,
		Before:     before.Overrides,
		After:      m.Overrides,
		CreatedAt:  m.UpdatedAt,
	}}, f.changes[k]...)
	cp := *m
	return &cp, nil
}

func (f *fakeStore) ListVisibilityChanges(_ context.Context, orgID, userID uuid.UUID, limit int) ([]store.VisibilityChange, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.changes[memberKey{orgID, userID}]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

var errFakeDB = errors.New("fake db unavailable")

const testJWTSecret = "testsecret"

// newTestServer builds a Server over f with only the fields tests need.
func newTestServer(t testing.TB, f *fakeStore) *Server {
	t.Helper()
	cfg := &config.Config{JWTSecret: testJWTSecret} //nolint:exhaustruct // test: only JWT secret needed
	var srv *Server
	if f != nil {
		srv, _ = NewServer(f, cfg)
	} else {
		srv, _ = NewServer(nil, cfg)
	}
	t.Cleanup(srv.Close)
	return srv
}
