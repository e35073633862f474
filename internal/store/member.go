// ABOUTME: Store methods for org membership: role, visibility overrides, and their audit trail.
// ABOUTME: Role and override edits lock the member row and append a visibility_changes entry in one tx.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/scarson/congregate/internal/access"
)

// Member is one user's membership in one organization.
type Member struct {
	OrgID       uuid.UUID
	UserID      uuid.UUID
	Email       string
	DisplayName string
	Role        access.Role

	// Overrides is never nil for a loaded member; an empty record means
	// "role defaults only".
	Overrides *access.VisibilityOverrides
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Resolver builds the access resolver for this membership.
func (m *Member) Resolver() access.Resolver {
	if m == nil {
		return access.Resolver{}
	}
	return access.NewResolver(m.Role, m.Overrides)
}

// VisibilityChange is one audited edit of a member's role or overrides.
type VisibilityChange struct {
	ID         uuid.UUID
	OrgID      uuid.UUID
	UserID     uuid.UUID
	ChangedBy  *uuid.UUID // nil when the editing user was deleted
	RoleBefore access.Role
	RoleAfter  access.Role
	Before     *access.VisibilityOverrides
	After      *access.VisibilityOverrides
	CreatedAt  time.Time
}

const memberColumns = `m.org_id, m.user_id, u.email, u.display_name, m.role,
	m.visibility_overrides, m.created_at, m.updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMember(row rowScanner) (*Member, []byte, error) {
	var (
		m    Member
		role string
		raw  []byte
	)
	if err := row.Scan(&m.OrgID, &m.UserID, &m.Email, &m.DisplayName, &role,
		&raw, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, nil, err
	}
	// The column CHECK constraint keeps roles valid; anything else fails
	// closed as "no role".
	m.Role, _ = access.ParseRole(role)
	o, err := access.DecodeOverrides(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("member %s: %w", m.UserID, err)
	}
	if o == nil {
		o = &access.VisibilityOverrides{}
	}
	m.Overrides = o
	return &m, raw, nil
}

// CreateOrgMember adds a user to an org with the given role and no overrides.
func (s *Store) CreateOrgMember(ctx context.Context, orgID, userID uuid.UUID, role access.Role) error {
	if !role.Valid() {
		return fmt.Errorf("create org member: %w: %q", ErrInvalidRole, role)
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO org_members (org_id, user_id, role) VALUES ($1, $2, $3)`,
		orgID, userID, string(role),
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("create org member: %w", ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("create org member: %w", err)
	}
	return nil
}

// GetMember returns userID's membership in orgID, or (nil, nil) if not a
// member or the org is soft-deleted. Called once per request by the access
// middleware.
func (s *Store) GetMember(ctx context.Context, orgID, userID uuid.UUID) (*Member, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+memberColumns+`
		   FROM org_members m
		   JOIN users u ON u.id = m.user_id
		   JOIN organizations o ON o.id = m.org_id
		  WHERE m.org_id = $1 AND m.user_id = $2 AND o.deleted_at IS NULL`,
		orgID, userID,
	)
	m, _, err := scanMember(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get member: %w", err)
	}
	return m, nil
}

// ListOrgMembers returns the members of an org ordered by join time. When
// roles is non-empty only members holding one of those roles are returned.
func (s *Store) ListOrgMembers(ctx context.Context, orgID uuid.UUID, roles ...access.Role) ([]Member, error) {
	q := psql.Select(memberColumns).
		From("org_members m").
		Join("users u ON u.id = m.user_id").
		Where(sq.Eq{"m.org_id": orgID}).
		OrderBy("m.created_at", "m.user_id")
	if len(roles) > 0 {
		names := make([]string, 0, len(roles))
		for _, r := range roles {
			if !r.Valid() {
				return nil, fmt.Errorf("list org members: %w: %q", ErrInvalidRole, r)
			}
			names = append(names, string(r))
		}
		q = q.Where(sq.Eq{"m.role": names})
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("list org members: build query: %w", err)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list org members: %w", err)
	}
	defer rows.Close()

	var out []Member
	for rows.Next() {
		m, _, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("list org members: %w", err)
		}
		out = append(out, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list org members: %w", err)
	}
	return out, nil
}

// UpdateMemberRole changes userID's role in orgID and records the change.
// Overrides are kept. Returns (nil, nil) if userID is not a member.
func (s *Store) UpdateMemberRole(ctx context.Context, orgID, userID, changedBy uuid.UUID, role access.Role) (*Member, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("update member role: %w: %q", ErrInvalidRole, role)
	}
	m, err := s.updateMember(ctx, orgID, userID, changedBy, func(m *Member) {
		m.Role = role
	})
	if err != nil {
		return nil, fmt.Errorf("update member role: %w", err)
	}
	return m, nil
}

// SetMemberOverrides replaces userID's visibility overrides in orgID and
// records the change. nil clears every override. Returns (nil, nil) if
// userID is not a member.
func (s *Store) SetMemberOverrides(ctx context.Context, orgID, userID, changedBy uuid.UUID, o *access.VisibilityOverrides) (*Member, error) {
	if err := o.Validate(); err != nil {
		return nil, fmt.Errorf("set member overrides: %w", err)
	}
	if o == nil {
		o = &access.VisibilityOverrides{}
	}
	m, err := s.updateMember(ctx, orgID, userID, changedBy, func(m *Member) {
		m.Overrides = o
	})
	if err != nil {
		return nil, fmt.Errorf("set member overrides: %w", err)
	}
	return m, nil
}

// updateMember locks the member row, applies mutate, writes role and
// overrides back, and appends an audit entry, all in one transaction. An
// edit that leaves the role and the canonical override document unchanged
// writes nothing and returns the current member.
func (s *Store) updateMember(ctx context.Context, orgID, userID, changedBy uuid.UUID, mutate func(*Member)) (*Member, error) {
	var result *Member
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx,
			`SELECT `+memberColumns+`
			   FROM org_members m
			   JOIN users u ON u.id = m.user_id
			  WHERE m.org_id = $1 AND m.user_id = $2
			  FOR UPDATE OF m`,
			orgID, userID,
		)
		m, before, err := scanMember(row)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		roleBefore := m.Role
		fpBefore := m.Overrides.Fingerprint()

		mutate(m)
		if m.Role == roleBefore && m.Overrides.Fingerprint() == fpBefore {
			result = m
			return nil
		}
		after, err := m.Overrides.Encode()
		if err != nil {
			return err
		}

		if err := tx.QueryRow(ctx,
			`UPDATE org_members
			    SET role = $3, visibility_overrides = $4::jsonb, updated_at = now()
			  WHERE org_id = $1 AND user_id = $2
			  RETURNING updated_at`,
			orgID, userID, string(m.Role), string(after),
		).Scan(&m.UpdatedAt); err != nil {
			return fmt.Errorf("update member: %w", err)
		}

		if _, err := tx.Exec(ctx,
			`INSERT INTO visibility_changes
			        (org_id, user_id, changed_by, role_before, role_after, before, after)
			 VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7::jsonb)`,
			orgID, userID, nullableUUID(changedBy),
			string(roleBefore), string(m.Role), string(before), string(after),
		); err != nil {
			return fmt.Errorf("record visibility change: %w", err)
		}
		result = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ListVisibilityChanges returns the newest limit audit entries for userID in
// orgID. limit ≤ 0 means 50; values above 500 are capped.
func (s *Store) ListVisibilityChanges(ctx context.Context, orgID, userID uuid.UUID, limit int) ([]VisibilityChange, error) {
	switch {
	case limit <= 0:
		limit = 50
	case limit > 500:
		limit = 500
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, org_id, user_id, changed_by, role_before, role_after, before, after, created_at
		   FROM visibility_changes
		  WHERE org_id = $1 AND user_id = $2
		  ORDER BY created_at DESC, id DESC
		  LIMIT $3`,
		orgID, userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list visibility changes: %w", err)
	}
	defer rows.Close()

	var out []VisibilityChange
	for rows.Next() {
		var (
			c                     VisibilityChange
			roleBefore, roleAfter string
			rawBefore, rawAfter   []byte
		)
		if err := rows.Scan(&c.ID, &c.OrgID, &c.UserID, &c.ChangedBy, &roleBefore, &roleAfter,
			&rawBefore, &rawAfter, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("list visibility changes: %w", err)
		}
		c.RoleBefore, _ = access.ParseRole(roleBefore)
		c.RoleAfter, _ = access.ParseRole(roleAfter)
		if c.Before, err = access.DecodeOverrides(rawBefore); err != nil {
			return nil, fmt.Errorf("list visibility changes: %w", err)
		}
		if c.After, err = access.DecodeOverrides(rawAfter); err != nil {
			return nil, fmt.Errorf("list visibility changes: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list visibility changes: %w", err)
	}
	return out, nil
}

// PruneVisibilityChanges deletes audit entries created before cutoff and
// returns how many were removed.
func (s *Store) PruneVisibilityChanges(ctx context.Context, cutoff time.Time) (int64, error) {
	query, args, err := psql.Delete("visibility_changes").
		Where(sq.Lt{"created_at": cutoff}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("prune visibility changes: build query: %w", err)
	}
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("prune visibility changes: %w", err)
	}
	return tag.RowsAffected(), nil
}

func nullableUUID(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}
