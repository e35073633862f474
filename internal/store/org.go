// ABOUTME: Store methods for organizations and users.
// ABOUTME: Lookups return (nil, nil) when the row does not exist or is soft-deleted.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/scarson/congregate/internal/access"
)

// Organization is a tenant.
type Organization struct {
	ID        uuid.UUID
	Name      string
	CreatedAt time.Time
}

// User is an account that may belong to several organizations.
type User struct {
	ID          uuid.UUID
	Email       string
	DisplayName string
	CreatedAt   time.Time
}

// CreateOrg inserts a new organization row. Returns the created org.
func (s *Store) CreateOrg(ctx context.Context, name string) (*Organization, error) {
	var o Organization
	err := s.pool.QueryRow(ctx,
		`INSERT INTO organizations (name) VALUES ($1) RETURNING id, name, created_at`,
		name,
	).Scan(&o.ID, &o.Name, &o.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create org: %w", err)
	}
	return &o, nil
}

// CreateOrgWithOwner atomically creates a new org and adds ownerID as owner.
func (s *Store) CreateOrgWithOwner(ctx context.Context, name string, ownerID uuid.UUID) (*Organization, error) {
	var o Organization
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx,
			`INSERT INTO organizations (name) VALUES ($1) RETURNING id, name, created_at`,
			name,
		).Scan(&o.ID, &o.Name, &o.CreatedAt); err != nil {
			return fmt.Errorf("create org: %w", err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO org_members (org_id, user_id, role) VALUES ($1, $2, $3)`,
			o.ID, ownerID, string(access.RoleOwner),
		); err != nil {
			return fmt.Errorf("create owner membership: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// GetOrgByID returns the org with the given ID, or (nil, nil) if not found or soft-deleted.
func (s *Store) GetOrgByID(ctx context.Context, id uuid.UUID) (*Organization, error) {
	var o Organization
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, created_at FROM organizations WHERE id = $1 AND deleted_at IS NULL`,
		id,
	).Scan(&o.ID, &o.Name, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get org by id: %w", err)
	}
	return &o, nil
}

// CreateUser inserts a user. Emails are unique case-insensitively; a
// duplicate returns ErrDuplicate.
func (s *Store) CreateUser(ctx context.Context, email, displayName string) (*User, error) {
	var u User
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (email, display_name) VALUES ($1, $2)
		 RETURNING id, email, display_name, created_at`,
		strings.TrimSpace(email), displayName,
	).Scan(&u.ID, &u.Email, &u.DisplayName, &u.CreatedAt)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("create user %q: %w", email, ErrDuplicate)
	}
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &u, nil
}

// GetUserByID returns the user, or (nil, nil) if not found.
func (s *Store) GetUserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	var u User
	err := s.pool.QueryRow(ctx,
		`SELECT id, email, display_name, created_at FROM users WHERE id = $1`,
		id,
	).Scan(&u.ID, &u.Email, &u.DisplayName, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return &u, nil
}
