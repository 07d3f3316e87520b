package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"dim_dashboard_backend/platform/apperr"
	"dim_dashboard_backend/platform/db"
)

const (
	roleNotFoundMessage = "role not found"
	roleColumns         = `id, name, permissions, created_at`
)

// Repo implements the Repository interface with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new roles repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

// List retrieves all roles ordered by name.
func (r *Repo) List(ctx context.Context) ([]Role, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+roleColumns+` FROM roles ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	defer rows.Close()

	roles := make([]Role, 0)
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, fmt.Errorf("scan role: %w", err)
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate roles: %w", err)
	}
	return roles, nil
}

// GetByID retrieves a role by its ID.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (Role, error) {
	role, err := scanRole(r.pool.QueryRow(ctx, `SELECT `+roleColumns+` FROM roles WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, apperr.NotFound(roleNotFoundMessage)
		}
		return Role{}, fmt.Errorf("get role: %w", err)
	}
	return role, nil
}

// Upsert updates by id, or inserts by name and refreshes permissions on conflict.
func (r *Repo) Upsert(ctx context.Context, params UpsertParams) (Role, error) {
	var row pgx.Row
	if params.ID != nil {
		row = r.pool.QueryRow(ctx, `
			UPDATE roles SET name = $2, permissions = $3
			WHERE id = $1
			RETURNING `+roleColumns, *params.ID, params.Name, params.Permissions)
	} else {
		row = r.pool.QueryRow(ctx, `
			INSERT INTO roles (name, permissions) VALUES ($1, $2)
			ON CONFLICT (name) DO UPDATE SET permissions = EXCLUDED.permissions
			RETURNING `+roleColumns, params.Name, params.Permissions)
	}

	role, err := scanRole(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, apperr.NotFound(roleNotFoundMessage)
		}
		if db.IsUniqueViolation(err) {
			return Role{}, apperr.Conflict("a role with this name already exists")
		}
		return Role{}, fmt.Errorf("upsert role: %w", err)
	}
	return role, nil
}

// Delete removes a role.
func (r *Repo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(roleNotFoundMessage)
	}
	return nil
}

// CountUsers counts users holding the named role.
func (r *Repo) CountUsers(ctx context.Context, name string) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM users WHERE role = $1`, name).Scan(&n); err != nil {
		return 0, fmt.Errorf("count role users: %w", err)
	}
	return n, nil
}

func scanRole(row pgx.Row) (Role, error) {
	var role Role
	err := row.Scan(&role.ID, &role.Name, &role.Permissions, &role.CreatedAt)
	return role, err
}
