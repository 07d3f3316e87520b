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
	userNotFoundMessage  = "user not found"
	unknownClinicMessage = "one or more clinics do not exist"

	userSelect = `
		SELECT u.id, u.email, u.name, u.role, u.firebase_uid, u.created_at, u.updated_at,
			COALESCE(array_agg(uc.clinic_id) FILTER (WHERE uc.clinic_id IS NOT NULL), '{}') AS clinic_ids
		FROM users u
		LEFT JOIN user_clinics uc ON uc.user_id = u.id`
	userGroupBy = ` GROUP BY u.id`
)

// Repo implements the Repository interface with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new users repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

// GetByID retrieves a user with its clinic assignments.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (User, error) {
	user, err := scanUser(r.pool.QueryRow(ctx, userSelect+` WHERE u.id = $1`+userGroupBy, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, apperr.NotFound(userNotFoundMessage)
		}
		return User{}, fmt.Errorf("get user by id: %w", err)
	}
	return user, nil
}

// GetByEmail retrieves a user by its normalized email.
func (r *Repo) GetByEmail(ctx context.Context, email string) (User, error) {
	user, err := scanUser(r.pool.QueryRow(ctx, userSelect+` WHERE u.email = $1`+userGroupBy, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, apperr.NotFound(userNotFoundMessage)
		}
		return User{}, fmt.Errorf("get user by email: %w", err)
	}
	return user, nil
}

// List retrieves all users ordered by email.
func (r *Repo) List(ctx context.Context) ([]User, error) {
	rows, err := r.pool.Query(ctx, userSelect+userGroupBy+` ORDER BY u.email`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

// AssignedClinicIDs returns the clinics assigned to a user.
func (r *Repo) AssignedClinicIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `SELECT clinic_id FROM user_clinics WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("list assigned clinics: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return nil, fmt.Errorf("collect assigned clinics: %w", err)
	}
	return ids, nil
}

// RoleExists reports whether a role with name is defined.
func (r *Repo) RoleExists(ctx context.Context, name string) (bool, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM roles WHERE name = $1)`, name).Scan(&exists); err != nil {
		return false, fmt.Errorf("check role: %w", err)
	}
	return exists, nil
}

// Upsert inserts a user or updates the one with the same email.
func (r *Repo) Upsert(ctx context.Context, params UpsertParams) (User, error) {
	var id uuid.UUID
	err := r.pool.QueryRow(ctx, `
		INSERT INTO users (email, name, role, firebase_uid)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (email) DO UPDATE SET
			name = COALESCE(NULLIF(EXCLUDED.name, ''), users.name),
			role = EXCLUDED.role,
			firebase_uid = COALESCE(EXCLUDED.firebase_uid, users.firebase_uid),
			updated_at = now()
		RETURNING id`,
		params.Email, params.Name, params.Role, params.FirebaseUID,
	).Scan(&id)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return User{}, apperr.Conflict("firebase account already linked to another user")
		}
		return User{}, fmt.Errorf("upsert user: %w", err)
	}
	return r.GetByID(ctx, id)
}

// Delete removes a user and its clinic assignments.
func (r *Repo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(userNotFoundMessage)
	}
	return nil
}

// SetClinics replaces the user's clinic assignments in one transaction.
func (r *Repo) SetClinics(ctx context.Context, userID uuid.UUID, clinicIDs []uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin set clinics: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists); err != nil {
		return fmt.Errorf("check user: %w", err)
	}
	if !exists {
		return apperr.NotFound(userNotFoundMessage)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM user_clinics WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("clear user clinics: %w", err)
	}
	if len(clinicIDs) > 0 {
		_, err := tx.Exec(ctx, `
			INSERT INTO user_clinics (user_id, clinic_id)
			SELECT $1, unnest($2::uuid[])
			ON CONFLICT DO NOTHING`, userID, clinicIDs)
		if err != nil {
			if db.IsForeignKeyViolation(err) {
				return apperr.Validation(unknownClinicMessage)
			}
			return fmt.Errorf("insert user clinics: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit set clinics: %w", err)
	}
	return nil
}

// RemoveClinic drops one clinic assignment.
func (r *Repo) RemoveClinic(ctx context.Context, userID, clinicID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM user_clinics WHERE user_id = $1 AND clinic_id = $2`, userID, clinicID)
	if err != nil {
		return fmt.Errorf("remove user clinic: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("clinic is not assigned to this user")
	}
	return nil
}

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.FirebaseUID, &u.CreatedAt, &u.UpdatedAt, &u.ClinicIDs)
	return u, err
}
