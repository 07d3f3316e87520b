package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"dim_dashboard_backend/platform/apperr"
)

const (
	clinicNotFoundMessage = "clinic not found"

	clinicColumns = `id, name, phone, api_token, location_id, pipeline_id, timezone, selected,
		conversion_stage_ids, booking_stage_ids, showing_stage_ids, close_stage_ids,
		last_sync_at, created_at, updated_at`
)

// Repo implements the Repository interface with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new clinics repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

// GetByID retrieves a clinic by its ID.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (Clinic, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+clinicColumns+` FROM clinics WHERE id = $1`, id)
	clinic, err := scanClinic(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Clinic{}, apperr.NotFound(clinicNotFoundMessage)
		}
		return Clinic{}, fmt.Errorf("get clinic by id: %w", err)
	}
	return clinic, nil
}

// List retrieves clinics ordered by name.
func (r *Repo) List(ctx context.Context, params ListParams) ([]Clinic, error) {
	if params.IDs != nil && len(params.IDs) == 0 {
		return []Clinic{}, nil
	}

	query := `SELECT ` + clinicColumns + ` FROM clinics
		WHERE ($1::boolean = false OR selected = true)
		  AND ($2::uuid[] IS NULL OR id = ANY($2))
		ORDER BY name`

	var ids []uuid.UUID
	if params.IDs != nil {
		ids = params.IDs
	}

	rows, err := r.pool.Query(ctx, query, params.SelectedOnly, ids)
	if err != nil {
		return nil, fmt.Errorf("list clinics: %w", err)
	}
	defer rows.Close()

	clinics := make([]Clinic, 0)
	for rows.Next() {
		clinic, err := scanClinic(rows)
		if err != nil {
			return nil, fmt.Errorf("scan clinic: %w", err)
		}
		clinics = append(clinics, clinic)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate clinics: %w", err)
	}
	return clinics, nil
}

// Create inserts a clinic.
func (r *Repo) Create(ctx context.Context, params CreateParams) (Clinic, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO clinics (
			name, phone, api_token, location_id, pipeline_id, timezone, selected,
			conversion_stage_ids, booking_stage_ids, showing_stage_ids, close_stage_ids
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING `+clinicColumns,
		params.Name, params.Phone, params.APIToken, params.LocationID, params.PipelineID,
		params.Timezone, params.Selected,
		nonNil(params.ConversionStageIDs), nonNil(params.BookingStageIDs),
		nonNil(params.ShowingStageIDs), nonNil(params.CloseStageIDs),
	)
	clinic, err := scanClinic(row)
	if err != nil {
		return Clinic{}, fmt.Errorf("create clinic: %w", err)
	}
	return clinic, nil
}

// Update applies the non-nil fields of params.
func (r *Repo) Update(ctx context.Context, params UpdateParams) (Clinic, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE clinics SET
			name = COALESCE($2, name),
			phone = COALESCE($3, phone),
			api_token = COALESCE($4, api_token),
			location_id = COALESCE($5, location_id),
			pipeline_id = COALESCE($6, pipeline_id),
			timezone = COALESCE($7, timezone),
			conversion_stage_ids = COALESCE($8, conversion_stage_ids),
			booking_stage_ids = COALESCE($9, booking_stage_ids),
			showing_stage_ids = COALESCE($10, showing_stage_ids),
			close_stage_ids = COALESCE($11, close_stage_ids),
			updated_at = now()
		WHERE id = $1
		RETURNING `+clinicColumns,
		params.ID, params.Name, params.Phone, params.APIToken, params.LocationID, params.PipelineID,
		params.Timezone, params.ConversionStageIDs, params.BookingStageIDs,
		params.ShowingStageIDs, params.CloseStageIDs,
	)
	clinic, err := scanClinic(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Clinic{}, apperr.NotFound(clinicNotFoundMessage)
		}
		return Clinic{}, fmt.Errorf("update clinic: %w", err)
	}
	return clinic, nil
}

// Delete removes a clinic and, through cascading keys, its synced records.
func (r *Repo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM clinics WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete clinic: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(clinicNotFoundMessage)
	}
	return nil
}

// SetSelected toggles sync participation.
func (r *Repo) SetSelected(ctx context.Context, id uuid.UUID, selected bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE clinics SET selected = $2, updated_at = now() WHERE id = $1`, id, selected)
	if err != nil {
		return fmt.Errorf("set clinic selected: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(clinicNotFoundMessage)
	}
	return nil
}

func scanClinic(row pgx.Row) (Clinic, error) {
	var c Clinic
	err := row.Scan(
		&c.ID, &c.Name, &c.Phone, &c.APIToken, &c.LocationID, &c.PipelineID, &c.Timezone, &c.Selected,
		&c.ConversionStageIDs, &c.BookingStageIDs, &c.ShowingStageIDs, &c.CloseStageIDs,
		&c.LastSyncAt, &c.CreatedAt, &c.UpdatedAt,
	)
	return c, err
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
