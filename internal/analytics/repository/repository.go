package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"dim_dashboard_backend/internal/analytics/timerange"
)

// Repo implements the Repository interface with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new analytics repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

// ClinicZones returns the timezone of each known clinic in ids.
func (r *Repo) ClinicZones(ctx context.Context, ids []uuid.UUID) ([]timerange.ClinicZone, error) {
	if len(ids) == 0 {
		return []timerange.ClinicZone{}, nil
	}

	rows, err := r.pool.Query(ctx, `SELECT id, timezone FROM clinics WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("list clinic zones: %w", err)
	}
	defer rows.Close()

	zones := make([]timerange.ClinicZone, 0, len(ids))
	for rows.Next() {
		var z timerange.ClinicZone
		if err := rows.Scan(&z.ClinicID, &z.Timezone); err != nil {
			return nil, fmt.Errorf("scan clinic zone: %w", err)
		}
		zones = append(zones, z)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate clinic zones: %w", err)
	}
	return zones, nil
}

// ClinicStages returns the stage mapping of each known clinic in ids.
func (r *Repo) ClinicStages(ctx context.Context, ids []uuid.UUID) ([]ClinicStages, error) {
	if len(ids) == 0 {
		return []ClinicStages{}, nil
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, conversion_stage_ids, booking_stage_ids, showing_stage_ids, close_stage_ids
		FROM clinics WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("list clinic stages: %w", err)
	}
	defer rows.Close()

	stages := make([]ClinicStages, 0, len(ids))
	for rows.Next() {
		var s ClinicStages
		if err := rows.Scan(&s.ClinicID, &s.Conversion, &s.Booking, &s.Showing, &s.Close); err != nil {
			return nil, fmt.Errorf("scan clinic stages: %w", err)
		}
		stages = append(stages, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate clinic stages: %w", err)
	}
	return stages, nil
}

// SelectedClinicIDs returns the ids of clinics flagged as selected.
func (r *Repo) SelectedClinicIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM clinics WHERE selected = true ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list selected clinics: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return nil, fmt.Errorf("collect selected clinics: %w", err)
	}
	return ids, nil
}

// ListOpportunities returns opportunities created inside any of the ranges.
func (r *Repo) ListOpportunities(ctx context.Context, ranges []timerange.Range) ([]Opportunity, error) {
	if len(ranges) == 0 {
		return []Opportunity{}, nil
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "remote_id", "clinic_id", "contact_id", "pipeline_id", "pipeline_stage_id",
		"name", "created_at_remote", "last_stage_change_at", "timezone").
		From("opportunities")
	sb.Where(timerange.Where(sb, "clinic_id", "created_at_remote", ranges))
	sb.OrderBy("created_at_remote").Asc()
	query, args := sb.Build()

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list opportunities: %w", err)
	}
	defer rows.Close()

	items := make([]Opportunity, 0)
	for rows.Next() {
		var o Opportunity
		if err := rows.Scan(&o.ID, &o.RemoteID, &o.ClinicID, &o.ContactID, &o.PipelineID, &o.PipelineStageID,
			&o.Name, &o.CreatedAt, &o.LastStageChangeAt, &o.Timezone); err != nil {
			return nil, fmt.Errorf("scan opportunity: %w", err)
		}
		items = append(items, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate opportunities: %w", err)
	}
	return items, nil
}

// ListMessages returns messages added inside any of the ranges.
func (r *Repo) ListMessages(ctx context.Context, ranges []timerange.Range) ([]Message, error) {
	if len(ranges) == 0 {
		return []Message{}, nil
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "remote_id", "clinic_id", "contact_id", "direction", "message_type", "status",
		"date_added", "date_local", "user_id", "timezone").
		From("messages")
	sb.Where(timerange.Where(sb, "clinic_id", "date_added", ranges))
	sb.OrderBy("date_added").Asc()
	query, args := sb.Build()

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	items := make([]Message, 0)
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.RemoteID, &m.ClinicID, &m.ContactID, &m.Direction, &m.MessageType, &m.Status,
			&m.DateAdded, &m.DateLocal, &m.UserID, &m.Timezone); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		items = append(items, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return items, nil
}
