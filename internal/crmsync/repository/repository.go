package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"dim_dashboard_backend/platform/apperr"
)

const (
	upsertOpportunitySQL = `
		INSERT INTO opportunities (
			remote_id, clinic_id, contact_id, pipeline_id, pipeline_stage_id, name,
			created_at_remote, last_stage_change_at, timezone, synced_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (remote_id, clinic_id) DO UPDATE SET
			contact_id = EXCLUDED.contact_id,
			pipeline_id = EXCLUDED.pipeline_id,
			pipeline_stage_id = EXCLUDED.pipeline_stage_id,
			name = EXCLUDED.name,
			created_at_remote = EXCLUDED.created_at_remote,
			last_stage_change_at = EXCLUDED.last_stage_change_at,
			timezone = EXCLUDED.timezone,
			synced_at = EXCLUDED.synced_at`

	upsertMessageSQL = `
		INSERT INTO messages (
			remote_id, clinic_id, contact_id, direction, message_type, status,
			date_added, date_local, date_local_full, user_id, timezone, synced_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (remote_id, clinic_id) DO UPDATE SET
			contact_id = EXCLUDED.contact_id,
			direction = EXCLUDED.direction,
			message_type = EXCLUDED.message_type,
			status = EXCLUDED.status,
			date_added = EXCLUDED.date_added,
			date_local = EXCLUDED.date_local,
			date_local_full = EXCLUDED.date_local_full,
			user_id = EXCLUDED.user_id,
			timezone = EXCLUDED.timezone,
			synced_at = EXCLUDED.synced_at`

	advanceLastSyncSQL = `
		UPDATE clinics
		SET last_sync_at = GREATEST(COALESCE(last_sync_at, $2), $2), updated_at = now()
		WHERE id = $1`
)

// Repo implements the Repository interface with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new sync repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

// ApplySync sends one batch per record kind and then advances last_sync_at.
func (r *Repo) ApplySync(ctx context.Context, write SyncWrite) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin sync tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	opportunities, messages := syncBatches(write)
	if opportunities.Len() > 0 {
		if err := execBatch(ctx, tx, opportunities); err != nil {
			return fmt.Errorf("upsert opportunities: %w", err)
		}
	}
	if messages.Len() > 0 {
		if err := execBatch(ctx, tx, messages); err != nil {
			return fmt.Errorf("upsert messages: %w", err)
		}
	}

	tag, err := tx.Exec(ctx, advanceLastSyncSQL, advanceLastSyncArgs(write)...)
	if err != nil {
		return fmt.Errorf("advance last sync: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("clinic not found")
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit sync tx: %w", err)
	}
	return nil
}

// CountRecords returns stored record totals for a clinic.
func (r *Repo) CountRecords(ctx context.Context, clinicID uuid.UUID) (RecordCounts, error) {
	var counts RecordCounts
	err := r.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM opportunities WHERE clinic_id = $1),
			(SELECT COUNT(*) FROM messages WHERE clinic_id = $1)`, clinicID,
	).Scan(&counts.Opportunities, &counts.Messages)
	if err != nil {
		return RecordCounts{}, fmt.Errorf("count records: %w", err)
	}
	return counts, nil
}

// syncBatches queues one upsert per record, keyed on (remote_id, clinic_id).
func syncBatches(write SyncWrite) (opportunities, messages *pgx.Batch) {
	opportunities = &pgx.Batch{}
	for _, o := range write.Opportunities {
		opportunities.Queue(upsertOpportunitySQL,
			o.RemoteID, write.ClinicID, o.ContactID, o.PipelineID, o.PipelineStageID, o.Name,
			o.CreatedAt, o.LastStageChangeAt, o.Timezone, write.SyncedAt,
		)
	}

	messages = &pgx.Batch{}
	for _, m := range write.Messages {
		messages.Queue(upsertMessageSQL,
			m.RemoteID, write.ClinicID, m.ContactID, m.Direction, m.MessageType, m.Status,
			m.DateAdded, m.DateLocal, m.DateLocalFull, m.UserID, m.Timezone, write.SyncedAt,
		)
	}
	return opportunities, messages
}

func advanceLastSyncArgs(write SyncWrite) []any {
	return []any{write.ClinicID, write.SyncedAt}
}

func execBatch(ctx context.Context, tx pgx.Tx, batch *pgx.Batch) error {
	results := tx.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return err
		}
	}
	return results.Close()
}
