package doselog

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const logCols = `id, medication_id, owner_id, scheduled_time, status, taken_time, created_at, updated_at`

func scanLog(row pgx.Row) (*DoseLog, error) {
	var l DoseLog
	err := row.Scan(&l.ID, &l.MedicationID, &l.OwnerID, &l.ScheduledTime, &l.Status,
		&l.TakenTime, &l.CreatedAt, &l.UpdatedAt)
	return &l, err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*DoseLog, error) {
	return scanLog(r.pool.QueryRow(ctx, `SELECT `+logCols+` FROM dose_log WHERE id = $1`, id))
}

func (r *repoPG) ListByOwnerSince(ctx context.Context, ownerID uuid.UUID, since time.Time) ([]*DoseLog, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+logCols+` FROM dose_log
		WHERE owner_id = $1 AND scheduled_time >= $2
		ORDER BY scheduled_time`, ownerID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*DoseLog
	for rows.Next() {
		l, err := scanLog(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, l)
	}
	return result, rows.Err()
}

func (r *repoPG) ListByMedication(ctx context.Context, ownerID, medicationID uuid.UUID, limit, offset int) ([]*DoseLog, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM dose_log WHERE medication_id = $1 AND owner_id = $2`,
		medicationID, ownerID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+logCols+` FROM dose_log
		WHERE medication_id = $1 AND owner_id = $2
		ORDER BY scheduled_time DESC
		LIMIT $3 OFFSET $4`, medicationID, ownerID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []*DoseLog
	for rows.Next() {
		l, err := scanLog(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, l)
	}
	return result, total, rows.Err()
}

func (r *repoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status Status, takenTime *time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE dose_log SET status = $2, taken_time = $3, updated_at = NOW()
		WHERE id = $1`, id, status, takenTime)
	return err
}

func (r *repoPG) InsertPending(ctx context.Context, medicationID, ownerID uuid.UUID, occurrences []time.Time) error {
	// ON CONFLICT keeps the one-log-per-occurrence invariant when schedules
	// are regenerated over an overlapping horizon.
	for _, at := range occurrences {
		_, err := r.pool.Exec(ctx, `
			INSERT INTO dose_log (id, medication_id, owner_id, scheduled_time, status)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (medication_id, scheduled_time) DO NOTHING`,
			uuid.New(), medicationID, ownerID, at, StatusPending)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *repoPG) DeletePendingAfter(ctx context.Context, medicationID uuid.UUID, after time.Time) error {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM dose_log
		WHERE medication_id = $1 AND scheduled_time > $2 AND status = $3`,
		medicationID, after, StatusPending)
	return err
}
