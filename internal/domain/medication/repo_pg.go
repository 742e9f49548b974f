package medication

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const medCols = `id, owner_id, name, dosage, instructions, frequency,
	reminder_times, start_date, is_active, color, created_at, updated_at`

func scanMed(row pgx.Row) (*Medication, error) {
	var m Medication
	err := row.Scan(&m.ID, &m.OwnerID, &m.Name, &m.Dosage, &m.Instructions, &m.Frequency,
		&m.ReminderTimes, &m.StartDate, &m.IsActive, &m.Color, &m.CreatedAt, &m.UpdatedAt)
	return &m, err
}

func (r *repoPG) Create(ctx context.Context, m *Medication) error {
	m.ID = uuid.New()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO medication (id, owner_id, name, dosage, instructions, frequency,
			reminder_times, start_date, is_active, color)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		m.ID, m.OwnerID, m.Name, m.Dosage, m.Instructions, m.Frequency,
		m.ReminderTimes, m.StartDate, m.IsActive, m.Color)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Medication, error) {
	return scanMed(r.pool.QueryRow(ctx, `SELECT `+medCols+` FROM medication WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, m *Medication) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE medication SET name=$2, dosage=$3, instructions=$4, frequency=$5,
			reminder_times=$6, start_date=$7, is_active=$8, color=$9, updated_at=NOW()
		WHERE id = $1`,
		m.ID, m.Name, m.Dosage, m.Instructions, m.Frequency,
		m.ReminderTimes, m.StartDate, m.IsActive, m.Color)
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM medication WHERE id = $1`, id)
	return err
}

func (r *repoPG) ListByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]*Medication, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM medication WHERE owner_id = $1`, ownerID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+medCols+` FROM medication
		WHERE owner_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, ownerID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []*Medication
	for rows.Next() {
		m, err := scanMed(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, m)
	}
	return result, total, rows.Err()
}

func (r *repoPG) ListActiveByOwner(ctx context.Context, ownerID uuid.UUID) ([]*Medication, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+medCols+` FROM medication
		WHERE owner_id = $1 AND is_active = TRUE
		ORDER BY created_at`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*Medication
	for rows.Next() {
		m, err := scanMed(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	return result, rows.Err()
}
