package doselog

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*DoseLog, error)
	// ListByOwnerSince returns logs whose scheduled time is at or after since,
	// ordered by scheduled time ascending.
	ListByOwnerSince(ctx context.Context, ownerID uuid.UUID, since time.Time) ([]*DoseLog, error)
	// ListByMedication returns a medication's logs restricted to the given
	// owner. A medication belonging to someone else yields an empty page.
	ListByMedication(ctx context.Context, ownerID, medicationID uuid.UUID, limit, offset int) ([]*DoseLog, int, error)
	// UpdateStatus persists a status change. Setting the same status twice is
	// a safe no-op, so concurrent healing write-backs coalesce.
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status, takenTime *time.Time) error
	// InsertPending creates pending logs for the given occurrences, skipping
	// any (medication, scheduled time) pair that already has a row.
	InsertPending(ctx context.Context, medicationID, ownerID uuid.UUID, occurrences []time.Time) error
	DeletePendingAfter(ctx context.Context, medicationID uuid.UUID, after time.Time) error
}
