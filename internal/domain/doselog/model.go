package doselog

import (
	"time"

	"github.com/google/uuid"
)

// Status is the closed set of outcomes a dose log can carry.
type Status string

const (
	StatusPending Status = "pending"
	StatusTaken   Status = "taken"
	StatusLate    Status = "late"
	StatusMissed  Status = "missed"
)

// Terminal reports whether the status is final. Once a log leaves pending it
// never transitions back.
func (s Status) Terminal() bool {
	return s == StatusTaken || s == StatusLate || s == StatusMissed
}

// Classification thresholds. Fixed policy, not user-configurable: a dose
// taken more than 30 minutes after its scheduled time counts as late, and a
// dose still untaken 4 hours after its scheduled time counts as missed.
const (
	LateThreshold   = 30 * time.Minute
	MissedThreshold = 4 * time.Hour
)

// Classify computes a dose's live status from its scheduled time and
// (optional) taken time. It is the single source of truth for status
// derivation: the reminder view, the adherence stats, and the record-taken
// operation all classify through here so they can never disagree for the
// same instant.
//
// Taking a dose early is still "taken"; there is no too-early status.
func Classify(scheduled time.Time, taken *time.Time, now time.Time) Status {
	if taken != nil {
		if taken.Sub(scheduled) > LateThreshold {
			return StatusLate
		}
		return StatusTaken
	}
	if now.Sub(scheduled) > MissedThreshold {
		return StatusMissed
	}
	return StatusPending
}

// DoseLog maps to the dose_log table: one persisted record per scheduled
// occurrence of a medication.
type DoseLog struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	MedicationID  uuid.UUID  `db:"medication_id" json:"medication_id"`
	OwnerID       uuid.UUID  `db:"owner_id" json:"owner_id"`
	ScheduledTime time.Time  `db:"scheduled_time" json:"scheduled_time"`
	Status        Status     `db:"status" json:"status"`
	TakenTime     *time.Time `db:"taken_time" json:"taken_time,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}
