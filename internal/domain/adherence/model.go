package adherence

import (
	"time"

	"github.com/google/uuid"

	"github.com/medtrack/medtrack/internal/domain/doselog"
)

// Reminder is the derived "today" view of one scheduled occurrence plus its
// live status. It is recomputed on every materialization and never persisted.
type Reminder struct {
	ID             string         `json:"id"`
	MedicationID   uuid.UUID      `json:"medication_id"`
	MedicationName string         `json:"medication_name"`
	Dosage         string         `json:"dosage"`
	Instructions   *string        `json:"instructions,omitempty"`
	Color          *string        `json:"color,omitempty"`
	ScheduledTime  time.Time      `json:"scheduled_time"`
	Status         doselog.Status `json:"status"`
	LogID          *uuid.UUID     `json:"log_id,omitempty"`
}

// Snapshot holds the current week's adherence counts and the weighted rate.
type Snapshot struct {
	OnTime        int `json:"on_time"`
	Late          int `json:"late"`
	Missed        int `json:"missed"`
	Total         int `json:"total"`
	AdherenceRate int `json:"adherence_rate"`
}

// StatusWriteback is an instruction to persist a healed status. The engine's
// read paths are pure: instead of writing from inside a computation they
// return these, and the service layer applies them without blocking the read.
type StatusWriteback struct {
	LogID  uuid.UUID
	Status doselog.Status
}
