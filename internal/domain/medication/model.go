package medication

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// Frequency is the closed set of dosing frequencies a medication can carry.
type Frequency string

const (
	FrequencyOnceDaily       Frequency = "once_daily"
	FrequencyTwiceDaily      Frequency = "twice_daily"
	FrequencyThreeTimesDaily Frequency = "three_times_daily"
	FrequencyFourTimesDaily  Frequency = "four_times_daily"
	FrequencyEveryOtherDay   Frequency = "every_other_day"
	FrequencyWeekly          Frequency = "weekly"
	FrequencyAsNeeded        Frequency = "as_needed"
)

// Known reports whether f is one of the recognized frequency values.
// Unknown values are tolerated at runtime (the schedule fails open, see
// ScheduledOn) but callers should warn when they see one.
func (f Frequency) Known() bool {
	switch f {
	case FrequencyOnceDaily, FrequencyTwiceDaily, FrequencyThreeTimesDaily,
		FrequencyFourTimesDaily, FrequencyEveryOtherDay, FrequencyWeekly,
		FrequencyAsNeeded:
		return true
	}
	return false
}

// MaxReminderSlots returns the maximum number of reminder clock-times a
// medication with this frequency may carry. as_needed medications have no
// automatic reminders at all. Unrecognized frequencies get one slot.
func (f Frequency) MaxReminderSlots() int {
	switch f {
	case FrequencyOnceDaily:
		return 1
	case FrequencyTwiceDaily:
		return 2
	case FrequencyThreeTimesDaily:
		return 3
	case FrequencyFourTimesDaily:
		return 4
	case FrequencyEveryOtherDay, FrequencyWeekly:
		return 1
	case FrequencyAsNeeded:
		return 0
	}
	return 1
}

// ScheduledOn reports whether a medication with this frequency, anchored at
// startDate, has scheduled doses on the given day. The day count is computed
// on date-only values so daylight-saving shifts cannot produce off-by-one
// phase errors. Unrecognized frequencies fail open (always scheduled).
func (f Frequency) ScheduledOn(startDate, day time.Time) bool {
	switch f {
	case FrequencyOnceDaily, FrequencyTwiceDaily, FrequencyThreeTimesDaily, FrequencyFourTimesDaily:
		return true
	case FrequencyEveryOtherDay:
		return daysBetween(startDate, day)%2 == 0
	case FrequencyWeekly:
		return daysBetween(startDate, day)%7 == 0
	case FrequencyAsNeeded:
		return false
	}
	return true
}

// daysBetween returns the calendar-day difference between from and day.
// Both values are stripped to local midnight first; rounding absorbs the
// 23h/25h days that daylight-saving transitions produce.
func daysBetween(from, day time.Time) int {
	f := DateOf(from)
	d := DateOf(day)
	days := int(math.Round(d.Sub(f).Hours() / 24))
	if days < 0 {
		// Keep the parity/weekday phase consistent before the anchor date.
		days = -days
	}
	return days
}

// DateOf strips t to local midnight.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// Medication maps to the medication table: one prescribed medication a user
// is tracking, with its dosing schedule.
type Medication struct {
	ID            uuid.UUID `db:"id" json:"id"`
	OwnerID       uuid.UUID `db:"owner_id" json:"owner_id"`
	Name          string    `db:"name" json:"name"`
	Dosage        string    `db:"dosage" json:"dosage"`
	Instructions  *string   `db:"instructions" json:"instructions,omitempty"`
	Frequency     Frequency `db:"frequency" json:"frequency"`
	ReminderTimes []string  `db:"reminder_times" json:"reminder_times"`
	StartDate     time.Time `db:"start_date" json:"start_date"`
	IsActive      bool      `db:"is_active" json:"is_active"`
	Color         *string   `db:"color" json:"color,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// ScheduledOn reports whether the medication has doses scheduled on day.
func (m *Medication) ScheduledOn(day time.Time) bool {
	return m.Frequency.ScheduledOn(m.StartDate, day)
}

// ClampReminderTimes trims ReminderTimes to the frequency's slot limit.
// Stored rows that violate the limit are corrected here rather than rejected,
// so a bad write can never break reminder materialization.
func (m *Medication) ClampReminderTimes() {
	max := m.Frequency.MaxReminderSlots()
	if len(m.ReminderTimes) > max {
		m.ReminderTimes = m.ReminderTimes[:max]
	}
}
