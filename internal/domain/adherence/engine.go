package adherence

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medtrack/medtrack/internal/domain/doselog"
	"github.com/medtrack/medtrack/internal/domain/medication"
)

// Engine computes reminder and adherence views. All methods are pure with
// respect to time: the caller supplies now, so behavior is fully
// deterministic under test. The logger is only used for data-shape warnings
// (malformed clock-times, unknown frequencies); those are recovered locally
// and never fail a computation.
type Engine struct {
	logger zerolog.Logger
}

func NewEngine(logger zerolog.Logger) *Engine {
	return &Engine{logger: logger}
}

// MaterializeToday produces the ordered list of reminders due on now's
// calendar day, each carrying a live status, plus the healing write-backs
// for any stored-pending log that has aged past the missed threshold.
func (e *Engine) MaterializeToday(defs []*medication.Medication, logs []*doselog.DoseLog, now time.Time) ([]Reminder, []StatusWriteback) {
	startOfDay := medication.DateOf(now)
	endOfDay := startOfDay.AddDate(0, 0, 1).Add(-time.Millisecond)

	var reminders []Reminder
	var writebacks []StatusWriteback

	for _, m := range defs {
		if !m.IsActive || len(m.ReminderTimes) == 0 {
			continue
		}
		if !m.Frequency.Known() {
			e.logger.Warn().
				Str("medication_id", m.ID.String()).
				Str("frequency", string(m.Frequency)).
				Msg("unknown frequency, scheduling daily")
		}
		if !m.ScheduledOn(now) {
			continue
		}
		m.ClampReminderTimes()

		for _, clock := range m.ReminderTimes {
			scheduled, err := medication.CombineOnDay(now, clock)
			if err != nil {
				e.logger.Warn().Err(err).
					Str("medication_id", m.ID.String()).
					Msg("skipping malformed reminder time")
				continue
			}
			if scheduled.Before(startOfDay) || scheduled.After(endOfDay) {
				continue
			}

			log := findLog(logs, m.ID, scheduled)
			status, wb := liveStatus(log, scheduled, now)
			if wb != nil {
				writebacks = append(writebacks, *wb)
			}

			r := Reminder{
				ID:             fmt.Sprintf("%s-%s", m.ID, clock),
				MedicationID:   m.ID,
				MedicationName: m.Name,
				Dosage:         m.Dosage,
				Instructions:   m.Instructions,
				Color:          m.Color,
				ScheduledTime:  scheduled,
				Status:         status,
			}
			if log != nil {
				id := log.ID
				r.LogID = &id
			}
			reminders = append(reminders, r)
		}
	}

	sort.Slice(reminders, func(i, j int) bool {
		return reminders[i].ScheduledTime.Before(reminders[j].ScheduledTime)
	})
	return reminders, writebacks
}

// liveStatus resolves the status shown for one occurrence. A terminal stored
// status is used verbatim; a pending (or absent) log is re-classified, and a
// pending log that classifies as missed yields a healing write-back.
func liveStatus(log *doselog.DoseLog, scheduled time.Time, now time.Time) (doselog.Status, *StatusWriteback) {
	if log != nil && log.Status.Terminal() {
		return log.Status, nil
	}

	var taken *time.Time
	if log != nil {
		taken = log.TakenTime
	}
	status := doselog.Classify(scheduled, taken, now)

	if log != nil && status == doselog.StatusMissed {
		return status, &StatusWriteback{LogID: log.ID, Status: doselog.StatusMissed}
	}
	return status, nil
}

// findLog matches a log to an occurrence by medication, calendar date, and
// clock time-of-day. Comparing components rather than instants keeps the
// match stable regardless of the offset the timestamp was stored with.
func findLog(logs []*doselog.DoseLog, medicationID uuid.UUID, scheduled time.Time) *doselog.DoseLog {
	for _, l := range logs {
		if l.MedicationID != medicationID {
			continue
		}
		lt := l.ScheduledTime.In(scheduled.Location())
		if lt.Year() == scheduled.Year() && lt.Month() == scheduled.Month() && lt.Day() == scheduled.Day() &&
			lt.Hour() == scheduled.Hour() && lt.Minute() == scheduled.Minute() {
			return l
		}
	}
	return nil
}

// ComputeWeeklyAdherence restricts logs to the current Monday-to-Sunday window
// and computes the penalty-weighted adherence snapshot. Stale pending logs
// are healed in memory (and reported as write-backs) before counting, so the
// stats never lag the live view.
//
// The rate is deliberately penalty-based rather than a taken/total ratio:
// a missed dose costs its full share of 100, a late dose half of it.
func (e *Engine) ComputeWeeklyAdherence(logs []*doselog.DoseLog, now time.Time) (Snapshot, []StatusWriteback) {
	weekStart, weekEnd := WeekBounds(now)

	var filtered []*doselog.DoseLog
	for _, l := range logs {
		t := l.ScheduledTime.In(now.Location())
		if !t.Before(weekStart) && !t.After(weekEnd) {
			filtered = append(filtered, l)
		}
	}
	if len(filtered) == 0 {
		// Explicit zero snapshot: an empty week must not surface as NaN.
		return Snapshot{}, nil
	}

	var snap Snapshot
	var writebacks []StatusWriteback
	snap.Total = len(filtered)

	for _, l := range filtered {
		status := l.Status
		if status == doselog.StatusPending {
			status = doselog.Classify(l.ScheduledTime, l.TakenTime, now)
			if status == doselog.StatusMissed {
				writebacks = append(writebacks, StatusWriteback{LogID: l.ID, Status: doselog.StatusMissed})
			}
		}
		switch status {
		case doselog.StatusTaken:
			snap.OnTime++
		case doselog.StatusLate:
			snap.Late++
		case doselog.StatusMissed:
			snap.Missed++
		}
	}

	total := float64(snap.Total)
	rate := 100 - float64(snap.Missed)/total*100 - float64(snap.Late)/total*50
	snap.AdherenceRate = int(math.Round(rate))
	if snap.AdherenceRate < 0 {
		snap.AdherenceRate = 0
	}
	return snap, writebacks
}

// WeekBounds returns the Monday-at-midnight start and Sunday 23:59:59.999
// end of the week containing now. Weeks anchor to Monday regardless of
// locale; on a Sunday the start is six days back.
func WeekBounds(now time.Time) (time.Time, time.Time) {
	back := int(now.Weekday()) - 1
	if back < 0 {
		back = 6
	}
	start := medication.DateOf(now).AddDate(0, 0, -back)
	end := start.AddDate(0, 0, 7).Add(-time.Millisecond)
	return start, end
}
