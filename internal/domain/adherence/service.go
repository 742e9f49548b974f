package adherence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medtrack/medtrack/internal/domain/doselog"
	"github.com/medtrack/medtrack/internal/domain/medication"
)

// MedicationSource supplies the owner's active medication definitions.
// Satisfied by medication.Repository.
type MedicationSource interface {
	ListActiveByOwner(ctx context.Context, ownerID uuid.UUID) ([]*medication.Medication, error)
}

// LogStore supplies dose logs and accepts healing write-backs.
// Satisfied by doselog.Repository.
type LogStore interface {
	ListByOwnerSince(ctx context.Context, ownerID uuid.UUID, since time.Time) ([]*doselog.DoseLog, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status doselog.Status, takenTime *time.Time) error
}

// MissedDoseNotifier delivers a best-effort notification when healing flips
// a dose to missed. Optional.
type MissedDoseNotifier interface {
	DoseMissed(ctx context.Context, ownerID uuid.UUID, medicationName string, scheduled time.Time) error
}

const writebackTimeout = 10 * time.Second

type Service struct {
	meds     MedicationSource
	logs     LogStore
	engine   *Engine
	notifier MissedDoseNotifier
	logger   zerolog.Logger
}

func NewService(meds MedicationSource, logs LogStore, engine *Engine, logger zerolog.Logger) *Service {
	return &Service{meds: meds, logs: logs, engine: engine, logger: logger}
}

// SetNotifier attaches an optional missed-dose notifier.
func (s *Service) SetNotifier(n MissedDoseNotifier) {
	s.notifier = n
}

// TodayReminders materializes the owner's reminders for now's calendar day.
// Healing write-backs run in the background; the returned view already
// reflects the healed statuses, and a failed write-back simply retries on
// the next materialization pass.
func (s *Service) TodayReminders(ctx context.Context, ownerID uuid.UUID, now time.Time) ([]Reminder, error) {
	defs, err := s.meds.ListActiveByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	logs, err := s.logs.ListByOwnerSince(ctx, ownerID, medication.DateOf(now))
	if err != nil {
		return nil, err
	}

	reminders, writebacks := s.engine.MaterializeToday(defs, logs, now)
	if len(writebacks) > 0 {
		go s.applyWritebacks(ownerID, writebacks, reminders)
	}
	return reminders, nil
}

// WeeklyAdherence computes the owner's adherence snapshot for the current
// Monday-anchored week.
func (s *Service) WeeklyAdherence(ctx context.Context, ownerID uuid.UUID, now time.Time) (Snapshot, error) {
	weekStart, _ := WeekBounds(now)
	logs, err := s.logs.ListByOwnerSince(ctx, ownerID, weekStart)
	if err != nil {
		return Snapshot{}, err
	}

	snap, writebacks := s.engine.ComputeWeeklyAdherence(logs, now)
	if len(writebacks) > 0 {
		// Resolve medication names before leaving the request, so a heal
		// flipping a log to missed still produces a notification here.
		refs := s.healedDoseRefs(ctx, ownerID, logs, writebacks)
		go s.applyWritebacks(ownerID, writebacks, refs)
	}
	return snap, nil
}

// healedDoseRefs maps healed log ids back to their medication names so the
// write-back pass can notify. A log whose medication is gone or inactive is
// healed silently.
func (s *Service) healedDoseRefs(ctx context.Context, ownerID uuid.UUID, logs []*doselog.DoseLog, writebacks []StatusWriteback) []Reminder {
	defs, err := s.meds.ListActiveByOwner(ctx, ownerID)
	if err != nil {
		s.logger.Warn().Err(err).Msg("medication lookup for healed logs failed")
		return nil
	}
	names := make(map[uuid.UUID]string, len(defs))
	for _, m := range defs {
		names[m.ID] = m.Name
	}

	byID := make(map[uuid.UUID]*doselog.DoseLog, len(logs))
	for _, l := range logs {
		byID[l.ID] = l
	}

	var refs []Reminder
	for _, wb := range writebacks {
		l, ok := byID[wb.LogID]
		if !ok {
			continue
		}
		name, ok := names[l.MedicationID]
		if !ok {
			continue
		}
		id := l.ID
		refs = append(refs, Reminder{
			MedicationID:   l.MedicationID,
			MedicationName: name,
			ScheduledTime:  l.ScheduledTime,
			LogID:          &id,
		})
	}
	return refs
}

// applyWritebacks persists healed statuses off the read path. The storage
// treats setting missed twice as idempotent, so concurrent passes coalesce.
func (s *Service) applyWritebacks(ownerID uuid.UUID, writebacks []StatusWriteback, reminders []Reminder) {
	ctx, cancel := context.WithTimeout(context.Background(), writebackTimeout)
	defer cancel()

	for _, wb := range writebacks {
		if err := s.logs.UpdateStatus(ctx, wb.LogID, wb.Status, nil); err != nil {
			s.logger.Error().Err(err).
				Str("log_id", wb.LogID.String()).
				Str("status", string(wb.Status)).
				Msg("healing write-back failed")
			continue
		}
		s.notifyMissed(ctx, ownerID, wb, reminders)
	}
}

func (s *Service) notifyMissed(ctx context.Context, ownerID uuid.UUID, wb StatusWriteback, reminders []Reminder) {
	if s.notifier == nil || wb.Status != doselog.StatusMissed {
		return
	}
	for _, r := range reminders {
		if r.LogID == nil || *r.LogID != wb.LogID {
			continue
		}
		if err := s.notifier.DoseMissed(ctx, ownerID, r.MedicationName, r.ScheduledTime); err != nil {
			s.logger.Warn().Err(err).
				Str("log_id", wb.LogID.String()).
				Msg("missed-dose notification failed")
		}
		return
	}
}
