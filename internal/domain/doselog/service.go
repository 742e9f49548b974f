package doselog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medtrack/medtrack/internal/domain/medication"
)

// Common errors returned by the dose-log service.
var (
	ErrLogNotFound = errors.New("dose log not found")
	ErrWrongOwner  = errors.New("dose log belongs to a different owner")
)

type Service struct {
	repo   Repository
	logger zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// RecordTaken marks a pending dose as taken, classifying on-time vs late
// from the elapsed time since the scheduled occurrence. Calling it against a
// log that already left pending is an idempotent no-op: the stored record
// wins and is returned unchanged, so a taken dose can never be silently
// rewritten.
func (s *Service) RecordTaken(ctx context.Context, ownerID, logID uuid.UUID, now time.Time) (*DoseLog, error) {
	log, err := s.get(ctx, ownerID, logID)
	if err != nil {
		return nil, err
	}
	if log.Status.Terminal() {
		s.logger.Debug().
			Str("log_id", logID.String()).
			Str("status", string(log.Status)).
			Msg("record-taken ignored for terminal dose log")
		return log, nil
	}

	taken := now
	status := Classify(log.ScheduledTime, &taken, now)
	if err := s.repo.UpdateStatus(ctx, logID, status, &taken); err != nil {
		return nil, fmt.Errorf("record taken: %w", err)
	}
	log.Status = status
	log.TakenTime = &taken
	return log, nil
}

// RecordMissed marks a pending dose as missed. This is the explicit override
// path (user or system), distinct from the automatic 4-hour healing applied
// on reads. Like RecordTaken it is a no-op against a terminal log.
func (s *Service) RecordMissed(ctx context.Context, ownerID, logID uuid.UUID) (*DoseLog, error) {
	log, err := s.get(ctx, ownerID, logID)
	if err != nil {
		return nil, err
	}
	if log.Status.Terminal() {
		s.logger.Debug().
			Str("log_id", logID.String()).
			Str("status", string(log.Status)).
			Msg("record-missed ignored for terminal dose log")
		return log, nil
	}

	if err := s.repo.UpdateStatus(ctx, logID, StatusMissed, nil); err != nil {
		return nil, fmt.Errorf("record missed: %w", err)
	}
	log.Status = StatusMissed
	return log, nil
}

// Get returns a single dose log scoped to its owner.
func (s *Service) Get(ctx context.Context, ownerID, logID uuid.UUID) (*DoseLog, error) {
	return s.get(ctx, ownerID, logID)
}

func (s *Service) get(ctx context.Context, ownerID, logID uuid.UUID) (*DoseLog, error) {
	log, err := s.repo.GetByID(ctx, logID)
	if err != nil {
		return nil, ErrLogNotFound
	}
	if log.OwnerID != ownerID {
		return nil, ErrWrongOwner
	}
	return log, nil
}

// ListByOwnerSince returns the owner's logs scheduled at or after since.
func (s *Service) ListByOwnerSince(ctx context.Context, ownerID uuid.UUID, since time.Time) ([]*DoseLog, error) {
	return s.repo.ListByOwnerSince(ctx, ownerID, since)
}

// ListByMedication returns a page of the owner's logs for one medication,
// newest first. Logs belonging to other owners are never returned.
func (s *Service) ListByMedication(ctx context.Context, ownerID, medicationID uuid.UUID, limit, offset int) ([]*DoseLog, int, error) {
	return s.repo.ListByMedication(ctx, ownerID, medicationID, limit, offset)
}

// GenerateForMedication materializes pending dose logs for every scheduled
// occurrence of m over the horizon, one row per applicable day per reminder
// clock-time. Existing rows are preserved; pending rows beyond the schedule
// change point are replaced so edits take effect going forward.
//
// Implements medication.ScheduleGenerator.
func (s *Service) GenerateForMedication(ctx context.Context, m *medication.Medication, from time.Time, horizonDays int) error {
	occurrences := Occurrences(m, from, horizonDays)

	if err := s.repo.DeletePendingAfter(ctx, m.ID, from); err != nil {
		return fmt.Errorf("clear stale pending logs: %w", err)
	}
	if len(occurrences) == 0 {
		return nil
	}
	if err := s.repo.InsertPending(ctx, m.ID, m.OwnerID, occurrences); err != nil {
		return fmt.Errorf("insert dose logs: %w", err)
	}
	s.logger.Info().
		Str("medication_id", m.ID.String()).
		Int("occurrences", len(occurrences)).
		Int("horizon_days", horizonDays).
		Msg("generated dose schedule")
	return nil
}

// Occurrences expands a medication's schedule into concrete timestamps for
// each applicable day from the day of from through horizonDays days out.
// Malformed clock-times are skipped; the rest of the schedule still
// generates.
func Occurrences(m *medication.Medication, from time.Time, horizonDays int) []time.Time {
	var out []time.Time
	day := medication.DateOf(from)
	for i := 0; i <= horizonDays; i++ {
		if m.ScheduledOn(day) {
			for _, clock := range m.ReminderTimes {
				at, err := medication.CombineOnDay(day, clock)
				if err != nil {
					continue
				}
				out = append(out, at)
			}
		}
		day = day.AddDate(0, 0, 1)
	}
	return out
}
