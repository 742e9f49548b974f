package medication

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ScheduleGenerator creates dose-log occurrences for a medication's schedule.
// Implemented by the doselog service; declared here to keep the dependency
// one-directional between the two packages.
type ScheduleGenerator interface {
	GenerateForMedication(ctx context.Context, m *Medication, from time.Time, horizonDays int) error
}

// DefaultHorizonDays is how far ahead dose logs are generated when a
// medication is created or its schedule changes.
const DefaultHorizonDays = 30

type Service struct {
	repo    Repository
	gen     ScheduleGenerator
	horizon int
	logger  zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, horizon: DefaultHorizonDays, logger: logger}
}

// SetScheduleGenerator attaches an optional occurrence generator, invoked
// after creates and schedule updates.
func (s *Service) SetScheduleGenerator(gen ScheduleGenerator) {
	s.gen = gen
}

// SetHorizonDays overrides how far ahead schedules are generated.
func (s *Service) SetHorizonDays(days int) {
	if days >= 1 {
		s.horizon = days
	}
}

func (s *Service) Create(ctx context.Context, m *Medication) error {
	if err := s.validate(m); err != nil {
		return err
	}
	if err := s.repo.Create(ctx, m); err != nil {
		return err
	}
	s.generateSchedule(ctx, m)
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Medication, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Update(ctx context.Context, m *Medication) error {
	if err := s.validate(m); err != nil {
		return err
	}
	if err := s.repo.Update(ctx, m); err != nil {
		return err
	}
	s.generateSchedule(ctx, m)
	return nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) ListByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]*Medication, int, error) {
	return s.repo.ListByOwner(ctx, ownerID, limit, offset)
}

func (s *Service) ListActiveByOwner(ctx context.Context, ownerID uuid.UUID) ([]*Medication, error) {
	return s.repo.ListActiveByOwner(ctx, ownerID)
}

func (s *Service) validate(m *Medication) error {
	if m.OwnerID == uuid.Nil {
		return fmt.Errorf("owner_id is required")
	}
	if m.Name == "" {
		return fmt.Errorf("name is required")
	}
	if m.Frequency == "" {
		m.Frequency = FrequencyOnceDaily
	}
	if !m.Frequency.Known() {
		return fmt.Errorf("invalid frequency: %s", m.Frequency)
	}
	for _, ct := range m.ReminderTimes {
		if _, err := time.Parse("15:04", ct); err != nil {
			return fmt.Errorf("invalid reminder time %q: expected HH:MM", ct)
		}
	}
	if len(m.ReminderTimes) > m.Frequency.MaxReminderSlots() {
		return fmt.Errorf("frequency %s allows at most %d reminder times, got %d",
			m.Frequency, m.Frequency.MaxReminderSlots(), len(m.ReminderTimes))
	}
	if m.StartDate.IsZero() {
		m.StartDate = DateOf(time.Now())
	}
	return nil
}

func (s *Service) generateSchedule(ctx context.Context, m *Medication) {
	if s.gen == nil || !m.IsActive || m.Frequency == FrequencyAsNeeded {
		return
	}
	if err := s.gen.GenerateForMedication(ctx, m, time.Now(), s.horizon); err != nil {
		s.logger.Error().Err(err).
			Str("medication_id", m.ID.String()).
			Msg("failed to generate dose schedule")
	}
}
