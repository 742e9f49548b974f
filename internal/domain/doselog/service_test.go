package doselog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medtrack/medtrack/internal/domain/medication"
)

type mockRepo struct {
	logs    map[uuid.UUID]*DoseLog
	updates int
}

func newMockRepo() *mockRepo {
	return &mockRepo{logs: make(map[uuid.UUID]*DoseLog)}
}

func (r *mockRepo) GetByID(ctx context.Context, id uuid.UUID) (*DoseLog, error) {
	l, ok := r.logs[id]
	if !ok {
		return nil, errors.New("no rows")
	}
	cp := *l
	return &cp, nil
}

func (r *mockRepo) ListByOwnerSince(ctx context.Context, ownerID uuid.UUID, since time.Time) ([]*DoseLog, error) {
	var out []*DoseLog
	for _, l := range r.logs {
		if l.OwnerID == ownerID && !l.ScheduledTime.Before(since) {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r *mockRepo) ListByMedication(ctx context.Context, ownerID, medicationID uuid.UUID, limit, offset int) ([]*DoseLog, int, error) {
	var out []*DoseLog
	for _, l := range r.logs {
		if l.MedicationID == medicationID && l.OwnerID == ownerID {
			out = append(out, l)
		}
	}
	return out, len(out), nil
}

func (r *mockRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status Status, takenTime *time.Time) error {
	l, ok := r.logs[id]
	if !ok {
		return errors.New("no rows")
	}
	l.Status = status
	l.TakenTime = takenTime
	r.updates++
	return nil
}

func (r *mockRepo) InsertPending(ctx context.Context, medicationID, ownerID uuid.UUID, occurrences []time.Time) error {
	for _, at := range occurrences {
		exists := false
		for _, l := range r.logs {
			if l.MedicationID == medicationID && l.ScheduledTime.Equal(at) {
				exists = true
				break
			}
		}
		if exists {
			continue
		}
		id := uuid.New()
		r.logs[id] = &DoseLog{
			ID:            id,
			MedicationID:  medicationID,
			OwnerID:       ownerID,
			ScheduledTime: at,
			Status:        StatusPending,
		}
	}
	return nil
}

func (r *mockRepo) DeletePendingAfter(ctx context.Context, medicationID uuid.UUID, after time.Time) error {
	for id, l := range r.logs {
		if l.MedicationID == medicationID && l.Status == StatusPending && l.ScheduledTime.After(after) {
			delete(r.logs, id)
		}
	}
	return nil
}

func seedLog(r *mockRepo, ownerID uuid.UUID, scheduled time.Time, status Status) *DoseLog {
	l := &DoseLog{
		ID:            uuid.New(),
		MedicationID:  uuid.New(),
		OwnerID:       ownerID,
		ScheduledTime: scheduled,
		Status:        status,
	}
	r.logs[l.ID] = l
	return l
}

func TestRecordTaken_OnTime(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, zerolog.Nop())
	owner := uuid.New()
	scheduled := time.Date(2024, time.June, 15, 9, 0, 0, 0, time.UTC)
	l := seedLog(repo, owner, scheduled, StatusPending)

	now := scheduled.Add(20 * time.Minute)
	got, err := svc.RecordTaken(context.Background(), owner, l.ID, now)
	if err != nil {
		t.Fatalf("RecordTaken() error: %v", err)
	}
	if got.Status != StatusTaken {
		t.Errorf("expected taken, got %s", got.Status)
	}
	if got.TakenTime == nil || !got.TakenTime.Equal(now) {
		t.Errorf("expected taken time %v, got %v", now, got.TakenTime)
	}
	if repo.logs[l.ID].Status != StatusTaken {
		t.Error("expected status persisted")
	}
}

func TestRecordTaken_Late(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, zerolog.Nop())
	owner := uuid.New()
	scheduled := time.Date(2024, time.June, 15, 9, 0, 0, 0, time.UTC)
	l := seedLog(repo, owner, scheduled, StatusPending)

	now := scheduled.Add(45 * time.Minute)
	got, err := svc.RecordTaken(context.Background(), owner, l.ID, now)
	if err != nil {
		t.Fatalf("RecordTaken() error: %v", err)
	}
	if got.Status != StatusLate {
		t.Errorf("expected late, got %s", got.Status)
	}
}

func TestRecordTaken_TerminalIsNoOp(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, zerolog.Nop())
	owner := uuid.New()
	scheduled := time.Date(2024, time.June, 15, 9, 0, 0, 0, time.UTC)
	l := seedLog(repo, owner, scheduled, StatusMissed)

	got, err := svc.RecordTaken(context.Background(), owner, l.ID, scheduled.Add(time.Minute))
	if err != nil {
		t.Fatalf("RecordTaken() error: %v", err)
	}
	if got.Status != StatusMissed {
		t.Errorf("expected stored status to win, got %s", got.Status)
	}
	if repo.updates != 0 {
		t.Errorf("expected no persistence for terminal log, got %d updates", repo.updates)
	}
}

func TestRecordMissed(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, zerolog.Nop())
	owner := uuid.New()
	scheduled := time.Date(2024, time.June, 15, 9, 0, 0, 0, time.UTC)
	l := seedLog(repo, owner, scheduled, StatusPending)

	got, err := svc.RecordMissed(context.Background(), owner, l.ID)
	if err != nil {
		t.Fatalf("RecordMissed() error: %v", err)
	}
	if got.Status != StatusMissed {
		t.Errorf("expected missed, got %s", got.Status)
	}
	if got.TakenTime != nil {
		t.Error("expected no taken time on a missed dose")
	}
}

func TestRecordMissed_TerminalIsNoOp(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, zerolog.Nop())
	owner := uuid.New()
	scheduled := time.Date(2024, time.June, 15, 9, 0, 0, 0, time.UTC)
	taken := scheduled.Add(10 * time.Minute)
	l := seedLog(repo, owner, scheduled, StatusTaken)
	l.TakenTime = &taken

	got, err := svc.RecordMissed(context.Background(), owner, l.ID)
	if err != nil {
		t.Fatalf("RecordMissed() error: %v", err)
	}
	if got.Status != StatusTaken {
		t.Errorf("expected stored taken status to win, got %s", got.Status)
	}
	if repo.updates != 0 {
		t.Errorf("expected no persistence for terminal log, got %d updates", repo.updates)
	}
}

func TestRecordTaken_WrongOwner(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, zerolog.Nop())
	scheduled := time.Date(2024, time.June, 15, 9, 0, 0, 0, time.UTC)
	l := seedLog(repo, uuid.New(), scheduled, StatusPending)

	_, err := svc.RecordTaken(context.Background(), uuid.New(), l.ID, scheduled)
	if !errors.Is(err, ErrWrongOwner) {
		t.Errorf("expected ErrWrongOwner, got %v", err)
	}
}

func TestRecordTaken_NotFound(t *testing.T) {
	svc := NewService(newMockRepo(), zerolog.Nop())
	_, err := svc.RecordTaken(context.Background(), uuid.New(), uuid.New(), time.Now())
	if !errors.Is(err, ErrLogNotFound) {
		t.Errorf("expected ErrLogNotFound, got %v", err)
	}
}

func TestOccurrences_OnceDaily(t *testing.T) {
	m := &medication.Medication{
		ID:            uuid.New(),
		Frequency:     medication.FrequencyOnceDaily,
		ReminderTimes: []string{"09:00"},
		StartDate:     time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC),
	}
	from := time.Date(2024, time.June, 15, 13, 0, 0, 0, time.UTC)

	got := Occurrences(m, from, 6)
	if len(got) != 7 {
		t.Fatalf("expected 7 occurrences over a 6-day horizon, got %d", len(got))
	}
	want := time.Date(2024, time.June, 15, 9, 0, 0, 0, time.UTC)
	if !got[0].Equal(want) {
		t.Errorf("expected first occurrence %v, got %v", want, got[0])
	}
}

func TestOccurrences_TwiceDaily(t *testing.T) {
	m := &medication.Medication{
		ID:            uuid.New(),
		Frequency:     medication.FrequencyTwiceDaily,
		ReminderTimes: []string{"08:00", "20:00"},
		StartDate:     time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC),
	}
	from := time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC)

	got := Occurrences(m, from, 2)
	if len(got) != 6 {
		t.Fatalf("expected 6 occurrences (2 per day, 3 days), got %d", len(got))
	}
}

func TestOccurrences_EveryOtherDay(t *testing.T) {
	start := time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC)
	m := &medication.Medication{
		ID:            uuid.New(),
		Frequency:     medication.FrequencyEveryOtherDay,
		ReminderTimes: []string{"09:00"},
		StartDate:     start,
	}

	got := Occurrences(m, start, 6)
	if len(got) != 4 {
		t.Fatalf("expected 4 occurrences (days 0,2,4,6), got %d", len(got))
	}
	for i, at := range got {
		wantDay := start.AddDate(0, 0, i*2).Day()
		if at.Day() != wantDay {
			t.Errorf("occurrence %d: expected day %d, got %d", i, wantDay, at.Day())
		}
	}
}

func TestOccurrences_AsNeededIsEmpty(t *testing.T) {
	m := &medication.Medication{
		ID:            uuid.New(),
		Frequency:     medication.FrequencyAsNeeded,
		ReminderTimes: []string{"09:00"},
		StartDate:     time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC),
	}
	got := Occurrences(m, time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC), 30)
	if len(got) != 0 {
		t.Errorf("expected no occurrences for as_needed, got %d", len(got))
	}
}

func TestOccurrences_SkipsMalformedClockTimes(t *testing.T) {
	m := &medication.Medication{
		ID:            uuid.New(),
		Frequency:     medication.FrequencyTwiceDaily,
		ReminderTimes: []string{"8am", "20:00"},
		StartDate:     time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC),
	}
	got := Occurrences(m, time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC), 0)
	if len(got) != 1 {
		t.Fatalf("expected the valid time to survive, got %d occurrences", len(got))
	}
	if got[0].Hour() != 20 {
		t.Errorf("expected 20:00 occurrence, got %v", got[0])
	}
}

func TestGenerateForMedication(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, zerolog.Nop())
	owner := uuid.New()
	m := &medication.Medication{
		ID:            uuid.New(),
		OwnerID:       owner,
		Frequency:     medication.FrequencyOnceDaily,
		ReminderTimes: []string{"09:00"},
		StartDate:     time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC),
		IsActive:      true,
	}
	from := time.Date(2024, time.June, 15, 8, 0, 0, 0, time.UTC)

	if err := svc.GenerateForMedication(context.Background(), m, from, 4); err != nil {
		t.Fatalf("GenerateForMedication() error: %v", err)
	}
	if len(repo.logs) != 5 {
		t.Fatalf("expected 5 pending logs, got %d", len(repo.logs))
	}
	for _, l := range repo.logs {
		if l.Status != StatusPending {
			t.Errorf("expected pending status, got %s", l.Status)
		}
		if l.OwnerID != owner {
			t.Error("expected owner carried onto generated logs")
		}
	}
}

func TestGenerateForMedication_ReplacesFuturePending(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, zerolog.Nop())
	owner := uuid.New()
	m := &medication.Medication{
		ID:            uuid.New(),
		OwnerID:       owner,
		Frequency:     medication.FrequencyOnceDaily,
		ReminderTimes: []string{"09:00"},
		StartDate:     time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC),
		IsActive:      true,
	}
	from := time.Date(2024, time.June, 15, 8, 0, 0, 0, time.UTC)

	if err := svc.GenerateForMedication(context.Background(), m, from, 4); err != nil {
		t.Fatalf("GenerateForMedication() error: %v", err)
	}

	// A taken log in the window must survive a regeneration.
	var takenID uuid.UUID
	for id, l := range repo.logs {
		l := l
		if l.ScheduledTime.Day() == 16 {
			now := l.ScheduledTime.Add(5 * time.Minute)
			l.Status = StatusTaken
			l.TakenTime = &now
			takenID = id
			break
		}
	}

	m.ReminderTimes = []string{"10:00"}
	if err := svc.GenerateForMedication(context.Background(), m, from, 4); err != nil {
		t.Fatalf("GenerateForMedication() regenerate error: %v", err)
	}

	if _, ok := repo.logs[takenID]; !ok {
		t.Error("expected terminal log to survive regeneration")
	}
	for _, l := range repo.logs {
		if l.Status == StatusPending && l.ScheduledTime.After(from) && l.ScheduledTime.Hour() != 10 {
			t.Errorf("expected future pending logs regenerated at 10:00, found %v", l.ScheduledTime)
		}
	}
}
