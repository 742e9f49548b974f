package adherence

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/medtrack/medtrack/internal/domain/medication"
	"github.com/medtrack/medtrack/internal/platform/auth"
)

func newTestHandler(meds ...*medication.Medication) (*Handler, *mockLogs, *echo.Echo) {
	logs := newMockLogs()
	svc := NewService(&mockMeds{meds: meds}, logs, NewEngine(zerolog.Nop()), zerolog.Nop())
	return NewHandler(svc), logs, echo.New()
}

func authedContext(e *echo.Echo, target string, owner uuid.UUID) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	ctx := context.WithValue(req.Context(), auth.UserIDKey, owner.String())
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestHandler_TodayReminders_EmptyIsArray(t *testing.T) {
	h, _, e := newTestHandler()
	c, rec := authedContext(e, "/reminders/today", uuid.New())

	if err := h.TodayReminders(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	// An owner without reminders gets an empty array, not null.
	var got []Reminder
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got == nil {
		t.Error("expected [] body, got null")
	}
}

func TestHandler_TodayReminders(t *testing.T) {
	owner := uuid.New()
	m := newMed(medication.FrequencyOnceDaily, "00:00")
	m.OwnerID = owner
	h, _, e := newTestHandler(m)

	c, rec := authedContext(e, "/reminders/today", owner)
	if err := h.TodayReminders(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var got []Reminder
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 reminder, got %d", len(got))
	}
	if got[0].MedicationID != m.ID {
		t.Errorf("expected medication %s on reminder, got %s", m.ID, got[0].MedicationID)
	}
	// A midnight dose with no log is missed once 4 hours have elapsed,
	// pending before that. Either way it must carry a concrete status.
	if got[0].Status == "" {
		t.Error("expected a status on the reminder")
	}
}

func TestHandler_TodayReminders_Unauthenticated(t *testing.T) {
	h, _, e := newTestHandler()
	req := httptest.NewRequest(http.MethodGet, "/reminders/today", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.TodayReminders(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
}

func TestHandler_WeeklyAdherence_EmptyWeek(t *testing.T) {
	h, _, e := newTestHandler()
	c, rec := authedContext(e, "/adherence/weekly", uuid.New())

	if err := h.WeeklyAdherence(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	var got Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got != (Snapshot{}) {
		t.Errorf("expected zero snapshot, got %+v", got)
	}
}

func TestHandler_WeeklyAdherence(t *testing.T) {
	owner := uuid.New()
	m := newMed(medication.FrequencyOnceDaily, "09:00")
	m.OwnerID = owner
	h, logs, e := newTestHandler(m)

	// A dose taken on time earlier in the current week.
	weekStart, _ := WeekBounds(time.Now())
	l := takenLog(m, weekStart.Add(9*time.Hour), 5*time.Minute)
	l.OwnerID = owner
	logs.mu.Lock()
	logs.logs = append(logs.logs, l)
	logs.mu.Unlock()

	c, rec := authedContext(e, "/adherence/weekly", owner)
	if err := h.WeeklyAdherence(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var got Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Total != 1 || got.OnTime != 1 {
		t.Errorf("unexpected snapshot %+v", got)
	}
	if got.AdherenceRate != 100 {
		t.Errorf("expected adherence rate 100, got %d", got.AdherenceRate)
	}
}
