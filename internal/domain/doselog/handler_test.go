package doselog

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

	"github.com/medtrack/medtrack/internal/platform/auth"
)

func newTestHandler() (*Handler, *mockRepo, *echo.Echo) {
	repo := newMockRepo()
	svc := NewService(repo, zerolog.Nop())
	return NewHandler(svc), repo, echo.New()
}

func authedContext(e *echo.Echo, method, target string, owner uuid.UUID) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, nil)
	ctx := context.WithValue(req.Context(), auth.UserIDKey, owner.String())
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestHandler_Get(t *testing.T) {
	h, repo, e := newTestHandler()
	owner := uuid.New()
	scheduled := time.Date(2024, time.June, 15, 9, 0, 0, 0, time.UTC)
	l := seedLog(repo, owner, scheduled, StatusPending)

	c, rec := authedContext(e, http.MethodGet, "/", owner)
	c.SetParamNames("id")
	c.SetParamValues(l.ID.String())

	if err := h.Get(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	var got DoseLog
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.ID != l.ID {
		t.Errorf("expected id %s, got %s", l.ID, got.ID)
	}
}

func TestHandler_Get_NotFound(t *testing.T) {
	h, _, e := newTestHandler()
	c, _ := authedContext(e, http.MethodGet, "/", uuid.New())
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())

	err := h.Get(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", err)
	}
}

func TestHandler_Get_WrongOwnerIsNotFound(t *testing.T) {
	h, repo, e := newTestHandler()
	scheduled := time.Date(2024, time.June, 15, 9, 0, 0, 0, time.UTC)
	l := seedLog(repo, uuid.New(), scheduled, StatusPending)

	c, _ := authedContext(e, http.MethodGet, "/", uuid.New())
	c.SetParamNames("id")
	c.SetParamValues(l.ID.String())

	err := h.Get(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for foreign log, got %v", err)
	}
}

func TestHandler_Get_InvalidID(t *testing.T) {
	h, _, e := newTestHandler()
	c, _ := authedContext(e, http.MethodGet, "/", uuid.New())
	c.SetParamNames("id")
	c.SetParamValues("not-a-uuid")

	err := h.Get(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestHandler_Get_Unauthenticated(t *testing.T) {
	h, _, e := newTestHandler()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())

	err := h.Get(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
}

func TestHandler_RecordTaken(t *testing.T) {
	h, repo, e := newTestHandler()
	owner := uuid.New()
	// Scheduled in the recent past so recording now classifies as late.
	scheduled := time.Now().Add(-45 * time.Minute)
	l := seedLog(repo, owner, scheduled, StatusPending)

	c, rec := authedContext(e, http.MethodPost, "/", owner)
	c.SetParamNames("id")
	c.SetParamValues(l.ID.String())

	if err := h.RecordTaken(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	var got DoseLog
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Status != StatusLate {
		t.Errorf("expected late, got %s", got.Status)
	}
}

func TestHandler_RecordMissed(t *testing.T) {
	h, repo, e := newTestHandler()
	owner := uuid.New()
	l := seedLog(repo, owner, time.Now().Add(-time.Hour), StatusPending)

	c, rec := authedContext(e, http.MethodPost, "/", owner)
	c.SetParamNames("id")
	c.SetParamValues(l.ID.String())

	if err := h.RecordMissed(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if repo.logs[l.ID].Status != StatusMissed {
		t.Errorf("expected missed persisted, got %s", repo.logs[l.ID].Status)
	}
}

func TestHandler_ListByMedication(t *testing.T) {
	h, repo, e := newTestHandler()
	owner := uuid.New()
	medID := uuid.New()
	for i := 0; i < 3; i++ {
		l := seedLog(repo, owner, time.Now().Add(time.Duration(i)*time.Hour), StatusPending)
		l.MedicationID = medID
	}

	c, rec := authedContext(e, http.MethodGet, "/?limit=10", owner)
	c.SetParamNames("medicationId")
	c.SetParamValues(medID.String())

	if err := h.ListByMedication(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		Total int `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Total != 3 {
		t.Errorf("expected total 3, got %d", resp.Total)
	}
}

func TestHandler_ListByMedication_ForeignOwnerSeesNothing(t *testing.T) {
	h, repo, e := newTestHandler()
	victim := uuid.New()
	medID := uuid.New()
	l := seedLog(repo, victim, time.Now(), StatusTaken)
	l.MedicationID = medID

	// Authenticated as a different user, listing the victim's medication.
	c, rec := authedContext(e, http.MethodGet, "/?limit=10", uuid.New())
	c.SetParamNames("medicationId")
	c.SetParamValues(medID.String())

	if err := h.ListByMedication(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var resp struct {
		Data  []*DoseLog `json:"data"`
		Total int        `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Total != 0 || len(resp.Data) != 0 {
		t.Errorf("expected empty page for foreign owner, got total %d with %d logs", resp.Total, len(resp.Data))
	}
}
