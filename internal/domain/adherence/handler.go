package adherence

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/medtrack/medtrack/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/reminders/today", h.TodayReminders)
	api.GET("/adherence/weekly", h.WeeklyAdherence)
}

func (h *Handler) TodayReminders(c echo.Context) error {
	owner, err := auth.OwnerID(c)
	if err != nil {
		return err
	}
	reminders, err := h.svc.TodayReminders(c.Request().Context(), owner, time.Now())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if reminders == nil {
		reminders = []Reminder{}
	}
	return c.JSON(http.StatusOK, reminders)
}

func (h *Handler) WeeklyAdherence(c echo.Context) error {
	owner, err := auth.OwnerID(c)
	if err != nil {
		return err
	}
	snap, err := h.svc.WeeklyAdherence(c.Request().Context(), owner, time.Now())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, snap)
}
