package doselog

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medtrack/medtrack/internal/platform/auth"
	"github.com/medtrack/medtrack/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/dose-logs/:id", h.Get)
	api.GET("/medications/:medicationId/dose-logs", h.ListByMedication)
	api.POST("/dose-logs/:id/taken", h.RecordTaken)
	api.POST("/dose-logs/:id/missed", h.RecordMissed)
}

func (h *Handler) Get(c echo.Context) error {
	owner, err := auth.OwnerID(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	log, err := h.svc.Get(c.Request().Context(), owner, id)
	if err != nil {
		return logError(err)
	}
	return c.JSON(http.StatusOK, log)
}

func (h *Handler) ListByMedication(c echo.Context) error {
	owner, err := auth.OwnerID(c)
	if err != nil {
		return err
	}
	medID, err := uuid.Parse(c.Param("medicationId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid medication id")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListByMedication(c.Request().Context(), owner, medID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) RecordTaken(c echo.Context) error {
	owner, err := auth.OwnerID(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	log, err := h.svc.RecordTaken(c.Request().Context(), owner, id, time.Now())
	if err != nil {
		return logError(err)
	}
	return c.JSON(http.StatusOK, log)
}

func (h *Handler) RecordMissed(c echo.Context) error {
	owner, err := auth.OwnerID(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	log, err := h.svc.RecordMissed(c.Request().Context(), owner, id)
	if err != nil {
		return logError(err)
	}
	return c.JSON(http.StatusOK, log)
}

func logError(err error) error {
	switch {
	case errors.Is(err, ErrLogNotFound), errors.Is(err, ErrWrongOwner):
		return echo.NewHTTPError(http.StatusNotFound, "dose log not found")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
