package appointment

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medibook/medibook/internal/platform/auth"
	"github.com/medibook/medibook/pkg/pagination"
)

type Handler struct {
	svc     *Service
	sweeper *Sweeper
}

func NewHandler(svc *Service, sweeper *Sweeper) *Handler {
	return &Handler{svc: svc, sweeper: sweeper}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	readGroup := api.Group("", auth.RequireRole("admin", "doctor", "receptionist", "patient"))
	readGroup.GET("/appointments", h.List)
	readGroup.GET("/appointments/:id", h.Get)

	writeGroup := api.Group("", auth.RequireRole("admin", "doctor", "receptionist", "patient"))
	writeGroup.POST("/appointments", h.Book)
	writeGroup.PUT("/appointments/:id", h.Update)
	writeGroup.POST("/appointments/:id/cancel", h.Cancel)

	adminGroup := api.Group("", auth.RequireRole("admin"))
	adminGroup.DELETE("/appointments/:id", h.Delete)
	adminGroup.POST("/appointments/reminders/run", h.RunReminders)
}

// Book handles POST /appointments. Scheduler refusals come back as structured
// rejections so the caller can correct the request.
func (h *Handler) Book(c echo.Context) error {
	var req BookingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	appt, err := h.svc.Book(c.Request().Context(), req)
	if err != nil {
		if r := AsRejection(err); r != nil {
			status := http.StatusBadRequest
			if r.Kind == DoctorAlreadyBooked {
				status = http.StatusConflict
			}
			return c.JSON(status, map[string]interface{}{
				"error":     r.Error(),
				"rejection": r,
			})
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, appt)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	appt, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "appointment not found")
	}
	return c.JSON(http.StatusOK, appt)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	params := map[string]string{}
	for _, key := range []string{"doctor_id", "patient_id", "status", "from", "to"} {
		if v := c.QueryParam(key); v != "" {
			params[key] = v
		}
	}
	items, total, err := h.svc.Search(c.Request().Context(), params, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req UpdateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	appt, err := h.svc.Update(c.Request().Context(), id, req)
	if err != nil {
		if r := AsRejection(err); r != nil {
			status := http.StatusBadRequest
			if r.Kind == DoctorAlreadyBooked {
				status = http.StatusConflict
			}
			return c.JSON(status, map[string]interface{}{
				"error":     r.Error(),
				"rejection": r,
			})
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, appt)
}

func (h *Handler) Cancel(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	appt, err := h.svc.Cancel(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "appointment not found")
	}
	return c.JSON(http.StatusOK, appt)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// RunReminders triggers one reminder sweep outside the ticker schedule.
func (h *Handler) RunReminders(c echo.Context) error {
	if h.sweeper == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "reminders are not configured")
	}
	sent, failed := h.sweeper.Sweep(c.Request().Context())
	return c.JSON(http.StatusOK, map[string]int{"sent": sent, "failed": failed})
}
