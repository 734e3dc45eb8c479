package appointments

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinica/turnos/internal/platform/report"
	"github.com/clinica/turnos/internal/platform/telegram"
	"github.com/clinica/turnos/pkg/pagination"
)

// Notifier pushes a text summary to the clinic's chat channel.
type Notifier interface {
	SendMessage(ctx context.Context, text string) error
}

type Handler struct {
	svc      *Service
	notifier Notifier
}

// NewHandler wires the appointment endpoints. notifier may be nil when no
// chat integration is configured; the notify endpoint then reports 503.
func NewHandler(svc *Service, notifier Notifier) *Handler {
	return &Handler{svc: svc, notifier: notifier}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/appointments", h.ListAppointments)
	api.GET("/appointments/today", h.ListToday)
	api.GET("/appointments/available-slots", h.AvailableSlots)
	api.GET("/appointments/available-days", h.AvailableDays)
	api.GET("/appointments/today/pdf", h.TodayPDF)
	api.POST("/appointments/today/notify", h.NotifyToday)
	api.POST("/appointments", h.Book)
	api.GET("/appointments/:id", h.GetAppointment)
	api.POST("/appointments/:id/status", h.TransitionStatus)
	api.POST("/appointments/:id/attention", h.MarkAttention)
	api.POST("/appointments/:id/reschedule-tomorrow", h.RescheduleTomorrow)
	api.DELETE("/appointments/:id", h.DeleteIfFinished)
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "appointment not found")
	case errors.Is(err, ErrCapacityExceeded):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrOutsideWorkingHours), errors.Is(err, ErrInvalidStatus):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

type bookRequest struct {
	Date      string    `json:"date" form:"date"`
	Time      string    `json:"time" form:"time"`
	PatientID uuid.UUID `json:"patient_id" form:"patient_id"`
}

func (h *Handler) Book(c echo.Context) error {
	var req bookRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid date: expected YYYY-MM-DD")
	}
	tod, err := ParseTimeOfDay(req.Time)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.PatientID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "patient_id is required")
	}

	a, err := h.svc.Book(c.Request().Context(), date, tod, req.PatientID)
	if err != nil {
		return httpError(err)
	}
	if a == nil {
		// Lenient mode dropped an out-of-hours booking without error.
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) GetAppointment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	a, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) ListAppointments(c echo.Context) error {
	pg := pagination.FromContext(c)
	var f ListFilter

	if pid := c.QueryParam("patient_id"); pid != "" {
		id, err := uuid.Parse(pid)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
		}
		f.PatientID = &id
	}
	if d := c.QueryParam("date"); d != "" {
		date, err := time.Parse("2006-01-02", d)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid date: expected YYYY-MM-DD")
		}
		f.ExactDate = &date
	}
	if off := c.QueryParam("offset_days"); off != "" && f.ExactDate == nil {
		days, err := strconv.Atoi(off)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid offset_days")
		}
		f.OffsetDays = &days
	}
	if c.QueryParam("next_day") == "true" && f.ExactDate == nil && f.OffsetDays == nil {
		one := 1
		f.OffsetDays = &one
	}

	items, total, err := h.svc.List(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) ListToday(c echo.Context) error {
	entries, err := h.svc.DaySchedule(c.Request().Context(), h.svc.now())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"appointments": entries,
		"count":        len(entries),
	})
}

type transitionRequest struct {
	Status string `json:"status" form:"status"`
}

func (h *Handler) TransitionStatus(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req transitionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.Transition(c.Request().Context(), id, req.Status); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) MarkAttention(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.MarkAttentionCompleted(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) RescheduleTomorrow(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.RescheduleToTomorrowIfToday(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) DeleteIfFinished(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteIfFinished(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) AvailableSlots(c echo.Context) error {
	d := c.QueryParam("date")
	if d == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "date is required")
	}
	date, err := time.Parse("2006-01-02", d)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid date: expected YYYY-MM-DD")
	}
	avail, err := h.svc.AvailableSlots(c.Request().Context(), date)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, avail)
}

func (h *Handler) AvailableDays(c echo.Context) error {
	days := h.svc.AvailableDays()
	out := make([]string, 0, len(days))
	for _, d := range days {
		out = append(out, d.Format("2006-01-02"))
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"days": out})
}

func (h *Handler) TodayPDF(c echo.Context) error {
	today := DateOnly(h.svc.now())
	entries, err := h.svc.DaySchedule(c.Request().Context(), today)
	if err != nil {
		return httpError(err)
	}
	lines := make([]report.Entry, 0, len(entries))
	for _, e := range entries {
		line := report.Entry{Time: e.TimeOfDay.String(), PatientName: e.PatientName}
		if e.PatientInsurance != nil {
			line.Insurance = *e.PatientInsurance
		}
		lines = append(lines, line)
	}
	pdf, err := report.DailySchedule(today, lines)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="turnos.pdf"`)
	return c.Blob(http.StatusOK, "application/pdf", pdf)
}

func (h *Handler) NotifyToday(c echo.Context) error {
	if h.notifier == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "chat notifications are not configured")
	}
	ctx := c.Request().Context()
	text, count, err := h.svc.DailySummary(ctx, h.svc.now())
	if err != nil {
		return httpError(err)
	}
	if err := h.notifier.SendMessage(ctx, text); err != nil {
		switch {
		case errors.Is(err, telegram.ErrInvalidToken):
			return echo.NewHTTPError(http.StatusBadGateway, "notification rejected: invalid bot credential")
		case errors.Is(err, telegram.ErrBadRequest):
			return echo.NewHTTPError(http.StatusBadGateway, "notification rejected: malformed request or chat id")
		default:
			return echo.NewHTTPError(http.StatusBadGateway, "notification failed: "+err.Error())
		}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"sent":  true,
		"count": count,
	})
}
