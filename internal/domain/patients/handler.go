package patients

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinica/turnos/internal/platform/docstore"
)

type Handler struct {
	svc  *Service
	docs docstore.Store
}

func NewHandler(svc *Service, docs docstore.Store) *Handler {
	return &Handler{svc: svc, docs: docs}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/patients", h.Register)
	api.GET("/patients", h.Search)
	api.GET("/patients/:id", h.GetPatient)
	api.PUT("/patients/:id", h.UpdatePatient)
	api.DELETE("/patients/:id", h.DeletePatient)
	api.POST("/patients/:id/document", h.UploadDocument)
	api.GET("/patients/:id/document", h.DownloadDocument)
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	case errors.Is(err, ErrDuplicateDNI):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

type registerRequest struct {
	DNI               string  `json:"dni" form:"dni"`
	FullName          string  `json:"full_name" form:"full_name"`
	Phone             *string `json:"phone" form:"phone"`
	Address           *string `json:"address" form:"address"`
	Insurance         *string `json:"insurance" form:"insurance"`
	Note              *string `json:"note" form:"note"`
	RedirectToBooking bool    `json:"redirect_to_booking" form:"redirect_to_booking"`
}

func (h *Handler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p := &Patient{
		DNI:       req.DNI,
		FullName:  req.FullName,
		Phone:     req.Phone,
		Address:   req.Address,
		Insurance: req.Insurance,
		Note:      req.Note,
	}
	if err := h.svc.Register(c.Request().Context(), p); err != nil {
		if errors.Is(err, ErrDuplicateDNI) {
			return httpError(err)
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"patient":             p,
		"redirect_to_booking": req.RedirectToBooking,
	})
}

func (h *Handler) GetPatient(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) Search(c echo.Context) error {
	items, err := h.svc.Search(c.Request().Context(), c.QueryParam("q"), c.QueryParam("field"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"patients": items,
		"count":    len(items),
	})
}

func (h *Handler) UpdatePatient(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.DNI != "" {
		p.DNI = req.DNI
	}
	if req.FullName != "" {
		p.FullName = req.FullName
	}
	if req.Phone != nil {
		p.Phone = req.Phone
	}
	if req.Address != nil {
		p.Address = req.Address
	}
	if req.Insurance != nil {
		p.Insurance = req.Insurance
	}
	if req.Note != nil {
		p.Note = req.Note
	}
	if err := h.svc.Update(c.Request().Context(), p); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) DeletePatient(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) UploadDocument(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file is required")
	}
	src, err := fh.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	defer src.Close()

	name := SanitizeFilename(fh.Filename)
	if name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid filename")
	}
	stored := id.String() + "_" + name
	if _, err := h.docs.Save(c.Request().Context(), stored, src); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if err := h.svc.AttachDocument(c.Request().Context(), id, stored); err != nil {
		// No patient record references the stored bytes; remove them.
		_ = h.docs.Delete(c.Request().Context(), stored)
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, map[string]string{"document_file": stored})
}

func (h *Handler) DownloadDocument(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	if p.DocumentFile == nil {
		return echo.NewHTTPError(http.StatusNotFound, "patient has no document")
	}
	rc, err := h.docs.Open(c.Request().Context(), *p.DocumentFile)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "document not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	defer rc.Close()
	return c.Stream(http.StatusOK, "application/octet-stream", rc)
}
